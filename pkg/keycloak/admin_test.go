package keycloak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-realm", srv.Client())
}

func TestCreateGroup(t *testing.T) {
	t.Run("returns id from location header", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/admin/realms/test-realm/groups", r.URL.Path)

			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "acme", payload["name"])

			w.Header().Set("Location", r.URL.Path+"/4f6e7c90-1111-2222-3333-444455556666")
			w.WriteHeader(http.StatusCreated)
		})

		id, err := client.CreateGroup(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "4f6e7c90-1111-2222-3333-444455556666", id)
	})

	t.Run("duplicate name is a conflict", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"errorMessage": "Top level group named 'acme' already exists."})
		})

		_, err := client.CreateGroup(context.Background(), "acme")
		require.Error(t, err)
		assert.True(t, IsConflict(err))
		assert.Contains(t, err.Error(), "already exists")
	})
}

func TestCreateChildGroup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/realms/test-realm/groups/parent-id/children", r.URL.Path)
		w.Header().Set("Location", r.URL.Path+"/child-id")
		w.WriteHeader(http.StatusCreated)
	})

	id, err := client.CreateChildGroup(context.Background(), "parent-id", "admin")
	require.NoError(t, err)
	assert.Equal(t, "child-id", id)
}

func TestDeleteGroup(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		})
		assert.NoError(t, client.DeleteGroup(context.Background(), "gid"))
	})

	t.Run("absent group is not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		err := client.DeleteGroup(context.Background(), "gid")
		assert.True(t, IsNotFound(err))
	})
}

func TestGetGroupByPath(t *testing.T) {
	t.Run("resolves and normalizes the path", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/admin/realms/test-realm/group-by-path/acme/admin", r.URL.Path)
			json.NewEncoder(w).Encode(Group{ID: "gid", Name: "admin", Path: "/acme/admin"})
		})

		group, err := client.GetGroupByPath(context.Background(), " /Acme/Admin ")
		require.NoError(t, err)
		require.NotNil(t, group)
		assert.Equal(t, "gid", group.ID)
	})

	t.Run("absent group yields nil without error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		group, err := client.GetGroupByPath(context.Background(), "/missing")
		require.NoError(t, err)
		assert.Nil(t, group)
	})
}

func TestGetGroup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Group{
			ID:   "org-id",
			Name: "acme",
			Path: "/acme",
			SubGroups: []Group{
				{ID: "admin-id", Name: "admin", Path: "/acme/admin"},
				{ID: "user-id", Name: "user", Path: "/acme/user"},
			},
		})
	})

	group, err := client.GetGroup(context.Background(), "org-id")
	require.NoError(t, err)
	require.Len(t, group.SubGroups, 2)
	assert.Equal(t, "admin", group.SubGroups[0].Name)
}

func TestGetUserID(t *testing.T) {
	t.Run("exact username match", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "alice", r.URL.Query().Get("username"))
			assert.Equal(t, "true", r.URL.Query().Get("exact"))
			json.NewEncoder(w).Encode([]User{{ID: "uid-1", Username: "alice"}})
		})

		id, err := client.GetUserID(context.Background(), " Alice ")
		require.NoError(t, err)
		assert.Equal(t, "uid-1", id)
	})

	t.Run("unknown username yields empty id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]User{})
		})

		id, err := client.GetUserID(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Equal(t, "", id)
	})
}

func TestGetUserGroupPaths(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/realms/test-realm/users/uid-1/groups", r.URL.Path)
		json.NewEncoder(w).Encode([]Group{
			{ID: "a", Path: "/acme/admin"},
			{ID: "b", Path: "/acme/payments/member"},
			{ID: "c", Path: ""},
		})
	})

	paths, err := client.GetUserGroupPaths(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"/acme/admin", "/acme/payments/member"}, paths)
}

func TestCreateUser(t *testing.T) {
	t.Run("sends permanent password credential", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var payload userCreate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "alice", payload.Username)
			assert.Equal(t, "alice@example.com", payload.Email)
			assert.True(t, payload.Enabled)
			require.Len(t, payload.Credentials, 1)
			assert.Equal(t, "password", payload.Credentials[0].Type)
			assert.False(t, payload.Credentials[0].Temporary)

			w.Header().Set("Location", r.URL.Path+"/new-uid")
			w.WriteHeader(http.StatusCreated)
		})

		id, err := client.CreateUser(context.Background(), UserSpec{
			Username: "Alice",
			Email:    "Alice@Example.com",
			Password: "s3cret",
		})
		require.NoError(t, err)
		assert.Equal(t, "new-uid", id)
	})

	t.Run("duplicate user is a conflict", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"errorMessage": "User exists with same email"})
		})

		_, err := client.CreateUser(context.Background(), UserSpec{Username: "alice"})
		assert.True(t, IsConflict(err))
	})
}

func TestGroupMembershipEdges(t *testing.T) {
	t.Run("add uses PUT on the membership resource", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/admin/realms/test-realm/users/uid/groups/gid", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})
		assert.NoError(t, client.AddUserToGroup(context.Background(), "uid", "gid"))
	})

	t.Run("remove of a non-member surfaces the provider error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNotFound)
		})
		err := client.RemoveUserFromGroup(context.Background(), "uid", "gid")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}
