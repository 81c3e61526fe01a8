package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/auth"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/keycloak"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/middleware"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/orgs"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/teams"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenVerifier maps bearer tokens to group claims, standing in for OIDC
// verification.
type tokenVerifier struct {
	claims map[string]*auth.Claims
}

func (v *tokenVerifier) Verify(ctx context.Context, raw string) (*auth.Claims, error) {
	if claims, ok := v.claims[raw]; ok {
		return claims, nil
	}
	return nil, &auth.InvalidTokenError{Reason: "unknown token"}
}

type stubTokens struct {
	tokens *keycloak.TokenSet
	err    error
}

func (s *stubTokens) PasswordGrant(ctx context.Context, username, password string) (*keycloak.TokenSet, error) {
	return s.tokens, s.err
}
func (s *stubTokens) RefreshGrant(ctx context.Context, refreshToken string) (*keycloak.TokenSet, error) {
	return s.tokens, s.err
}
func (s *stubTokens) Logout(ctx context.Context, refreshToken string) error { return s.err }

func newTestServer(t *testing.T, tokens *stubTokens) (*Server, *keycloak.Fake) {
	t.Helper()

	fake := keycloak.NewFake()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	verifier := &tokenVerifier{claims: map[string]*auth.Claims{
		"tok-super":    auth.StaticClaims("id-super", []string{"/super-admin"}),
		"tok-orgadmin": auth.StaticClaims("id-orgadmin", []string{"/acme/admin"}),
		"tok-manager":  auth.StaticClaims("id-manager", []string{"/acme/payments/manager"}),
		"tok-member":   auth.StaticClaims("id-member", []string{"/acme/user"}),
	}}

	server := NewServer(Deps{
		Auth:          auth.NewService(tokens, fake, logger),
		Orgs:          orgs.NewService(fake, logger),
		Teams:         teams.NewService(fake, logger),
		Users:         users.NewService(fake, logger),
		Authenticator: middleware.NewAuthenticator(verifier),
		Guards:        middleware.NewGuards(nil),
		Logger:        logger,
	})
	return server, fake
}

func doJSON(t *testing.T, server *Server, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func seedOrgWithTeam(t *testing.T, server *Server) {
	t.Helper()
	rec := doJSON(t, server, http.MethodPost, "/organizations", "tok-super", `{"name":"acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doJSON(t, server, http.MethodPost, "/organizations/acme/teams", "tok-super", `{"name":"payments"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestUnauthenticatedRequests(t *testing.T) {
	server, _ := newTestServer(t, &stubTokens{})

	rec := doJSON(t, server, http.MethodGet, "/organizations", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/organizations", "tok-bogus", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSetsCookies(t *testing.T) {
	server, _ := newTestServer(t, &stubTokens{tokens: &keycloak.TokenSet{
		AccessToken: "at", RefreshToken: "rt", ExpiresIn: 300, RefreshExpiresIn: 1800,
	}})

	rec := doJSON(t, server, http.MethodPost, "/auth/login", "", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	names := map[string]string{}
	for _, c := range cookies {
		names[c.Name] = c.Value
		assert.True(t, c.HttpOnly)
	}
	assert.Equal(t, "at", names["access_token"])
	assert.Equal(t, "rt", names["refresh_token"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	server, _ := newTestServer(t, &stubTokens{err: io.EOF})

	rec := doJSON(t, server, http.MethodPost, "/auth/login", "", `{"username":"alice","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestLoginValidation(t *testing.T) {
	server, _ := newTestServer(t, &stubTokens{})

	rec := doJSON(t, server, http.MethodPost, "/auth/login", "", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsCookies(t *testing.T) {
	server, _ := newTestServer(t, &stubTokens{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "rt"})
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestOrgLifecycleGuards(t *testing.T) {
	server, _ := newTestServer(t, &stubTokens{})

	// Only super admins create organizations.
	rec := doJSON(t, server, http.MethodPost, "/organizations", "tok-orgadmin", `{"name":"globex"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/organizations", "tok-super", `{"name":"globex"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reserved names are rejected before touching the provider.
	rec = doJSON(t, server, http.MethodPost, "/organizations", "tok-super", `{"name":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate creation conflicts.
	rec = doJSON(t, server, http.MethodPost, "/organizations", "tok-super", `{"name":"globex"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, server, http.MethodDelete, "/organizations/globex", "tok-super", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, server, http.MethodDelete, "/organizations/globex", "tok-super", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTeamGuardAssignment(t *testing.T) {
	server, fake := newTestServer(t, &stubTokens{})
	seedOrgWithTeam(t, server)

	_, err := fake.CreateUser(context.Background(), keycloak.UserSpec{Username: "dave"})
	require.NoError(t, err)

	// Member changes need only team-manager authority.
	rec := doJSON(t, server, http.MethodPost,
		"/organizations/acme/teams/payments/members", "tok-manager", `{"username":"dave"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// Manager changes need org-admin authority; a team manager is refused.
	rec = doJSON(t, server, http.MethodPost,
		"/organizations/acme/teams/payments/managers", "tok-manager", `{"username":"dave"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, server, http.MethodPost,
		"/organizations/acme/teams/payments/managers", "tok-orgadmin", `{"username":"dave"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Plain org users cannot touch memberships at all.
	rec = doJSON(t, server, http.MethodDelete,
		"/organizations/acme/teams/payments/members/dave", "tok-member", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserRoutes(t *testing.T) {
	server, fake := newTestServer(t, &stubTokens{})
	seedOrgWithTeam(t, server)

	rec := doJSON(t, server, http.MethodPost, "/users", "tok-orgadmin",
		`{"username":"frank","password":"pw","orgs":["acme"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created users.CreateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, fake.IsMember(created.ID, fake.GroupIDByPath("/acme/user")))

	// The org admin can read the user they created.
	rec = doJSON(t, server, http.MethodGet, "/users/"+created.ID, "tok-orgadmin", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A plain member has no listing authority.
	rec = doJSON(t, server, http.MethodGet, "/users", "tok-member", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Deletion is super-admin only.
	rec = doJSON(t, server, http.MethodDelete, "/users/"+created.ID, "tok-orgadmin", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, server, http.MethodDelete, "/users/"+created.ID, "tok-super", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMyMemberships(t *testing.T) {
	server, _ := newTestServer(t, &stubTokens{})

	rec := doJSON(t, server, http.MethodGet, "/auth/me/memberships", "tok-manager", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var m auth.Memberships
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, []scope.TeamRef{{Org: "acme", Team: "payments"}}, m.ManagedTeams)
	assert.Equal(t, []string{"acme"}, m.Orgs)
}

func TestProfileRoutes(t *testing.T) {
	server, fake := newTestServer(t, &stubTokens{})

	// The verifier hands out subject "id-member"; give the realm a matching
	// user. The fake assigns ids sequentially, so create and remap.
	id, err := fake.CreateUser(context.Background(), keycloak.UserSpec{Username: "member", Email: "m@example.com"})
	require.NoError(t, err)

	verifier := &tokenVerifier{claims: map[string]*auth.Claims{
		"tok": auth.StaticClaims(id, []string{"/acme/user"}),
	}}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	server = NewServer(Deps{
		Auth:          auth.NewService(&stubTokens{}, fake, logger),
		Orgs:          orgs.NewService(fake, logger),
		Teams:         teams.NewService(fake, logger),
		Users:         users.NewService(fake, logger),
		Authenticator: middleware.NewAuthenticator(verifier),
		Guards:        middleware.NewGuards(nil),
		Logger:        logger,
	})

	rec := doJSON(t, server, http.MethodGet, "/auth/me/profile", "tok", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "m@example.com")

	rec = doJSON(t, server, http.MethodPut, "/auth/me/profile", "tok", `{"email":"new@example.com"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	user, err := fake.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)

	rec = doJSON(t, server, http.MethodPut, "/auth/me/password", "tok", `{"password":"next"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "next", fake.PasswordsSet[id])
}

func TestRequestIDHeader(t *testing.T) {
	server, _ := newTestServer(t, &stubTokens{})

	rec := doJSON(t, server, http.MethodGet, "/organizations", "tok-super", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
