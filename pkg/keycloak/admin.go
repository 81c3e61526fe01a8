package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
)

// AdminAPI is the group/user management surface consumed by the service
// layer. Tests substitute an in-memory fake.
type AdminAPI interface {
	// CreateGroup creates a top-level group and returns its id. Duplicate
	// names fail with a conflict APIError.
	CreateGroup(ctx context.Context, name string) (string, error)
	// CreateChildGroup creates a child group under parentID.
	CreateChildGroup(ctx context.Context, parentID, name string) (string, error)
	// DeleteGroup deletes a group; Keycloak cascades to all descendant
	// groups and their memberships.
	DeleteGroup(ctx context.Context, id string) error
	// GetGroupByPath resolves a group by its slash path. Returns (nil, nil)
	// when the group does not exist; provider read failures are treated the
	// same way.
	GetGroupByPath(ctx context.Context, path string) (*Group, error)
	// GetGroup fetches a group by id including its direct subgroups.
	GetGroup(ctx context.Context, id string) (*Group, error)
	// GetGroupMembers lists the direct members of a group.
	GetGroupMembers(ctx context.Context, id string) ([]User, error)
	// ListTopLevelGroups lists all root groups of the realm.
	ListTopLevelGroups(ctx context.Context) ([]Group, error)

	// ListUsers lists every user of the realm.
	ListUsers(ctx context.Context) ([]User, error)
	// GetUserID resolves a username to a user id, or "" when unknown.
	GetUserID(ctx context.Context, username string) (string, error)
	// GetUser fetches a user by id.
	GetUser(ctx context.Context, id string) (*User, error)
	// GetUserGroupPaths lists the group paths a user belongs to directly.
	GetUserGroupPaths(ctx context.Context, id string) ([]string, error)
	// CreateUser creates an enabled user with a permanent password.
	CreateUser(ctx context.Context, spec UserSpec) (string, error)
	// UpdateUser applies a partial profile update.
	UpdateUser(ctx context.Context, id string, update UserUpdate) error
	// SetUserPassword replaces the user's password (non-temporary).
	SetUserPassword(ctx context.Context, id, password string) error
	// SendVerifyEmail triggers a verification email for the user.
	SendVerifyEmail(ctx context.Context, id string) error
	// DeleteUser deletes a user by id.
	DeleteUser(ctx context.Context, id string) error

	// AddUserToGroup adds a membership edge; adding an existing member is a
	// no-op on Keycloak's side.
	AddUserToGroup(ctx context.Context, userID, groupID string) error
	// RemoveUserFromGroup removes a membership edge; removing a non-member
	// fails with a provider error that is surfaced as-is.
	RemoveUserFromGroup(ctx context.Context, userID, groupID string) error
}

// Observer is invoked after every Admin API call, successful or not. Used
// to feed provider-call metrics without coupling this package to them.
type Observer func(operation string, start time.Time, err error)

// Client implements AdminAPI against a realm's Admin REST API. The embedded
// http.Client carries the admin bearer token via its oauth2 transport.
type Client struct {
	baseURL  string
	realm    string
	http     *http.Client
	observer Observer
}

var _ AdminAPI = (*Client)(nil)

// NewClient builds an admin client for a realm. httpClient must already
// authenticate requests (see AdminSource).
func NewClient(baseURL, realm string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		realm:   realm,
		http:    httpClient,
	}
}

// WithObserver attaches an Observer to the client and returns it.
func (c *Client) WithObserver(observer Observer) *Client {
	c.observer = observer
	return c
}

func (c *Client) adminURL(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/admin/realms/" + url.PathEscape(c.realm) + "/" + strings.Join(escaped, "/")
}

// do issues a request and decodes a 2xx JSON body into out (when non-nil).
// Non-2xx responses become *APIError carrying the Keycloak error message.
func (c *Client) do(ctx context.Context, op, method, rawURL string, body, out interface{}) (*http.Response, error) {
	start := time.Now()
	resp, err := c.roundTrip(ctx, op, method, rawURL, body, out)
	if c.observer != nil {
		c.observer(op, start, err)
	}
	return resp, err
}

func (c *Client) roundTrip(ctx context.Context, op, method, rawURL string, body, out interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("keycloak: encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("keycloak: build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Op:      op,
			Path:    req.URL.Path,
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("keycloak: decode %s response: %w", op, err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp, nil
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorMessage     string `json:"errorMessage"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	switch {
	case payload.ErrorMessage != "":
		return payload.ErrorMessage
	case payload.ErrorDescription != "":
		return payload.ErrorDescription
	default:
		return payload.Error
	}
}

// locationID extracts the created resource id from a 201 Location header.
func locationID(resp *http.Response) string {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return ""
	}
	parts := strings.Split(strings.TrimRight(loc, "/"), "/")
	return parts[len(parts)-1]
}

func (c *Client) CreateGroup(ctx context.Context, name string) (string, error) {
	resp, err := c.do(ctx, "create group", http.MethodPost, c.adminURL("groups"), groupCreate{Name: name}, nil)
	if err != nil {
		return "", err
	}
	return locationID(resp), nil
}

func (c *Client) CreateChildGroup(ctx context.Context, parentID, name string) (string, error) {
	resp, err := c.do(ctx, "create child group", http.MethodPost, c.adminURL("groups", parentID, "children"), groupCreate{Name: name}, nil)
	if err != nil {
		return "", err
	}
	return locationID(resp), nil
}

func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete group", http.MethodDelete, c.adminURL("groups", id), nil, nil)
	return err
}

func (c *Client) GetGroupByPath(ctx context.Context, path string) (*Group, error) {
	path = scope.Normalize(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	// group-by-path takes the slash path verbatim, so only the segments are
	// escaped, not the separators.
	segments := scope.Segments(path)
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	rawURL := c.baseURL + "/admin/realms/" + url.PathEscape(c.realm) + "/group-by-path/" + strings.Join(segments, "/")
	var group Group
	_, err := c.do(ctx, "get group by path", http.MethodGet, rawURL, nil, &group)
	if err != nil {
		// Absent and unreadable collapse to "not found" by design: a group
		// lookup failure is never a server error for the caller.
		return nil, nil
	}
	return &group, nil
}

func (c *Client) GetGroup(ctx context.Context, id string) (*Group, error) {
	var group Group
	if _, err := c.do(ctx, "get group", http.MethodGet, c.adminURL("groups", id), nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *Client) GetGroupMembers(ctx context.Context, id string) ([]User, error) {
	var users []User
	if _, err := c.do(ctx, "get group members", http.MethodGet, c.adminURL("groups", id, "members"), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) ListTopLevelGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if _, err := c.do(ctx, "list groups", http.MethodGet, c.adminURL("groups"), nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if _, err := c.do(ctx, "list users", http.MethodGet, c.adminURL("users"), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetUserID(ctx context.Context, username string) (string, error) {
	query := url.Values{}
	query.Set("username", scope.Normalize(username))
	query.Set("exact", "true")
	var users []User
	if _, err := c.do(ctx, "find user", http.MethodGet, c.adminURL("users")+"?"+query.Encode(), nil, &users); err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "", nil
	}
	return users[0].ID, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	if _, err := c.do(ctx, "get user", http.MethodGet, c.adminURL("users", id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserGroupPaths(ctx context.Context, id string) ([]string, error) {
	var groups []Group
	if _, err := c.do(ctx, "get user groups", http.MethodGet, c.adminURL("users", id, "groups"), nil, &groups); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(groups))
	for _, g := range groups {
		if g.Path != "" {
			paths = append(paths, g.Path)
		}
	}
	return paths, nil
}

func (c *Client) CreateUser(ctx context.Context, spec UserSpec) (string, error) {
	payload := userCreate{
		Username:  scope.Normalize(spec.Username),
		Email:     scope.Normalize(spec.Email),
		FirstName: spec.FirstName,
		LastName:  spec.LastName,
		Enabled:   true,
	}
	if spec.Password != "" {
		payload.Credentials = []credentialRepresentation{{
			Type:      "password",
			Value:     spec.Password,
			Temporary: false,
		}}
	}
	resp, err := c.do(ctx, "create user", http.MethodPost, c.adminURL("users"), payload, nil)
	if err != nil {
		return "", err
	}
	return locationID(resp), nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, update UserUpdate) error {
	_, err := c.do(ctx, "update user", http.MethodPut, c.adminURL("users", id), userPatch{
		Email:     update.Email,
		FirstName: update.FirstName,
		LastName:  update.LastName,
	}, nil)
	return err
}

func (c *Client) SetUserPassword(ctx context.Context, id, password string) error {
	_, err := c.do(ctx, "set user password", http.MethodPut, c.adminURL("users", id, "reset-password"), credentialRepresentation{
		Type:      "password",
		Value:     password,
		Temporary: false,
	}, nil)
	return err
}

func (c *Client) SendVerifyEmail(ctx context.Context, id string) error {
	_, err := c.do(ctx, "send verify email", http.MethodPut, c.adminURL("users", id, "send-verify-email"), nil, nil)
	return err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete user", http.MethodDelete, c.adminURL("users", id), nil, nil)
	return err
}

func (c *Client) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	_, err := c.do(ctx, "add user to group", http.MethodPut, c.adminURL("users", userID, "groups", groupID), nil, nil)
	return err
}

func (c *Client) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	_, err := c.do(ctx, "remove user from group", http.MethodDelete, c.adminURL("users", userID, "groups", groupID), nil, nil)
	return err
}
