package keycloak

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Fake is an in-memory AdminAPI for tests: a mutable group tree with
// memberships and a user directory, mirroring the Admin API's error
// behavior (409 on duplicates, 404 on unknown ids and on removing a
// non-member).
type Fake struct {
	mu     sync.Mutex
	nextID int

	groups  map[string]*fakeGroup
	roots   []string
	users   map[string]*User
	members map[string]map[string]struct{}

	// FailGroups makes GetGroup and GetGroupMembers fail for the listed
	// group ids, simulating a partially unreadable tree.
	FailGroups map[string]bool

	// PasswordsSet and VerifyEmailsSent record credential and email
	// operations for assertions.
	PasswordsSet     map[string]string
	VerifyEmailsSent []string
}

type fakeGroup struct {
	id       string
	name     string
	parent   string
	children []string
}

// NewFake creates an empty fake realm.
func NewFake() *Fake {
	return &Fake{
		groups:       make(map[string]*fakeGroup),
		users:        make(map[string]*User),
		members:      make(map[string]map[string]struct{}),
		FailGroups:   make(map[string]bool),
		PasswordsSet: make(map[string]string),
	}
}

var _ AdminAPI = (*Fake)(nil)

func (f *Fake) newID(kind string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", kind, f.nextID)
}

func (f *Fake) pathOf(id string) string {
	var segments []string
	for id != "" {
		g := f.groups[id]
		segments = append([]string{g.name}, segments...)
		id = g.parent
	}
	return "/" + strings.Join(segments, "/")
}

func (f *Fake) groupView(id string) Group {
	g := f.groups[id]
	view := Group{ID: g.id, Name: g.name, Path: f.pathOf(id)}
	for _, childID := range g.children {
		view.SubGroups = append(view.SubGroups, f.groupView(childID))
	}
	return view
}

func apiErr(op string, status int, format string, args ...interface{}) *APIError {
	return &APIError{Op: op, Status: status, Message: fmt.Sprintf(format, args...)}
}

// CreateGroup creates a top-level group.
func (f *Fake) CreateGroup(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rootID := range f.roots {
		if f.groups[rootID].name == name {
			return "", apiErr("POST", http.StatusConflict, "Top level group named '%s' already exists.", name)
		}
	}

	id := f.newID("group")
	f.groups[id] = &fakeGroup{id: id, name: name}
	f.roots = append(f.roots, id)
	return id, nil
}

// CreateChildGroup creates a child group under parentID.
func (f *Fake) CreateChildGroup(ctx context.Context, parentID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parent, ok := f.groups[parentID]
	if !ok {
		return "", apiErr("POST", http.StatusNotFound, "Could not find group by id")
	}
	for _, childID := range parent.children {
		if f.groups[childID].name == name {
			return "", apiErr("POST", http.StatusConflict, "Sibling group named '%s' already exists.", name)
		}
	}

	id := f.newID("group")
	f.groups[id] = &fakeGroup{id: id, name: name, parent: parentID}
	parent.children = append(parent.children, id)
	return id, nil
}

// DeleteGroup deletes a group and its whole subtree.
func (f *Fake) DeleteGroup(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.groups[id]
	if !ok {
		return apiErr("DELETE", http.StatusNotFound, "Could not find group by id")
	}

	if g.parent == "" {
		for i, rootID := range f.roots {
			if rootID == id {
				f.roots = append(f.roots[:i], f.roots[i+1:]...)
				break
			}
		}
	} else {
		parent := f.groups[g.parent]
		for i, childID := range parent.children {
			if childID == id {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
	}

	var drop func(string)
	drop = func(gid string) {
		for _, childID := range f.groups[gid].children {
			drop(childID)
		}
		delete(f.members, gid)
		delete(f.groups, gid)
	}
	drop(id)
	return nil
}

// GetGroupByPath resolves a group by its slash path, nil when absent.
func (f *Fake) GetGroupByPath(ctx context.Context, path string) (*Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, nil
	}

	current := ""
	candidates := f.roots
	for _, segment := range segments {
		found := ""
		for _, id := range candidates {
			if f.groups[id].name == segment {
				found = id
				break
			}
		}
		if found == "" {
			return nil, nil
		}
		current = found
		candidates = f.groups[found].children
	}

	view := f.groupView(current)
	return &view, nil
}

// GetGroup fetches a group by id with its subtree.
func (f *Fake) GetGroup(ctx context.Context, id string) (*Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailGroups[id] {
		return nil, apiErr("GET", http.StatusForbidden, "unreadable group")
	}
	if _, ok := f.groups[id]; !ok {
		return nil, apiErr("GET", http.StatusNotFound, "Could not find group by id")
	}
	view := f.groupView(id)
	return &view, nil
}

// GetGroupMembers lists the direct members of a group.
func (f *Fake) GetGroupMembers(ctx context.Context, id string) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailGroups[id] {
		return nil, apiErr("GET", http.StatusForbidden, "unreadable group")
	}
	if _, ok := f.groups[id]; !ok {
		return nil, apiErr("GET", http.StatusNotFound, "Could not find group by id")
	}

	var out []User
	for userID := range f.members[id] {
		out = append(out, *f.users[userID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// ListTopLevelGroups lists all root groups.
func (f *Fake) ListTopLevelGroups(ctx context.Context) ([]Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Group
	for _, id := range f.roots {
		out = append(out, f.groupView(id))
	}
	return out, nil
}

// ListUsers lists every user.
func (f *Fake) ListUsers(ctx context.Context) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []User
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// GetUserID resolves a username, "" when unknown.
func (f *Fake) GetUserID(ctx context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, u := range f.users {
		if u.Username == username {
			return id, nil
		}
	}
	return "", nil
}

// GetUser fetches a user by id.
func (f *Fake) GetUser(ctx context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, apiErr("GET", http.StatusNotFound, "User not found")
	}
	copied := *u
	return &copied, nil
}

// GetUserGroupPaths lists the paths of the user's direct memberships.
func (f *Fake) GetUserGroupPaths(ctx context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return nil, apiErr("GET", http.StatusNotFound, "User not found")
	}

	var paths []string
	for groupID, userIDs := range f.members {
		if _, member := userIDs[id]; member {
			paths = append(paths, f.pathOf(groupID))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// CreateUser creates an enabled user.
func (f *Fake) CreateUser(ctx context.Context, spec UserSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == spec.Username {
			return "", apiErr("POST", http.StatusConflict, "User exists with same username")
		}
	}

	id := f.newID("user")
	f.users[id] = &User{
		ID:        id,
		Username:  spec.Username,
		Email:     spec.Email,
		FirstName: spec.FirstName,
		LastName:  spec.LastName,
		Enabled:   true,
	}
	if spec.Password != "" {
		f.PasswordsSet[id] = spec.Password
	}
	return id, nil
}

// UpdateUser applies a partial profile update.
func (f *Fake) UpdateUser(ctx context.Context, id string, update UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return apiErr("PUT", http.StatusNotFound, "User not found")
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	return nil
}

// SetUserPassword records the new password.
func (f *Fake) SetUserPassword(ctx context.Context, id, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return apiErr("PUT", http.StatusNotFound, "User not found")
	}
	f.PasswordsSet[id] = password
	return nil
}

// SendVerifyEmail records the request.
func (f *Fake) SendVerifyEmail(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return apiErr("PUT", http.StatusNotFound, "User not found")
	}
	f.VerifyEmailsSent = append(f.VerifyEmailsSent, id)
	return nil
}

// DeleteUser deletes a user and all their memberships.
func (f *Fake) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return apiErr("DELETE", http.StatusNotFound, "User not found")
	}
	delete(f.users, id)
	for _, userIDs := range f.members {
		delete(userIDs, id)
	}
	return nil
}

// AddUserToGroup adds a membership edge; idempotent like Keycloak's PUT.
func (f *Fake) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[userID]; !ok {
		return apiErr("PUT", http.StatusNotFound, "User not found")
	}
	if _, ok := f.groups[groupID]; !ok {
		return apiErr("PUT", http.StatusNotFound, "Could not find group by id")
	}
	if f.members[groupID] == nil {
		f.members[groupID] = make(map[string]struct{})
	}
	f.members[groupID][userID] = struct{}{}
	return nil
}

// RemoveUserFromGroup removes a membership edge; removing a non-member
// fails the way the provider does.
func (f *Fake) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[userID]; !ok {
		return apiErr("DELETE", http.StatusNotFound, "User not found")
	}
	if _, ok := f.groups[groupID]; !ok {
		return apiErr("DELETE", http.StatusNotFound, "Could not find group by id")
	}
	if _, member := f.members[groupID][userID]; !member {
		return apiErr("DELETE", http.StatusNotFound, "User is not a member of the group")
	}
	delete(f.members[groupID], userID)
	return nil
}

// Admin makes Fake usable wherever a Source is expected.
func (f *Fake) Admin(ctx context.Context) AdminAPI { return f }

var _ Source = (*Fake)(nil)

// GroupIDByPath is a test convenience resolving a path to an id, "" when
// absent.
func (f *Fake) GroupIDByPath(path string) string {
	g, _ := f.GetGroupByPath(context.Background(), path)
	if g == nil {
		return ""
	}
	return g.ID
}

// IsMember is a test convenience reporting direct membership.
func (f *Fake) IsMember(userID, groupID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[groupID][userID]
	return ok
}
