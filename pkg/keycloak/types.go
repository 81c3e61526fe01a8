package keycloak

// Group is a node of the realm's group tree.
type Group struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SubGroups []Group `json:"subGroups,omitempty"`
}

// User is a realm user as seen by this system: an opaque identifier, the
// identity attributes Keycloak owns, and optionally the group paths the user
// belongs to (populated by callers that need them).
type User struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Enabled   bool     `json:"enabled"`
	Groups    []string `json:"groups,omitempty"`
}

// UserSpec describes a user to create. The password is set as a permanent
// (non-temporary) credential.
type UserSpec struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// UserUpdate carries a partial profile update; nil fields are left untouched.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// TokenSet is the response of the realm token endpoint.
type TokenSet struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

// wire representations of the Admin API payloads

type groupCreate struct {
	Name string `json:"name"`
}

type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type userCreate struct {
	Username    string                     `json:"username"`
	Email       string                     `json:"email"`
	FirstName   string                     `json:"firstName,omitempty"`
	LastName    string                     `json:"lastName,omitempty"`
	Enabled     bool                       `json:"enabled"`
	Credentials []credentialRepresentation `json:"credentials,omitempty"`
}

type userPatch struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}
