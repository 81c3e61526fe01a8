package keycloak

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the Keycloak Admin API.
type APIError struct {
	Op      string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("keycloak: %s %s: status %d: %s", e.Op, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("keycloak: %s %s: status %d", e.Op, e.Path, e.Status)
}

// IsNotFound reports whether err is a 404 from the Admin API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the Admin API, which Keycloak
// returns for duplicate group and user names.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

// IsBadRequest reports whether err is a 400 from the Admin API. Keycloak
// uses 400 for, among other things, removing a user from a group they are
// not a member of on some server versions.
func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}
