package api

import (
	"net/http"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/httputil"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/middleware"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/users"
	"github.com/gorilla/mux"
)

// UserHandlers handles user directory HTTP requests
type UserHandlers struct {
	service *users.Service
}

// NewUserHandlers creates the user handlers.
func NewUserHandlers(service *users.Service) *UserHandlers {
	return &UserHandlers{service: service}
}

// RegisterRoutes registers user routes. Listing, creation and single-user
// reads gate inside the service on the caller's scope; deletion is
// super-admin only.
func (h *UserHandlers) RegisterRoutes(router *mux.Router, guards *middleware.Guards) {
	router.HandleFunc("/users", h.List).Methods("GET")
	router.HandleFunc("/users", h.Create).Methods("POST")
	router.HandleFunc("/users/{user_id}", h.Get).Methods("GET")
	router.Handle("/users/{user_id}",
		guards.RequireSuperAdmin(http.HandlerFunc(h.Delete))).Methods("DELETE")
}

// List handles GET /users?org_name=&team_name=
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	org := httputil.ParseQueryString(r, "org_name", "")
	team := httputil.ParseQueryString(r, "team_name", "")

	out, err := h.service.ListScopedUsers(r.Context(), middleware.ScopeFrom(r), org, team)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, out)
}

// Create handles POST /users
func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	res, err := h.service.Create(r.Context(), middleware.ScopeFrom(r), req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, res)
}

// Get handles GET /users/{user_id}
func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), middleware.ScopeFrom(r), mux.Vars(r)["user_id"])
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// Delete handles DELETE /users/{user_id}
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["user_id"]); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
