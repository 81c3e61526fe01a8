package api

import (
	"context"
	"net/http"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/httputil"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/middleware"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/orgs"
	"github.com/gorilla/mux"
)

// OrgHandlers handles organization-related HTTP requests
type OrgHandlers struct {
	service *orgs.Service
}

// NewOrgHandlers creates the organization handlers.
func NewOrgHandlers(service *orgs.Service) *OrgHandlers {
	return &OrgHandlers{service: service}
}

// RegisterRoutes registers organization routes with their guards.
func (h *OrgHandlers) RegisterRoutes(router *mux.Router, guards *middleware.Guards) {
	router.HandleFunc("/organizations", h.List).Methods("GET")
	router.Handle("/organizations",
		guards.RequireSuperAdmin(http.HandlerFunc(h.Create))).Methods("POST")
	router.Handle("/organizations/{org_name}",
		guards.RequireSuperAdmin(http.HandlerFunc(h.Delete))).Methods("DELETE")

	router.Handle("/organizations/{org_name}/admins",
		guards.RequireSuperAdmin(http.HandlerFunc(h.AddAdmin))).Methods("POST")
	router.Handle("/organizations/{org_name}/admins/{username}",
		guards.RequireSuperAdmin(http.HandlerFunc(h.RemoveAdmin))).Methods("DELETE")

	router.Handle("/organizations/{org_name}/users",
		guards.RequireOrgAdmin(http.HandlerFunc(h.AddUser))).Methods("POST")
	router.Handle("/organizations/{org_name}/users/{username}",
		guards.RequireOrgAdmin(http.HandlerFunc(h.RemoveUser))).Methods("DELETE")
}

// List handles GET /organizations
func (h *OrgHandlers) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context(), middleware.ScopeFrom(r))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, out)
}

// Create handles POST /organizations
func (h *OrgHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req orgs.CreateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, org)
}

// Delete handles DELETE /organizations/{org_name}
func (h *OrgHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["org_name"]); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type memberRequest struct {
	Username string `json:"username"`
}

// AddAdmin handles POST /organizations/{org_name}/admins
func (h *OrgHandlers) AddAdmin(w http.ResponseWriter, r *http.Request) {
	h.addRole(w, r, h.service.AddAdmin)
}

// RemoveAdmin handles DELETE /organizations/{org_name}/admins/{username}
func (h *OrgHandlers) RemoveAdmin(w http.ResponseWriter, r *http.Request) {
	h.removeRole(w, r, h.service.RemoveAdmin)
}

// AddUser handles POST /organizations/{org_name}/users
func (h *OrgHandlers) AddUser(w http.ResponseWriter, r *http.Request) {
	h.addRole(w, r, h.service.AddUser)
}

// RemoveUser handles DELETE /organizations/{org_name}/users/{username}
func (h *OrgHandlers) RemoveUser(w http.ResponseWriter, r *http.Request) {
	h.removeRole(w, r, h.service.RemoveUser)
}

func (h *OrgHandlers) addRole(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) error) {
	var req memberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}

	if err := op(r.Context(), mux.Vars(r)["org_name"], req.Username); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *OrgHandlers) removeRole(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) error) {
	vars := mux.Vars(r)
	if err := op(r.Context(), vars["org_name"], vars["username"]); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
