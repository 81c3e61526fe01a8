package api

import (
	"context"
	"net/http"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/httputil"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/middleware"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/teams"
	"github.com/gorilla/mux"
)

// TeamHandlers handles team-related HTTP requests
type TeamHandlers struct {
	service *teams.Service
}

// NewTeamHandlers creates the team handlers.
func NewTeamHandlers(service *teams.Service) *TeamHandlers {
	return &TeamHandlers{service: service}
}

// RegisterRoutes registers team routes with their guards. Manager changes
// need org-admin authority; member changes only team-manager authority.
func (h *TeamHandlers) RegisterRoutes(router *mux.Router, guards *middleware.Guards) {
	router.Handle("/organizations/{org_name}/teams",
		guards.RequireOrgAdmin(http.HandlerFunc(h.List))).Methods("GET")
	router.Handle("/organizations/{org_name}/teams",
		guards.RequireOrgAdmin(http.HandlerFunc(h.Create))).Methods("POST")
	router.Handle("/organizations/{org_name}/teams/{team_name}",
		guards.RequireOrgAdmin(http.HandlerFunc(h.Delete))).Methods("DELETE")

	router.Handle("/organizations/{org_name}/teams/{team_name}/managers",
		guards.RequireOrgAdmin(http.HandlerFunc(h.AddManager))).Methods("POST")
	router.Handle("/organizations/{org_name}/teams/{team_name}/managers/{username}",
		guards.RequireOrgAdmin(http.HandlerFunc(h.RemoveManager))).Methods("DELETE")

	router.Handle("/organizations/{org_name}/teams/{team_name}/members",
		guards.RequireTeamManager(http.HandlerFunc(h.AddMember))).Methods("POST")
	router.Handle("/organizations/{org_name}/teams/{team_name}/members/{username}",
		guards.RequireTeamManager(http.HandlerFunc(h.RemoveMember))).Methods("DELETE")
}

// List handles GET /organizations/{org_name}/teams
func (h *TeamHandlers) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context(), mux.Vars(r)["org_name"])
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, out)
}

// Create handles POST /organizations/{org_name}/teams
func (h *TeamHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req teams.CreateTeamRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	team, err := h.service.Create(r.Context(), mux.Vars(r)["org_name"], req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, team)
}

// Delete handles DELETE /organizations/{org_name}/teams/{team_name}
func (h *TeamHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.Delete(r.Context(), vars["org_name"], vars["team_name"]); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// AddManager handles POST /organizations/{org_name}/teams/{team_name}/managers
func (h *TeamHandlers) AddManager(w http.ResponseWriter, r *http.Request) {
	h.addRole(w, r, h.service.AddManager)
}

// RemoveManager handles DELETE /organizations/{org_name}/teams/{team_name}/managers/{username}
func (h *TeamHandlers) RemoveManager(w http.ResponseWriter, r *http.Request) {
	h.removeRole(w, r, h.service.RemoveManager)
}

// AddMember handles POST /organizations/{org_name}/teams/{team_name}/members
func (h *TeamHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	h.addRole(w, r, h.service.AddMember)
}

// RemoveMember handles DELETE /organizations/{org_name}/teams/{team_name}/members/{username}
func (h *TeamHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	h.removeRole(w, r, h.service.RemoveMember)
}

func (h *TeamHandlers) addRole(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string, string) error) {
	var req memberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}

	vars := mux.Vars(r)
	if err := op(r.Context(), vars["org_name"], vars["team_name"], req.Username); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *TeamHandlers) removeRole(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string, string) error) {
	vars := mux.Vars(r)
	if err := op(r.Context(), vars["org_name"], vars["team_name"], vars["username"]); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
