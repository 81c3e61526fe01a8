package middleware

import (
	"net/http"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/authz"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/httputil"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/gorilla/mux"
)

// Guards builds per-route authorization middleware on top of the
// Authenticator. Each guard reads the caller scope from the request
// context, evaluates one predicate against the route variables, and
// renders the denial reason on failure.
type Guards struct {
	metrics *observability.Metrics
}

// NewGuards creates route guards. metrics may be nil.
func NewGuards(metrics *observability.Metrics) *Guards {
	return &Guards{metrics: metrics}
}

// RequireSuperAdmin admits only holders of the singleton super-admin group.
func (g *Guards) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := authz.RequireSuperAdmin(ScopeFrom(r))
		g.observe("super_admin", err)
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOrgAdmin admits org admins of the {org_name} route variable.
// Super admins pass unconditionally.
func (g *Guards) RequireOrgAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org := mux.Vars(r)["org_name"]
		err := authz.RequireOrgAdmin(ScopeFrom(r), org)
		g.observe("org_admin", err)
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTeamManager admits managers of the {org_name}/{team_name} route
// variables. Super admins and admins of the owning org pass unconditionally.
func (g *Guards) RequireTeamManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		err := authz.RequireTeamManager(ScopeFrom(r), vars["org_name"], vars["team_name"])
		g.observe("team_manager", err)
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guards) observe(predicate string, err error) {
	if g.metrics != nil {
		g.metrics.ObserveAuthzDecision(predicate, err == nil)
	}
}
