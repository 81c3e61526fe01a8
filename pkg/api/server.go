// Package api wires the HTTP surface: routing, per-domain handlers, and the
// middleware chain around them.
package api

import (
	"net/http"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/audit"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/auth"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/middleware"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/orgs"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/teams"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/users"
	"github.com/gorilla/mux"
)

// Deps carries everything the server needs. LoginLimiter and Metrics may be
// nil.
type Deps struct {
	Auth  *auth.Service
	Orgs  *orgs.Service
	Teams *teams.Service
	Users *users.Service

	Authenticator *middleware.Authenticator
	Guards        *middleware.Guards
	LoginLimiter  func(http.Handler) http.Handler

	Metrics *observability.Metrics
	Logger  *observability.Logger

	// Audit records privileged mutations and denials; nil disables it.
	Audit audit.Recorder

	// SecureCookies marks session cookies Secure.
	SecureCookies bool
}

// Server is the HTTP API server.
type Server struct {
	router *mux.Router
	logger *observability.Logger
}

// NewServer builds the router with the full middleware chain.
func NewServer(deps Deps) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: deps.Logger,
	}
	s.setupRoutes(deps)
	return s
}

func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(middleware.RequestID)
	s.router.Use(observability.PanicRecoveryMiddleware(deps.Logger))
	if deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}
	if deps.Audit != nil {
		s.router.Use(audit.NewMiddleware(deps.Audit).Handler)
	}

	authHandlers := NewAuthHandlers(deps.Auth, deps.SecureCookies)
	orgHandlers := NewOrgHandlers(deps.Orgs)
	teamHandlers := NewTeamHandlers(deps.Teams)
	userHandlers := NewUserHandlers(deps.Users)

	// Session endpoints need no access token; login is rate limited.
	login := http.HandlerFunc(authHandlers.Login)
	if deps.LoginLimiter != nil {
		s.router.Handle("/auth/login", deps.LoginLimiter(login)).Methods("POST")
	} else {
		s.router.Handle("/auth/login", login).Methods("POST")
	}
	s.router.HandleFunc("/auth/refresh", authHandlers.Refresh).Methods("POST")
	s.router.HandleFunc("/auth/logout", authHandlers.Logout).Methods("POST")

	// Everything else requires a verified token.
	authed := s.router.NewRoute().Subrouter()
	authed.Use(deps.Authenticator.Handler)

	authHandlers.RegisterRoutes(authed)
	orgHandlers.RegisterRoutes(authed, deps.Guards)
	teamHandlers.RegisterRoutes(authed, deps.Guards)
	userHandlers.RegisterRoutes(authed, deps.Guards)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
