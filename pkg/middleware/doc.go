// Package middleware provides the HTTP middleware chain for the service:
// token authentication, per-route authorization guards, request IDs, and
// rate limiting.
//
// # Authentication
//
// The Authenticator verifies the access token (cookie or Bearer header)
// and stores the claims plus the caller's computed group scope in the
// request context:
//
//	authn := middleware.NewAuthenticator(verifier)
//	router.Use(authn.Handler)
//
// # Authorization guards
//
// Guards evaluate one predicate against the route variables:
//
//	guards := middleware.NewGuards(metrics)
//	r.Handle("/organizations", guards.RequireSuperAdmin(createOrg)).Methods("POST")
//
// # Rate limiting
//
// A process-local token bucket or a Redis-backed fixed window, both keyed
// by client IP:
//
//	limiter := middleware.NewRateLimiter(nil)
//	r.Handle("/auth/login", limiter.Handler(login)).Methods("POST")
package middleware
