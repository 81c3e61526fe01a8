package api

import (
	"net/http"
	"time"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/auth"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/httputil"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/keycloak"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/middleware"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/gorilla/mux"
)

const refreshTokenCookie = "refresh_token"

// AuthHandlers handles session and self-service profile requests.
type AuthHandlers struct {
	service       *auth.Service
	secureCookies bool
}

// NewAuthHandlers creates the auth handlers.
func NewAuthHandlers(service *auth.Service, secureCookies bool) *AuthHandlers {
	return &AuthHandlers{service: service, secureCookies: secureCookies}
}

// RegisterRoutes registers the authenticated self-service routes. The
// session routes (login/refresh/logout) are registered by the server on the
// public router.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/me/profile", h.MyProfile).Methods("GET")
	router.HandleFunc("/auth/me/profile", h.UpdateMyProfile).Methods("PUT")
	router.HandleFunc("/auth/me/password", h.UpdateMyPassword).Methods("PUT")
	router.HandleFunc("/auth/me/verify-email", h.SendVerificationEmail).Methods("POST")
	router.HandleFunc("/auth/me/memberships", h.MyMemberships).Methods("GET")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") ||
		!httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	httputil.WriteSuccess(w, tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := h.refreshTokenFrom(r)
	if raw == "" {
		httputil.WriteUnauthorized(w, "missing refresh token")
		return
	}

	tokens, err := h.service.Refresh(r.Context(), raw)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	httputil.WriteSuccess(w, tokens)
}

// Logout handles POST /auth/logout. Cookies are cleared even when the
// provider-side revocation fails.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := h.refreshTokenFrom(r); raw != "" {
		if err := h.service.Logout(r.Context(), raw); err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("provider-side logout failed")
		}
	}

	h.clearSessionCookies(w)
	httputil.WriteNoContent(w)
}

// MyProfile handles GET /auth/me/profile
func (h *AuthHandlers) MyProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	user, err := h.service.MyProfile(r.Context(), claims.Subject)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

type profileUpdateRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// UpdateMyProfile handles PUT /auth/me/profile
func (h *AuthHandlers) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	var req profileUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	update := keycloak.UserUpdate{Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}
	if err := h.service.UpdateMyProfile(r.Context(), claims.Subject, update); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type passwordUpdateRequest struct {
	Password string `json:"password"`
}

// UpdateMyPassword handles PUT /auth/me/password
func (h *AuthHandlers) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	var req passwordUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	if err := h.service.UpdateMyPassword(r.Context(), claims.Subject, req.Password); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// SendVerificationEmail handles POST /auth/me/verify-email
func (h *AuthHandlers) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	if err := h.service.SendVerificationEmail(r.Context(), claims.Subject); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// MyMemberships handles GET /auth/me/memberships
func (h *AuthHandlers) MyMemberships(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	httputil.WriteSuccess(w, auth.MembershipsFor(claims))
}

func (h *AuthHandlers) refreshTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req refreshRequest
	if err := httputil.ParseJSON(r, &req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandlers) setSessionCookies(w http.ResponseWriter, tokens *keycloak.TokenSet) {
	http.SetCookie(w, h.sessionCookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.ExpiresIn))
	http.SetCookie(w, h.sessionCookie(refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresIn))
}

func (h *AuthHandlers) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.sessionCookie(middleware.AccessTokenCookie, "", -1))
	http.SetCookie(w, h.sessionCookie(refreshTokenCookie, "", -1))
}

func (h *AuthHandlers) sessionCookie(name, value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = maxAge
		c.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	} else if value == "" {
		c.MaxAge = -1
	}
	return c
}
