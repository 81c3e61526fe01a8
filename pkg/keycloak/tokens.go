package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenClient speaks the realm's OpenID Connect token and logout endpoints
// on behalf of end users. Unlike the admin surface it authenticates with the
// confidential client credentials plus the user's own material.
type TokenClient struct {
	cfg  Config
	http *http.Client
}

// NewTokenClient creates a token client for the realm.
func NewTokenClient(cfg Config) *TokenClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &TokenClient{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// PasswordGrant exchanges user credentials for a token set (Keycloak direct
// access grant). Invalid credentials surface as a 401 APIError.
func (c *TokenClient) PasswordGrant(ctx context.Context, username, password string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	return c.tokenRequest(ctx, "password grant", form)
}

// RefreshGrant exchanges a refresh token for a fresh token set.
func (c *TokenClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, "refresh grant", form)
}

// Logout invalidates a refresh token's session.
func (c *TokenClient) Logout(ctx context.Context, refreshToken string) error {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LogoutURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("keycloak: build logout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak: logout: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: "logout", Path: req.URL.Path, Status: resp.StatusCode}
	}
	return nil
}

func (c *TokenClient) tokenRequest(ctx context.Context, op string, form url.Values) (*TokenSet, error) {
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("keycloak: build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Op:      op,
			Path:    req.URL.Path,
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	var tokens TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("keycloak: decode %s response: %w", op, err)
	}
	return &tokens, nil
}
