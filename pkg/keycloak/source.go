package keycloak

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Config identifies the realm and the confidential client used for both the
// admin surface and the token passthrough.
type Config struct {
	// BaseURL is the Keycloak server root, e.g. "http://localhost:8099".
	BaseURL string
	// Realm is the realm name.
	Realm string
	// ClientID / ClientSecret identify the confidential backend client.
	ClientID     string
	ClientSecret string
	// Timeout bounds each HTTP call to the provider.
	Timeout time.Duration
}

// TokenURL returns the realm's OpenID Connect token endpoint.
func (c Config) TokenURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/realms/" + c.Realm + "/protocol/openid-connect/token"
}

// LogoutURL returns the realm's logout endpoint.
func (c Config) LogoutURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/realms/" + c.Realm + "/protocol/openid-connect/logout"
}

// IssuerURL returns the realm issuer used for OIDC discovery.
func (c Config) IssuerURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/realms/" + c.Realm
}

// Source hands out admin clients to the service layer. Production code uses
// AdminSource; tests plug in a fake returning an in-memory AdminAPI.
type Source interface {
	Admin(ctx context.Context) AdminAPI
}

// AdminSource hands out fresh, short-lived admin clients. Each Admin call
// builds a new client-credentials token source, so an admin client is
// acquired at the start of a logical operation and thrown away at its end;
// nothing token-shaped is shared across concurrent operations.
type AdminSource struct {
	cfg      Config
	base     *http.Client
	observer Observer
}

var _ Source = (*AdminSource)(nil)

// NewAdminSource creates an AdminSource for the realm.
func NewAdminSource(cfg Config) *AdminSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &AdminSource{
		cfg:  cfg,
		base: &http.Client{Timeout: timeout},
	}
}

// Admin returns a fresh admin client whose requests carry a newly acquired
// client-credentials bearer token.
func (s *AdminSource) Admin(ctx context.Context) AdminAPI {
	cc := clientcredentials.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		TokenURL:     s.cfg.TokenURL(),
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)
	return NewClient(s.cfg.BaseURL, s.cfg.Realm, cc.Client(ctx)).WithObserver(s.observer)
}

// SetObserver attaches an Observer to every client handed out. Set once
// during startup, before the source is shared.
func (s *AdminSource) SetObserver(observer Observer) {
	s.observer = observer
}

// Config returns the source's realm configuration.
func (s *AdminSource) Config() Config {
	return s.cfg
}

// Ping probes the realm's public endpoint, for readiness checks.
func (s *AdminSource) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.IssuerURL(), nil)
	if err != nil {
		return err
	}
	resp, err := s.base.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Op: "ping", Path: req.URL.Path, Status: resp.StatusCode}
	}
	return nil
}
