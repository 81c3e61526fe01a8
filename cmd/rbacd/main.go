package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/api"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/audit"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/auth"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/config"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/keycloak"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/middleware"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/orgs"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/teams"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/users"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

var version = "dev" // set via ldflags at release time

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rbacd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"version": version,
		"realm":   cfg.Keycloak.Realm,
	}).Info("starting rbacd")

	// OIDC discovery against the realm issuer. The provider must be up
	// before we can serve anything, so a failure here is fatal.
	discoveryCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	verifier, err := auth.NewOIDCVerifier(discoveryCtx, cfg.Keycloak.IssuerURL())
	if err != nil {
		return fmt.Errorf("oidc discovery: %w", err)
	}

	adminSource := keycloak.NewAdminSource(cfg.Keycloak)
	tokenClient := keycloak.NewTokenClient(cfg.Keycloak)

	redisClient, err := buildRedisClient(cfg)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		adminSource.SetObserver(metrics.ObserveProviderCall)
	}

	loginLimiter, limiterCleanup := buildLoginLimiter(cfg, redisClient, logger)

	var recorder audit.Recorder
	if cfg.Observability.AuditLogDir != "" {
		fileRecorder, err := audit.NewFileRecorder(audit.FileConfig{BasePath: cfg.Observability.AuditLogDir})
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		recorder = fileRecorder
		logger.WithField("dir", cfg.Observability.AuditLogDir).Info("audit trail enabled")
	}

	server := api.NewServer(api.Deps{
		Auth:          auth.NewService(tokenClient, adminSource, logger),
		Orgs:          orgs.NewService(adminSource, logger),
		Teams:         teams.NewService(adminSource, logger),
		Users:         users.NewService(adminSource, logger),
		Authenticator: middleware.NewAuthenticator(verifier),
		Guards:        middleware.NewGuards(metrics),
		LoginLimiter:  loginLimiter,
		Metrics:       metrics,
		Logger:        logger,
		Audit:         recorder,
		SecureCookies: cfg.Server.SecureCookies,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := buildHealthServer(cfg, adminSource, redisClient, registry)

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if limiterCleanup != nil {
		shutdown.RegisterShutdownFunc(limiterCleanup)
	}
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	if recorder != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return recorder.Close()
		})
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("api server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()

	return shutdown.WaitForShutdown()
}

// buildRedisClient accepts either a redis:// URL or a bare host:port in
// RBAC_REDIS_URL. Returns nil when Redis is not configured.
func buildRedisClient(cfg *config.Config) (*redis.Client, error) {
	raw := cfg.RateLimit.RedisURL
	if raw == "" {
		return nil, nil
	}

	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     raw,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	}), nil
}

// buildLoginLimiter picks the distributed limiter when Redis is configured,
// otherwise the in-process token bucket. Returns the middleware plus an
// optional cleanup func.
func buildLoginLimiter(cfg *config.Config, redisClient *redis.Client, logger *observability.Logger) (func(http.Handler) http.Handler, observability.ShutdownFunc) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	limits := middleware.DefaultRateLimitConfig()
	limits.RequestsPerWindow = cfg.RateLimit.RequestsPerMinute

	if redisClient != nil {
		limiter := middleware.NewRedisRateLimiter(redisClient, limits, "rbac:ratelimit")
		logger.Info("login rate limiting via redis")
		return limiter.Handler, nil
	}

	limiter := middleware.NewRateLimiter(limits)
	ctx, cancel := context.WithCancel(context.Background())
	limiter.StartCleanup(ctx)
	logger.Info("login rate limiting in process")
	return limiter.Handler, func(context.Context) error {
		cancel()
		return nil
	}
}

// buildHealthServer serves liveness, readiness and metrics on the side port
// so they stay reachable without an access token.
func buildHealthServer(cfg *config.Config, source *keycloak.AdminSource, redisClient *redis.Client, registry *prometheus.Registry) *http.Server {
	checker := observability.NewHealthChecker(source, redisClient, version)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(mux, registry)
	}

	return &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
