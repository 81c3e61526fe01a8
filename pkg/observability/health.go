package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// ProviderPinger checks that the identity provider is reachable.
type ProviderPinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker provides health check functionality
type HealthChecker struct {
	provider ProviderPinger
	redis    *redis.Client
	version  string
}

// NewHealthChecker creates a new health checker. redis may be nil when the
// distributed rate limiter is not configured.
func NewHealthChecker(provider ProviderPinger, redisClient *redis.Client, version string) *HealthChecker {
	return &HealthChecker{
		provider: provider,
		redis:    redisClient,
		version:  version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns a readiness probe (checks all dependencies)
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")

	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}

// Check performs a comprehensive health check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.provider != nil {
		dep := h.checkDependency(ctx, func(ctx context.Context) error {
			return h.provider.Ping(ctx)
		})
		status.Dependencies["identity_provider"] = dep
		if dep.Status != StatusHealthy {
			// Without the identity provider every operation fails.
			status.Status = StatusUnhealthy
		}
	}

	if h.redis != nil {
		dep := h.checkDependency(ctx, func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		})
		status.Dependencies["redis"] = dep
		if dep.Status != StatusHealthy && status.Status == StatusHealthy {
			// Rate limiting fails open, so a dead Redis only degrades.
			status.Status = StatusDegraded
		}
	}

	return status
}

func (h *HealthChecker) checkDependency(ctx context.Context, probe func(context.Context) error) DependencyStatus {
	start := time.Now()
	err := probe(ctx)
	dep := DependencyStatus{
		Status:    StatusHealthy,
		Latency:   time.Since(start) / time.Millisecond,
		Timestamp: time.Now(),
	}
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = fmt.Sprintf("probe failed: %v", err)
	}
	return dep
}
