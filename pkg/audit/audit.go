// Package audit records an append-only trail of privileged actions:
// who changed which organization, team, role binding or user, and whether
// the request succeeded. Read traffic is not recorded unless it was denied.
package audit

import (
	"context"
	"time"
)

// Event is one audit record. Events are written as JSON lines so the trail
// can be shipped to any log pipeline without a schema migration.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	// Actor is the subject claim of the caller, empty for anonymous
	// endpoints such as login.
	Actor      string `json:"actor,omitempty"`
	SuperAdmin bool   `json:"super_admin,omitempty"`

	Method     string        `json:"method"`
	Path       string        `json:"path"`
	StatusCode int           `json:"status_code"`
	IPAddress  string        `json:"ip_address,omitempty"`
	Duration   time.Duration `json:"duration_ms"`
}

// Denied reports whether the recorded request was refused.
func (e Event) Denied() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// Recorder persists audit events. Implementations must be safe for
// concurrent use; recording must never block request handling on fsync.
type Recorder interface {
	Record(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event. Used when auditing is not configured.
type Nop struct{}

func (Nop) Record(ctx context.Context, event Event) error { return nil }
func (Nop) Close() error                                  { return nil }
