package audit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/auth"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/contextkeys"
)

// Middleware records mutating requests and denials against a Recorder.
// Successful reads are skipped to keep the trail focused on privileged
// changes.
type Middleware struct {
	recorder Recorder
}

// NewMiddleware wraps a Recorder for use in an HTTP chain. A nil recorder
// yields a pass-through middleware.
func NewMiddleware(recorder Recorder) *Middleware {
	if recorder == nil {
		recorder = Nop{}
	}
	return &Middleware{recorder: recorder}
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Handler wraps next with audit recording. Recording failures never fail
// the request.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		if !m.shouldRecord(r, wrapped.status) {
			return
		}

		event := Event{
			Timestamp:  start.UTC(),
			RequestID:  contextkeys.RequestIDFrom(r.Context()),
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: wrapped.status,
			IPAddress:  remoteIP(r),
			Duration:   time.Since(start) / time.Millisecond,
		}
		if claims, ok := r.Context().Value(contextkeys.ClaimsKey).(*auth.Claims); ok && claims != nil {
			event.Actor = claims.Subject
			event.SuperAdmin = claims.Scope().IsSuperAdmin
		}

		_ = m.recorder.Record(r.Context(), event)
	})
}

func (m *Middleware) shouldRecord(r *http.Request, status int) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return true
	}
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
