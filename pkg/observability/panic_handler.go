package observability

import (
	"net/http"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with structured logging.
//
// The function should be called in a defer statement. If a panic occurs,
// it will be recovered and logged at Error level with the panic value, the
// full stack trace and context about where the panic occurred. The panic is
// NOT re-raised.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// PanicRecoveryMiddleware converts handler panics into 500 responses
// instead of tearing down the connection, logging the stack.
func PanicRecoveryMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithField("panic", rec).
						WithField("stack", string(debug.Stack())).
						WithField("path", r.URL.Path).
						Error("PANIC recovered in handler")
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
