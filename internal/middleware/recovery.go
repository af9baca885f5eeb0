package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	"stockcount-api/internal/audit"
	"stockcount-api/internal/model"
	"stockcount-api/pkg/apierror"
)

// NewRecovery returns a middleware that turns a handler panic into a 500 and
// records it in the audit journal under the "http" category.
func NewRecovery(sink audit.Sink) func(http.Handler) http.Handler {
	if sink == nil {
		sink = audit.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("[Recovery] PANIC %s %s (request %s): %v\n%s",
					r.Method, r.URL.Path, GetRequestID(r.Context()), rec, debug.Stack())
				sink.Record(model.AuditError, "http",
					fmt.Sprintf("panic serving %s %s", r.Method, r.URL.Path), fmt.Sprint(rec))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write(apierror.InternalError("internal server error").ToJSON())
			}()

			next.ServeHTTP(w, r)
		})
	}
}
