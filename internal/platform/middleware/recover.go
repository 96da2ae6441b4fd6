package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	dErrors "identity-gateway/pkg/domain-errors"
	"identity-gateway/pkg/platform/httputil"
	"identity-gateway/pkg/requestcontext"
)

// Recover turns a handler panic into a logged stack and a generic 500 so the
// listener keeps serving other requests.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				ctx := r.Context()
				logger.ErrorContext(ctx, "panic recovered",
					"request_id", requestcontext.RequestID(ctx),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", recovered,
					"stack", string(debug.Stack()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
