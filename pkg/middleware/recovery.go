package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	apperrors "wanderlust/pkg/errors"
	httputil "wanderlust/pkg/http"
	"wanderlust/pkg/logger"
	"wanderlust/pkg/metrics"
)

// Recovery turns a handler panic into a 500 response in the standard error
// envelope. http.ErrAbortHandler is re-raised so net/http can drop the
// connection.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
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

				metrics.PanicsRecovered.Inc()
				log.Ctx(r.Context()).Error("Panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				cause := fmt.Errorf("panic: %v", rec)
				_ = httputil.WriteError(w, apperrors.Internal("Internal server error", cause))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
