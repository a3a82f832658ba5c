package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	pkglogger "github.com/bidhaven/backend/pkg/logger"
)

// SecureLogger logs each request with method, path, status, duration and
// request ID. Query strings carrying sensitive parameters (tokens, OTPs) are
// redacted before they reach the log.
func SecureLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				query := r.URL.RawQuery
				if pkglogger.SanitizeQueryString(query) {
					query = "[REDACTED]"
				}

				attrs := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
				}
				if query != "" {
					attrs = append(attrs, slog.String("query", query))
				}
				if reqID := middleware.GetReqID(r.Context()); reqID != "" {
					attrs = append(attrs, slog.String("request_id", reqID))
				}

				logger.Info("request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
