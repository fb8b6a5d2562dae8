package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/observability"
)

// RequestLogger logs every request with method, path, status code and
// duration, and records request metrics when metrics is non-nil. Health
// checks are not logged.
func RequestLogger(log *logger.Logger, metrics *observability.Metrics, service string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRequestStart(r.Context())
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			metrics.RecordRequestEnd(r.Context(), service, r.URL.Path, strconv.Itoa(sw.status), duration)
			if r.URL.Path == "/health" {
				return
			}
			logByStatus(log.WithContext(r.Context()), logger.Fields(
				"method", r.Method,
				logger.FieldPath, r.URL.Path,
				"status", sw.status,
				logger.FieldDuration, duration.Milliseconds(),
			), sw.status)
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
