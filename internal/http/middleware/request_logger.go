package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/radio-ops-platform/internal/tenancy"
	"github.com/wolfman30/radio-ops-platform/pkg/logging"
)

// RequestLogger writes one line per request once the handler chain returns. The station is
// whatever scope auth middleware further down attached.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, scope := tenancy.WithScope(r.Context())
			if station, ok := tenancy.StationIDFromContext(r.Context()); ok {
				ctx = tenancy.WithStationID(ctx, station)
			}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"remote_ip", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if id := requestID(r); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if station := scope.StationID(); station != "" {
				attrs = append(attrs, "station_id", station)
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Warn("request completed", attrs...)
			case r.URL.Path == "/health" || r.URL.Path == "/metrics":
				logger.Debug("request completed", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}
		})
	}
}

func requestID(r *http.Request) string {
	if id := chimw.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(chimw.RequestIDHeader)
}
