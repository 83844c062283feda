package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"leaveflow/internal/platform/logger"
	"leaveflow/internal/platform/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logger writes one line per request and feeds the HTTP metrics. m may be nil.
func Logger(l *zap.Logger, m *metrics.Collector) func(http.Handler) http.Handler {
	log := logger.Named(l, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			elapsed := time.Since(start)
			m.Record(r.Method, recorder.status, elapsed)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.status),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
				zap.String("request_id", GetRequestID(r.Context())),
			}
			if recorder.status >= http.StatusInternalServerError {
				log.Error("request", fields...)
				return
			}
			log.Info("request", fields...)
		})
	}
}
