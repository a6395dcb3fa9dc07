package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/theblitlabs/conductor-worker/pkg/logger"
)

// responseWriter captures the status code and size of a response
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	size        int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	size, err := rw.ResponseWriter.Write(b)
	rw.size += int64(size)
	return size, err
}

// Logging logs every request at debug level and echoes or assigns an
// X-Request-ID. Failed requests are logged as errors.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.WithComponent("http")
		rw := newResponseWriter(w)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			duration := time.Since(start)

			event := log.Debug()
			if rw.status >= 500 {
				event = log.Error()
			} else if rw.status >= 400 {
				event = log.Warn()
			}

			event.
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", rw.status).
				Int64("size", rw.size).
				Float64("duration_ms", float64(duration.Microseconds())/1000).
				Msg("Request completed")
		}()

		next.ServeHTTP(rw, r)
	})
}
