package middleware

import (
	"net/http"
	"time"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
)

// wrappedResponseWriter captures the status code and bytes written.
type wrappedResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newWrappedResponseWriter(w http.ResponseWriter) *wrappedResponseWriter {
	return &wrappedResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *wrappedResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *wrappedResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// LoggingMiddleware logs one line per request with method, path, status,
// and duration. 5xx responses log at error level, 4xx at warn.
type LoggingMiddleware struct {
	logger    logging.Logger
	skipPaths map[string]bool
}

func NewLoggingMiddleware(logger logging.Logger, skipPaths ...string) *LoggingMiddleware {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &LoggingMiddleware{logger: logger.Named("http"), skipPaths: skip}
}

func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		started := time.Now()
		ww := newWrappedResponseWriter(w)
		next.ServeHTTP(ww, r)

		fields := []logging.Field{
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.statusCode),
			logging.Duration("duration", time.Since(started)),
			logging.Int("bytes", int(ww.bytesWritten)),
		}
		switch {
		case ww.statusCode >= 500:
			m.logger.Error("Request failed", fields...)
		case ww.statusCode >= 400:
			m.logger.Warn("Request rejected", fields...)
		default:
			m.logger.Info("Request served", fields...)
		}
	})
}
