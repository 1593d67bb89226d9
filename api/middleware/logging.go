package middleware

import (
	"net/http"
	"time"

	"research-orchestrator/logger"
)

// responseWriterInterceptor captures the status code written by the handler.
type responseWriterInterceptor struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

// newResponseWriterInterceptor defaults the status to 200 because handlers
// that only call Write never call WriteHeader.
func newResponseWriterInterceptor(w http.ResponseWriter) *responseWriterInterceptor {
	return &responseWriterInterceptor{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rwi *responseWriterInterceptor) WriteHeader(code int) {
	if !rwi.wroteHeader {
		rwi.statusCode = code
		rwi.wroteHeader = true
	}
	rwi.ResponseWriter.WriteHeader(code)
}

func (rwi *responseWriterInterceptor) Unwrap() http.ResponseWriter {
	return rwi.ResponseWriter
}

// LoggingMiddleware logs every request with its status and duration.
func LoggingMiddleware(lg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			rwi := newResponseWriterInterceptor(w)
			next.ServeHTTP(rwi, r)

			lg.HTTP(
				r.Method,
				r.URL.Path,
				rwi.statusCode,
				time.Since(startTime),
				map[string]any{
					"remote_addr": r.RemoteAddr,
					"user_agent":  r.UserAgent(),
				},
			)
		})
	}
}

// RecoveryMiddleware turns a handler panic into a 500 response.
func RecoveryMiddleware(lg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					lg.Error("handler panicked", map[string]any{
						"http_method": r.Method,
						"http_path":   r.URL.Path,
						"panic":       rec,
					})
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
