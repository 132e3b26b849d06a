package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status and size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// requestFields collects attributes that inner middleware learn about a
// request, such as the authenticated user, for the access log line.
type requestFields struct {
	mu     sync.Mutex
	userID string
	scope  string
}

const requestFieldsKey contextKey = "request_fields"

func fieldsFromContext(ctx context.Context) *requestFields {
	f, _ := ctx.Value(requestFieldsKey).(*requestFields)
	return f
}

func setLogUser(ctx context.Context, userID string) {
	if f := fieldsFromContext(ctx); f != nil {
		f.mu.Lock()
		f.userID = userID
		f.mu.Unlock()
	}
}

func setLogScope(ctx context.Context, scope string) {
	if f := fieldsFromContext(ctx); f != nil {
		f.mu.Lock()
		f.scope = scope
		f.mu.Unlock()
	}
}

// Logger returns a middleware that logs one line per HTTP request.
// 5xx responses log at Error, 4xx at Warn.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)
			fields := &requestFields{}
			ctx := context.WithValue(r.Context(), requestFieldsKey, fields)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			attrs := []slog.Attr{
				slog.String("request_id", GetRequestID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", wrapped.status),
				slog.Int("bytes", wrapped.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}

			if traceID := GetTraceID(ctx); traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}
			fields.mu.Lock()
			if fields.userID != "" {
				attrs = append(attrs, slog.String("user_id", fields.userID))
			}
			if fields.scope != "" {
				attrs = append(attrs, slog.String("rate_limit_scope", fields.scope))
			}
			fields.mu.Unlock()

			level := slog.LevelInfo
			if wrapped.status >= 500 {
				level = slog.LevelError
			} else if wrapped.status >= 400 {
				level = slog.LevelWarn
			}

			logger.LogAttrs(ctx, level, "http request", attrs...)
		})
	}
}
