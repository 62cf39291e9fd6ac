package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Middleware func(http.Handler) http.Handler

// Chain wraps h so that m[0] sees the request first.
func Chain(h http.Handler, m ...Middleware) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

type requestScope struct {
	id  string
	log *slog.Logger
}

type scopeKey struct{}

// Longer client-supplied ids are replaced with a fresh one.
const maxRequestIDLen = 128

// RequestIDFrom returns the id assigned by WithRequestLog, or "".
func RequestIDFrom(ctx context.Context) string {
	if s, ok := ctx.Value(scopeKey{}).(*requestScope); ok {
		return s.id
	}
	return ""
}

// LoggerFrom returns the request logger, already tagged with request_id.
// Outside a request it returns fallback, or slog.Default when that is nil.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if s, ok := ctx.Value(scopeKey{}).(*requestScope); ok {
		return s.log
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

// WithRequestLog takes the id from X-Request-ID or mints one, echoes it on
// the response and scopes a child of base to the request.
func WithRequestLog(base *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			scope := &requestScope{id: id, log: base.With("request_id", id)}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), scopeKey{}, scope)))
		})
	}
}

func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				LoggerFrom(r.Context(), nil).Error("handler panic",
					"method", r.Method, "path", r.URL.Path, "panic", rec)
				WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// countingWriter records the status and body size a handler produced.
type countingWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (cw *countingWriter) WriteHeader(code int) {
	if cw.status == 0 {
		cw.status = code
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	n, err := cw.ResponseWriter.Write(b)
	cw.size += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (cw *countingWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// AccessLog writes one record per request at info, or warn for 5xx.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		cw := &countingWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r)

		if cw.status == 0 {
			cw.status = http.StatusOK
		}
		level := slog.LevelInfo
		if cw.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		LoggerFrom(r.Context(), nil).Log(r.Context(), level, "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", cw.status,
			"bytes", cw.size,
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}
