package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/version"
)

// headerServer carries the server version on every response.
const headerServer = "Server"

// LoggingMiddleware embeds the logger of ctx into each request and logs the
// outcome of the request.
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	base := logger.FromContext(ctx)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqCtx := logger.ToContext(r.Context(), base)
			if id := middleware.GetReqID(r.Context()); id != "" {
				reqCtx = logger.WithKV(reqCtx, "request_id", id)
			}

			r = r.WithContext(reqCtx)
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.DebugKV(reqCtx, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"remote", r.RemoteAddr)
		})
	}
}

// VersionMiddleware stamps responses with the server version.
func VersionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerServer, version.UserAgent())
		next.ServeHTTP(w, r)
	})
}
