package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// contextKey is a private type for request-context values.
type contextKey int

// userIDKey carries the authenticated user's id set by the auth middleware.
const userIDKey contextKey = 0

// userID returns the authenticated user's id for a request that passed
// the basic auth middleware.
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// basicAuthMiddleware authenticates every request with HTTP basic auth
// against the user store. An unseen username is provisioned on its first
// attempt (the store's verify-or-create contract); a known username with
// the wrong secret gets 401. Only a store failure is a 500.
func basicAuthMiddleware(users driven.UserStore, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}

		id, err := users.VerifyOrCreate(r.Context(), username, password)
		if err != nil {
			logger.Error("authentication failed", "username", username, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if id == driven.NoUser {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="comicserve"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the
// error, and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"path", r.URL.Path,
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
