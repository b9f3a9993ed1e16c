package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nhle/todo-web/internal/session"
)

// contextKey is a private type to avoid context key collisions.
type contextKey string

// usernameKey holds the authenticated username in the request context.
const usernameKey contextKey = "username"

// usernameFrom returns the username stored by requireSession.
func usernameFrom(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}

// requireSession redirects anonymous requests to the login page and passes
// authenticated ones on with the username in their context.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, err := s.sessions.Require(r.Context(), s.sessionToken(r))
		if errors.Is(err, session.ErrUnauthenticated) {
			http.Redirect(w, r, "/login_register", http.StatusSeeOther)
			return
		}
		if err != nil {
			s.serverError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, username)
		next(w, r.WithContext(ctx))
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
