package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/storeit-app/storeit/internal/common"
	"github.com/storeit-app/storeit/internal/server/models"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// sessionSecret extracts the session secret from the request cookie.
// A missing cookie yields an empty string, which downstream code treats
// as a signed-out caller.
func sessionSecret(r *http.Request) string {
	cookie, err := r.Cookie(common.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// currentUser returns the user placed in the context by requireUser.
func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(currentUserKey).(*models.User)
	return user
}

// requireUser resolves the session cookie into a user and rejects
// signed-out callers with 401.
func (s *HTTPServer) requireUser(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.users.CurrentUser(r.Context(), sessionSecret(r))
		if user == nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), currentUserKey, user)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *HTTPServer) logRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
