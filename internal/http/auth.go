package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

type userKey struct{}

// requireUser resolves the user named by the configured header. Session
// handling lives in front of this service; the header is trusted.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(s.deps.UserHeader))
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			ErrorResponse(r, http.StatusUnauthorized, "missing or invalid "+s.deps.UserHeader+" header").Write(w)
			return
		}

		user, err := s.deps.Users.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				ErrorResponse(r, http.StatusUnauthorized, "unknown user").Write(w)
				return
			}
			writeServiceError(w, r, log.OpRead, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

// currentUser returns the user resolved by requireUser.
func currentUser(ctx context.Context) core.User {
	u, _ := ctx.Value(userKey{}).(core.User)
	return u
}
