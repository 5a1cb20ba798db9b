package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

var errMissingSession = apperrors.ErrSessionExpiredOrAbsent

// IndexHandler sends visitors to the dashboard or the login page
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session, err := s.loadSession(r.Context(), r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if s.sessions.IsAuthenticated(session) {
			redirectSuccess(w, r, RouteDashboard)
			return
		}
		redirectSuccess(w, r, RouteLogin)
	}
}

func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, apperrors.ErrNotFound)
	}
}
