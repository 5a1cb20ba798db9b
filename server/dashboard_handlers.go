package server

import (
	"net/http"
)

// DashboardHandler renders the protected dashboard (GET /dashboard). Visitors
// without an authenticated session are sent to the login page.
func (s *Server) DashboardHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("dashboard.html")

	return func(w http.ResponseWriter, r *http.Request) {
		user, session, err := s.auth.Dashboard(r.Context(), sessionToken(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		csrfToken, err := s.forgery.Issue(r.Context(), session)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.render(w, tmpl, http.StatusOK, PageData{
			Title:     "Dashboard",
			CSRFToken: csrfToken,
			User:      user.Email,
			LoggedIn:  true,
		})
	}
}

// LogoutHandler destroys the session and returns to the login page (POST /logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rs, ok := verifiedSession(r); ok {
			s.auth.Logout(r.Context(), rs.token)
		}
		s.ClearSessionCookie(w, r)
		redirectSuccess(w, r, RouteLogin)
	}
}
