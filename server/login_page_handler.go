package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/rs/zerolog/log"
)

// LoginPageHandler displays the login page (GET /login) along with any
// pending notice, such as a completed registration.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		token, session, err := s.ensureSession(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		notice, err := s.sessions.ConsumeFlash(r.Context(), token)
		if err != nil {
			log.Warn().Err(err).Msg("unable to read session notice")
		}

		csrfToken, err := s.forgery.Issue(r.Context(), session)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.render(w, loginTmpl, http.StatusOK, PageData{
			Title:     "Login",
			CSRFToken: csrfToken,
			Notice:    notice,
		})
	}
}

// LoginSubmissionHandler processes the login form submission (POST /login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		rs, ok := verifiedSession(r)
		if !ok {
			s.writeError(w, r, errMissingSession)
			return
		}

		in := auth.LoginInput{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		}

		token, in, err := s.auth.Login(r.Context(), rs.token, in)
		if err != nil {
			if !isFormError(err) {
				s.writeError(w, r, err)
				return
			}
			status, _ := mapError(err)
			csrfToken, issueErr := s.forgery.Issue(r.Context(), rs.session)
			if issueErr != nil {
				s.writeError(w, r, issueErr)
				return
			}
			s.render(w, loginTmpl, status, PageData{
				Title:     "Login",
				CSRFToken: csrfToken,
				Errors:    formErrors(err),
				Email:     in.Email,
			})
			return
		}

		s.SetSessionCookie(w, r, token)
		redirectSuccess(w, r, RouteDashboard)
	}
}
