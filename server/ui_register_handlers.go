package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
)

// RegisterPageHandler renders an empty registration form (GET /register)
func (s *Server) RegisterPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		_, session, err := s.ensureSession(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		csrfToken, err := s.forgery.Issue(r.Context(), session)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.render(w, tmpl, http.StatusOK, PageData{Title: "Register", CSRFToken: csrfToken})
	}
}

// RegisterSubmissionHandler handles registration form submission (POST /register)
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		rs, ok := verifiedSession(r)
		if !ok {
			s.writeError(w, r, errMissingSession)
			return
		}

		in := auth.RegistrationInput{
			Email:           r.PostFormValue("email"),
			Password:        r.PostFormValue("password"),
			ConfirmPassword: r.PostFormValue("confirmPassword"),
		}

		in, err := s.auth.Register(r.Context(), rs.token, in)
		if err == nil {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		if !isFormError(err) {
			s.writeError(w, r, err)
			return
		}

		csrfToken, issueErr := s.forgery.Issue(r.Context(), rs.session)
		if issueErr != nil {
			s.writeError(w, r, issueErr)
			return
		}
		status, _ := mapError(err)
		s.render(w, tmpl, status, PageData{
			Title:     "Register",
			CSRFToken: csrfToken,
			Errors:    formErrors(err),
			Email:     in.Email,
		})
	}
}
