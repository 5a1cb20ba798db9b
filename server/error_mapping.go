package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	msgNotFound     = "Page Not Found"
	msgServerError  = "Server error"
	msgForgery      = "Invalid CSRF token"
	msgRateLimited  = "Too many requests, please try again later."
	contentTypeHTML = "text/html; charset=utf-8"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	{apperrors.ErrDuplicateEmail, http.StatusUnprocessableEntity, auth.MsgEmailRegistered},
	{apperrors.ErrValidationFailed, http.StatusUnprocessableEntity, ""},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, auth.MsgInvalidCredentials},
	{apperrors.ErrForgeryRejected, http.StatusForbidden, msgForgery},
	{apperrors.ErrRateLimited, http.StatusTooManyRequests, msgRateLimited},
	{apperrors.ErrSessionExpiredOrAbsent, http.StatusSeeOther, ""},
	{apperrors.ErrNotFound, http.StatusNotFound, msgNotFound},
}

// mapError returns the status and user-facing message for err. Anything not
// in the table is a 500 with a generic message.
func mapError(err error) (int, string) {
	for _, m := range errorTable {
		if apperrors.Is(err, m.target) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, msgServerError
}

// formErrors returns the messages to show on a re-rendered form.
func formErrors(err error) []string {
	var verr *apperrors.ValidationError
	if apperrors.As(err, &verr) {
		return verr.Messages()
	}
	_, msg := mapError(err)
	return []string{msg}
}

// isFormError reports whether err should re-render the submitted form.
func isFormError(err error) bool {
	status, _ := mapError(err)
	return status == http.StatusUnprocessableEntity || status == http.StatusUnauthorized
}

// writeError writes a plain response for errors that do not re-render a form.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	switch {
	case status == http.StatusSeeOther:
		redirectSuccess(w, r, RouteLogin)
		return
	case status >= http.StatusInternalServerError:
		log.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	http.Error(w, msg, status)
}
