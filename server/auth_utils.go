package server

import (
	"context"
	"net/http"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
)

// sessionCookieName is the name of the cookie carrying the session token
const sessionCookieName = "sid"

func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.production || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessions.TTL().Seconds()),
	})
}

func (s *Server) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.production || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// loadSession resolves the request's session cookie. An absent or expired
// session returns ("", nil, nil); only store failures are errors.
func (s *Server) loadSession(ctx context.Context, r *http.Request) (string, *sessions.Session, error) {
	token := sessionToken(r)
	if token == "" {
		return "", nil, nil
	}
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionExpiredOrAbsent) {
			return "", nil, nil
		}
		return "", nil, err
	}
	return token, session, nil
}

// ensureSession returns the request's live session, starting an anonymous one
// and setting its cookie when there is none.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, *sessions.Session, error) {
	token, session, err := s.loadSession(r.Context(), r)
	if err != nil || session != nil {
		return token, session, err
	}

	token, session, err = s.sessions.Start(r.Context())
	if err != nil {
		return "", nil, err
	}
	s.SetSessionCookie(w, r, token)
	return token, session, nil
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
