package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-session-auth/forgery"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the verified requestSession
const ContextKeySession ContextKey = "session"

// maxFormBytes bounds the size of a submitted form body.
const maxFormBytes = 64 << 10

type requestSession struct {
	token   string
	session *sessions.Session
}

// RequireForgeryToken rejects state-changing requests whose anti-forgery token
// is missing or does not match the caller's session. Nothing downstream runs
// for a rejected request.
func (s *Server) RequireForgeryToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

		token, session, err := s.loadSession(r.Context(), r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		presented := r.Header.Get(forgery.HeaderName)
		if presented == "" {
			presented = r.PostFormValue(forgery.FormField)
		}

		if session == nil || !s.forgery.Verify(session, presented) {
			s.metrics.ForgeryRejected()
			log.Warn().Str("path", r.URL.Path).Bool("has_session", session != nil).Msg("anti-forgery check failed")
			s.writeError(w, r, apperrors.ErrForgeryRejected)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeySession, requestSession{token: token, session: session})
		next(w, r.WithContext(ctx))
	}
}

// verifiedSession returns the session checked by RequireForgeryToken.
func verifiedSession(r *http.Request) (requestSession, bool) {
	rs, ok := r.Context().Value(ContextKeySession).(requestSession)
	return rs, ok
}
