package auth

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/logger"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

// Dependencies holds everything the Service needs to run the auth workflows.
type Dependencies struct {
	Users     users.UserRepo    // Credential store
	Hasher    *users.Hasher     // Password hashing
	Sessions  *sessions.Manager // Session lifecycle
	Validator *Validator        // Form rules, defaults to NewValidator()
	Metrics   *metrics.Metrics  // Optional
}

// Service runs the registration, login, dashboard and logout workflows.
// It holds no per-request state.
type Service struct {
	users     users.UserRepo
	hasher    *users.Hasher
	sessions  *sessions.Manager
	validator *Validator
	metrics   *metrics.Metrics
}

func NewService(deps Dependencies) (*Service, error) {
	if deps.Users == nil {
		return nil, apperrors.New("[NewService] Users repo is required")
	}
	if deps.Hasher == nil {
		return nil, apperrors.New("[NewService] Hasher is required")
	}
	if deps.Sessions == nil {
		return nil, apperrors.New("[NewService] Sessions manager is required")
	}
	if deps.Validator == nil {
		deps.Validator = NewValidator()
	}
	return &Service{
		users:     deps.Users,
		hasher:    deps.Hasher,
		sessions:  deps.Sessions,
		validator: deps.Validator,
		metrics:   deps.Metrics,
	}, nil
}

// Register validates the form, creates the account and leaves a one-shot
// notice on the caller's session. The normalised input is always returned so
// the form can be re-rendered with the email preserved.
func (s *Service) Register(ctx context.Context, sessionToken string, in RegistrationInput) (RegistrationInput, error) {
	in, fields := s.validator.ValidateRegistration(in)
	if len(fields) > 0 {
		s.metrics.AuthEvent("register", "invalid")
		return in, apperrors.NewValidationError(fields...)
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		s.metrics.AuthEvent("register", "duplicate")
		return in, apperrors.NewDuplicateEmailError(MsgEmailRegistered)
	case !apperrors.Is(err, apperrors.ErrNotFound):
		s.metrics.AuthEvent("register", "error")
		return in, storeError("[Service Register] lookup", err)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		s.metrics.AuthEvent("register", "error")
		return in, fmt.Errorf("%w: [Service Register] %v", apperrors.ErrInternal, err)
	}

	user, err := s.users.Insert(ctx, in.Email, hash)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDuplicateEmail) {
			s.metrics.AuthEvent("register", "duplicate")
			return in, apperrors.NewDuplicateEmailError(MsgEmailRegistered)
		}
		s.metrics.AuthEvent("register", "error")
		return in, storeError("[Service Register] insert", err)
	}

	if err := s.sessions.SetFlash(ctx, sessionToken, MsgRegistrationComplete); err != nil {
		log.Warn().Err(err).Msg("unable to set registration notice")
	}

	log.Info().Str("user_id", user.ID).Str("email", logger.MaskEmail(user.Email)).Msg("user registered")
	s.metrics.AuthEvent("register", "success")
	return in, nil
}

// Login verifies the credentials and, on success, replaces the caller's
// session with a new authenticated one. Unknown emails and wrong passwords
// both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, priorToken string, in LoginInput) (string, LoginInput, error) {
	in, fields := s.validator.ValidateLogin(in)
	if len(fields) > 0 {
		s.metrics.AuthEvent("login", "invalid")
		return "", in, apperrors.NewValidationError(fields...)
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			s.hasher.Equalize(ctx, in.Password)
			s.metrics.AuthEvent("login", "rejected")
			log.Info().Str("email", logger.MaskEmail(in.Email)).Msg("login rejected")
			return "", in, apperrors.ErrInvalidCredentials
		}
		s.metrics.AuthEvent("login", "error")
		return "", in, storeError("[Service Login] lookup", err)
	}

	if !s.hasher.Verify(ctx, in.Password, user.PasswordHash) {
		s.metrics.AuthEvent("login", "rejected")
		log.Info().Str("email", logger.MaskEmail(in.Email)).Msg("login rejected")
		return "", in, apperrors.ErrInvalidCredentials
	}

	if err := s.sessions.Destroy(ctx, priorToken); err != nil {
		log.Warn().Err(err).Msg("unable to destroy prior session")
	}

	token, _, err := s.sessions.Create(ctx, user.Projection())
	if err != nil {
		s.metrics.AuthEvent("login", "error")
		return "", in, storeError("[Service Login] create session", err)
	}

	log.Info().Str("user_id", user.ID).Msg("user logged in")
	s.metrics.AuthEvent("login", "success")
	return token, in, nil
}

// Dashboard returns the user bound to an authenticated session, together with
// the session it was read from.
func (s *Service) Dashboard(ctx context.Context, token string) (users.Projection, *sessions.Session, error) {
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionExpiredOrAbsent) {
			return users.Projection{}, nil, err
		}
		return users.Projection{}, nil, storeError("[Service Dashboard] resolve", err)
	}
	if !s.sessions.IsAuthenticated(session) {
		return users.Projection{}, nil, apperrors.ErrSessionExpiredOrAbsent
	}
	return session.User, session, nil
}

// Logout destroys the session. Failures are logged, never returned to the client.
func (s *Service) Logout(ctx context.Context, token string) {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		log.Err(err).Msg("[Service Logout] destroy session")
		return
	}
	s.metrics.AuthEvent("logout", "success")
}

func storeError(op string, err error) error {
	if apperrors.Is(err, apperrors.ErrStoreUnavailable) {
		return apperrors.Wrapf(err, "%s", op)
	}
	return fmt.Errorf("%s: %w: %v", op, apperrors.ErrStoreUnavailable, err)
}
