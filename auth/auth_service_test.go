package auth_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/auth"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
)

// testFixture holds all test dependencies
type testFixture struct {
	userRepo *fakeuserrepo.FakeUserRepo
	store    *sessions.InMemoryStore
	manager  *sessions.Manager
	metrics  *metrics.Metrics
	service  *auth.Service
	now      time.Time
}

func (f *testFixture) clock() time.Time {
	return f.now
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		userRepo: fakeuserrepo.NewFakeUserRepo(),
		store:    sessions.NewInMemoryStore(),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.manager = sessions.NewManager(f.store, time.Hour, sessions.WithClock(f.clock))

	m, err := metrics.New(metrics.Options{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	f.metrics = m

	f.service, err = auth.NewService(auth.Dependencies{
		Users:    f.userRepo,
		Hasher:   users.NewHasher(bcrypt.MinCost, 0),
		Sessions: f.manager,
		Metrics:  m,
	})
	require.NoError(t, err)
	return f
}

func (f *testFixture) anonymous(t *testing.T) string {
	t.Helper()
	token, _, err := f.manager.Start(context.Background())
	require.NoError(t, err)
	return token
}

func (f *testFixture) register(t *testing.T, email, password string) {
	t.Helper()
	_, err := f.service.Register(context.Background(), f.anonymous(t), auth.RegistrationInput{
		Email: email, Password: password, ConfirmPassword: password,
	})
	require.NoError(t, err)
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := auth.NewService(auth.Dependencies{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Users repo is required")
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success stores a hash and leaves a notice", func(t *testing.T) {
		f := setupTestFixture(t)
		token := f.anonymous(t)

		in, err := f.service.Register(ctx, token, auth.RegistrationInput{
			Email:           "  John.Doe@Example.com",
			Password:        testUserPassword,
			ConfirmPassword: testUserPassword,
		})
		require.NoError(t, err)
		require.Equal(t, testUserEmail, in.Email)

		user, err := f.userRepo.FindByEmail(ctx, testUserEmail)
		require.NoError(t, err)
		require.NotEqual(t, testUserPassword, user.PasswordHash)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(testUserPassword)))

		notice, err := f.manager.ConsumeFlash(ctx, token)
		require.NoError(t, err)
		require.Equal(t, auth.MsgRegistrationComplete, notice)

		require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthEvents.WithLabelValues("register", "success")))
	})

	t.Run("validation failure inserts nothing", func(t *testing.T) {
		f := setupTestFixture(t)
		in, err := f.service.Register(ctx, f.anonymous(t), auth.RegistrationInput{
			Email: "Bad-Email", Password: "123", ConfirmPassword: "1234",
		})
		require.ErrorIs(t, err, apperrors.ErrValidationFailed)
		require.Equal(t, "bad-email", in.Email)

		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, []string{auth.MsgInvalidEmail, auth.MsgPasswordTooShort, auth.MsgPasswordsDontMatch}, verr.Messages())
		require.Equal(t, 0, f.userRepo.Count())
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, testUserEmail, testUserPassword)

		_, err := f.service.Register(ctx, f.anonymous(t), auth.RegistrationInput{
			Email: "JOHN.DOE@example.com", Password: "another1", ConfirmPassword: "another1",
		})
		require.ErrorIs(t, err, apperrors.ErrDuplicateEmail)

		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, []apperrors.FieldError{{Field: "email", Message: auth.MsgEmailRegistered}}, verr.Fields)
		require.Equal(t, 1, f.userRepo.Count())
	})

	t.Run("duplicate detected at insert", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, testUserEmail, testUserPassword)

		racing := &racingRepo{FakeUserRepo: f.userRepo}
		svc, err := auth.NewService(auth.Dependencies{
			Users:    racing,
			Hasher:   users.NewHasher(bcrypt.MinCost, 0),
			Sessions: f.manager,
		})
		require.NoError(t, err)

		_, err = svc.Register(ctx, f.anonymous(t), auth.RegistrationInput{
			Email: testUserEmail, Password: testUserPassword, ConfirmPassword: testUserPassword,
		})
		require.ErrorIs(t, err, apperrors.ErrDuplicateEmail)
		require.Equal(t, 1, f.userRepo.Count())
	})

	t.Run("concurrent registrations create one account", func(t *testing.T) {
		f := setupTestFixture(t)
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < 8; i++ {
			token := f.anonymous(t)
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.service.Register(ctx, token, auth.RegistrationInput{
					Email: testUserEmail, Password: testUserPassword, ConfirmPassword: testUserPassword,
				})
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, successes)
		require.Equal(t, 1, f.userRepo.Count())
	})

	t.Run("store failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.userRepo.FailWith = errors.New("connection refused")
		_, err := f.service.Register(ctx, f.anonymous(t), auth.RegistrationInput{
			Email: testUserEmail, Password: testUserPassword, ConfirmPassword: testUserPassword,
		})
		require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	})

	t.Run("already classified store failure keeps its cause", func(t *testing.T) {
		f := setupTestFixture(t)
		f.userRepo.FailWith = fmt.Errorf("ping: %w", apperrors.ErrStoreUnavailable)
		_, err := f.service.Register(ctx, f.anonymous(t), auth.RegistrationInput{
			Email: testUserEmail, Password: testUserPassword, ConfirmPassword: testUserPassword,
		})
		require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
		require.Equal(t, "[Service Register] lookup: ping: store unavailable", err.Error())
	})
}

// racingRepo hides existing users from the pre-check, as if another request
// inserted the same email between lookup and insert.
type racingRepo struct {
	*fakeuserrepo.FakeUserRepo
}

func (r *racingRepo) FindByEmail(context.Context, string) (*users.User, error) {
	return nil, apperrors.ErrNotFound
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success replaces the prior session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, testUserEmail, testUserPassword)
		prior := f.anonymous(t)

		token, in, err := f.service.Login(ctx, prior, auth.LoginInput{Email: " John.Doe@example.com ", Password: testUserPassword})
		require.NoError(t, err)
		require.Equal(t, testUserEmail, in.Email)
		require.NotEmpty(t, token)
		require.NotEqual(t, prior, token)

		_, err = f.manager.Resolve(ctx, prior)
		require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)

		session, err := f.manager.Resolve(ctx, token)
		require.NoError(t, err)
		require.True(t, f.manager.IsAuthenticated(session))
		require.Equal(t, testUserEmail, session.User.Email)
		require.Equal(t, f.now.Add(time.Hour), session.ExpiresAt)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, testUserEmail, testUserPassword)
		before := f.store.Len()

		_, _, errUnknown := f.service.Login(ctx, "", auth.LoginInput{Email: "nobody@example.com", Password: testUserPassword})
		_, _, errWrong := f.service.Login(ctx, "", auth.LoginInput{Email: testUserEmail, Password: "wrong-password"})

		require.ErrorIs(t, errUnknown, apperrors.ErrInvalidCredentials)
		require.ErrorIs(t, errWrong, apperrors.ErrInvalidCredentials)
		require.Equal(t, errUnknown.Error(), errWrong.Error())
		require.Equal(t, before, f.store.Len())
	})

	t.Run("password is not trimmed", func(t *testing.T) {
		f := setupTestFixture(t)
		f.register(t, testUserEmail, " padded ")

		_, _, err := f.service.Login(ctx, "", auth.LoginInput{Email: testUserEmail, Password: "padded"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

		_, _, err = f.service.Login(ctx, "", auth.LoginInput{Email: testUserEmail, Password: " padded "})
		require.NoError(t, err)
	})

	t.Run("validation failure", func(t *testing.T) {
		f := setupTestFixture(t)
		_, _, err := f.service.Login(ctx, "", auth.LoginInput{Email: testUserEmail, Password: "  "})
		require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	})

	t.Run("store failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.userRepo.FailWith = errors.New("connection refused")
		_, _, err := f.service.Login(ctx, "", auth.LoginInput{Email: testUserEmail, Password: testUserPassword})
		require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
		require.NotErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})
}

func TestService_DashboardAndLogout(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.register(t, testUserEmail, testUserPassword)

	_, _, err := f.service.Dashboard(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)

	_, _, err = f.service.Dashboard(ctx, f.anonymous(t))
	require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)

	token, _, err := f.service.Login(ctx, "", auth.LoginInput{Email: testUserEmail, Password: testUserPassword})
	require.NoError(t, err)

	user, session, err := f.service.Dashboard(ctx, token)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, user.Email)
	require.NotEmpty(t, user.ID)
	require.Equal(t, sessions.SessionID(token), session.ID)
	require.Equal(t, user, session.User)

	t.Run("session expires after an hour", func(t *testing.T) {
		f.now = f.now.Add(59 * time.Minute)
		_, _, err := f.service.Dashboard(ctx, token)
		require.NoError(t, err)

		f.now = f.now.Add(time.Minute)
		_, _, err = f.service.Dashboard(ctx, token)
		require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)
	})

	t.Run("logout is idempotent", func(t *testing.T) {
		token, _, err := f.service.Login(ctx, "", auth.LoginInput{Email: testUserEmail, Password: testUserPassword})
		require.NoError(t, err)

		f.service.Logout(ctx, token)
		f.service.Logout(ctx, token)
		_, _, err = f.service.Dashboard(ctx, token)
		require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)
	})
}

func TestService_DuplicateRegistrationKeepsOriginalPassword(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.register(t, "a@x.com", "secret1")

	_, err := f.service.Register(ctx, f.anonymous(t), auth.RegistrationInput{
		Email: "a@x.com", Password: "other12", ConfirmPassword: "other12",
	})
	require.ErrorIs(t, err, apperrors.ErrDuplicateEmail)

	_, _, err = f.service.Login(ctx, "", auth.LoginInput{Email: "a@x.com", Password: "other12"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	token, _, err := f.service.Login(ctx, "", auth.LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	user, _, err := f.service.Dashboard(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", user.Email)

	f.service.Logout(ctx, token)
	_, _, err = f.service.Dashboard(ctx, token)
	require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)
}
