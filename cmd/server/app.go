package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/forgery"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/ratelimit"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
	pguserrepo "github.com/jrsteele09/go-session-auth/users/repopg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// application is the wired process: the HTTP handler plus the background
// jobs and connections it owns.
type application struct {
	cfg       config.Config
	handler   http.Handler
	sessions  *sessions.Manager
	rateStore *ratelimit.InMemoryStore
	limitRule ratelimit.Rule
	closers   []func()
}

func build(ctx context.Context, cfg config.Config) (*application, error) {
	app := &application{cfg: cfg}

	var redisClient *redis.Client
	if cfg.GetSessionStore() == config.StoreRedis || (cfg.GetEnableRateLimiting() && cfg.GetRateLimitStore() == config.StoreRedis) {
		opts, err := redis.ParseURL(cfg.GetRedisURL())
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}

	userRepo, err := app.userRepo(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	var sessionStore sessions.Store = sessions.NewInMemoryStore()
	if cfg.GetSessionStore() == config.StoreRedis {
		sessionStore = sessions.NewRedisStore(redisClient, "")
	}
	app.sessions = sessions.NewManager(sessionStore, cfg.GetMaxSessionAge())

	guard, err := forgery.NewGuard([]byte(cfg.GetSessionSecret()), app.sessions)
	if err != nil {
		app.Close()
		return nil, err
	}
	if cfg.GetSessionSecret() == "" {
		log.Warn().Msg("SESSION_SECRET not set, using a random key; tokens will not survive a restart")
	}

	var limiter *ratelimit.Limiter
	if cfg.GetEnableRateLimiting() {
		app.limitRule = ratelimit.Rule{Window: cfg.GetRateLimitWindow(), MaxRequests: cfg.GetRateLimitMaxRequests()}
		var store ratelimit.Store
		if cfg.GetRateLimitStore() == config.StoreRedis {
			store = ratelimit.NewRedisStore(redisClient, "")
		} else {
			app.rateStore = ratelimit.NewInMemoryStore()
			store = app.rateStore
		}
		limiter = ratelimit.NewLimiter(store, app.limitRule)
	}

	m, err := metrics.New(metrics.Options{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		app.Close()
		return nil, err
	}
	var metricsHandler http.Handler
	if cfg.GetMetricsEnabled() {
		metricsHandler = promhttp.Handler()
	}

	svc, err := auth.NewService(auth.Dependencies{
		Users:    userRepo,
		Hasher:   users.NewHasher(cfg.GetBcryptCost(), 0),
		Sessions: app.sessions,
		Metrics:  m,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	app.handler, err = server.New(cfg, server.Dependencies{
		Auth:           svc,
		Sessions:       app.sessions,
		Forgery:        guard,
		Limiter:        limiter,
		Metrics:        m,
		MetricsHandler: metricsHandler,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *application) userRepo(ctx context.Context) (users.UserRepo, error) {
	dsn := app.cfg.GetDatabaseURL()
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, users are kept in memory")
		return fakeuserrepo.NewFakeUserRepo(), nil
	}

	pool, err := pguserrepo.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, pool.Close)

	if err := pguserrepo.Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return pguserrepo.NewUserRepo(pool), nil
}

// startBackground runs the expired-session sweeper and, for the in-memory
// limiter, the stale-window collector until ctx is cancelled.
func (app *application) startBackground(ctx context.Context) {
	go app.sessions.Run(ctx, app.cfg.GetSessionSweepInterval())
	if app.rateStore != nil {
		go app.rateStore.Run(ctx, app.limitRule.Window, app.limitRule.Window, time.Now)
	}
}

func (app *application) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
}
