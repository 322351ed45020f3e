package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/domain/booking"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/cache"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/metrics"
	"github.com/clinic/clinic/internal/platform/middleware"
)

const (
	requestTimeout  = 15 * time.Second
	maxBodySize     = "64K"
	shutdownTimeout = 10 * time.Second
	cacheKeyPrefix  = "clinic:"
)

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		logger.Warn().Msg("development auth is active: unauthenticated requests are treated as admin")
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	store, closeStore, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	e, err := newServer(cfg, logger, pool, store, metrics.New())
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openCache returns Redis when REDIS_URL is set and an in-process store
// otherwise.
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, func(), error) {
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisURL, cacheKeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("using redis availability cache")
		return rs, func() { _ = rs.Close() }, nil
	}
	ms := cache.NewMemoryStore()
	cleanupCtx, cancel := context.WithCancel(ctx)
	ms.StartCleanup(cleanupCtx, time.Minute)
	logger.Info().Msg("using in-memory availability cache")
	return ms, cancel, nil
}

// newServer wires repositories, services and routes onto a new echo instance.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, store cache.Store, m *metrics.Metrics) (*echo.Echo, error) {
	grid, err := cfg.SuggestionGrid()
	if err != nil {
		return nil, err
	}

	weeklyPG := availability.NewWeeklyRepoPG(pool)
	var weeklyRepo availability.WeeklyRepository = weeklyPG
	if store != nil && cfg.AvailabilityCacheTTL > 0 {
		weeklyRepo = availability.NewCachedWeeklyRepository(weeklyPG, store, cfg.AvailabilityCacheTTL, logger, m)
	}
	blockedRepo := availability.NewBlockedDateRepoPG(pool)
	apptRepo := booking.NewAppointmentRepoPG(pool)

	// Lookups may read cached weekly hours; reservations always see the database.
	evaluator := availability.NewEvaluator(weeklyRepo, blockedRepo, grid, logger, m)
	guard := availability.NewEvaluator(weeklyPG, blockedRepo, grid, logger, m)
	availSvc := availability.NewService(weeklyRepo, blockedRepo, evaluator, logger)
	validator := booking.NewValidator(guard, apptRepo, apptRepo, logger, m)
	bookingSvc := booking.NewService(apptRepo, validator, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(m.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	deps := map[string]db.Pinger{}
	if store != nil {
		deps["cache"] = store
	}
	e.GET("/health", db.HealthHandler(pool, deps))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(authMiddleware(cfg))
	apiV1.Use(middleware.RequestTimeout(requestTimeout))
	apiV1.Use(middleware.BodyLimit(maxBodySize))

	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rl))

	availability.NewHandler(availSvc).RegisterRoutes(apiV1)
	booking.NewHandler(bookingSvc).RegisterRoutes(apiV1)

	return e, nil
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		return auth.DevAuthMiddleware(jwtConfig(cfg))
	}
	return auth.JWTMiddleware(jwtConfig(cfg))
}
