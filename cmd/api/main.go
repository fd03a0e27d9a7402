package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/user-sync-service/internal/api/http"
	"github.com/spec-kit/user-sync-service/internal/api/http/handlers"
	"github.com/spec-kit/user-sync-service/internal/auth"
	"github.com/spec-kit/user-sync-service/internal/config"
	"github.com/spec-kit/user-sync-service/internal/datasource"
	"github.com/spec-kit/user-sync-service/internal/events"
	"github.com/spec-kit/user-sync-service/internal/observability"
	"github.com/spec-kit/user-sync-service/internal/persistence"
	"github.com/spec-kit/user-sync-service/internal/repository"
	"github.com/spec-kit/user-sync-service/internal/security"
	"github.com/spec-kit/user-sync-service/internal/service"
	"github.com/spec-kit/user-sync-service/internal/staging"
	"github.com/spec-kit/user-sync-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var primary repository.UserRepository
	if pool := pg.PoolHandle(); pool != nil {
		primary = repository.NewUserRepository(pool)
	} else {
		logger.Warn("primary store backed by process memory; data will not survive restarts")
		primary = repository.NewMemoryUserRepository()
	}

	stagingStore := staging.NewStore(cfg.Staging.FilePath, cfg.Staging.CacheTTL(), logger)
	if cfg.Staging.SeedDefaults {
		if err := stagingStore.InitializeDefaults(ctx); err != nil {
			logger.Fatal("failed to seed staging store", zap.Error(err))
		}
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	auditService := security.NewAuditService(logger, dispatcher)

	data, err := datasource.New(datasource.Strategy(cfg.DataSource.Strategy), primary, stagingStore, cfg.DataSource.UseStaging, logger)
	if err != nil {
		logger.Fatal("failed to build data source", zap.Error(err))
	}
	logger.Info("data source configured", zap.String("source", data.Source()))

	principalLimiter, originLimiter, syncLimiter := buildLimiters(cfg, redis, logger)
	validator := security.NewValidator(data, auditService, principalLimiter, originLimiter, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.AccessTokenTTLMinutes)*time.Minute)
	authMiddleware := auth.NewMiddleware(tokens, data)

	userService := service.NewUserService(data, validator, dispatcher, cfg.Auth.BcryptCost, logger)
	authService := service.NewAuthService(data, tokens, validator, cfg.Auth.BcryptCost, logger)
	syncService := service.NewSyncService(service.SyncDependencies{
		Data:       data,
		Staging:    stagingStore,
		Primary:    primary,
		Validator:  validator,
		Audit:      auditService,
		Limiter:    syncLimiter,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	alertService := service.NewAlertService(dispatcher, logger, cfg.Alert)
	worker.StartAlertWorker(alertService)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Sync:           handlers.NewSyncHandler(syncService),
		Security:       handlers.NewSecurityHandler(auditService, metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// buildLimiters returns the creation-per-principal, creation-per-origin
// and sync-per-principal limiters, Redis backed when configured.
func buildLimiters(cfg *config.Config, redis *persistence.Redis, logger *zap.Logger) (security.Limiter, security.Limiter, security.Limiter) {
	window := time.Hour
	if cfg.Security.UseRedisLimiter && redis != nil && redis.Client != nil {
		return security.NewRedisLimiter(redis.Client, "ratelimit:create:user", cfg.Security.MaxCreationPerUserPerHour, window, logger),
			security.NewRedisLimiter(redis.Client, "ratelimit:create:ip", cfg.Security.MaxCreationPerIPPerHour, window, logger),
			security.NewRedisLimiter(redis.Client, "ratelimit:sync:user", cfg.Security.MaxSyncPerUserPerHour, window, logger)
	}
	return security.NewSlidingWindowLimiter(cfg.Security.MaxCreationPerUserPerHour, window),
		security.NewSlidingWindowLimiter(cfg.Security.MaxCreationPerIPPerHour, window),
		security.NewSlidingWindowLimiter(cfg.Security.MaxSyncPerUserPerHour, window)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
