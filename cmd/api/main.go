package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/jobs"
	"storefront/internal/log"
	"storefront/internal/mailer"
	"storefront/internal/repository"
	"storefront/internal/security"
	"storefront/internal/server"
	"storefront/internal/service"
	"storefront/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			logger.Error().Err(err).Msg("sentry init failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	tokens, err := security.NewTokenIssuer(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.JWTAccessTTL,
		cfg.Security.JWTRefreshTTL,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("token issuer init failed")
	}

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if err := database.Migrate(ctx, dbPool, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}
	if cfg.Security.SignatureSecret == "" {
		logger.Warn().Msg("security.signaturesecret is empty; asset urls carry unkeyed signatures")
	}

	userRepo := repository.NewUserRepository(dbPool)
	roleRepo := repository.NewRoleRepository(dbPool)
	storeRepo := repository.NewStoreRepository(dbPool)
	outbox := mailer.NewOutbox(redisClient, cfg.Mail.Stream)

	stores := service.NewStoreService(storeRepo, logger)
	services := handlers.Services{
		Auth:   service.NewAuthService(userRepo, tokens, outbox, cfg.Security.ResetTokenTTL, logger),
		Users:  service.NewUserService(userRepo, logger),
		Roles:  service.NewRoleService(roleRepo, userRepo, logger),
		Stores: stores,
		Assets: service.NewAssetService(stores, objectStore, cfg.Security.SignatureSecret, cfg.Storage.MaxUpload, logger),
	}

	if err := services.Roles.EnsureDefaults(ctx); err != nil {
		logger.Error().Err(err).Msg("seeding default roles failed")
	}

	checks := map[string]handlers.HealthCheck{
		"database": database.Check(dbPool),
		"cache":    cache.Check(redisClient),
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, tokens, userRepo, services, checks)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Jobs.ResetPurgeSchedule, userRepo, outbox, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
