package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/log"
	"storefront/internal/mailer"
	"storefront/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	consumerName := cfg.Mail.Consumer
	if consumerName == "" {
		consumerName = "worker-" + uuid.NewString()
	}

	sender := mailer.NewLogSender(cfg.Mail.From, logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Mail.Stream,
		cfg.Mail.Group,
		consumerName,
		cfg.Mail.ClaimInterval,
		logger,
		sender,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
