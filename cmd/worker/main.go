// Command worker runs the payout task runner's consume loop: process_payout,
// initiate_external_payout, and complete_external_payout jobs published by
// the API onto Kafka. Grounded on the shape of cmd/outbox-consumer/main.go's
// poll loop entrypoint, generalized from a raw ticker poll to
// taskrunner.Runner.Run's blocking Kafka consume loop.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muktar11/ledgersafe/internal/app"
	"github.com/muktar11/ledgersafe/internal/infra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("worker connected to postgres")

	deps := app.Build(app.RouterDeps{
		Pool:            pool,
		Logger:          logger,
		KafkaBrokers:    cfg.KafkaBrokers,
		KafkaEnabled:    cfg.KafkaEnabled,
		PayoutJobsTopic: cfg.PayoutJobsTopic,
		ProviderBaseURL: cfg.ProviderBaseURL,
		ProviderAPIKey:  cfg.ProviderAPIKey,
	})

	logger.Info("worker starting", "topic", cfg.PayoutJobsTopic)

	errCh := make(chan error, 1)
	go func() {
		if err := deps.Runner.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("runner error: %w", err)
	}

	// Allow in-flight jobs a moment to finish before the process exits.
	time.Sleep(500 * time.Millisecond)
	logger.Info("worker stopped gracefully")
	return nil
}
