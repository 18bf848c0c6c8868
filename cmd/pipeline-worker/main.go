// Package main provides the submission worker: it drains the upload
// queue one message at a time and submits extraction jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/inkwell-systems/invoice-pipeline/internal/bootstrap"
	"github.com/inkwell-systems/invoice-pipeline/internal/config"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName + "-worker",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.NewProduction(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Wiring failed")
	}
	defer app.Close()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	logger.Info().Str("queue_url", cfg.Queue.URL).Msg("Submission worker started")
	run(ctx, cfg, app, logger)
	logger.Info().Msg("Submission worker stopped")
}

// run consumes one message per iteration. A message is deleted only
// after successful submission; failures leave it for redelivery under
// the queue's receive-count policy.
func run(ctx context.Context, cfg *config.Config, app *bootstrap.App, logger *observability.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := app.Queue.Receive(ctx, cfg.Queue.WaitTime)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("Queue receive failed")
			continue
		}
		if msg == nil {
			continue
		}

		msgCtx := observability.ContextWithTraceID(ctx, uuid.NewString())
		invocationARN, err := app.Coordinator.HandleQueued(msgCtx, msg.Body)
		if err != nil {
			logger.WithContext(msgCtx).Error().Err(err).Msg("Submission failed, leaving message for redelivery")
			continue
		}

		if err := app.Queue.Delete(msgCtx, msg.ReceiptHandle); err != nil {
			logger.WithContext(msgCtx).Error().Err(err).Msg("Queue delete failed")
			continue
		}

		logger.WithContext(msgCtx).Info().
			Str("invocation_arn", invocationARN).
			Msg("Message processed")
	}
}
