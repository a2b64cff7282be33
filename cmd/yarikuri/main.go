package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"yarikuri/internal/amqp"
	"yarikuri/internal/cli"
	apphttp "yarikuri/internal/http"
	"yarikuri/internal/services"
)

// amqpPublisher bridges the planner's publish hook to the AMQP client.
type amqpPublisher struct {
	client *amqp.Client
}

func (p *amqpPublisher) PublishSnapshotSaved(ctx context.Context, revision int64) error {
	return p.client.PublishSnapshotSync(ctx, revision)
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	opts := []services.Option{
		services.WithProjectionHorizon(cfg.ProjectionHorizonMonths),
		services.WithSalaryHorizon(cfg.SalaryHorizonMonths),
	}

	// The broker is optional: without it the worker just relies on its
	// periodic sync instead of near-realtime notifications.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, snapshot notifications disabled", "error", err)
	} else {
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(&amqpPublisher{client: amqpClient}))
	}

	planner := services.New(store, opts...)
	if err := planner.Load(context.Background()); err != nil {
		logger.Error("Failed to load snapshot", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, planner)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting yarikuri server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
