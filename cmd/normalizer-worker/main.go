// normalizer-worker получает уведомления о новых объектах из Kafka или
// RabbitMQ и выполняет нормализацию для каждого сообщения.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/brokers"
	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/logging"
	"github.com/ruslano69/match-normalizer/pkg/pipeline"
	"github.com/ruslano69/match-normalizer/pkg/retry"
	"github.com/ruslano69/match-normalizer/pkg/worker"
)

func main() {
	settingsFile := flag.String("settings", "", "path to worker settings YAML (environment overrides apply)")
	flag.Parse()

	settings, err := etl.LoadSettings(*settingsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}
	if settings.Broker.Type == "" {
		fmt.Fprintln(os.Stderr, "Usage: normalizer-worker --settings worker.yaml")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "broker.type is required (kafka or rabbitmq)")
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, logger); err != nil {
		logger.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, settings *etl.Settings, logger zerolog.Logger) error {
	var registerer prometheus.Registerer
	if settings.Metrics.Address != "" {
		registerer = prometheus.DefaultRegisterer
	}

	p, err := pipeline.Build(ctx, settings, logger, pipeline.Options{Registerer: registerer})
	if err != nil {
		return err
	}
	defer p.Close()

	connectRetry := settings.Worker.ConnectRetry
	connectRetry.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("broker connection failed, retrying")
	}
	retryer, err := retry.NewRetryer(connectRetry)
	if err != nil {
		return err
	}

	consumer, err := brokers.New(settings.Broker)
	if err != nil {
		return err
	}
	if err := retryer.Do(ctx, consumer.Connect); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", consumer.Type(), err)
	}
	defer consumer.Close()

	opts := worker.Options{
		Logger:           logger,
		RequeueOnFailure: settings.Worker.RequeueOnFailure,
	}
	if settings.Worker.DeadLetter.Type != "" {
		dlq, err := brokers.New(settings.Worker.DeadLetter)
		if err != nil {
			return fmt.Errorf("dead letter: %w", err)
		}
		if err := retryer.Do(ctx, dlq.Connect); err != nil {
			return fmt.Errorf("failed to connect dead letter %s: %w", dlq.Type(), err)
		}
		defer dlq.Close()
		opts.DeadLetter = dlq
	}

	if settings.Metrics.Address != "" {
		srv := serveMetrics(settings.Metrics, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	w := worker.New(consumer, p.Orchestrator, opts)

	err = w.Run(ctx)

	stats := w.Stats()
	logger.Info().
		Int64("received", stats.Received).
		Int64("succeeded", stats.Succeeded).
		Int64("failed", stats.Failed).
		Int64("rejected", stats.Rejected).
		Int64("dead_lettered", stats.DeadLettered).
		Str("division", p.Config.Division).
		Msg("worker totals")

	return err
}

func serveMetrics(cfg etl.MetricsConfig, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("address", cfg.Address).Msg("metrics server failed")
		}
	}()
	return srv
}
