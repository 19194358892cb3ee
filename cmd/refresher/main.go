package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joao-fontenele/salesdw-api/internal/config"
	"github.com/joao-fontenele/salesdw-api/internal/messaging"
	"github.com/joao-fontenele/salesdw-api/internal/telemetry"
	"github.com/joao-fontenele/salesdw-api/internal/warehouse"
)

const (
	serviceName    = "salesdw-refresher"
	serviceVersion = "0.1.0"
	consumerGroup  = "warehouse-refresher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel)

	if !cfg.EventsEnabled() {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.TracingEnabled, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	db, err := telemetry.OpenDB(ctx, cfg.DatabaseURL())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	runner, err := warehouse.NewRunner(warehouse.NewRepository(db), logger)
	if err != nil {
		logger.Error("failed to create refresh runner", "error", err)
		os.Exit(1)
	}
	refresher := warehouse.NewEventRefresher(runner, logger)

	topic := messaging.TopicSpec{
		Name:              cfg.KafkaTopic,
		Partitions:        cfg.KafkaPartitions,
		ReplicationFactor: cfg.KafkaReplicationFactor,
	}
	if err := messaging.EnsureTopic(ctx, cfg.KafkaBrokers, topic); err != nil {
		logger.Error("failed to ensure topic", "error", err, "topic", cfg.KafkaTopic)
		os.Exit(1)
	}

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup)
	defer func() { _ = consumer.Close() }()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting warehouse refresher", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic, "group", consumerGroup)

	// A failed refresh leaves its message uncommitted; the process exits and
	// the event is redelivered after restart.
	if err := consumer.Consume(ctx, refresher.Handle); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
