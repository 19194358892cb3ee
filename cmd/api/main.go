package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/salesdw-api/internal/config"
	"github.com/joao-fontenele/salesdw-api/internal/health"
	"github.com/joao-fontenele/salesdw-api/internal/httpx"
	"github.com/joao-fontenele/salesdw-api/internal/messaging"
	"github.com/joao-fontenele/salesdw-api/internal/orders"
	"github.com/joao-fontenele/salesdw-api/internal/telemetry"
	"github.com/joao-fontenele/salesdw-api/internal/warehouse"
)

const (
	serviceName    = "salesdw-api"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.TracingEnabled, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB(ctx, cfg.DatabaseURL())
	if err != nil {
		logger.Error("failed to connect to database", "error", err,
			"host", cfg.DBHost, "port", cfg.DBPort, "database", cfg.DBService, "schema", cfg.DBSchema)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var publisher orders.EventPublisher
	if cfg.EventsEnabled() {
		topic := messaging.TopicSpec{
			Name:              cfg.KafkaTopic,
			Partitions:        cfg.KafkaPartitions,
			ReplicationFactor: cfg.KafkaReplicationFactor,
		}
		if err := messaging.EnsureTopic(ctx, cfg.KafkaBrokers, topic); err != nil {
			logger.Warn("failed to ensure topic, relying on auto-creation", "error", err, "topic", cfg.KafkaTopic)
		}
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
		logger.Info("order events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	orderHandler, err := orders.NewHandler(orders.NewOrderRepository(db), publisher, logger)
	if err != nil {
		logger.Error("failed to create orders handler", "error", err)
		os.Exit(1)
	}

	dw := warehouse.NewRepository(db)
	runner, err := warehouse.NewRunner(dw, logger)
	if err != nil {
		logger.Error("failed to create refresh runner", "error", err)
		os.Exit(1)
	}
	warehouseHandler := warehouse.NewHandler(runner, dw, logger)
	healthHandler := health.NewHandler(db, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", telemetry.WithHTTPRoute(healthHandler.HandleHealth))
	mux.HandleFunc("GET /db-test", telemetry.WithHTTPRoute(healthHandler.HandleDBTest))
	mux.HandleFunc("POST /etl/run", telemetry.WithHTTPRoute(warehouseHandler.HandleRun))
	mux.HandleFunc("POST /orders/raw", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	mux.HandleFunc("GET /pbi/order_line_flat", telemetry.WithHTTPRoute(warehouseHandler.HandleOrderLineFlat))
	mux.HandleFunc("GET /pbi/sales_daily", telemetry.WithHTTPRoute(warehouseHandler.HandleSalesDaily))
	mux.Handle("GET /metrics", metricsHandler)

	var handler http.Handler = mux
	handler = httpx.AccessLog(logger)(handler)
	handler = httpx.RequestID(handler)
	handler = otelhttp.NewHandler(handler, serviceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
	)

	// No WriteTimeout: a full refresh can outlive any fixed bound.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	go func() {
		logger.Info("starting sales api", "port", cfg.Port, "schema", cfg.DBSchema)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
