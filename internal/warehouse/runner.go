package warehouse

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Refresher is implemented by *Repository.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Runner times and logs full refreshes regardless of what triggered them.
type Runner struct {
	store    Refresher
	logger   *slog.Logger
	duration metric.Float64Histogram
}

func NewRunner(store Refresher, logger *slog.Logger) (*Runner, error) {
	duration, err := otel.Meter("salesdw/warehouse").Float64Histogram("warehouse.refresh.duration",
		metric.WithDescription("Duration of dw_full_refresh calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Runner{store: store, logger: logger, duration: duration}, nil
}

// Run calls the refresh procedure once. trigger labels the caller
// ("http" or "event") in logs and metrics.
func (r *Runner) Run(ctx context.Context, trigger string) error {
	start := time.Now()
	err := r.store.Refresh(ctx)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	r.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	))

	if err != nil {
		r.logger.ErrorContext(ctx, "full refresh failed", "error", err, "trigger", trigger, "elapsed", elapsed)
		return err
	}

	r.logger.InfoContext(ctx, "full refresh completed", "trigger", trigger, "elapsed", elapsed)
	return nil
}
