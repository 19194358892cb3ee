package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/joao-fontenele/salesdw-api/internal/domain"
	"github.com/joao-fontenele/salesdw-api/internal/messaging"
)

// EventRefresher refreshes the warehouse in reaction to order-created
// records. Consume calls Handle from a single goroutine.
type EventRefresher struct {
	runner *Runner
	logger *slog.Logger
	now    func() time.Time

	// lastStart is when the most recent successful refresh began. A record
	// appended to the log before it describes an order that was committed
	// before it, so the refresh already saw that order.
	lastStart time.Time
}

func NewEventRefresher(runner *Runner, logger *slog.Logger) *EventRefresher {
	return &EventRefresher{
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
}

func (e *EventRefresher) Handle(ctx context.Context, d messaging.Delivery) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(d.Payload, &event); err != nil {
		e.logger.ErrorContext(ctx, "skipping malformed order event",
			"error", err, "partition", d.Partition, "offset", d.Offset)
		return nil
	}

	if e.covered(d.LoggedAt) {
		e.logger.DebugContext(ctx, "order already covered by last refresh",
			"ord_id", event.OrderID, "logged_at", d.LoggedAt, "last_start", e.lastStart)
		return nil
	}

	start := e.now()
	if err := e.runner.Run(ctx, "event"); err != nil {
		return fmt.Errorf("refresh for order %d: %w", event.OrderID, err)
	}
	e.lastStart = start

	e.logger.InfoContext(ctx, "warehouse refreshed for order",
		"ord_id", event.OrderID, "event_id", event.EventID, "offset", d.Offset)
	return nil
}

// covered reports whether a record logged at loggedAt predates the last
// successful refresh. Records without a timestamp always refresh.
func (e *EventRefresher) covered(loggedAt time.Time) bool {
	if e.lastStart.IsZero() || loggedAt.IsZero() {
		return false
	}
	return loggedAt.Before(e.lastStart)
}
