package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/joao-fontenele/salesdw-api/internal/domain"
	"github.com/joao-fontenele/salesdw-api/internal/messaging"
)

// delivery builds a record logged at loggedAt. The payload timestamp is set
// far in the future to show it plays no part in the decision.
func delivery(t *testing.T, orderID int64, loggedAt time.Time) messaging.Delivery {
	t.Helper()
	data, err := json.Marshal(domain.OrderCreatedEvent{
		EventID:   "evt",
		OrderID:   orderID,
		Timestamp: loggedAt.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return messaging.Delivery{Key: "k", Payload: data, Offset: orderID, LoggedAt: loggedAt}
}

func newTestRefresher(t *testing.T, wh *fakeWarehouse, clock *time.Time) *EventRefresher {
	t.Helper()
	runner, err := NewRunner(wh, discardLogger())
	if err != nil {
		t.Fatalf("failed to create runner: %v", err)
	}
	r := NewEventRefresher(runner, discardLogger())
	r.now = func() time.Time { return *clock }
	return r
}

func TestEventRefresher_Handle(t *testing.T) {
	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	t.Run("refreshes on first record", func(t *testing.T) {
		wh := &fakeWarehouse{}
		clock := base
		r := newTestRefresher(t, wh, &clock)

		if err := r.Handle(context.Background(), delivery(t, 1, base.Add(-time.Second))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wh.refreshCalls != 1 {
			t.Errorf("expected 1 refresh, got %d", wh.refreshCalls)
		}
	})

	t.Run("skips records logged before the last refresh started", func(t *testing.T) {
		wh := &fakeWarehouse{}
		clock := base
		r := newTestRefresher(t, wh, &clock)

		_ = r.Handle(context.Background(), delivery(t, 1, base.Add(-2*time.Second)))
		_ = r.Handle(context.Background(), delivery(t, 2, base.Add(-time.Second)))

		if wh.refreshCalls != 1 {
			t.Errorf("expected 1 refresh, got %d", wh.refreshCalls)
		}

		clock = base.Add(time.Minute)
		_ = r.Handle(context.Background(), delivery(t, 3, base.Add(time.Second)))

		if wh.refreshCalls != 2 {
			t.Errorf("expected a second refresh for a record logged later, got %d", wh.refreshCalls)
		}
	})

	t.Run("record without timestamp always refreshes", func(t *testing.T) {
		wh := &fakeWarehouse{}
		clock := base
		r := newTestRefresher(t, wh, &clock)

		_ = r.Handle(context.Background(), delivery(t, 1, base.Add(-time.Second)))
		_ = r.Handle(context.Background(), delivery(t, 2, time.Time{}))

		if wh.refreshCalls != 2 {
			t.Errorf("expected 2 refreshes, got %d", wh.refreshCalls)
		}
	})

	t.Run("failed refresh is returned and not remembered", func(t *testing.T) {
		wh := &fakeWarehouse{refreshErr: errors.New("pq: deadlock detected")}
		clock := base
		r := newTestRefresher(t, wh, &clock)

		if err := r.Handle(context.Background(), delivery(t, 1, base.Add(-time.Second))); err == nil {
			t.Fatal("expected error")
		}
		if !r.lastStart.IsZero() {
			t.Error("expected failed refresh to leave lastStart unset")
		}

		wh.refreshErr = nil
		if err := r.Handle(context.Background(), delivery(t, 1, base.Add(-time.Second))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wh.refreshCalls != 2 {
			t.Errorf("expected redelivered record to refresh again, got %d calls", wh.refreshCalls)
		}
	})

	t.Run("malformed payload is skipped", func(t *testing.T) {
		wh := &fakeWarehouse{}
		clock := base
		r := newTestRefresher(t, wh, &clock)

		d := messaging.Delivery{Payload: []byte("not json"), LoggedAt: base}
		if err := r.Handle(context.Background(), d); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wh.refreshCalls != 0 {
			t.Errorf("expected no refresh, got %d", wh.refreshCalls)
		}
	})
}
