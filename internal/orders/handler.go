package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/salesdw-api/internal/domain"
	"github.com/joao-fontenele/salesdw-api/internal/httpx"
)

// OrderStore persists an order with its lines atomically.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
}

// EventPublisher is satisfied by *messaging.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	repo      OrderStore
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	intake    metric.Int64Counter
}

// NewHandler wires the intake handler. publisher may be nil, in which case no
// order events are emitted.
func NewHandler(repo OrderStore, publisher EventPublisher, logger *slog.Logger) (*Handler, error) {
	intake, err := otel.Meter("salesdw/orders").Int64Counter("orders.intake",
		metric.WithDescription("Order submissions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		intake:    intake,
	}, nil
}

type createOrderResponse struct {
	OK            bool          `json:"ok"`
	OrderID       int64         `json:"ord_id"`
	TotalAmount   domain.Amount `json:"total_amount"`
	TotalDiscount domain.Amount `json:"total_discount"`
}

type conflictResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	OrderID int64  `json:"ord_id"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.record(ctx, "invalid")
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := req.toOrder(h.now())
	if err != nil {
		h.record(ctx, "invalid")
		h.logger.InfoContext(ctx, "order rejected", "error", err)
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.Create(ctx, order); err != nil {
		if errors.Is(err, ErrOrderExists) {
			h.record(ctx, "conflict")
			h.logger.InfoContext(ctx, "duplicate order", "ord_id", order.ID)
			httpx.WriteJSON(w, h.logger, http.StatusConflict, conflictResponse{
				OK:      false,
				Error:   err.Error(),
				OrderID: order.ID,
			})
			return
		}
		h.record(ctx, "error")
		h.logger.ErrorContext(ctx, "failed to create order", "error", err, "ord_id", order.ID)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	h.record(ctx, "created")
	h.publishCreated(ctx, order)

	h.logger.InfoContext(ctx, "order created",
		"ord_id", order.ID,
		"lines", len(order.Lines),
		"total_amount", order.TotalAmount.String(),
	)
	httpx.WriteJSON(w, h.logger, http.StatusOK, createOrderResponse{
		OK:            true,
		OrderID:       order.ID,
		TotalAmount:   domain.NewAmount(order.TotalAmount),
		TotalDiscount: domain.NewAmount(order.TotalDiscount),
	})
}

// publishCreated notifies downstream consumers. The order is already
// committed, so a failure here is only logged.
func (h *Handler) publishCreated(ctx context.Context, order *domain.Order) {
	if h.publisher == nil {
		return
	}

	event := domain.OrderCreatedEvent{
		EventID:       uuid.NewString(),
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   domain.NewAmount(order.TotalAmount),
		TotalDiscount: domain.NewAmount(order.TotalDiscount),
		LineCount:     len(order.Lines),
		OrderDate:     order.OrderDate,
		Timestamp:     h.now().UTC(),
	}
	if err := h.publisher.Publish(ctx, event.Key(), event); err != nil {
		h.logger.ErrorContext(ctx, "failed to publish order created event", "error", err, "ord_id", order.ID)
	}
}

func (h *Handler) record(ctx context.Context, outcome string) {
	h.intake.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
