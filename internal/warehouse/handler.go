package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/salesdw-api/internal/domain"
	"github.com/joao-fontenele/salesdw-api/internal/httpx"
)

const (
	defaultFlatDays  = 90
	defaultFlatLimit = 50000
	defaultDailyDays = 180

	// maxDays keeps CURRENT_DATE - days inside the date range.
	maxDays  = 36500
	maxLimit = 1000000
)

// ReportStore is implemented by *Repository.
type ReportStore interface {
	OrderLineFlat(ctx context.Context, days, limit int) ([]domain.OrderLineFlat, error)
	SalesDaily(ctx context.Context, days int) ([]domain.SalesDaily, error)
}

type Handler struct {
	runner  *Runner
	reports ReportStore
	logger  *slog.Logger
}

func NewHandler(runner *Runner, reports ReportStore, logger *slog.Logger) *Handler {
	return &Handler{
		runner:  runner,
		reports: reports,
		logger:  logger,
	}
}

type runResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Run(r.Context(), "http"); err != nil {
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, runResponse{OK: true, Message: "full refresh completed"})
}

func (h *Handler) HandleOrderLineFlat(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", defaultFlatDays, maxDays)
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", defaultFlatLimit, maxLimit)
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	lines, err := h.reports.OrderLineFlat(r.Context(), days, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read order line report", "error", err, "days", days, "limit", limit)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.InfoContext(r.Context(), "order line report served", "count", len(lines), "days", days)
	httpx.WriteJSON(w, h.logger, http.StatusOK, lines)
}

func (h *Handler) HandleSalesDaily(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", defaultDailyDays, maxDays)
	if err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	sales, err := h.reports.SalesDaily(r.Context(), days)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read daily sales report", "error", err, "days", days)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.InfoContext(r.Context(), "daily sales report served", "count", len(sales), "days", days)
	httpx.WriteJSON(w, h.logger, http.StatusOK, sales)
}

// intParam reads an integer query parameter in [0, upper], falling back to def
// when it is absent or empty.
func intParam(r *http.Request, name string, def, upper int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > upper {
		return 0, fmt.Errorf("%s must be an integer between 0 and %d, got %q", name, upper, raw)
	}
	return v, nil
}
