package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/salesdw-api/internal/domain"
)

// Each line binds eight parameters next to the shared ord_id, and Postgres
// caps a statement at 65535 parameters.
const maxLines = (65535 - 1) / lineParams

var orderDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ValidationError reports a submission rejected before any storage access.
type ValidationError struct {
	Scope   string
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if len(e.Missing) > 0 {
		msg = "missing required fields: " + strings.Join(e.Missing, ", ")
	}
	if e.Scope != "" {
		return e.Scope + ": " + msg
	}
	return msg
}

type createOrderRequest struct {
	OrderID       *int64              `json:"ord_id"`
	OrderDate     *string             `json:"ord_date"`
	UserID        *int64              `json:"user_id"`
	PayStatusID   *int64              `json:"pay_status_id"`
	TotalAmount   decimal.NullDecimal `json:"total_amount"`
	TotalDiscount decimal.NullDecimal `json:"total_discount"`
	Lines         []lineRequest       `json:"lines"`
}

type lineRequest struct {
	LineSeq      *int                `json:"line_seq"`
	ProductID    *int64              `json:"product_id"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	UnitPrice    decimal.NullDecimal `json:"unit_price"`
	Discount     decimal.NullDecimal `json:"discount"`
	Comment      *string             `json:"comment"`
	Rating       *int                `json:"rating"`
	ShipStatusID *int64              `json:"ship_status_id"`
}

// toOrder validates the submission and resolves defaults and totals. now is
// used when ord_date is absent.
func (req createOrderRequest) toOrder(now time.Time) (*domain.Order, error) {
	var missing []string
	if req.OrderID == nil {
		missing = append(missing, "ord_id")
	}
	if req.UserID == nil {
		missing = append(missing, "user_id")
	}
	if req.PayStatusID == nil {
		missing = append(missing, "pay_status_id")
	}
	if len(req.Lines) == 0 {
		missing = append(missing, "lines")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}
	if len(req.Lines) > maxLines {
		return nil, &ValidationError{Scope: "lines", Reason: fmt.Sprintf("at most %d lines per order", maxLines)}
	}

	orderDate := now
	if req.OrderDate != nil && *req.OrderDate != "" {
		parsed, err := parseOrderDate(*req.OrderDate)
		if err != nil {
			return nil, &ValidationError{Scope: "ord_date", Reason: err.Error()}
		}
		orderDate = parsed
	}

	lines := make([]domain.OrderLine, 0, len(req.Lines))
	for i, l := range req.Lines {
		line, err := l.toLine()
		if err != nil {
			err.Scope = fmt.Sprintf("lines[%d]", i)
			return nil, err
		}
		lines = append(lines, line)
	}

	amount, discount := ComputeTotals(lines)
	if req.TotalAmount.Valid {
		amount = req.TotalAmount.Decimal
	}
	if req.TotalDiscount.Valid {
		discount = req.TotalDiscount.Decimal
	}

	return &domain.Order{
		ID:            *req.OrderID,
		OrderDate:     orderDate,
		TotalAmount:   amount,
		TotalDiscount: discount,
		UserID:        *req.UserID,
		PayStatusID:   *req.PayStatusID,
		Lines:         lines,
	}, nil
}

func (l lineRequest) toLine() (domain.OrderLine, *ValidationError) {
	var missing []string
	if l.ProductID == nil {
		missing = append(missing, "product_id")
	}
	if !l.Quantity.Valid {
		missing = append(missing, "quantity")
	}
	if !l.UnitPrice.Valid {
		missing = append(missing, "unit_price")
	}
	if l.ShipStatusID == nil {
		missing = append(missing, "ship_status_id")
	}
	if len(missing) > 0 {
		return domain.OrderLine{}, &ValidationError{Missing: missing}
	}

	discount := decimal.Zero
	if l.Discount.Valid {
		discount = l.Discount.Decimal
	}

	return domain.OrderLine{
		LineSeq:      l.LineSeq,
		ProductID:    *l.ProductID,
		Quantity:     l.Quantity.Decimal,
		UnitPrice:    l.UnitPrice.Decimal,
		Discount:     discount,
		Comment:      l.Comment,
		Rating:       l.Rating,
		ShipStatusID: *l.ShipStatusID,
	}, nil
}

// ComputeTotals sums line amounts and discounts and rounds each sum half-up
// to two decimal places.
func ComputeTotals(lines []domain.OrderLine) (amount, discount decimal.Decimal) {
	amount, discount = decimal.Zero, decimal.Zero
	for _, l := range lines {
		amount = amount.Add(l.Amount())
		discount = discount.Add(l.Discount)
	}
	return amount.Round(2), discount.Round(2)
}

func parseOrderDate(s string) (time.Time, error) {
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want RFC 3339 or YYYY-MM-DD", s)
}
