package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine is one product entry of an order. A nil LineSeq leaves numbering
// to the order_line trigger.
type OrderLine struct {
	LineSeq      *int            `json:"line_seq,omitempty"`
	ProductID    int64           `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Discount     decimal.Decimal `json:"discount"`
	Comment      *string         `json:"comment,omitempty"`
	Rating       *int            `json:"rating,omitempty"`
	ShipStatusID int64           `json:"ship_status_id"`
}

// Amount is quantity times unit price, unrounded.
func (l OrderLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

type Order struct {
	ID            int64           `json:"ord_id"`
	OrderDate     time.Time       `json:"ord_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	UserID        int64           `json:"user_id"`
	PayStatusID   int64           `json:"pay_status_id"`
	Lines         []OrderLine     `json:"lines"`
}
