package domain

import "time"

// OrderLineFlat is one row of dw_order_line_flat.
type OrderLineFlat struct {
	OrderID     int64     `json:"ord_id"`
	LineSeq     int       `json:"line_seq"`
	OrderDate   time.Time `json:"ord_date"`
	OrderDay    Date      `json:"order_day"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	Category    string    `json:"category"`
	Quantity    Amount    `json:"quantity"`
	UnitPrice   Amount    `json:"unit_price"`
	LineAmount  Amount    `json:"line_amount"`
	Discount    Amount    `json:"discount"`
	NetAmount   Amount    `json:"net_amount"`
	Comment     *string   `json:"comment"`
	Rating      *int      `json:"rating"`
	PayStatus   string    `json:"pay_status"`
	ShipStatus  string    `json:"ship_status"`
}

// SalesDaily is one row of dw_sales_daily.
type SalesDaily struct {
	OrderDay      Date   `json:"order_day"`
	GrossAmount   Amount `json:"gross_amount"`
	TotalDiscount Amount `json:"total_discount"`
	NetAmount     Amount `json:"net_amount"`
	OrderCount    int64  `json:"order_count"`
}
