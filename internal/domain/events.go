package domain

import (
	"strconv"
	"time"
)

// OrderCreatedEvent is published after an order and its lines are committed.
type OrderCreatedEvent struct {
	EventID       string    `json:"event_id"`
	OrderID       int64     `json:"ord_id"`
	UserID        int64     `json:"user_id"`
	TotalAmount   Amount    `json:"total_amount"`
	TotalDiscount Amount    `json:"total_discount"`
	LineCount     int       `json:"line_count"`
	OrderDate     time.Time `json:"ord_date"`
	Timestamp     time.Time `json:"timestamp"`
}

// Key partitions events by order so all events of one order stay ordered.
func (e OrderCreatedEvent) Key() string {
	return strconv.FormatInt(e.OrderID, 10)
}
