// Package warehouse triggers the database-side full refresh and reads the
// analytical tables it populates.
package warehouse

import (
	"context"
	"database/sql"

	"github.com/joao-fontenele/salesdw-api/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Refresh runs the dw_full_refresh procedure to completion.
func (r *Repository) Refresh(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CALL dw_full_refresh()`)
	return err
}

// OrderLineFlat returns at most limit flattened lines ordered within the last
// days days (today counts as day zero), newest first.
func (r *Repository) OrderLineFlat(ctx context.Context, days, limit int) ([]domain.OrderLineFlat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ord_id, line_seq, ord_date, order_day, user_id, user_name,
		       product_id, product_name, category, quantity, unit_price,
		       line_amount, discount, net_amount, line_comment, rating,
		       pay_status, ship_status
		FROM dw_order_line_flat
		WHERE order_day >= CURRENT_DATE - $1::int
		ORDER BY ord_date DESC, ord_id DESC, line_seq
		LIMIT $2
	`, days, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	lines := []domain.OrderLineFlat{}
	for rows.Next() {
		var l domain.OrderLineFlat
		var comment sql.NullString
		var rating sql.NullInt64
		if err := rows.Scan(
			&l.OrderID, &l.LineSeq, &l.OrderDate, &l.OrderDay, &l.UserID, &l.UserName,
			&l.ProductID, &l.ProductName, &l.Category, &l.Quantity, &l.UnitPrice,
			&l.LineAmount, &l.Discount, &l.NetAmount, &comment, &rating,
			&l.PayStatus, &l.ShipStatus,
		); err != nil {
			return nil, err
		}
		if comment.Valid {
			l.Comment = &comment.String
		}
		if rating.Valid {
			v := int(rating.Int64)
			l.Rating = &v
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// SalesDaily returns one aggregate row per order day in the last days days,
// oldest first.
func (r *Repository) SalesDaily(ctx context.Context, days int) ([]domain.SalesDaily, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_day, gross_amount, total_discount, net_amount, order_count
		FROM dw_sales_daily
		WHERE order_day >= CURRENT_DATE - $1::int
		ORDER BY order_day
	`, days)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sales := []domain.SalesDaily{}
	for rows.Next() {
		var s domain.SalesDaily
		if err := rows.Scan(&s.OrderDay, &s.GrossAmount, &s.TotalDiscount, &s.NetAmount, &s.OrderCount); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}
