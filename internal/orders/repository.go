package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/joao-fontenele/salesdw-api/internal/domain"
)

// ErrOrderExists is returned when the order key is already stored, whether
// the pre-check saw it or the primary key rejected the insert.
var ErrOrderExists = errors.New("order already exists")

const (
	ordersPrimaryKey = "orders_pkey"
	lineParams       = 8
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create writes the order header and all its lines in one transaction. Lines
// without a sequence number are numbered by the order_line trigger.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE ord_id = $1)
	`, order.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("order %d: %w", order.ID, ErrOrderExists)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (ord_id, ord_date, total_amount, total_discount, user_id, pay_status_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.ID, order.OrderDate, order.TotalAmount, order.TotalDiscount, order.UserID, order.PayStatusID)
	if err != nil {
		if isOrderKeyViolation(err) {
			return fmt.Errorf("order %d: %w", order.ID, ErrOrderExists)
		}
		return err
	}

	query, args := lineInsert(order)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return tx.Commit()
}

// lineInsert builds a single multi-row INSERT for every line of order. $1 is
// the order key shared by all rows.
func lineInsert(order *domain.Order) (string, []any) {
	var b strings.Builder
	b.WriteString(`INSERT INTO order_line (ord_id, line_seq, product_id, quantity, unit_price, discount, line_comment, rating, ship_status_id) VALUES `)

	args := make([]any, 0, 1+len(order.Lines)*lineParams)
	args = append(args, order.ID)

	for i, line := range order.Lines {
		if i > 0 {
			b.WriteString(", ")
		}
		n := 2 + i*lineParams
		fmt.Fprintf(&b, "($1, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n, n+1, n+2, n+3, n+4, n+5, n+6, n+7)

		args = append(args,
			nullableInt(line.LineSeq),
			line.ProductID,
			line.Quantity,
			line.UnitPrice,
			line.Discount,
			nullableString(line.Comment),
			nullableInt(line.Rating),
			line.ShipStatusID,
		)
	}

	return b.String(), args
}

func isOrderKeyViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == ordersPrimaryKey
}

// nullableInt binds nil as SQL NULL so the column default or trigger applies.
func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
