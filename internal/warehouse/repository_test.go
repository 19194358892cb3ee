package warehouse

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db), mock
}

func TestRepository_Refresh(t *testing.T) {
	t.Run("calls the refresh procedure", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("CALL dw_full_refresh()")).WillReturnResult(sqlmock.NewResult(0, 0))

		if err := repo.Refresh(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("returns procedure errors", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("CALL dw_full_refresh()")).WillReturnError(errors.New("pq: relation \"dw_sales_daily\" does not exist"))

		err := repo.Refresh(context.Background())
		if err == nil || err.Error() != `pq: relation "dw_sales_daily" does not exist` {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestRepository_SalesDaily(t *testing.T) {
	t.Run("scans rows oldest first", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		day1 := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
		day2 := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("FROM dw_sales_daily").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"order_day", "gross_amount", "total_discount", "net_amount", "order_count"}).
				AddRow(day1, "120.50", "0.50", "120.00", int64(2)).
				AddRow(day2, "10", "0", "10", int64(1)))

		sales, err := repo.SalesDaily(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sales) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(sales))
		}
		if !sales[0].OrderDay.Equal(day1) {
			t.Errorf("expected first day %v, got %v", day1, sales[0].OrderDay)
		}
		if !sales[0].GrossAmount.Equal(decimal.RequireFromString("120.5")) {
			t.Errorf("unexpected gross amount %s", sales[0].GrossAmount)
		}
		if sales[1].OrderCount != 1 {
			t.Errorf("expected order count 1, got %d", sales[1].OrderCount)
		}
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("FROM dw_sales_daily").
			WillReturnRows(sqlmock.NewRows([]string{"order_day", "gross_amount", "total_discount", "net_amount", "order_count"}))

		sales, err := repo.SalesDaily(context.Background(), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sales == nil || len(sales) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", sales)
		}
	})
}

func TestRepository_OrderLineFlat(t *testing.T) {
	repo, mock := newMockRepo(t)
	ordDate := time.Date(2026, 10, 19, 9, 15, 0, 0, time.UTC)
	columns := []string{
		"ord_id", "line_seq", "ord_date", "order_day", "user_id", "user_name",
		"product_id", "product_name", "category", "quantity", "unit_price",
		"line_amount", "discount", "net_amount", "line_comment", "rating",
		"pay_status", "ship_status",
	}

	mock.ExpectQuery("FROM dw_order_line_flat").
		WithArgs(int64(90), int64(10)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(42), int64(1), ordDate, ordDate, int64(7), "Ada", int64(1), "Keyboard", "Peripherals",
				"3", "0.105", "0.315", "0.01", "0.305", nil, nil, "PAID", "SHIPPED").
			AddRow(int64(42), int64(2), ordDate, ordDate, int64(7), "Ada", int64(2), "Mouse", "Peripherals",
				"1", "10", "10", "0", "10", "gift", int64(5), "PAID", "PENDING"))

	lines, err := repo.OrderLineFlat(context.Background(), 90, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Comment != nil || lines[0].Rating != nil {
		t.Errorf("expected NULL comment and rating to stay nil, got %+v", lines[0])
	}
	if lines[1].Comment == nil || *lines[1].Comment != "gift" {
		t.Errorf("unexpected comment %v", lines[1].Comment)
	}
	if lines[1].Rating == nil || *lines[1].Rating != 5 {
		t.Errorf("unexpected rating %v", lines[1].Rating)
	}
	if !lines[0].LineAmount.Equal(decimal.RequireFromString("0.315")) {
		t.Errorf("unexpected line amount %s", lines[0].LineAmount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
