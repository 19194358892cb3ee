// Package health serves the liveness and storage connectivity probes.
package health

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/salesdw-api/internal/httpx"
)

const probeQuery = `SELECT now() AS server_time, current_database() AS database, current_schema() AS schema`

type Handler struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewHandler(db *sql.DB, logger *slog.Logger) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
	}
}

type okResponse struct {
	OK bool `json:"ok"`
}

type dbTestResponse struct {
	OK   bool             `json:"ok"`
	Rows []map[string]any `json:"rows"`
}

// HandleHealth reports liveness without touching storage.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, h.logger, http.StatusOK, okResponse{OK: true})
}

// HandleDBTest runs a trivial query and echoes its rows.
func (h *Handler) HandleDBTest(w http.ResponseWriter, r *http.Request) {
	rows, err := queryMaps(r.Context(), h.db, probeQuery)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "database probe failed", "error", err)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, dbTestResponse{OK: true, Rows: rows})
}

// queryMaps returns each row as a column name to value map. Text columns
// arriving as []byte are converted to strings.
func queryMaps(ctx context.Context, db *sql.DB, query string, args ...any) ([]map[string]any, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
