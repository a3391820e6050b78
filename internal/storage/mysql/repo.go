package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"review_monitor/internal/domain"
)

// rowsPerInsert bounds the multi-row INSERT so large sheets stay under
// max_allowed_packet.
const rowsPerInsert = 500

// Repo is a CloudStore backed by MySQL.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Name() string { return "mysql" }

func (r *Repo) Connect(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: mysql ping: %v", domain.ErrCloudUnavailable, err)
	}
	return nil
}

func (r *Repo) Read(ctx context.Context, sheet string) (domain.Table, error) {
	var headerJSON []byte
	if err := r.db.QueryRowContext(ctx, getHeaderSQL, sheet).Scan(&headerJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Table{}, nil
		}
		return domain.Table{}, err
	}
	var t domain.Table
	if err := json.Unmarshal(headerJSON, &t.Header); err != nil {
		return domain.Table{}, fmt.Errorf("decode header of %s: %w", sheet, err)
	}

	rows, err := r.db.QueryContext(ctx, listRowsSQL, sheet)
	if err != nil {
		return domain.Table{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var cellsJSON []byte
		if err := rows.Scan(&cellsJSON); err != nil {
			return domain.Table{}, err
		}
		var cells []string
		if err := json.Unmarshal(cellsJSON, &cells); err != nil {
			return domain.Table{}, fmt.Errorf("decode row of %s: %w", sheet, err)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, rows.Err()
}

// Write replaces the sheet inside one transaction.
func (r *Repo) Write(ctx context.Context, sheet string, t domain.Table) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	header, _ := json.Marshal(t.Header)
	if _, err = tx.ExecContext(ctx, upsertSheetSQL, sheet, string(header)); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, deleteRowsSQL, sheet); err != nil {
		return err
	}
	for start := 0; start < len(t.Rows); start += rowsPerInsert {
		end := min(start+rowsPerInsert, len(t.Rows))
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*3)
		for i := start; i < end; i++ {
			cells, _ := json.Marshal(t.Rows[i])
			values = append(values, "(?,?,?)")
			args = append(args, sheet, i, string(cells))
		}
		if _, err = tx.ExecContext(ctx, insertRowsPrefix+strings.Join(values, ","), args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
