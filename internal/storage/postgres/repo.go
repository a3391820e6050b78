// Package postgres is a CloudStore on top of pgx. Sheets map to a header
// array plus one text[] row per sheet row.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"review_monitor/internal/domain"
)

// DB is the subset of *pgxpool.Pool the repo needs.
type DB interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	upsertSheetSQL = `INSERT INTO sheets (name, header) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET header = EXCLUDED.header, updated_at = now()`
	deleteRowsSQL = `DELETE FROM sheet_rows WHERE sheet = $1`
	getHeaderSQL  = `SELECT header FROM sheets WHERE name = $1`
	listRowsSQL   = `SELECT cells FROM sheet_rows WHERE sheet = $1 ORDER BY row_no`
)

var rowColumns = []string{"sheet", "row_no", "cells"}

type Repo struct{ db DB }

func New(db DB) *Repo { return &Repo{db: db} }

func (r *Repo) Name() string { return "postgres" }

func (r *Repo) Connect(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: postgres ping: %v", domain.ErrCloudUnavailable, err)
	}
	return nil
}

func (r *Repo) Read(ctx context.Context, sheet string) (domain.Table, error) {
	var t domain.Table
	if err := r.db.QueryRow(ctx, getHeaderSQL, sheet).Scan(&t.Header); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Table{}, nil
		}
		return domain.Table{}, fmt.Errorf("read header of %s: %w", sheet, err)
	}

	rows, err := r.db.Query(ctx, listRowsSQL, sheet)
	if err != nil {
		return domain.Table{}, fmt.Errorf("list rows of %s: %w", sheet, err)
	}
	defer rows.Close()
	for rows.Next() {
		var cells []string
		if err := rows.Scan(&cells); err != nil {
			return domain.Table{}, fmt.Errorf("scan row of %s: %w", sheet, err)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, rows.Err()
}

// Write replaces the sheet in one transaction, bulk loading rows with COPY.
func (r *Repo) Write(ctx context.Context, sheet string, t domain.Table) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := writeTx(ctx, tx, sheet, t); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeTx(ctx context.Context, tx pgx.Tx, sheet string, t domain.Table) error {
	if _, err := tx.Exec(ctx, upsertSheetSQL, sheet, t.Header); err != nil {
		return fmt.Errorf("upsert sheet %s: %w", sheet, err)
	}
	if _, err := tx.Exec(ctx, deleteRowsSQL, sheet); err != nil {
		return fmt.Errorf("clear sheet %s: %w", sheet, err)
	}
	if len(t.Rows) == 0 {
		return nil
	}
	src := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		src[i] = []any{sheet, i, row}
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"sheet_rows"}, rowColumns, pgx.CopyFromRows(src))
	if err != nil {
		return fmt.Errorf("copy rows of %s: %w", sheet, err)
	}
	if int(n) != len(src) {
		return fmt.Errorf("copy rows of %s: wrote %d of %d", sheet, n, len(src))
	}
	return nil
}
