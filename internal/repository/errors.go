// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to distinguish
// between different failure scenarios without inspecting driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique index
// (duplicate email, Firebase uid, or active request for the same car).
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a delete cannot be performed because of
// dependent records, such as deleting a car that still has active requests.
var ErrConflict = errors.New("conflict")

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
