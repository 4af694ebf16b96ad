// Package store provides the SQL-backed persistence for the grading engine
// (sqlite offline, postgres online) plus an in-memory variant for tests.
// Compound writes that the engine requires to be atomic run inside one
// transaction via db.WithTx.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
)

// SQL implements course.Catalog, snapshot.Store, attempt.Store,
// practicetest.Store and enrollment.Store against one database handle.
type SQL struct {
	db *sql.DB
}

func NewSQL(db *sql.DB) *SQL { return &SQL{db: db} }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func mustJSON(v any) string {
	buf, err := json.Marshal(v)
	if err != nil {
		// all persisted shapes are plain structs/maps; this cannot fail
		panic(err)
	}
	return string(buf)
}

func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.KindNotFound, msg)
	}
	return err
}
