package database

import (
	"context"
)

// Row is one result record, keyed by column name. Both backends normalize
// their native result shape into this form so callers never see driver types.
type Row map[string]any

// Querier executes statements. Repositories write queries with `?`
// placeholders; the implementation rewrites them for its dialect before
// execution. Backend driver errors propagate verbatim.
type Querier interface {
	// Query runs a SELECT and returns all rows.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}

// DB is a relational backend behind the dialect layer. The transaction
// opened by WithTx is exclusively owned by fn and is committed or rolled
// back before WithTx returns; a context cancellation rolls back.
type DB interface {
	Querier

	// WithTx runs fn inside a single transaction. fn returning an error (or
	// panicking) rolls the transaction back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(q Querier) error) error

	Dialect() Dialect
	Ping(ctx context.Context) error
	Close() error
}
