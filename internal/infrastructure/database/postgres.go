package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresConfig holds connection pool settings for the Postgres backend.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns int32
	MinConns int32

	MaxRetries int
	RetryDelay time.Duration
}

// PostgresDB implements DB on top of a pgx connection pool.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB connects with exponential-backoff retries and verifies the
// connection with a ping before returning.
func NewPostgresDB(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	dsn := fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	var pool *pgxpool.Pool
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		pool, lastErr = pgxpool.NewWithConfig(ctx, poolCfg)
		if lastErr == nil {
			if lastErr = pool.Ping(ctx); lastErr == nil {
				log.Info().Int("attempt", attempt).Msg("connected to postgres")
				return &PostgresDB{pool: pool}, nil
			}
			pool.Close()
		}

		log.Warn().Err(lastErr).Int("attempt", attempt).Msg("postgres connection failed")
		if attempt < retries {
			select {
			case <-time.After(delay * time.Duration(1<<uint(attempt-1))):
			case <-ctx.Done():
				return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("failed to connect after %d attempts: %w", retries, lastErr)
}

func (db *PostgresDB) Dialect() Dialect { return DialectPostgres }

func (db *PostgresDB) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	return pgxQuery(ctx, db.pool, query, args...)
}

func (db *PostgresDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := db.pool.Exec(ctx, DialectPostgres.Rewrite(query), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// WithTx wraps fn in a transaction. Rollback happens on error or panic; the
// transaction never outlives this call.
func (db *PostgresDB) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&pgxTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.pool.Ping(pingCtx)
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// pgxTx adapts a pgx transaction to Querier.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	return pgxQuery(ctx, t.tx, query, args...)
}

func (t *pgxTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, DialectPostgres.Rewrite(query), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func pgxQuery(ctx context.Context, q pgxQuerier, query string, args ...any) ([]Row, error) {
	rows, err := q.Query(ctx, DialectPostgres.Rewrite(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizePgValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizePgValue flattens pgx-specific value types so both dialects present
// the same scalars to callers.
func normalizePgValue(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		dv, err := t.Value()
		if err != nil {
			return nil
		}
		return dv
	case [16]byte:
		return uuid.UUID(t).String()
	default:
		return v
	}
}
