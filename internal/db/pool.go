// Package db wraps the Postgres connection pool used by checkers, the
// cache layer, the audit persister, and auth key lookup.
//
// Pool is authored here rather than copied: internal/pipeline and
// internal/geospatial reference a db.Pool interface throughout, but its
// defining file wasn't available. This interface is grounded on the
// call-site signatures observed across those files, which match
// *pgxpool.Pool's own method set.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of *pgxpool.Pool used by this service. Accepting an
// interface lets checkers and cache code be unit-tested against
// github.com/pashagolub/pgxmock/v4 without a live database.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Open creates a *pgxpool.Pool from a connection string, matching
// store/postgres.go's NewPostgres construction.
func Open(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}
