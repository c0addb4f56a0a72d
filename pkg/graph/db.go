package graph

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the database handle the sink writes through. It is satisfied by both
// *pgx.Conn and *pgxpool.Pool, so callers can hand over whichever they already hold.
type DB interface {
	// Exec executes a SQL statement outside of any explicit transaction.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Begin starts a transaction. The context only affects the begin command,
	// there is no auto-rollback on context cancellation.
	Begin(ctx context.Context) (pgx.Tx, error)
}
