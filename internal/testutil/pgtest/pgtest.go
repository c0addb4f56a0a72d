// Package pgtest connects tests to the PostgreSQL server named by TEST_DATABASE.
// The server needs the Apache AGE extension installed.
package pgtest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Skip skips t unless TEST_DATABASE is set and -short is off.
func Skip(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	if os.Getenv("TEST_DATABASE") == "" {
		t.Skip("TEST_DATABASE is not set")
	}
}

// ParseConfig returns a test connection config with logging
func ParseConfig(t testing.TB) *pgx.ConnConfig {
	config, err := pgx.ParseConfig(os.Getenv("TEST_DATABASE"))
	require.NoError(t, err)

	config.OnNotice = func(_ *pgconn.PgConn, n *pgconn.Notice) {
		t.Logf("PostgreSQL %s: %s", n.Severity, n.Message)
	}

	return config
}

// Pool opens a connection pool closed at the end of the test.
func Pool(ctx context.Context, t testing.TB) *pgxpool.Pool {
	Skip(t)
	config, err := pgxpool.ParseConfig(os.Getenv("TEST_DATABASE"))
	require.NoError(t, err)
	config.ConnConfig.OnNotice = ParseConfig(t).OnNotice

	pool, err := pgxpool.NewWithConfig(ctx, config)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// Graph returns a graph name unique to the test and drops the graph at cleanup.
func Graph(t testing.TB, pool *pgxpool.Pool) string {
	name := fmt.Sprintf("gs_test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn, err := pool.Acquire(ctx)
		if err != nil {
			t.Logf("drop graph %s: %v", name, err)
			return
		}
		defer conn.Release()
		if _, err := conn.Exec(ctx, "LOAD 'age'"); err != nil {
			t.Logf("drop graph %s: %v", name, err)
			return
		}
		if _, err := conn.Exec(ctx, "SELECT ag_catalog.drop_graph($1::name, true)", name); err != nil {
			t.Logf("drop graph %s: %v", name, err)
		}
	})
	return name
}

// Count runs a Cypher query returning a single count and returns it.
func Count(ctx context.Context, t testing.TB, pool *pgxpool.Pool, graph, query string) int {
	t.Helper()
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "LOAD 'age'")
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `SET LOCAL search_path = ag_catalog, "$user", public`)
	require.NoError(t, err)

	var n int
	sql := fmt.Sprintf("SELECT count::text::int FROM ag_catalog.cypher('%s', $$ %s $$) AS (count ag_catalog.agtype)", graph, query)
	require.NoError(t, tx.QueryRow(ctx, sql).Scan(&n))
	return n
}
