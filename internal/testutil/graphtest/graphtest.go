// Package graphtest provides an in-memory stand-in for the database handle
// used by graph.Executor, recording every statement it receives.
package graphtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrInjected = errors.New("injected failure")

// Exec is a recorded statement.
type Exec struct {
	SQL  string
	Args []any
}

// DB records statements and transactions. Set FailOn to make any statement
// containing that substring fail with ErrInjected. A non-nil Hold makes Exec
// block until it is closed.
type DB struct {
	mu sync.Mutex

	FailOn      string
	FailBegin   bool
	GraphExists bool
	Hold        chan struct{}

	Execs      []Exec
	Committed  [][]Exec
	RolledBack int
}

// Exec implements graph.DB.
func (db *DB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if db.Hold != nil {
		<-db.Hold
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.Execs = append(db.Execs, Exec{SQL: sql, Args: args})
	return pgconn.NewCommandTag("SELECT 0"), nil
}

// Begin implements graph.DB.
func (db *DB) Begin(_ context.Context) (pgx.Tx, error) {
	if db.FailBegin {
		return nil, ErrInjected
	}
	return &Tx{db: db}, nil
}

// Statements returns the Cypher-bearing statements of all committed transactions.
func (db *DB) Statements() []Exec {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []Exec
	for _, tx := range db.Committed {
		for _, e := range tx {
			if strings.Contains(e.SQL, "cypher(") {
				out = append(out, e)
			}
		}
	}
	return out
}

// Tx is a recorded transaction. Methods not overridden panic via the nil embedded pgx.Tx.
type Tx struct {
	pgx.Tx
	db     *DB
	execs  []Exec
	closed bool
}

func (tx *Tx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx.closed {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	if tx.db.FailOn != "" && strings.Contains(sql, tx.db.FailOn) {
		return pgconn.CommandTag{}, ErrInjected
	}
	tx.execs = append(tx.execs, Exec{SQL: sql, Args: args})
	return pgconn.NewCommandTag("SELECT 1"), nil
}

func (tx *Tx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	tx.execs = append(tx.execs, Exec{SQL: sql, Args: args})
	return row{exists: tx.db.GraphExists}
}

func (tx *Tx) Commit(_ context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.db.mu.Lock()
	tx.db.Committed = append(tx.db.Committed, tx.execs)
	tx.db.mu.Unlock()
	return nil
}

func (tx *Tx) Rollback(_ context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.db.mu.Lock()
	tx.db.RolledBack++
	tx.db.mu.Unlock()
	return nil
}

type row struct {
	exists bool
}

func (r row) Scan(dest ...any) error {
	if len(dest) == 1 {
		if b, ok := dest[0].(*bool); ok {
			*b = r.exists
			return nil
		}
	}
	return errors.New("graphtest: unsupported scan")
}
