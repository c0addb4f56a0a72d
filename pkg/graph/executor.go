// Package graph writes Cypher statements into an Apache AGE graph stored in PostgreSQL.
package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// dollarTag quotes the Cypher text inside the SQL wrapper. AGE requires the
// query to be a constant, so it cannot be sent as a bind parameter.
const dollarTag = "$gs$"

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidStatement  = errors.New("invalid statement")

	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Statement is a single Cypher query with its named parameters.
// Parameters are referenced in the query as `$name`.
type Statement struct {
	Query  string
	Params map[string]any
}

// Executor runs Cypher statements against one AGE graph.
type Executor struct {
	db     DB
	graph  string
	logger *zap.Logger
}

// NewExecutor returns an Executor for graphName. The graph is not created;
// call EnsureGraph for that.
func NewExecutor(db DB, graphName string, logger *zap.Logger) (*Executor, error) {
	if db == nil {
		return nil, errors.New("graph: nil database handle")
	}
	if err := CheckIdentifier("graph", graphName); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		db:     db,
		graph:  graphName,
		logger: logger.With(zap.String("component", "graph"), zap.String("graph", graphName)),
	}, nil
}

// Graph returns the graph name.
func (e *Executor) Graph() string {
	return e.graph
}

// EnsureGraph installs the AGE extension if needed and creates the graph
// when it does not exist yet.
func (e *Executor) EnsureGraph(ctx context.Context) error {
	if _, err := e.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS age"); err != nil {
		return fmt.Errorf("graph: create extension: %w", err)
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("graph: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := prepareSession(ctx, tx); err != nil {
		return err
	}

	var exists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM ag_catalog.ag_graph WHERE name = $1)", e.graph).Scan(&exists)
	if err != nil {
		return fmt.Errorf("graph: lookup %s: %w", e.graph, err)
	}
	if !exists {
		if _, err := tx.Exec(ctx, "SELECT ag_catalog.create_graph($1::name)", e.graph); err != nil {
			return fmt.Errorf("graph: create %s: %w", e.graph, err)
		}
		e.logger.Info("created graph")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("graph: commit: %w", err)
	}
	return nil
}

// ExecTx runs stmts in a single transaction. Either all of them are applied or none.
func (e *Executor) ExecTx(ctx context.Context, stmts []Statement) error {
	if len(stmts) == 0 {
		return nil
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("graph: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				e.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err := prepareSession(ctx, tx); err != nil {
		return err
	}

	for i, stmt := range stmts {
		sql, args, err := e.Render(stmt)
		if err != nil {
			return fmt.Errorf("graph: statement %d: %w", i, err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("graph: statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("graph: commit: %w", err)
	}
	committed = true

	e.logger.Debug("transaction committed", zap.Int("statements", len(stmts)))
	return nil
}

// Render wraps stmt into the SQL call understood by AGE and returns the bind arguments.
func (e *Executor) Render(stmt Statement) (string, []any, error) {
	query := strings.TrimSpace(stmt.Query)
	if query == "" {
		return "", nil, fmt.Errorf("%w: empty query", ErrInvalidStatement)
	}
	if strings.Contains(query, dollarTag) {
		return "", nil, fmt.Errorf("%w: query must not contain %s", ErrInvalidStatement, dollarTag)
	}

	if len(stmt.Params) == 0 {
		sql := fmt.Sprintf("SELECT * FROM ag_catalog.cypher('%s', %s %s %s) AS (result ag_catalog.agtype)",
			e.graph, dollarTag, query, dollarTag)
		return sql, nil, nil
	}

	params, err := json.Marshal(stmt.Params)
	if err != nil {
		return "", nil, fmt.Errorf("%w: encode params: %v", ErrInvalidStatement, err)
	}
	sql := fmt.Sprintf("SELECT * FROM ag_catalog.cypher('%s', %s %s %s, $1) AS (result ag_catalog.agtype)",
		e.graph, dollarTag, query, dollarTag)
	return sql, []any{string(params)}, nil
}

// prepareSession loads AGE into the session that owns tx. LOAD is per session and
// pooled connections may not have seen it yet.
func prepareSession(ctx context.Context, tx pgx.Tx) error {
	setupQueries := []string{
		"LOAD 'age'",
		`SET LOCAL search_path = ag_catalog, "$user", public`,
	}
	for _, sq := range setupQueries {
		if _, err := tx.Exec(ctx, sq); err != nil {
			return fmt.Errorf("graph: failed to execute AGE setup command '%s': %w", sq, err)
		}
	}
	return nil
}

// ValidIdentifier reports whether s can be used unquoted as a graph, label,
// relationship type or property name.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// CheckIdentifier returns ErrInvalidIdentifier if s is not a valid identifier.
// kind names the identifier in the error message.
func CheckIdentifier(kind, s string) error {
	if !ValidIdentifier(s) {
		return fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, kind, s)
	}
	return nil
}
