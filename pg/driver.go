package pg

import (
	"context"
	"errors"

	"github.com/qail-io/qail-go/ast"
)

// High-level driver surface: the pool plus statement-level convenience
// calls, mirroring Connect(url) / FetchAll(cmd) from the project's language
// bindings.

// ConnectPool opens a pool from a database URL.
func ConnectPool(ctx context.Context, url string) (*Pool, error) {
	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewPool(ctx, cfg)
}

// FetchAll acquires a connection, runs the statement through the AST-native
// encoder, and returns every row.
func (p *Pool) FetchAll(ctx context.Context, s *ast.Statement) ([]Row, error) {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pc.Release()

	rows, err := pc.Conn().Send(s)
	if isFatal(err) {
		pc.MarkBroken()
	}
	return rows, err
}

// ExecStatement acquires a connection, runs the statement, and returns the
// affected-row count.
func (p *Pool) ExecStatement(ctx context.Context, s *ast.Statement) (uint64, error) {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer pc.Release()

	n, err := pc.Conn().Exec(s)
	if isFatal(err) {
		pc.MarkBroken()
	}
	return n, err
}

// Query runs textual SQL with positional parameters on a pooled connection.
func (p *Pool) Query(ctx context.Context, sql string, params ...[]byte) ([]Row, error) {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pc.Release()

	rows, err := pc.Conn().QueryCached(sql, params...)
	if isFatal(err) {
		pc.MarkBroken()
	}
	return rows, err
}

// Pipeline runs a statement batch on one pooled connection with a single
// flush and a single terminal sync.
func (p *Pool) Pipeline(ctx context.Context, stmts []*ast.Statement) ([]PipelineResult, error) {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer pc.Release()

	results, err := pc.Conn().PipelineAST(stmts)
	if isFatal(err) {
		pc.MarkBroken()
	}
	return results, err
}

// isFatal reports whether an error poisons the owning connection. Server
// errors leave the connection usable after resync; transport errors do not.
func isFatal(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnError
	return errors.As(err, &ce)
}
