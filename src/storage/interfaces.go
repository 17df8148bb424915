package storage

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// Execer is an interface for executing SQL statements
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ExecQuerier combines Execer and sqlscan.Querier. Both *sql.DB and *sql.Tx
// satisfy it.
type ExecQuerier interface {
	Execer
	sqlscan.Querier
}

var (
	_ ExecQuerier = (*sql.DB)(nil)
	_ ExecQuerier = (*sql.Tx)(nil)
)
