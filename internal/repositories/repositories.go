// package repositories provides persistence layer implementations for all model types.
package repositories

import (
	"context"
	"database/sql"

	"github.com/desertthunder/skipper/internal/shared"
)

// querier is satisfied by both [*sql.DB] and [*sql.Tx].
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both [*sql.Row] and [*sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// insertIgnore renders an insert that silently skips rows violating a unique key.
func insertIgnore(dialect shared.Dialect, table, columns, placeholders string) string {
	if dialect == shared.DialectMySQL {
		return "INSERT IGNORE INTO " + table + " (" + columns + ") VALUES (" + placeholders + ")"
	}
	return "INSERT OR IGNORE INTO " + table + " (" + columns + ") VALUES (" + placeholders + ")"
}
