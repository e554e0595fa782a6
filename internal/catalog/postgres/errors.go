package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/conduit-lang/qbridge/internal/discovery"
)

// ErrNotConnected is returned when the catalog is used before Open or after Close
var ErrNotConnected = errors.New("database not connected")

// sqlStateInvalidSchemaName is SQLSTATE 3F000 (invalid_schema_name)
const sqlStateInvalidSchemaName = "3F000"

// sqlState extracts the SQLSTATE code from a pgx or lib/pq error
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

// convertError maps driver errors onto discovery errors
func convertError(err error, schema, op string) error {
	if err == nil {
		return nil
	}

	if sqlState(err) == sqlStateInvalidSchemaName {
		return discovery.ScopeNotFound(schema)
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
