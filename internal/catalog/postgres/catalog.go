package postgres

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/conduit-lang/qbridge/internal/discovery"
)

const (
	schemaNamesQuery = `
SELECT nspname
FROM pg_catalog.pg_namespace
WHERE nspname NOT LIKE 'pg\_%'
ORDER BY nspname
`

	schemaExistsQuery = "SELECT EXISTS(SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1)"

	tableNamesQuery = `
SELECT tablename
FROM pg_catalog.pg_tables
WHERE schemaname = $1
ORDER BY tablename
`
)

// Catalog lists schemas and tables of a PostgreSQL database
type Catalog struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ discovery.Catalog = (*Catalog)(nil)

// Option configures a Catalog
type Option func(*Catalog)

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog creates a catalog over an open database handle
func NewCatalog(db *sql.DB, opts ...Option) *Catalog {
	c := &Catalog{
		db:     db,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSchemaNames returns non-system schema names ordered by name
func (c *Catalog) ListSchemaNames(ctx context.Context) ([]string, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}

	names, err := c.queryNames(ctx, schemaNamesQuery)
	if err != nil {
		return nil, convertError(err, "", "list schemas")
	}

	c.logger.Debug("listed schemas", zap.Int("count", len(names)))
	return names, nil
}

// ListTableNames returns the tables of schema ordered by name
func (c *Catalog) ListTableNames(ctx context.Context, schema string) ([]string, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}

	var exists bool
	if err := c.db.QueryRowContext(ctx, schemaExistsQuery, schema).Scan(&exists); err != nil {
		return nil, convertError(err, schema, "check schema existence")
	}
	if !exists {
		return nil, discovery.ScopeNotFound(schema)
	}

	names, err := c.queryNames(ctx, tableNamesQuery, schema)
	if err != nil {
		return nil, convertError(err, schema, "list tables")
	}

	c.logger.Debug("listed tables", zap.String("schema", schema), zap.Int("count", len(names)))
	return names, nil
}

// queryNames runs a single-column text query
func (c *Catalog) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}
