// Package sqlite implements the discovery catalog over a SQLite database.
//
// Schemas are the databases attached to the connection ("main", "temp" and
// anything added with ATTACH) in PRAGMA database_list order. Tables are read
// from each schema's sqlite_master, internal sqlite_* tables excluded.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/conduit-lang/qbridge/internal/discovery"
)

const tableNamesQuery = `
SELECT name
FROM %s.sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite\_%%' ESCAPE '\'
ORDER BY name
`

// Catalog lists attached databases and their tables
type Catalog struct {
	db     *sql.DB
	owned  bool
	logger *zap.Logger
}

var _ discovery.Catalog = (*Catalog)(nil)

// Open opens the SQLite database at dsn and returns a catalog owning it.
// The pool is limited to a single connection so that ATTACHed and in-memory
// databases stay visible to every query.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := New(db, logger)
	c.owned = true
	return c, nil
}

// New creates a catalog over an existing handle. The caller keeps ownership of db.
func New(db *sql.DB, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{db: db, logger: logger}
}

// DB returns the underlying handle
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// Close closes the database if the catalog opened it
func (c *Catalog) Close() error {
	if !c.owned || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// ListSchemaNames returns attached database names in PRAGMA database_list order
func (c *Catalog) ListSchemaNames(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var (
			seq  int
			name string
			file sql.NullString
		)
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, fmt.Errorf("failed to scan schema: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schemas: %w", err)
	}

	c.logger.Debug("listed schemas", zap.Int("count", len(names)))
	return names, nil
}

// ListTableNames returns the tables of schema ordered by name
func (c *Catalog) ListTableNames(ctx context.Context, schema string) ([]string, error) {
	schemas, err := c.ListSchemaNames(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(schemas, schema) {
		return nil, discovery.ScopeNotFound(schema)
	}

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(tableNamesQuery, quoteIdentifier(schema)))
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	c.logger.Debug("listed tables", zap.String("schema", schema), zap.Int("count", len(names)))
	return names, nil
}

// quoteIdentifier quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
