// Package discovery enumerates schemas and tables of an external catalog,
// filtered by shell-glob patterns.
//
// The Engine never loads or caches the catalog: every listing re-queries the
// Catalog collaborator and filters its answer in the catalog's own order.
// Collaborator errors are returned unchanged.
package discovery

import (
	"context"
	"iter"
)

// Catalog lists child names at a given scope of an external system.
// Implementations own their connection lifecycle.
type Catalog interface {
	// ListSchemaNames returns every schema name in catalog order
	ListSchemaNames(ctx context.Context) ([]string, error)

	// ListTableNames returns every table name of schema in catalog order.
	// Returns an error wrapping ErrScopeNotFound if the schema does not exist.
	ListTableNames(ctx context.Context, schema string) ([]string, error)
}

// ScopedPair is one matched table together with its schema
type ScopedPair struct {
	Schema string `json:"schema" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`
}

// String renders the pair as schema.table
func (p ScopedPair) String() string {
	return p.Schema + "." + p.Table
}

// Engine runs pattern-filtered listings against a Catalog
type Engine struct {
	catalog Catalog
}

// New creates a new discovery engine over catalog
func New(catalog Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// ListSchemas returns a lazy sequence of schema names matching pattern.
//
// The pattern is compiled immediately, so a syntax error is reported before
// the catalog is touched. The catalog is queried each time the sequence is
// ranged over. A catalog failure is yielded once with an empty name and ends
// the sequence.
func (e *Engine) ListSchemas(ctx context.Context, pattern string) (iter.Seq2[string, error], error) {
	p, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return e.schemas(ctx, p), nil
}

// ListTables returns a lazy sequence of table names in schema matching pattern.
// It behaves like ListSchemas; a missing schema surfaces as ErrScopeNotFound.
func (e *Engine) ListTables(ctx context.Context, schema, pattern string) (iter.Seq2[string, error], error) {
	p, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return e.tables(ctx, schema, p), nil
}

// ListAllSchemas returns every schema name in catalog order
func (e *Engine) ListAllSchemas(ctx context.Context) ([]string, error) {
	seq, err := e.ListSchemas(ctx, MatchAll)
	if err != nil {
		return nil, err
	}
	return Collect(seq)
}

// ListAllTablesInSchema returns every table name of schema in catalog order
func (e *Engine) ListAllTablesInSchema(ctx context.Context, schema string) ([]string, error) {
	seq, err := e.ListTables(ctx, schema, MatchAll)
	if err != nil {
		return nil, err
	}
	return Collect(seq)
}

// ListMatchingPairs returns every (schema, table) pair where the schema
// matches schemaPattern and the table, within that schema, matches
// tablePattern.
//
// Pairs are ordered schema-major, table-minor, each level in catalog order.
// Tables are listed once per matching schema and never when no schema
// matches. Nothing is deduplicated or sorted.
func (e *Engine) ListMatchingPairs(ctx context.Context, schemaPattern, tablePattern string) ([]ScopedPair, error) {
	sp, err := CompilePattern(schemaPattern)
	if err != nil {
		return nil, err
	}
	tp, err := CompilePattern(tablePattern)
	if err != nil {
		return nil, err
	}

	pairs := make([]ScopedPair, 0)
	for schema, err := range e.schemas(ctx, sp) {
		if err != nil {
			return nil, err
		}
		for table, err := range e.tables(ctx, schema, tp) {
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, ScopedPair{Schema: schema, Table: table})
		}
	}

	return pairs, nil
}

func (e *Engine) schemas(ctx context.Context, p *Pattern) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		names, err := e.catalog.ListSchemaNames(ctx)
		if err != nil {
			yield("", err)
			return
		}
		filter(names, p, yield)
	}
}

func (e *Engine) tables(ctx context.Context, schema string, p *Pattern) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		names, err := e.catalog.ListTableNames(ctx, schema)
		if err != nil {
			yield("", err)
			return
		}
		filter(names, p, yield)
	}
}

// filter yields the names accepted by p until yield asks to stop
func filter(names []string, p *Pattern, yield func(string, error) bool) {
	for _, name := range names {
		if !p.Match(name) {
			continue
		}
		if !yield(name, nil) {
			return
		}
	}
}

// Collect materializes a name sequence, stopping at the first error
func Collect(seq iter.Seq2[string, error]) ([]string, error) {
	names := make([]string, 0)
	for name, err := range seq {
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
