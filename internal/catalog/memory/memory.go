// Package memory provides an ordered, in-memory catalog.
//
// It keeps schemas and tables in insertion order and counts the listing
// calls made against it, which makes it a convenient substitute catalog in
// tests and for offline use from a YAML file.
package memory

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/qbridge/internal/discovery"
)

// Catalog is an ordered in-memory catalog
type Catalog struct {
	mu      sync.RWMutex
	schemas []string
	tables  map[string][]string

	schemaCalls int
	tableCalls  map[string]int

	// SchemaErr, when set, is returned by ListSchemaNames
	SchemaErr error
	// TableErr, when set, is returned by ListTableNames
	TableErr error
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{
		tables:     make(map[string][]string),
		tableCalls: make(map[string]int),
	}
}

// AddSchema appends a schema with the given tables. Adding a schema twice
// appends a duplicate name and extends its table list.
func (c *Catalog) AddSchema(name string, tables ...string) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.schemas = append(c.schemas, name)
	c.tables[name] = append(c.tables[name], tables...)
	return c
}

// ListSchemaNames returns the schema names in insertion order
func (c *Catalog) ListSchemaNames(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.schemaCalls++
	if c.SchemaErr != nil {
		return nil, c.SchemaErr
	}

	names := make([]string, len(c.schemas))
	copy(names, c.schemas)
	return names, nil
}

// ListTableNames returns the tables of schema in insertion order
func (c *Catalog) ListTableNames(ctx context.Context, schema string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tableCalls[schema]++
	if c.TableErr != nil {
		return nil, c.TableErr
	}

	tables, ok := c.tables[schema]
	if !ok {
		return nil, discovery.ScopeNotFound(schema)
	}

	names := make([]string, len(tables))
	copy(names, tables)
	return names, nil
}

// SchemaCalls returns the number of ListSchemaNames calls
func (c *Catalog) SchemaCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schemaCalls
}

// TableCalls returns the number of ListTableNames calls for schema.
// An empty schema returns the total across all schemas.
func (c *Catalog) TableCalls(schema string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if schema != "" {
		return c.tableCalls[schema]
	}

	total := 0
	for _, n := range c.tableCalls {
		total += n
	}
	return total
}

// fileSchema is one schema entry of a catalog file
type fileSchema struct {
	Name   string   `yaml:"name"`
	Tables []string `yaml:"tables"`
}

// fileCatalog is the YAML layout read by Load
type fileCatalog struct {
	Schemas []fileSchema `yaml:"schemas"`
}

// Load reads a catalog from YAML:
//
//	schemas:
//	  - name: public
//	    tables: [users, orders]
func Load(r io.Reader) (*Catalog, error) {
	var doc fileCatalog
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := New()
	for i, s := range doc.Schemas {
		if s.Name == "" {
			return nil, fmt.Errorf("schema at index %d has no name", i)
		}
		c.AddSchema(s.Name, s.Tables...)
	}
	return c, nil
}

// LoadFile reads a catalog from a YAML file
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return Load(f)
}
