package discovery

import (
	"errors"
	"fmt"
)

// Discovery error types
var (
	// ErrScopeNotFound is returned when the catalog has no such schema
	ErrScopeNotFound = errors.New("scope not found")

	// ErrPatternSyntax is returned when a glob pattern is malformed
	ErrPatternSyntax = errors.New("invalid glob pattern")
)

// ScopeNotFound returns an error wrapping ErrScopeNotFound for the named schema.
// Catalog implementations use it so callers can match with errors.Is.
func ScopeNotFound(schema string) error {
	return fmt.Errorf("%w: schema %q", ErrScopeNotFound, schema)
}

// IsScopeNotFound checks if an error is a missing-scope error
func IsScopeNotFound(err error) bool {
	return errors.Is(err, ErrScopeNotFound)
}
