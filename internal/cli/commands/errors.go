package commands

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/qbridge/internal/cli/ui"
	"github.com/conduit-lang/qbridge/internal/discovery"
)

// configError marks failures to load configuration
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// connectionError marks failures to reach a catalog or cache backend
type connectionError struct {
	err error
}

func (e *connectionError) Error() string { return e.err.Error() }
func (e *connectionError) Unwrap() error { return e.err }

// scopeError carries suggestions for a missing schema
type scopeError struct {
	schema      string
	suggestions []string
	err         error
}

func (e *scopeError) Error() string { return e.err.Error() }
func (e *scopeError) Unwrap() error { return e.err }

// statusError reports a QuickBase response outside 2xx
type statusError struct {
	operation string
	status    int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.operation, e.status)
}

// renderError formats err for the terminal
func renderError(err error, noColor bool) string {
	var (
		cfgErr    *configError
		connErr   *connectionError
		scopeErr  *scopeError
		statusErr *statusError
	)

	switch {
	case errors.As(err, &scopeErr):
		return ui.ScopeNotFoundError(scopeErr.schema, scopeErr.suggestions, noColor)
	case errors.Is(err, discovery.ErrScopeNotFound):
		return ui.FormatError(ui.ErrorOptions{
			Context: "SCOPE NOT FOUND",
			Problem: err.Error(),
			NoColor: noColor,
		})
	case errors.Is(err, discovery.ErrPatternSyntax):
		return ui.PatternError(err.Error(), noColor)
	case errors.As(err, &cfgErr):
		return ui.ConfigError(err.Error(), noColor)
	case errors.As(err, &connErr):
		return ui.ConnectionError(err.Error(), noColor)
	case errors.As(err, &statusErr):
		return ui.FormatError(ui.ErrorOptions{
			Context:     "QUICKBASE ERROR",
			Problem:     err.Error(),
			Consequence: "The response body was printed above.",
			NoColor:     noColor,
		})
	default:
		return ui.FormatError(ui.ErrorOptions{
			Context: "ERROR",
			Problem: err.Error(),
			NoColor: noColor,
		})
	}
}
