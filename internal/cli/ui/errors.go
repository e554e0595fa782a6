package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// levelStyle is the symbol and colors used for one ErrorLevel
type levelStyle struct {
	symbol string
	header []color.Attribute
	body   []color.Attribute
}

var levelStyles = map[ErrorLevel]levelStyle{
	ErrorLevelError:   {symbol: "❌", header: []color.Attribute{color.FgRed, color.Bold}, body: []color.Attribute{color.FgRed}},
	ErrorLevelWarning: {symbol: "⚠️", header: []color.Attribute{color.FgYellow, color.Bold}, body: []color.Attribute{color.FgYellow}},
	ErrorLevelInfo:    {symbol: "ℹ️", header: []color.Attribute{color.FgCyan, color.Bold}, body: []color.Attribute{color.FgCyan}},
}

// FormatError renders a message with optional suggestions and help commands
//
// Example output:
//
//	❌ SCOPE NOT FOUND: Cannot find schema 'salse'.
//	   Cannot find schema 'salse'.
//
//	   Did you mean: sales?
//
//	   → See all schemas: qbridge schemas
func FormatError(opts ErrorOptions) string {
	style, ok := levelStyles[opts.Level]
	if !ok {
		style = levelStyles[ErrorLevelError]
	}

	paint := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if opts.NoColor {
			c.DisableColor()
		}
		return c
	}
	header, body := paint(style.header...), paint(style.body...)

	var b strings.Builder
	if opts.Context == "" {
		header.Fprintf(&b, "%s %s\n", style.symbol, opts.Problem)
	} else {
		header.Fprintf(&b, "%s %s: %s\n", style.symbol, strings.ToUpper(opts.Context), opts.Problem)
		if opts.Problem != "" {
			body.Fprintf(&b, "   %s\n", opts.Problem)
		}
	}

	if opts.Consequence != "" {
		body.Fprintf(&b, "\n   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		paint(color.FgYellow).Fprintf(&b, "\n   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := paint(color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// ScopeNotFoundError reports a schema that does not exist
func ScopeNotFoundError(schema string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "SCOPE NOT FOUND",
		Problem:     fmt.Sprintf("Cannot find schema '%s'.", schema),
		Suggestions: suggestions,
		HelpCommands: []string{
			"See all schemas: qbridge schemas",
			"Get help: qbridge tables --help",
		},
		NoColor: noColor,
	})
}

// PatternError reports a malformed glob pattern
func PatternError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "INVALID PATTERN",
		Problem:     message,
		Consequence: "Patterns support *, ?, [abc], [!abc], [a-z] and \\ escapes.",
		HelpCommands: []string{
			"Match everything: qbridge schemas '*'",
		},
		NoColor: noColor,
	})
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat qbridge.yml",
			"Get help: qbridge --help",
		},
		NoColor: noColor,
	})
}

// ConnectionError reports a catalog that could not be reached
func ConnectionError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "CONNECTION FAILED",
		Problem:     message,
		Consequence: "The catalog could not be opened.",
		HelpCommands: []string{
			"Check PostgreSQL: pg_isready",
			"Use a catalog file: qbridge schemas --catalog-file catalog.yml",
		},
		NoColor: noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelWarning,
		Problem: message,
		NoColor: noColor,
	})
}
