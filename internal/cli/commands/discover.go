package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/qbridge/internal/cli/ui"
	"github.com/conduit-lang/qbridge/internal/discovery"
)

func newSchemasCommand(opts *globalOptions) *cobra.Command {
	var flags catalogFlags

	cmd := &cobra.Command{
		Use:   "schemas [pattern]",
		Short: "List schemas matching a glob pattern",
		Long: `List the schemas of the catalog whose names match a glob pattern.

The pattern defaults to '*'. Supported syntax: * (any run of characters),
? (one character), [abc], [!abc], [a-z] and backslash escapes. Matching is
case-sensitive and anchored at both ends.`,
		Example: `  # All schemas of the database in DATABASE_URL
  qbridge schemas

  # Schemas starting with "sales"
  qbridge schemas 'sales*'

  # From a YAML catalog, as JSON
  qbridge schemas --catalog-file catalog.yml --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := discovery.MatchAll
			if len(args) == 1 {
				pattern = args[0]
			}

			return runDiscovery(cmd, opts, flags, func(ctx context.Context, engine *discovery.Engine) error {
				seq, err := engine.ListSchemas(ctx, pattern)
				if err != nil {
					return err
				}
				names, err := discovery.Collect(seq)
				if err != nil {
					return err
				}
				return printNames(cmd.OutOrStdout(), flags.json, opts.noColor, "SCHEMA", names)
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newTablesCommand(opts *globalOptions) *cobra.Command {
	var flags catalogFlags

	cmd := &cobra.Command{
		Use:   "tables <schema> [pattern]",
		Short: "List tables of a schema matching a glob pattern",
		Example: `  # All tables in public
  qbridge tables public

  # Fact tables in the sales schema of a SQLite file
  qbridge tables sales 'fact_*' --url sqlite:warehouse.db`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := args[0]
			pattern := discovery.MatchAll
			if len(args) == 2 {
				pattern = args[1]
			}

			return runDiscovery(cmd, opts, flags, func(ctx context.Context, engine *discovery.Engine) error {
				seq, err := engine.ListTables(ctx, schema, pattern)
				if err != nil {
					return err
				}
				names, err := discovery.Collect(seq)
				if err != nil {
					if discovery.IsScopeNotFound(err) {
						return &scopeError{schema: schema, suggestions: suggestSchemas(ctx, engine, schema), err: err}
					}
					return err
				}
				return printNames(cmd.OutOrStdout(), flags.json, opts.noColor, "TABLE", names)
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newMatchCommand(opts *globalOptions) *cobra.Command {
	var flags catalogFlags

	cmd := &cobra.Command{
		Use:   "match <schema-pattern> <table-pattern>",
		Short: "List every schema.table pair matching both patterns",
		Example: `  # Every table in every schema
  qbridge match '*' '*'

  # Dimension tables in the staging schemas
  qbridge match 'staging_*' 'dim_*' --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscovery(cmd, opts, flags, func(ctx context.Context, engine *discovery.Engine) error {
				pairs, err := engine.ListMatchingPairs(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if flags.json {
					return printJSON(out, pairs)
				}

				table := ui.NewTable(out, opts.noColor, "SCHEMA", "TABLE")
				for _, p := range pairs {
					table.AddRow(p.Schema, p.Table)
				}
				table.Render()
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

// runDiscovery opens the selected catalog for the duration of fn
func runDiscovery(cmd *cobra.Command, opts *globalOptions, flags catalogFlags, fn func(context.Context, *discovery.Engine) error) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	catalog, closeCatalog, err := openCatalog(ctx, opts.config.Database, flags, opts.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCatalog(); err != nil {
			opts.logger.Warn("failed to close catalog", zap.Error(err))
		}
	}()

	return fn(ctx, discovery.New(catalog))
}

// suggestSchemas offers existing schema names close to a missing one
func suggestSchemas(ctx context.Context, engine *discovery.Engine, schema string) []string {
	names, err := engine.ListAllSchemas(ctx)
	if err != nil {
		return nil
	}
	return ui.Suggest(schema, names, nil)
}

func printNames(w io.Writer, asJSON, noColor bool, header string, names []string) error {
	if asJSON {
		return printJSON(w, names)
	}

	table := ui.NewTable(w, noColor, header)
	for _, name := range names {
		table.AddRow(name)
	}
	table.Render()
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
