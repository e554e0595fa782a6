package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/qbridge/internal/config"
	"github.com/conduit-lang/qbridge/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions holds persistent flags and the state derived from them
type globalOptions struct {
	configPath string
	noColor    bool
	logLevel   string

	config *config.Config
	logger *zap.Logger
}

// setup loads configuration and builds the logger once per invocation
func (o *globalOptions) setup(cmd *cobra.Command) error {
	if o.config != nil {
		return nil
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return &configError{err: err}
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		NoColor: o.noColor,
		Output:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return &configError{err: err}
	}

	o.config = cfg
	o.logger = logger
	return nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&globalOptions{})
}

func newRootCommand(opts *globalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qbridge",
		Short: "Schema discovery and QuickBase tooling",
		Long: color.CyanString(`qbridge - catalog discovery and QuickBase bridge

Lists schemas and tables of a relational catalog by glob pattern and
talks to the QuickBase REST API.

Catalogs:
  • PostgreSQL (pgx or lib/pq)
  • SQLite, including attached databases
  • YAML catalog files`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: ./qbridge.yml)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newSchemasCommand(opts))
	rootCmd.AddCommand(newTablesCommand(opts))
	rootCmd.AddCommand(newMatchCommand(opts))
	rootCmd.AddCommand(newQBCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the qbridge version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()

			for _, line := range [][2]string{
				{"qbridge version: ", Version},
				{"Git commit: ", GitCommit},
				{"Build date: ", BuildDate},
				{"Go version: ", goVer},
			} {
				titleColor.Fprint(out, line[0])
				fmt.Fprintln(out, line[1])
			}
		},
	}
}

// Execute runs the root command
func Execute() error {
	opts := &globalOptions{}
	rootCmd := newRootCommand(opts)

	err := rootCmd.Execute()
	if opts.logger != nil {
		_ = opts.logger.Sync()
	}
	if err != nil {
		fmt.Fprint(rootCmd.ErrOrStderr(), renderError(err, opts.noColor))
		return err
	}
	return nil
}
