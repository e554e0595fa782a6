package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/qbridge/internal/catalog/memory"
	"github.com/conduit-lang/qbridge/internal/catalog/postgres"
	"github.com/conduit-lang/qbridge/internal/catalog/sqlite"
	"github.com/conduit-lang/qbridge/internal/config"
	"github.com/conduit-lang/qbridge/internal/discovery"
)

// catalogFlags selects the catalog a discovery command reads
type catalogFlags struct {
	url         string
	driver      string
	catalogFile string
	json        bool
}

func (f *catalogFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "Override the database URL (postgres://..., sqlite:path)")
	cmd.Flags().StringVar(&f.driver, "driver", "", "PostgreSQL driver: pgx or postgres")
	cmd.Flags().StringVar(&f.catalogFile, "catalog-file", "", "Read the catalog from a YAML file")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print JSON instead of a table")
}

// openCatalog resolves flags and configuration into a catalog. The returned
// function releases it.
func openCatalog(ctx context.Context, cfg config.DatabaseConfig, f catalogFlags, logger *zap.Logger) (discovery.Catalog, func() error, error) {
	switch {
	case f.catalogFile != "":
		return loadCatalogFile(f.catalogFile)
	case f.url != "":
		return openURL(ctx, f.url, firstNonEmpty(f.driver, cfg.Driver), logger)
	}

	switch cfg.Kind {
	case config.KindFile:
		if cfg.Path == "" {
			return nil, nil, &configError{err: fmt.Errorf("database.path is required for kind %q", cfg.Kind)}
		}
		return loadCatalogFile(cfg.Path)

	case config.KindSQLite:
		if cfg.Path == "" {
			return nil, nil, &configError{err: fmt.Errorf("database.path is required for kind %q", cfg.Kind)}
		}
		return openSQLite(ctx, cfg.Path, logger)

	default:
		driver := firstNonEmpty(f.driver, cfg.Driver)
		if cfg.URL != "" {
			return openPostgresURL(ctx, cfg.URL, driver, logger)
		}
		if cfg.Name == "" {
			return nil, nil, &configError{err: fmt.Errorf("no database configured: set DATABASE_URL, database.url or database.name, or pass --url or --catalog-file")}
		}
		mgr, err := postgres.NewManager(postgres.ConnConfig{
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Name,
			Host:     cfg.Host,
			Port:     cfg.Port,
			SSLMode:  cfg.SSLMode,
			Driver:   driver,
		}, logger)
		if err != nil {
			return nil, nil, &configError{err: err}
		}
		return openManager(ctx, mgr)
	}
}

func openURL(ctx context.Context, rawURL, driver string, logger *zap.Logger) (discovery.Catalog, func() error, error) {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return openPostgresURL(ctx, rawURL, driver, logger)
	case strings.HasPrefix(rawURL, "sqlite:"):
		dsn := strings.TrimPrefix(strings.TrimPrefix(rawURL, "sqlite:"), "//")
		return openSQLite(ctx, dsn, logger)
	default:
		return nil, nil, &configError{err: fmt.Errorf("unsupported database URL %q: expected postgres:// or sqlite:", redactURL(rawURL))}
	}
}

func openPostgresURL(ctx context.Context, rawURL, driver string, logger *zap.Logger) (discovery.Catalog, func() error, error) {
	mgr, err := postgres.NewManagerFromURL(rawURL, driver, logger)
	if err != nil {
		return nil, nil, &configError{err: err}
	}
	return openManager(ctx, mgr)
}

func openManager(ctx context.Context, mgr *postgres.Manager) (discovery.Catalog, func() error, error) {
	if err := mgr.Open(ctx); err != nil {
		return nil, nil, &connectionError{err: err}
	}
	return mgr.Catalog(), mgr.Close, nil
}

func openSQLite(ctx context.Context, dsn string, logger *zap.Logger) (discovery.Catalog, func() error, error) {
	c, err := sqlite.Open(ctx, dsn, logger)
	if err != nil {
		return nil, nil, &connectionError{err: err}
	}
	return c, c.Close, nil
}

func loadCatalogFile(path string) (discovery.Catalog, func() error, error) {
	c, err := memory.LoadFile(path)
	if err != nil {
		return nil, nil, &configError{err: err}
	}
	return c, func() error { return nil }, nil
}

// redactURL hides credentials in URLs that failed to parse as a known scheme
func redactURL(rawURL string) string {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return rawURL
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://xxxxx@" + rest[at+1:]
	}
	return rawURL
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
