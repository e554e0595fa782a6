package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/qbridge/internal/cache"
	"github.com/conduit-lang/qbridge/internal/cli/ui"
	"github.com/conduit-lang/qbridge/internal/config"
	"github.com/conduit-lang/qbridge/internal/quickbase"
)

// qbFlags override the quickbase section of the configuration
type qbFlags struct {
	token   string
	realm   string
	baseURL string
	noCache bool
	refresh bool
}

func newQBCommand(opts *globalOptions) *cobra.Command {
	var flags qbFlags

	cmd := &cobra.Command{
		Use:   "qb",
		Short: "Call the QuickBase REST API",
		Long: `Call the QuickBase REST API.

Credentials come from the quickbase section of qbridge.yml, from
QBRIDGE_QUICKBASE_TOKEN and QBRIDGE_QUICKBASE_REALM, or from flags.
The HTTP status is printed to stderr and the JSON payload to stdout.`,
		Example: `  qbridge qb app bq8xm2k3
  qbridge qb table bq8xm2k3 bq8xm2k4
  qbridge qb query query.json --realm example.quickbase.com
  cat records.json | qbridge qb upsert -
  qbridge qb app bq8xm2k3 --refresh
  qbridge qb cache clear`,
	}

	cmd.PersistentFlags().StringVar(&flags.token, "token", "", "QuickBase user token")
	cmd.PersistentFlags().StringVar(&flags.realm, "realm", "", "QuickBase realm hostname")
	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "QuickBase API root")
	cmd.PersistentFlags().BoolVar(&flags.noCache, "no-cache", false, "Bypass the response cache")
	cmd.PersistentFlags().BoolVar(&flags.refresh, "refresh", false, "Replace cached responses with fresh ones")

	cmd.AddCommand(&cobra.Command{
		Use:   "app <app-id>",
		Short: "Get an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQB(cmd, opts, flags, quickbase.GetApp{AppID: args[0]})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "table <app-id> <table-id>",
		Short: "Get a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQB(cmd, opts, flags, quickbase.GetTable{AppID: args[0], TableID: args[1]})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "upsert <file.json|->",
		Short: "Insert or update records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req quickbase.UpsertRequest
			if err := readRequest(cmd.InOrStdin(), args[0], &req); err != nil {
				return err
			}
			return runQB(cmd, opts, flags, quickbase.UpsertRecords{Request: req})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "query <file.json|->",
		Short: "Query records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req quickbase.QueryRequest
			if err := readRequest(cmd.InOrStdin(), args[0], &req); err != nil {
				return err
			}
			return runQB(cmd, opts, flags, quickbase.QueryRecords{Request: req})
		},
	})

	cmd.AddCommand(newQBCacheCommand(opts))

	return cmd
}

func newQBCacheCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the QuickBase response cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		Long: `Remove every cached response under the configured cache prefix.

Only the redis backend outlives a single command; clearing the memory
backend succeeds but has nothing to remove.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cmd, opts)
		},
	})

	return cmd
}

func runCacheClear(cmd *cobra.Command, opts *globalOptions) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := opts.config.Cache
	store, err := newResponseCache(ctx, cfg)
	if err != nil {
		return &connectionError{err: err}
	}
	if store == nil {
		return &configError{err: fmt.Errorf("response cache is disabled (cache.backend is %q)", cfg.Backend)}
	}
	defer store.Close()

	if err := store.Clear(ctx); err != nil {
		return &connectionError{err: fmt.Errorf("failed to clear response cache: %w", err)}
	}

	opts.logger.Debug("response cache cleared", zap.String("backend", cfg.Backend), zap.String("prefix", cfg.Prefix))
	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Cleared %s response cache", cfg.Backend), opts.noColor)
	return nil
}

func runQB(cmd *cobra.Command, opts *globalOptions, flags qbFlags, op quickbase.Operation) error {
	if err := opts.setup(cmd); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, closeClient, err := newQuickBaseClient(ctx, opts.config, flags, opts.logger)
	if err != nil {
		return err
	}
	defer closeClient()

	resp, err := quickbase.Execute(ctx, client, op)
	if err != nil {
		return err
	}

	status := ui.NewKeyValueTable(cmd.ErrOrStderr(), opts.noColor)
	status.AddRow("Operation", op.Name())
	status.AddRow("Status", strconv.Itoa(resp.Status()))
	status.Render()

	payload, err := resp.Payload()
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), payload); err != nil {
		return err
	}

	if resp.Status() >= 400 {
		return &statusError{operation: op.Name(), status: resp.Status()}
	}
	return nil
}

// newQuickBaseClient builds a client from configuration and flags. A cache
// backend that cannot be reached is skipped with a warning.
func newQuickBaseClient(ctx context.Context, cfg *config.Config, flags qbFlags, logger *zap.Logger) (*quickbase.Client, func(), error) {
	qb := cfg.QuickBase
	clientCfg := quickbase.Config{
		Token:     firstNonEmpty(flags.token, qb.Token),
		Realm:     firstNonEmpty(flags.realm, qb.Realm),
		BaseURL:   firstNonEmpty(flags.baseURL, qb.BaseURL),
		UserAgent: qb.UserAgent,
		Timeout:   qb.Timeout,
	}

	clientOpts := []quickbase.Option{quickbase.WithLogger(logger)}
	closeCache := func() {}

	if !flags.noCache {
		store, err := newResponseCache(ctx, cfg.Cache)
		if err != nil {
			logger.Warn("response cache disabled", zap.String("backend", cfg.Cache.Backend), zap.Error(err))
		} else if store != nil {
			clientOpts = append(clientOpts, quickbase.WithResponseCache(store, cfg.Cache.TTL))
			if flags.refresh {
				clientOpts = append(clientOpts, quickbase.WithRefresh())
			}
			closeCache = func() {
				if err := store.Close(); err != nil {
					logger.Warn("failed to close response cache", zap.Error(err))
				}
			}
		}
	}

	client, err := quickbase.NewClient(clientCfg, clientOpts...)
	if err != nil {
		closeCache()
		return nil, nil, &configError{err: err}
	}
	return client, closeCache, nil
}

// newResponseCache returns nil when caching is disabled
func newResponseCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	common := cache.CacheConfig{DefaultTTL: cfg.TTL, Prefix: cfg.Prefix}

	switch cfg.Backend {
	case config.CacheMemory:
		return cache.NewMemoryCacheWithConfig(common), nil
	case config.CacheRedis:
		store, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			CacheConfig: common,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

// readRequest decodes a JSON request body from path, or from stdin when path is "-"
func readRequest(stdin io.Reader, path string, v any) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open request file: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode request %s: %w", path, err)
	}
	return nil
}
