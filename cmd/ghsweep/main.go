package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghsweep/ghsweep/internal/cache"
	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/ghclient"
	"github.com/ghsweep/ghsweep/internal/logging"
	"github.com/ghsweep/ghsweep/internal/store"
)

// commonFlags holds the flags shared by every subcommand.
type commonFlags struct {
	dbPath    string
	skipCache bool
	graphql   bool
	batchSize int
}

// app bundles the wired dependency graph every subcommand needs: the
// config, the client (which itself owns the cache), the result store, and
// the scan cursor. One app is built per invocation and closed on exit,
// following the common cmd/server pattern of constructing the full
// dependency graph once at the top of main and deferring cleanup.
type app struct {
	cfg    *config.Config
	client *ghclient.Client
	store  *store.Store
	cursor *store.Cursor
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	subcommand := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet at this point, so fall back to
		// the package's default global logger for this one line.
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.FromAppConfig(cfg.Logging))

	fs := flag.NewFlagSet(subcommand, flag.ExitOnError)
	flags := commonFlags{}
	fs.StringVar(&flags.dbPath, "db", cfg.Store.DBPath, "result store path")
	fs.BoolVar(&flags.skipCache, "skip-cache", cfg.Cache.SkipCache, "bypass cache reads for this run")
	fs.BoolVar(&flags.graphql, "graphql", cfg.Fetch.UseGraphQL, "prefer the batched GraphQL strategy")
	fs.BoolVar(&flags.graphql, "g", cfg.Fetch.UseGraphQL, "shorthand for --graphql")
	fs.IntVar(&flags.batchSize, "batch-size", 0, "override every enrichment pass's batch size (0 = use per-pass defaults)")

	var params paramFlags
	fs.Var(&params, "param", "query parameter K=V for the api command (repeatable)")

	if err := fs.Parse(os.Args[2:]); err != nil {
		logging.Fatal().Err(err).Msg("failed to parse flags")
	}
	applyCommonFlags(cfg, flags)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logging.NewRunContext(ctx)

	a, err := build(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to wire application")
	}
	defer a.close()

	var runErr error
	switch subcommand {
	case "collect-paths":
		runErr = a.collectPaths(ctx, fs.Args())
	case "fetch-content":
		runErr = a.fetchContent(ctx)
	case "fetch-metadata":
		runErr = a.fetchMetadata(ctx)
	case "fetch-history":
		runErr = a.fetchHistory(ctx)
	case "api":
		runErr = a.apiCall(ctx, fs.Args(), params)
	case "inspect":
		runErr = a.inspect(ctx)
	case "stats":
		runErr = a.stats(ctx)
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		logging.Ctx(ctx).Error().Err(runErr).Str("command", subcommand).Msg("command failed")
		os.Exit(1)
	}
}

// applyCommonFlags layers the common CLI flags on top of the loaded
// config, the same precedence order koanf itself uses (highest priority
// last): defaults, then file, then env, then these explicit flags.
func applyCommonFlags(cfg *config.Config, flags commonFlags) {
	if flags.dbPath != "" {
		cfg.Store.DBPath = flags.dbPath
	}
	cfg.Cache.SkipCache = flags.skipCache
	cfg.Fetch.UseGraphQL = flags.graphql
	if flags.batchSize > 0 {
		cfg.Fetch.ContentBatchSize = flags.batchSize
		cfg.Fetch.MetadataBatchSize = flags.batchSize
		cfg.Fetch.HistoryBatchSize = flags.batchSize
	}
}

// build wires the cache, client, store, and cursor from cfg, in dependency
// order (the cache before the client, the store and its cursor independent of both).
func build(cfg *config.Config) (*app, error) {
	c, err := cache.New(cfg.Cache.Root)
	if err != nil {
		return nil, fmt.Errorf("opening response cache: %w", err)
	}

	client := ghclient.New(cfg.Host, cfg.RateLimit, cfg.Cache, c)

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}

	cur, err := store.OpenCursor(cfg.Cursor)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening scan cursor: %w", err)
	}

	return &app{cfg: cfg, client: client, store: st, cursor: cur}, nil
}

func (a *app) close() {
	if err := a.cursor.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing scan cursor")
	}
	if err := a.store.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing result store")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `ghsweep — size-sharded GitHub code-search collector

Usage:
  ghsweep collect-paths QUERY [--db PATH] [--skip-cache] [--graphql] [--batch-size N]
  ghsweep fetch-content [--db PATH] [--skip-cache] [--graphql] [--batch-size N]
  ghsweep fetch-metadata [--db PATH] [--skip-cache] [--graphql] [--batch-size N]
  ghsweep fetch-history [--db PATH] [--skip-cache] [--graphql] [--batch-size N]
  ghsweep api ENDPOINT [--param K=V]... [--db PATH] [--skip-cache]
  ghsweep inspect [--db PATH]
  ghsweep stats [--db PATH]

Environment:
  GHSWEEP_TOKEN must hold a valid host API token.`)
}
