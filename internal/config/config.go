package config

import (
	"time"

	"github.com/ghsweep/ghsweep/internal/apierror"
)

// Config holds everything the collector, client, store, and fetchers need.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for every tunable below
//  2. Config File: optional YAML file for persistent overrides
//  3. Environment Variables: override any setting, host token only lives here
//
// cmd/ghsweep layers its command-line flags onto the loaded Config before
// wiring any component; after that it is not modified and is safe for
// concurrent read access.
type Config struct {
	Host     HostConfig     `koanf:"host"`
	Cache    CacheConfig    `koanf:"cache"`
	Store    StoreConfig    `koanf:"store"`
	Cursor   CursorConfig   `koanf:"cursor"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Scan     ScanConfig     `koanf:"scan"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// HostConfig holds the upstream code-hosting service connection settings.
//
// Environment Variables:
//   - GHSWEEP_TOKEN: host API token (required, never read from a config file)
//   - GHSWEEP_API_BASE_URL: REST API base URL (default: https://api.github.com)
//   - GHSWEEP_GRAPHQL_URL: graph endpoint URL
type HostConfig struct {
	// Token authenticates every outbound request. Deliberately absent from
	// the koanf struct-default/file layers; only the environment layer may
	// populate it, so it can never accidentally end up in a committed
	// config.yaml.
	Token string `koanf:"-"`

	APIBaseURL string `koanf:"api_base_url"`
	GraphQLURL string `koanf:"graphql_url"`
}

// CacheConfig holds settings for the persistent response cache.
//
// Environment Variables:
//   - GHSWEEP_CACHE_ROOT: cache root directory (default: ~/.cache/ghsweep)
//   - GHSWEEP_SKIP_CACHE: bypass cache reads for this run (default: false)
type CacheConfig struct {
	Root      string `koanf:"root"`
	SkipCache bool   `koanf:"skip_cache"`
	// WrappedTTL is the expiry window for the wrapped (general API) cache
	// schema. The bare/immutable schema never expires.
	WrappedTTL time.Duration `koanf:"wrapped_ttl"`
}

// StoreConfig holds settings for the DuckDB-backed result store.
//
// Environment Variables:
//   - GHSWEEP_DB_PATH: result database path (default: ./files.db)
//   - GHSWEEP_CONTENT_DIR: content download directory (default: ./content)
type StoreConfig struct {
	DBPath     string `koanf:"db_path"`
	ContentDir string `koanf:"content_dir"`
	Threads    int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// CursorConfig holds settings for the Badger-backed scan-cursor slot.
//
// Environment Variables:
//   - GHSWEEP_CURSOR_DIR: badger directory for scan cursor persistence
type CursorConfig struct {
	Dir string `koanf:"dir"`
}

// RateLimitConfig holds the two outbound token-bucket rates.
//
// Environment Variables:
//   - GHSWEEP_REST_RPS: REST requests/second (default: 1.3)
//   - GHSWEEP_GRAPHQL_RPS: graph requests/second (default: 30)
type RateLimitConfig struct {
	RESTPerSecond    float64 `koanf:"rest_per_second"`
	GraphQLPerSecond float64 `koanf:"graphql_per_second"`
	// RESTBurst/GraphQLBurst bound how many requests may fire back-to-back
	// before the bucket starts throttling.
	RESTBurst    int `koanf:"rest_burst"`
	GraphQLBurst int `koanf:"graphql_burst"`
}

// ScanConfig holds the size-sharded collector's adaptive-width tunables.
//
// Environment Variables:
//   - GHSWEEP_SCAN_INITIAL_WIDTH: starting chunk width in bytes (default: 100)
//   - GHSWEEP_SCAN_MAX_WIDTH: widest a chunk may grow to (default: 10000)
//   - GHSWEEP_SCAN_MAX_SIZE: upper bound of the byte-size axis (default: 1048576)
//   - GHSWEEP_SCAN_COMFORT_LOW: result count at/below which a chunk widens
//   - GHSWEEP_SCAN_COMFORT_HIGH: result count at/above which a chunk holds width
//   - GHSWEEP_SCAN_SATURATION: host's per-query result cap (default: 1000)
type ScanConfig struct {
	InitialWidth int64 `koanf:"initial_width"`
	MaxWidth     int64 `koanf:"max_width"`
	MaxSize      int64 `koanf:"max_size"`
	ComfortLow   int   `koanf:"comfort_low"`
	ComfortHigh  int   `koanf:"comfort_high"`
	Saturation   int   `koanf:"saturation"`
}

// FetchConfig holds the enrichment fetchers' batch sizes and strategy.
//
// Environment Variables:
//   - GHSWEEP_USE_GRAPHQL: prefer the batched graph strategy (default: false)
//   - GHSWEEP_CONTENT_BATCH_SIZE: content pass batch size (default: 50)
//   - GHSWEEP_METADATA_BATCH_SIZE: metadata pass batch size (default: 50)
//   - GHSWEEP_HISTORY_BATCH_SIZE: history pass batch size (default: 20)
type FetchConfig struct {
	UseGraphQL        bool `koanf:"use_graphql"`
	ContentBatchSize  int  `koanf:"content_batch_size"`
	MetadataBatchSize int  `koanf:"metadata_batch_size"`
	HistoryBatchSize  int  `koanf:"history_batch_size"`
	// Concurrency bounds the number of items fan out at once in the
	// per-item strategy, independent of the client's own throttling.
	Concurrency int `koanf:"concurrency"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - GHSWEEP_LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - GHSWEEP_LOG_FORMAT: json, console (default: json)
//   - GHSWEEP_LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate fails closed on missing credentials, non-positive sizes, or
// scan tunables that cannot converge. Every failure is an
// apierror.Configuration error, the taxonomy's fatal-at-startup category.
func (c *Config) Validate() error {
	if c.Host.Token == "" {
		return apierror.NewConfiguration("host token is required (set GHSWEEP_TOKEN)")
	}
	if c.Store.DBPath == "" {
		return apierror.NewConfiguration("store.db_path must not be empty")
	}
	if c.Store.ContentDir == "" {
		return apierror.NewConfiguration("store.content_dir must not be empty")
	}
	if c.Cache.Root == "" {
		return apierror.NewConfiguration("cache.root must not be empty")
	}
	if c.RateLimit.RESTPerSecond <= 0 {
		return apierror.NewConfiguration("rate_limit.rest_per_second must be positive")
	}
	if c.RateLimit.GraphQLPerSecond <= 0 {
		return apierror.NewConfiguration("rate_limit.graphql_per_second must be positive")
	}
	if c.Scan.InitialWidth <= 0 {
		return apierror.NewConfiguration("scan.initial_width must be positive")
	}
	if c.Scan.MaxWidth < c.Scan.InitialWidth {
		return apierror.NewConfiguration("scan.max_width must be >= scan.initial_width")
	}
	if c.Scan.MaxSize <= 0 {
		return apierror.NewConfiguration("scan.max_size must be positive")
	}
	if c.Scan.ComfortLow >= c.Scan.ComfortHigh {
		return apierror.NewConfiguration("scan.comfort_low must be less than scan.comfort_high")
	}
	if c.Scan.Saturation <= c.Scan.ComfortHigh {
		return apierror.NewConfiguration("scan.saturation must be greater than scan.comfort_high")
	}
	if c.Fetch.ContentBatchSize <= 0 || c.Fetch.MetadataBatchSize <= 0 || c.Fetch.HistoryBatchSize <= 0 {
		return apierror.NewConfiguration("fetch batch sizes must be positive")
	}
	if c.Fetch.Concurrency <= 0 {
		return apierror.NewConfiguration("fetch.concurrency must be positive")
	}
	return nil
}
