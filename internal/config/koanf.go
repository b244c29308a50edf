package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"ghsweep.yaml",
	"ghsweep.yml",
	"/etc/ghsweep/config.yaml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "GHSWEEP_CONFIG_PATH"

// TokenEnvVar is the only place the host API token may come from.
const TokenEnvVar = "GHSWEEP_TOKEN"

func defaultConfig() *Config {
	return &Config{
		Host: HostConfig{
			APIBaseURL: "https://api.github.com",
			GraphQLURL: "https://api.github.com/graphql",
		},
		Cache: CacheConfig{
			Root:       defaultCacheRoot(),
			SkipCache:  false,
			WrappedTTL: 30 * 24 * time.Hour,
		},
		Store: StoreConfig{
			DBPath:     "files.db",
			ContentDir: "content",
			Threads:    0,
		},
		Cursor: CursorConfig{
			Dir: ".ghsweep-cursor",
		},
		RateLimit: RateLimitConfig{
			RESTPerSecond:    1.3,
			GraphQLPerSecond: 30,
			RESTBurst:        1,
			GraphQLBurst:     5,
		},
		Scan: ScanConfig{
			InitialWidth: 100,
			MaxWidth:     10_000,
			MaxSize:      1 << 20,
			ComfortLow:   50,
			ComfortHigh:  500,
			Saturation:   1000,
		},
		Fetch: FetchConfig{
			UseGraphQL:        false,
			ContentBatchSize:  50,
			MetadataBatchSize: 50,
			HistoryBatchSize:  20,
			Concurrency:       8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

func defaultCacheRoot() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home + "/.cache/ghsweep"
	}
	return ".ghsweep-cache"
}

// Load reads configuration with koanf's layered precedence:
//  1. Defaults: built-in struct defaults
//  2. Config File: optional YAML file (if found)
//  3. Environment Variables: override any setting
//
// The host token is read directly from the environment after unmarshaling,
// since HostConfig.Token is deliberately excluded from the koanf struct tag
// set so it can never be sourced from a committed config file.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Host.Token = os.Getenv(TokenEnvVar)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps GHSWEEP_-prefixed environment variable names to
// koanf config paths, e.g. GHSWEEP_DB_PATH -> store.db_path.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	const prefix = "ghsweep_"
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	key = strings.TrimPrefix(key, prefix)

	envMappings := map[string]string{
		"api_base_url":         "host.api_base_url",
		"graphql_url":          "host.graphql_url",
		"cache_root":           "cache.root",
		"skip_cache":           "cache.skip_cache",
		"cache_wrapped_ttl":    "cache.wrapped_ttl",
		"db_path":              "store.db_path",
		"content_dir":          "store.content_dir",
		"db_threads":           "store.threads",
		"cursor_dir":           "cursor.dir",
		"rest_rps":             "rate_limit.rest_per_second",
		"graphql_rps":          "rate_limit.graphql_per_second",
		"rest_burst":           "rate_limit.rest_burst",
		"graphql_burst":        "rate_limit.graphql_burst",
		"scan_initial_width":   "scan.initial_width",
		"scan_max_width":       "scan.max_width",
		"scan_max_size":        "scan.max_size",
		"scan_comfort_low":     "scan.comfort_low",
		"scan_comfort_high":    "scan.comfort_high",
		"scan_saturation":      "scan.saturation",
		"use_graphql":          "fetch.use_graphql",
		"content_batch_size":   "fetch.content_batch_size",
		"metadata_batch_size":  "fetch.metadata_batch_size",
		"history_batch_size":   "fetch.history_batch_size",
		"fetch_concurrency":    "fetch.concurrency",
		"log_level":            "logging.level",
		"log_format":           "logging.format",
		"log_caller":           "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	// Token is handled separately in Load; everything else unmapped is
	// ignored so stray environment variables don't pollute config.
	return ""
}
