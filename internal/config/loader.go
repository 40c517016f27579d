package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("THREADTALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("threadtally")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".threadtally"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return Load(path)
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("xrpc.base_url", cfg.XRPC.BaseURL)
	v.SetDefault("xrpc.request_timeout", cfg.XRPC.RequestTimeout)
	v.SetDefault("xrpc.max_retry_budget", cfg.XRPC.MaxRetryBudget)
	v.SetDefault("xrpc.idle_conn_timeout", cfg.XRPC.IdleConnTimeout)
	v.SetDefault("xrpc.max_idle_conns", cfg.XRPC.MaxIdleConns)
	v.SetDefault("xrpc.user_agent", cfg.XRPC.UserAgent)

	v.SetDefault("rate_limit.max_requests", cfg.RateLimit.MaxRequests)
	v.SetDefault("rate_limit.window", cfg.RateLimit.Window)
	v.SetDefault("rate_limit.min_delay", cfg.RateLimit.MinDelay)

	v.SetDefault("crawler.thread_depth", cfg.Crawler.ThreadDepth)
	v.SetDefault("crawler.truncated_fetch_depth", cfg.Crawler.TruncatedFetchDepth)
	v.SetDefault("crawler.recursion_cap", cfg.Crawler.RecursionCap)
	v.SetDefault("crawler.quote_depth_cap", cfg.Crawler.QuoteDepthCap)
	v.SetDefault("crawler.quote_batch_size", cfg.Crawler.QuoteBatchSize)
	v.SetDefault("crawler.quote_page_size", cfg.Crawler.QuotePageSize)

	v.SetDefault("normalize.policy", cfg.Normalize.Policy)
	v.SetDefault("normalize.catalog_endpoint", cfg.Normalize.CatalogEndpoint)
	v.SetDefault("normalize.catalog_media_hint", cfg.Normalize.CatalogMediaHint)
	v.SetDefault("normalize.user_list", cfg.Normalize.UserList)
	v.SetDefault("normalize.root_prompt_text", cfg.Normalize.RootPromptText)

	v.SetDefault("cluster.ngram_threshold", cfg.Cluster.NgramThreshold)
	v.SetDefault("cluster.levenshtein_threshold", cfg.Cluster.LevenshteinThreshold)
	v.SetDefault("cluster.min_score", cfg.Cluster.MinScore)

	v.SetDefault("store.type", cfg.Store.Type)
	v.SetDefault("store.output_path", cfg.Store.OutputPath)
	v.SetDefault("store.mongo_uri", cfg.Store.MongoURI)
	v.SetDefault("store.database", cfg.Store.Database)
	v.SetDefault("store.collection", cfg.Store.Collection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
