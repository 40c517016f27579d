package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for threadtally.
type Config struct {
	XRPC      XRPCConfig      `mapstructure:"xrpc"       yaml:"xrpc"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"    yaml:"crawler"`
	Normalize NormalizeConfig `mapstructure:"normalize"  yaml:"normalize"`
	Cluster   ClusterConfig   `mapstructure:"cluster"    yaml:"cluster"`
	Store     StoreConfig     `mapstructure:"store"      yaml:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"    yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"    yaml:"metrics"`
}

// XRPCConfig controls the AT Protocol XRPC client used to fetch threads
// and quote posts.
type XRPCConfig struct {
	BaseURL         string        `mapstructure:"base_url"          yaml:"base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	MaxRetryBudget  int           `mapstructure:"max_retry_budget"  yaml:"max_retry_budget"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
}

// RateLimitConfig controls the token-bucket limiter guarding XRPC calls.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests" yaml:"max_requests"`
	Window      time.Duration `mapstructure:"window"       yaml:"window"`
	MinDelay    time.Duration `mapstructure:"min_delay"    yaml:"min_delay"`
}

// CrawlerConfig controls thread/quote traversal depth and parallelism.
type CrawlerConfig struct {
	ThreadDepth         int `mapstructure:"thread_depth"          yaml:"thread_depth"`
	TruncatedFetchDepth int `mapstructure:"truncated_fetch_depth" yaml:"truncated_fetch_depth"`
	RecursionCap        int `mapstructure:"recursion_cap"         yaml:"recursion_cap"`
	QuoteDepthCap       int `mapstructure:"quote_depth_cap"       yaml:"quote_depth_cap"`
	QuoteBatchSize      int `mapstructure:"quote_batch_size"      yaml:"quote_batch_size"`
	QuotePageSize       int `mapstructure:"quote_page_size"       yaml:"quote_page_size"`
}

// NormalizeConfig selects and configures one of the three title
// normalization policies: catalog, user_list, or self.
type NormalizeConfig struct {
	Policy           string   `mapstructure:"policy"             yaml:"policy"`
	CatalogEndpoint  string   `mapstructure:"catalog_endpoint"   yaml:"catalog_endpoint"`
	CatalogMediaHint string   `mapstructure:"catalog_media_hint" yaml:"catalog_media_hint"`
	UserList         []string `mapstructure:"user_list"          yaml:"user_list"`
	RootPromptText   string   `mapstructure:"root_prompt_text"   yaml:"root_prompt_text"`
}

// ClusterConfig controls near-miss cluster suggestion thresholds.
type ClusterConfig struct {
	NgramThreshold       float64 `mapstructure:"ngram_threshold"       yaml:"ngram_threshold"`
	LevenshteinThreshold float64 `mapstructure:"levenshtein_threshold" yaml:"levenshtein_threshold"`
	MinScore             float64 `mapstructure:"min_score"             yaml:"min_score"`
}

// StoreConfig controls where finished analysis runs are persisted.
type StoreConfig struct {
	Type       string `mapstructure:"type"        yaml:"type"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	MongoURI   string `mapstructure:"mongo_uri"   yaml:"mongo_uri"`
	Database   string `mapstructure:"database"    yaml:"database"`
	Collection string `mapstructure:"collection"  yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		XRPC: XRPCConfig{
			BaseURL:         "https://public.api.bsky.app",
			RequestTimeout:  15 * time.Second,
			MaxRetryBudget:  3,
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    20,
			UserAgent:       "threadtally/" + Version,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 3000,
			Window:      5 * time.Minute,
		},
		Crawler: CrawlerConfig{
			ThreadDepth:         1000,
			TruncatedFetchDepth: 100,
			RecursionCap:        5,
			QuoteDepthCap:       5,
			QuoteBatchSize:      5,
			QuotePageSize:       100,
		},
		Normalize: NormalizeConfig{
			Policy: "self",
		},
		Cluster: ClusterConfig{
			NgramThreshold:       0.5,
			LevenshteinThreshold: 0.8,
			MinScore:             0.4,
		},
		Store: StoreConfig{
			Type:       "json",
			OutputPath: "./output",
			Database:   "threadtally",
			Collection: "runs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
