package config

import (
	"fmt"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.XRPC.BaseURL == "" {
		return fmt.Errorf("xrpc.base_url must not be empty")
	}
	if cfg.XRPC.RequestTimeout <= 0 {
		return fmt.Errorf("xrpc.request_timeout must be > 0")
	}
	if cfg.XRPC.MaxRetryBudget < 0 {
		return fmt.Errorf("xrpc.max_retry_budget must be >= 0, got %d", cfg.XRPC.MaxRetryBudget)
	}

	if cfg.RateLimit.MaxRequests < 1 {
		return fmt.Errorf("rate_limit.max_requests must be >= 1, got %d", cfg.RateLimit.MaxRequests)
	}
	if cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be > 0")
	}
	if cfg.RateLimit.MinDelay < 0 {
		return fmt.Errorf("rate_limit.min_delay must be >= 0")
	}

	if cfg.Crawler.ThreadDepth < 1 {
		return fmt.Errorf("crawler.thread_depth must be >= 1, got %d", cfg.Crawler.ThreadDepth)
	}
	if cfg.Crawler.RecursionCap < 0 {
		return fmt.Errorf("crawler.recursion_cap must be >= 0, got %d", cfg.Crawler.RecursionCap)
	}
	if cfg.Crawler.QuoteDepthCap < 0 {
		return fmt.Errorf("crawler.quote_depth_cap must be >= 0, got %d", cfg.Crawler.QuoteDepthCap)
	}
	if cfg.Crawler.QuoteBatchSize < 1 {
		return fmt.Errorf("crawler.quote_batch_size must be >= 1, got %d", cfg.Crawler.QuoteBatchSize)
	}
	if cfg.Crawler.QuotePageSize < 1 {
		return fmt.Errorf("crawler.quote_page_size must be >= 1, got %d", cfg.Crawler.QuotePageSize)
	}

	validPolicies := map[string]bool{"catalog": true, "user_list": true, "self": true}
	if !validPolicies[cfg.Normalize.Policy] {
		return fmt.Errorf("normalize.policy must be 'catalog', 'user_list', or 'self', got %q", cfg.Normalize.Policy)
	}
	if cfg.Normalize.Policy == "catalog" && cfg.Normalize.CatalogEndpoint == "" {
		return fmt.Errorf("normalize.catalog_endpoint is required when normalize.policy is 'catalog'")
	}
	if cfg.Normalize.Policy == "user_list" && len(cfg.Normalize.UserList) == 0 {
		return fmt.Errorf("normalize.user_list must not be empty when normalize.policy is 'user_list'")
	}
	if cfg.Normalize.Policy == "self" && cfg.Normalize.RootPromptText == "" {
		return fmt.Errorf("normalize.root_prompt_text is required when normalize.policy is 'self'")
	}

	if cfg.Cluster.NgramThreshold < 0 || cfg.Cluster.NgramThreshold > 1 {
		return fmt.Errorf("cluster.ngram_threshold must be in [0,1], got %f", cfg.Cluster.NgramThreshold)
	}
	if cfg.Cluster.LevenshteinThreshold < 0 || cfg.Cluster.LevenshteinThreshold > 1 {
		return fmt.Errorf("cluster.levenshtein_threshold must be in [0,1], got %f", cfg.Cluster.LevenshteinThreshold)
	}
	if cfg.Cluster.MinScore < 0 || cfg.Cluster.MinScore > 1 {
		return fmt.Errorf("cluster.min_score must be in [0,1], got %f", cfg.Cluster.MinScore)
	}

	validStoreTypes := map[string]bool{"json": true, "mongo": true, "none": true}
	if !validStoreTypes[cfg.Store.Type] {
		return fmt.Errorf("store.type %q is not supported (valid: json, mongo, none)", cfg.Store.Type)
	}
	if cfg.Store.Type == "mongo" && cfg.Store.MongoURI == "" {
		return fmt.Errorf("store.mongo_uri is required when store.type is 'mongo'")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
