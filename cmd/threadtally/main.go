package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/threadtally/threadtally/internal/cluster"
	"github.com/threadtally/threadtally/internal/config"
	"github.com/threadtally/threadtally/internal/crawler"
	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/observability"
	"github.com/threadtally/threadtally/internal/pipeline"
	"github.com/threadtally/threadtally/internal/ratelimit"
	"github.com/threadtally/threadtally/internal/store"
	"github.com/threadtally/threadtally/internal/xrpc"
)

var (
	cfgFile    string
	verbose    bool
	outputPath string
	policy     string
	depth      int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "threadtally",
		Short: "threadtally — tally what a quote-post thread is actually talking about",
		Long: `threadtally crawls an AT Protocol reply/quote thread, extracts candidate
titles from post text and link cards, normalizes them against a catalog,
a curated list, or the thread's own root prompt, and produces a ranked
tally of what's actually being mentioned.

Features:
  • Recursive reply-tree crawl with truncation-aware re-fetching
  • Quote-post discovery, bounded by depth and concurrency
  • Token-bucket rate limiting shared across a process
  • Pattern-based candidate extraction, including link-card oEmbed titles
  • Three normalization policies: catalog, user list, self-validation
  • Cluster suggestions for posts that matched nothing
  • JSON or MongoDB result storage
  • Prometheus-style metrics endpoint`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [at-uri]",
		Short: "Analyze a single thread rooted at the given post URI",
		Long:  "Crawl, extract, normalize, and tally the thread rooted at the given at:// post URI.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "directory to write the result record into (empty = use store.output_path from config)")
	cmd.Flags().StringVar(&policy, "policy", "", "normalization policy override: catalog, user_list, self")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "reply-tree fetch depth override (0 = use config default)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rootURI := args[0]
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Info("starting analysis",
		"root", rootURI,
		"policy", cfg.Normalize.Policy,
		"thread_depth", cfg.Crawler.ThreadDepth,
		"store", cfg.Store.Type,
	)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
			metrics = nil
		}
	}

	pipe, err := buildPipeline(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling analysis", "signal", sig)
		cancel()
	}()

	start := time.Now()
	result, suggestions, err := pipe.Run(ctx, rootURI, func(stage, detail string) {
		logger.Debug("stage", "name", stage, "detail", detail)
	})
	if err != nil {
		return fmt.Errorf("run analysis: %w", err)
	}
	elapsed := time.Since(start)

	backend, err := buildStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer backend.Close()

	id, err := store.SaveResult(ctx, backend, result, time.Now())
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	fmt.Printf("\nAnalysis complete in %s (record %s)\n", elapsed.Round(time.Millisecond), id)
	fmt.Printf("  Posts considered:  %d\n", result.PostCount)
	fmt.Printf("  Titles tallied:    %d\n", len(result.Tally))
	fmt.Printf("  Uncategorized:     %d\n", len(result.Uncategorized))
	fmt.Printf("  Cluster suggestions: %d\n", len(suggestions))
	for i, entry := range result.Tally {
		if i >= 10 {
			fmt.Printf("  ... %d more\n", len(result.Tally)-10)
			break
		}
		fmt.Printf("  %2d. %-40s %d\n", i+1, entry.Title, entry.Count)
	}

	return nil
}

func buildPipeline(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Pipeline, error) {
	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
		MinDelay:    cfg.RateLimit.MinDelay,
	})
	xrpcClient := xrpc.New(xrpc.Config{
		BaseURL:         cfg.XRPC.BaseURL,
		RequestTimeout:  cfg.XRPC.RequestTimeout,
		MaxRetryBudget:  cfg.XRPC.MaxRetryBudget,
		IdleConnTimeout: cfg.XRPC.IdleConnTimeout,
		MaxIdleConns:    cfg.XRPC.MaxIdleConns,
	}, limiter)

	normalizer, err := buildNormalizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	pcfg := pipeline.DefaultConfig()
	pcfg.Crawler = crawler.Config{
		ThreadDepth:         cfg.Crawler.ThreadDepth,
		TruncatedFetchDepth: cfg.Crawler.TruncatedFetchDepth,
		RecursionCap:        cfg.Crawler.RecursionCap,
		QuoteDepthCap:       cfg.Crawler.QuoteDepthCap,
		QuoteBatchSize:      cfg.Crawler.QuoteBatchSize,
		QuotePageSize:       cfg.Crawler.QuotePageSize,
	}
	pcfg.XRPC = xrpc.Config{
		BaseURL:         cfg.XRPC.BaseURL,
		RequestTimeout:  cfg.XRPC.RequestTimeout,
		MaxRetryBudget:  cfg.XRPC.MaxRetryBudget,
		IdleConnTimeout: cfg.XRPC.IdleConnTimeout,
		MaxIdleConns:    cfg.XRPC.MaxIdleConns,
	}
	pcfg.Cluster = cluster.Config{
		NgramThreshold:       cfg.Cluster.NgramThreshold,
		LevenshteinThreshold: cfg.Cluster.LevenshteinThreshold,
		MinScore:             cfg.Cluster.MinScore,
	}
	pcfg.OEmbedEndpoint = cfg.Normalize.CatalogEndpoint

	return pipeline.New(pcfg, xrpcClient, normalizer, logger, metrics), nil
}

func buildNormalizer(cfg *config.Config, logger *slog.Logger) (*normalize.Normalizer, error) {
	switch cfg.Normalize.Policy {
	case "catalog":
		client := normalize.NewCatalogClient(cfg.Normalize.CatalogEndpoint, cfg.Normalize.CatalogMediaHint, logger)
		return normalize.NewCatalogNormalizer(client, logger), nil
	case "user_list":
		entries := make([]normalize.ListEntry, 0, len(cfg.Normalize.UserList))
		for _, title := range cfg.Normalize.UserList {
			entries = append(entries, normalize.ListEntry{
				Title:    title,
				Patterns: []string{strings.ToLower(title)},
			})
		}
		return normalize.NewUserListNormalizer(entries, logger), nil
	case "self":
		return normalize.NewSelfValidatingNormalizer(cfg.Normalize.RootPromptText, logger), nil
	default:
		return nil, fmt.Errorf("unknown normalize policy %q", cfg.Normalize.Policy)
	}
}

func buildStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Type {
	case "mongo":
		return store.NewMongoStore(cfg.Store.MongoURI, cfg.Store.Database, cfg.Store.Collection, logger)
	case "json", "":
		return store.NewFileStore(cfg.Store.OutputPath, logger)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("threadtally %s\n", config.Version)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("XRPC:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.XRPC.BaseURL)
			fmt.Printf("  Request Timeout:   %s\n", cfg.XRPC.RequestTimeout)
			fmt.Printf("  Max Retry Budget:  %d\n", cfg.XRPC.MaxRetryBudget)
			fmt.Printf("\nRate Limit:\n")
			fmt.Printf("  Max Requests:      %d\n", cfg.RateLimit.MaxRequests)
			fmt.Printf("  Window:            %s\n", cfg.RateLimit.Window)
			fmt.Printf("\nCrawler:\n")
			fmt.Printf("  Thread Depth:      %d\n", cfg.Crawler.ThreadDepth)
			fmt.Printf("  Recursion Cap:     %d\n", cfg.Crawler.RecursionCap)
			fmt.Printf("  Quote Depth Cap:   %d\n", cfg.Crawler.QuoteDepthCap)
			fmt.Printf("\nNormalize:\n")
			fmt.Printf("  Policy:            %s\n", cfg.Normalize.Policy)
			fmt.Printf("\nStore:\n")
			fmt.Printf("  Type:              %s\n", cfg.Store.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Store.OutputPath)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func applyCLIOverrides(cfg *config.Config) {
	if depth > 0 {
		cfg.Crawler.ThreadDepth = depth
	}
	if policy != "" {
		cfg.Normalize.Policy = policy
	}
	if outputPath != "" {
		cfg.Store.OutputPath = outputPath
	}
}
