// Package main is the kioku CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/cli"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/indexer"
	kmcp "github.com/hyperjump/kioku/internal/mcp"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/server"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/watcher"
	"github.com/hyperjump/kioku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kioku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists it
// is used, so that "kioku server" from the project dir uses the project's
// config (including debug). Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "mcp":
		runMCP()
	case "search":
		runSearch()
	case "sync":
		runSync()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kioku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Store
	Embedder embedding.Embedder
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	httpEmbedder, err := embedding.NewHTTPEmbedder(
		cfg.Embedding.URL,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
		time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	embedder := embedding.NewCachedEmbedder(httpEmbedder, cfg.Embedding.CacheSize)

	var idxOpts []indexer.IndexerOption
	var engOpts []search.EngineOption
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
		engOpts = append(engOpts, search.WithLogger(logger))
	}
	idx := indexer.NewIndexer(store, embedder, cfg.Root, cfg.Extension, idxOpts...)
	engine := search.NewEngine(store, embedder, engOpts...)

	return &Components{
		Storage:  store,
		Embedder: embedder,
		Engine:   engine,
		Indexer:  idx,
	}, nil
}

// startWatcher wires the file watcher to single-file resync and starts both an
// initial full sync and the watcher in background goroutines.
func startWatcher(ctx context.Context, components *Components, cfg *config.Config, logger *zap.Logger) (*watcher.Watcher, error) {
	idx := components.Indexer

	watchOpts := []watcher.WatcherOption{watcher.WithLogger(logger)}
	if cfg.Watch.DebounceMillis > 0 {
		watchOpts = append(watchOpts, watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Root,
		cfg.Extension,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := idx.SyncFile(context.Background(), path); err != nil {
				logger.Warn("watch index file failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	if err := watchSvc.Start(ctx); err != nil {
		return nil, err
	}

	// Initial reconciliation runs in the background so startup is not blocked
	// by a large document root.
	go func() {
		stats, err := idx.SyncAll(ctx)
		if err != nil {
			logger.Error("initial sync failed", zap.Error(err))
			return
		}
		logger.Info("initial sync complete", zap.String("stats", stats.String()))
	}()

	return watchSvc, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, per-file indexing, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("root", cfg.Root),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	watchSvc, err := startWatcher(watchCtx, components, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()

	srv := server.NewServer(components.Engine, components.Indexer, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	// Stdout carries the MCP protocol; all logging must go to stderr.
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchSvc, err := startWatcher(ctx, components, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	srv := kmcp.NewServer(components.Engine, components.Storage, cfg, logger)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("MCP server failed", zap.Error(err))
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kioku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kioku search backup strategy
  kioku search "backup strategy"              # same as above
  kioku search --max-distance 0.8 your query  # widen the distance threshold
  kioku search --output json your query       # structured JSON for other apps
`)
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", -1, "number of results (negative = all matches)")
	offset := fs.Int("offset", 0, "number of results to skip")
	maxDistance := fs.Float64("max-distance", -1, "cosine distance threshold 0..2 (default from config)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	// One-shot mode has no watcher, so reconcile before searching to make sure
	// results reflect the directory as it is now.
	stats, err := components.Indexer.SyncAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Synced: %s\n", stats.String())

	opts := search.Options{
		Limit:       *limit,
		Offset:      *offset,
		MaxDistance: cfg.Search.DefaultMaxDistance,
	}
	if *maxDistance >= 0 {
		opts.MaxDistance = *maxDistance
	}

	response, err := components.Engine.Search(context.Background(), queryStr, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if fs.NArg() > 0 {
		// Single-file resync.
		path := fs.Arg(0)
		doc, err := components.Indexer.SyncFile(context.Background(), path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed: %s\n", doc.Path)
		return
	}

	stats, err := components.Indexer.SyncAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sync complete: %s\n", stats.String())
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	count, err := components.Storage.CountDocuments(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("documents:            %d\n", count)
	fmt.Printf("root:                 %s\n", cfg.Root)
	fmt.Printf("extension:            %s\n", cfg.Extension)
	fmt.Printf("database_path:        %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("embedding_model:      %s\n", cfg.Embedding.Model)
	fmt.Printf("embedding_dims:       %d\n", cfg.Embedding.Dimensions)
	fmt.Printf("default_max_distance: %.2f\n", cfg.Search.DefaultMaxDistance)
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath); err == nil {
		fmt.Printf("disk_usage_bytes:     %d\n", diskBytes)
	}
}

func printUsage() {
	fmt.Println(`kioku - Semantic search over a directory of markdown documents

Usage:
  kioku server [flags]           Start the JSON-RPC server (with file watcher)
  kioku mcp [flags]              Start the MCP server on stdio (with file watcher)
  kioku search [flags] <query>   Search documents
  kioku sync [flags] [file]      Reconcile the index with the filesystem (or resync one file)
  kioku status [flags]           Show index and storage status
  kioku version                  Show version
  kioku help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kioku/config.yaml)
  --debug            Enable debug logging (file events, per-file indexing, etc.)

Search Flags:
  --config string        Config file path
  --limit int            Number of results (negative = all matches)
  --offset int           Number of results to skip
  --max-distance float   Cosine distance threshold 0..2 (default from config)
  --output string        Output format: text or json (default: text)

Examples:
  kioku server
  kioku mcp
  kioku search "backup strategy"
  kioku search --output json backup strategy
  kioku sync
  kioku sync notes/todo.md
  kioku status`)
}
