// Command coldtab archives idle browser tabs to PDF.
//
// Usage:
//
//	coldtab -days 14                       # archive tabs idle for 14+ days
//	coldtab -days 30 -dry-run              # report only, touch nothing
//	coldtab -serve -addr :8087             # browse the archive over HTTP
//	coldtab -mcp                           # expose tools over MCP stdio
//
// The browser must be running with --remote-debugging-port (default 9222).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/coldtab/archive"
)

func main() {
	days := flag.Int("days", 14, "archive tabs idle for at least this many days")
	port := flag.Int("port", 9222, "browser remote-debugging port")
	output := flag.String("output", "", "archive output directory (default per OS)")
	profile := flag.String("profile", "", "browser profile directory (default per OS)")
	dryRun := flag.Bool("dry-run", false, "report what would be archived without touching anything")
	configPath := flag.String("config", "", "path to coldtab.yaml config file")
	serveMode := flag.Bool("serve", false, "serve the archive index over HTTP instead of running")
	addr := flag.String("addr", "", "listen address for -serve (default :8087)")
	mcpMode := flag.Bool("mcp", false, "expose coldtab tools over MCP stdio instead of running")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &archive.Config{}
	if *configPath != "" {
		loaded, err := archive.LoadConfigFile(*configPath)
		if err != nil {
			logger.Error("coldtab: config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "days":
			cfg.DaysIdle = *days
		case "port":
			cfg.DebugPort = *port
		case "output":
			cfg.Root = *output
		case "profile":
			cfg.ProfileDir = *profile
		case "dry-run":
			cfg.DryRun = *dryRun
		case "addr":
			cfg.Serve.Addr = *addr
		}
	})

	if err := run(ctx, logger, cfg, *serveMode, *mcpMode); err != nil {
		logger.Error("coldtab: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *archive.Config, serveMode, mcpMode bool) error {
	a := archive.New(*cfg, logger)
	eff := a.Config()

	logger.Info("starting coldtab",
		"days_idle", eff.DaysIdle,
		"debug_port", eff.DebugPort,
		"root", eff.Root,
		"profile", eff.ProfileDir,
		"dry_run", eff.DryRun)

	switch {
	case mcpMode:
		return runMCP(ctx, logger, a, eff)
	case serveMode:
		return runServe(ctx, logger, eff)
	default:
		return runOnce(ctx, logger, a, eff)
	}
}

func runOnce(ctx context.Context, logger *slog.Logger, a *archive.Archiver, cfg archive.Config) error {
	sum, err := a.Run(ctx)
	if err != nil {
		return err
	}

	if sum.DryRun {
		logger.Info("dry run complete",
			"would_archive", sum.Archived, "page_tabs", sum.PageTabs)
		return nil
	}

	logger.Info("run complete",
		"archived", sum.Archived, "eligible", sum.Eligible,
		"failed", sum.Failed, "page_tabs", sum.PageTabs)
	if sum.Archived > 0 {
		logger.Info("index updated", "path", filepath.Join(cfg.Root, "index.html"))
	}
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg archive.Config) error {
	store, err := archive.OpenStore(filepath.Join(cfg.Root, "archive.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           archive.NewHandler(cfg.Root, store, cfg.Serve, logger),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("index server starting", "addr", cfg.Serve.Addr, "root", cfg.Root)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	logger.Info("index server stopped")
	return nil
}

func runMCP(ctx context.Context, logger *slog.Logger, a *archive.Archiver, cfg archive.Config) error {
	store, err := archive.OpenStore(filepath.Join(cfg.Root, "archive.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "coldtab",
		Version: "1.0.0",
	}, nil)
	archive.RegisterMCP(srv, a, store)

	logger.Info("MCP server on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}
