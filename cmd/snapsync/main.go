package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
	"go.uber.org/zap"

	"snapgram-sync/internal/config"
	"snapgram-sync/internal/di"
	"snapgram-sync/internal/interfaces/http/router"
)

const usage = `Snapgram sync client.

Reads and mutates the Snapgram backend through the cached sync layer.
Configuration is read from --config (default ./config or CONFIG_DIR) for the
environment named by ENVIRONMENT.

Usage:
    snapsync feed [--pages=<n>] [options]
    snapsync recent [options]
    snapsync creators [--limit=<n>] [options]
    snapsync search <term> [options]
    snapsync search --interactive [options]
    snapsync show <post-id> [options]
    snapsync like <post-id> [options]
    snapsync save <post-id> [options]
    snapsync unsave <post-id> [options]
    snapsync whoami [options]
    snapsync -h | --help
    snapsync --version

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --config=<dir>             Configuration directory.
    --email=<email>            Sign in with this account before the command.
    --password=<password>      Password for --email.
    --demo                     Sign in as the first seeded creator (memory backend).
    --metrics-addr=<addr>      Serve /metrics and /health while the command runs
                               (default: metrics.addr when metrics are enabled).
    --pages=<n>                Feed pages to load [default: 1].
    --limit=<n>                Creators to list [default: 10].
    --interactive              Read search terms from stdin, one per line.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], di.Version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(opts docopt.Opts) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, _ := opts.String("--config")
	if dir == "" {
		dir = os.Getenv("CONFIG_DIR")
	}
	loader := config.NewLoader(dir, config.EnvironmentFromOS())
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer cleanup()
	defer container.Drain()
	logger := container.Logger

	addr, _ := opts.String("--metrics-addr")
	if addr == "" && cfg.Metrics.Enabled {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		srv := router.NewServer(addr, router.New(container.Metrics, container.Health), logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	a := newApp(container, os.Stdout)
	if err := a.signIn(ctx, opts); err != nil {
		return err
	}

	switch {
	case flag(opts, "feed"):
		pages, err := opts.Int("--pages")
		if err != nil {
			return fmt.Errorf("--pages: %w", err)
		}
		return a.feed(ctx, pages)
	case flag(opts, "recent"):
		return a.recent(ctx)
	case flag(opts, "creators"):
		limit, err := opts.Int("--limit")
		if err != nil {
			return fmt.Errorf("--limit: %w", err)
		}
		return a.creators(ctx, limit)
	case flag(opts, "search") && flag(opts, "--interactive"):
		if cfg.IsDevelopment() {
			watcher, err := config.NewWatcher(loader, cfg, logger)
			if err != nil {
				logger.Warn("configuration hot reloading disabled", zap.Error(err))
			} else {
				defer watcher.Stop()
				watcher.OnChange(func(next *config.Config) {
					container.Search.SetDebounce(next.Search.Debounce)
				})
			}
		}
		return a.interactiveSearch(ctx, os.Stdin)
	case flag(opts, "search"):
		term, _ := opts.String("<term>")
		return a.search(ctx, term)
	case flag(opts, "show"):
		id, _ := opts.String("<post-id>")
		return a.show(ctx, id)
	case flag(opts, "like"):
		id, _ := opts.String("<post-id>")
		return a.like(ctx, id)
	case flag(opts, "save"):
		id, _ := opts.String("<post-id>")
		return a.save(ctx, id)
	case flag(opts, "unsave"):
		id, _ := opts.String("<post-id>")
		return a.unsave(ctx, id)
	case flag(opts, "whoami"):
		return a.whoami(ctx)
	}
	return nil
}

func flag(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}
