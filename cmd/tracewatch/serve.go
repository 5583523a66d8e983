package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/tracewatch/adapter"
	"github.com/justapithecus/tracewatch/adapter/httpingest"
	"github.com/justapithecus/tracewatch/adapter/ipcbridge"
	"github.com/justapithecus/tracewatch/adapter/redischan"
	"github.com/justapithecus/tracewatch/config"
	"github.com/justapithecus/tracewatch/iox"
	"github.com/justapithecus/tracewatch/log"
	"github.com/justapithecus/tracewatch/snapshot"
	"github.com/justapithecus/tracewatch/store"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a Store and its configured ingestion adapters until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to a tracewatch.yaml config file", Required: true},
			&cli.StringFlag{Name: "out", Usage: "Path to write a snapshot blob on shutdown", Value: "tracewatch.snapshot"},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	logger := log.NewLogger(log.StoreMeta{StoreName: cfg.Name, Component: "serve"})

	storeCfg := cfg.StoreConfig()
	s, err := store.New(storeCfg, logger)
	if err != nil {
		return fmt.Errorf("construct store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	closers, err := registerAdapters(ctx, cfg, s, logger)
	for _, closer := range closers {
		defer iox.DiscardClose(closer)
	}
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("tracewatch serving", map[string]any{"store": cfg.Name, "adapters": len(closers)})
	<-sigCh
	logger.Info("shutdown signal received", nil)
	cancel()

	if storeCfg.SnapshotEnabled {
		return writeSnapshot(s, logger, c.String("out"))
	}
	return nil
}

// registerAdapters constructs and starts every adapter named in cfg.
// httpingest adapters are mounted on their own *http.Server (one per
// adapter, listening on its configured URL); redischan and ipcbridge
// adapters run their own blocking Run loop in a goroutine.
func registerAdapters(ctx context.Context, cfg *config.Config, s *store.Store, logger *log.Logger) ([]adapter.Adapter, error) {
	var closers []adapter.Adapter

	for _, name := range cfg.AdapterNames() {
		ac := cfg.Adapters[name]
		level, ok := adapter.ParseTracingLevel(ac.TracingLevel)
		if !ok {
			return closers, fmt.Errorf("adapter %q: invalid tracing_level %q", name, ac.TracingLevel)
		}
		componentLogger := logger.WithComponent("adapter." + name)
		put := s.Put

		switch ac.Type {
		case "redischan":
			a, err := redischan.New(redischan.Config{
				Name:    name,
				URL:     ac.URL,
				Channel: ac.Channel,
				Level:   level,
			}, componentLogger, s.Metrics(), put)
			if err != nil {
				return closers, fmt.Errorf("adapter %q: %w", name, err)
			}
			go func() {
				if err := a.Run(ctx); err != nil && ctx.Err() == nil {
					componentLogger.Error("redischan adapter stopped", map[string]any{"error": err.Error()})
				}
			}()
			closers = append(closers, a)

		case "httpingest":
			a := httpingest.New(httpingest.Config{Name: name, Level: level}, componentLogger, s.Metrics(), put)
			srv := &http.Server{Addr: ac.URL, Handler: a}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					componentLogger.Error("httpingest server stopped", map[string]any{"error": err.Error()})
				}
			}()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			closers = append(closers, a)

		case "ipcbridge":
			f, err := os.Open(ac.URL)
			if err != nil {
				return closers, fmt.Errorf("adapter %q: open pipe %q: %w", name, ac.URL, err)
			}
			b := ipcbridge.New(ipcbridge.Config{Name: name, Level: level}, f, componentLogger, s.Metrics(), put)
			go func() {
				if err := b.Run(ctx); err != nil && ctx.Err() == nil {
					componentLogger.Error("ipcbridge adapter stopped", map[string]any{"error": err.Error()})
				}
			}()
			closers = append(closers, b)

		default:
			return closers, fmt.Errorf("adapter %q: unknown type %q", name, ac.Type)
		}
	}

	return closers, nil
}

func writeSnapshot(s *store.Store, logger *log.Logger, path string) error {
	sn := snapshot.New(logger, s.Metrics())
	data, err := sn.Snapshot(s)
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %q: %w", path, err)
	}
	logger.Info("snapshot written", map[string]any{"path": path, "bytes": len(data)})
	return nil
}
