package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/detox/internal/config"
	"github.com/runnerr0/detox/internal/host"
	"github.com/runnerr0/detox/internal/logging"
	"github.com/runnerr0/detox/internal/storage"
	"github.com/runnerr0/detox/internal/tracker"
)

// browserLaunchArgs maps the arguments a browser passes when it starts a
// native messaging host onto the run command.
func browserLaunchArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	first := args[0]
	if strings.HasPrefix(first, "chrome-extension://") || strings.HasSuffix(first, ".json") {
		return []string{"run"}
	}
	return args
}

// Execute implements the go-flags Commander interface for RunCommand.
func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.MetricsAddr != "" {
		cfg.Metrics.Address = c.MetricsAddr
	}

	var stderr io.Writer
	if c.globals != nil && c.globals.Verbose {
		stderr = os.Stderr
	}
	logger, err := logging.New(cfg, stderr)
	if err != nil {
		return err
	}
	defer logger.Close()

	store, db, err := openStore(cfg)
	if err != nil {
		logger.Error(context.Background(), "open store", slog.Error(err))
		return err
	}
	defer db.Close()
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.serve(ctx, cfg, logger.Logger, store, os.Stdin, os.Stdout, quartz.NewReal())
}

// serve runs the host on in/out until the browser disconnects or ctx ends.
func (c *RunCommand) serve(ctx context.Context, cfg *config.Config, logger slog.Logger, store storage.Store, in io.ReadCloser, out io.Writer, clock quartz.Clock) error {
	loc, err := cfg.Tracking.Location()
	if err != nil {
		return err
	}
	if seeded, err := storage.Seed(ctx, store, cfg.Tracking.SeedDomains); err != nil {
		return err
	} else if seeded {
		logger.Info(ctx, "seeded default sites", slog.F("count", len(cfg.Tracking.SeedDomains)))
	}

	registry := prometheus.NewRegistry()
	metrics := tracker.NewMetrics(registry)

	h := host.New(in, out, logger)
	engine := tracker.NewEngine(tracker.Options{
		Sites:     store,
		KV:        store,
		Messenger: h,
		Clock:     clock,
		Location:  loc,
		Logger:    logger,
		Metrics:   metrics,
	})
	heartbeat := tracker.NewHeartbeat(clock, cfg.Tracking.Heartbeat(), func(ctx context.Context) {
		engine.Accrue(ctx, tracker.ReasonHeartbeat)
	})
	coalescer := tracker.NewCoalescer(engine, h.Tabs(), heartbeat, tracker.NewDebouncer(clock, cfg.Tracking.Debounce()), logger)

	logger.Info(ctx, "detox host starting",
		slog.F("version", c.version),
		slog.F("heartbeat", cfg.Tracking.Heartbeat()),
		slog.F("debounce", cfg.Tracking.Debounce()),
		slog.F("timezone", loc.String()),
		slog.F("metrics_addr", cfg.Metrics.Address),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, egCtx := errgroup.WithContext(runCtx)

	eg.Go(func() error {
		defer cancel()
		return h.Run(egCtx, coalescer)
	})
	eg.Go(func() error {
		watchSites(egCtx, store, logger)
		return nil
	})
	if cfg.Metrics.Address != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           metricsHandler(registry),
			ReadHeaderTimeout: 10 * time.Second,
		}
		eg.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve metrics: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(egCtx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = eg.Wait()
	totals := engine.Totals()
	logger.Info(ctx, "detox host stopped", slog.F("domains_seen", len(totals)), slog.Error(err))
	return err
}

// metricsHandler serves the registry in the Prometheus exposition format.
func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

// watchSites logs block state changes from the store's change feed until
// ctx is done.
func watchSites(ctx context.Context, store storage.Store, logger slog.Logger) {
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	blocked := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case sites, ok := <-updates:
			if !ok {
				return
			}
			for _, s := range sites {
				if was, seen := blocked[s.ID]; seen && was != s.IsBlocked {
					logger.Info(ctx, "site block state changed", slog.F("domain", s.Domain), slog.F("blocked", s.IsBlocked))
				}
				blocked[s.ID] = s.IsBlocked
			}
		}
	}
}
