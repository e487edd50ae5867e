package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"ticket-queue-monitor/config"
	"ticket-queue-monitor/internal/api"
	"ticket-queue-monitor/internal/board"
	"ticket-queue-monitor/internal/db"
	"ticket-queue-monitor/internal/health"
	"ticket-queue-monitor/internal/metrics"
	"ticket-queue-monitor/internal/notification"
	"ticket-queue-monitor/internal/refresh"
	"ticket-queue-monitor/internal/remote"
	"ticket-queue-monitor/internal/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var autoRefresh bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board, the health monitor and the status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if cmd.Flags().Changed("auto-refresh") {
				cfg.Refresh.Enabled = autoRefresh
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts, cfg)
		},
	}
	cmd.Flags().BoolVar(&autoRefresh, "auto-refresh", false, "Start with auto-refresh enabled")
	return cmd
}

func serve(ctx context.Context, opts *rootOptions, cfg *config.Config) error {
	logger := opts.logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client, resolver := opts.newClient(ctx, cfg)

	boardOpts := []board.Option{
		board.WithLogger(logger),
		board.WithMetrics(m),
		board.WithRefreshOptions(
			refresh.WithInterval(cfg.Refresh.Interval),
			refresh.WithMaxParallel(cfg.Refresh.MaxParallel),
		),
	}

	var appStore store.Store
	var webpushOptions *webpush.Options
	if cfg.Database.DSN != "" {
		gormDB, err := db.Init(&cfg.Database)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		logger.Println("database initialized successfully")
		appStore = store.NewGormStore(gormDB)
		boardOpts = append(boardOpts, board.WithRecorder(appStore))

		if cfg.Push.Enabled() {
			webpushOptions = &webpush.Options{
				VAPIDPublicKey:  cfg.Push.PublicKey,
				VAPIDPrivateKey: cfg.Push.PrivateKey,
				Subscriber:      cfg.Push.Subject,
				TTL:             cfg.Push.TTL,
			}
			pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger)
			pool.OnSent(m.ObserveNotification)
			pool.Start(ctx)
			boardOpts = append(boardOpts, board.WithNotifier(pool))
		} else {
			logger.Println("VAPID keys not configured; push notifications disabled")
		}
	}

	b := board.New(client, boardOpts...)
	resolver.OnBaseAddressChanged(b.OnBaseAddressChanged)
	b.Start(ctx, cfg.Refresh.Enabled)

	statuses := make([]string, len(health.Statuses))
	for i, s := range health.Statuses {
		statuses[i] = string(s)
	}
	monitor := health.NewMonitor(client,
		health.WithLogger(logger),
		health.WithInterval(cfg.Health.Interval),
		health.WithObserver(func(r health.Report) {
			m.ObserveHealth(string(r.Status), statuses, r.ResponseTime)
			followResolver(ctx, resolver)(r)
		}),
	)
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	handler := api.NewHandler(ctx, b, monitor, appStore, webpushOptions)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		Gatherer:        reg,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
	case <-ctx.Done():
		logger.Println("Shutdown signal received, stopping services...")
	}

	b.Coordinator().Disable()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	logger.Println("Server gracefully stopped")
	return nil
}

// followResolver re-resolves the service address whenever a probe finds the
// current one offline. A changed address reaches the board through the
// resolver's listeners.
func followResolver(ctx context.Context, resolver *remote.Resolver) func(health.Report) {
	return func(r health.Report) {
		if r.Status == health.Offline {
			resolver.Resolve(ctx)
		}
	}
}
