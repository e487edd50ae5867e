package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"

	"ticket-queue-monitor/config"
	"ticket-queue-monitor/internal/remote"
)

type rootOptions struct {
	configPath string
	baseURL    string
	logger     *log.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "queuemon",
		Short: "Monitor and drive a ticket queue service",
		Long: `queuemon keeps a live view of a ticket queue service.

"queuemon serve" runs the board with auto-refresh, the health monitor and the
status API. The other commands run a single action against the service and
print the result as JSON.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = log.New(cmd.ErrOrStderr(), "queuemon ", log.LstdFlags)
		},
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml"
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultPath, "Path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "Queue service address; overrides the configuration")

	cmd.AddCommand(newServeCmd(opts))
	for _, c := range newActionCmds(opts) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(newStatsCmd(opts), newBoardCmd(opts), newHealthCmd(opts))
	return cmd
}

// loadConfig reads the configuration file, falling back to defaults when
// the file does not exist.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		o.logger.Printf("no configuration at %s; using defaults", o.configPath)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		cfg.Remote.BaseURL = o.baseURL
	}
	return cfg, nil
}

// newClient builds the remote client and points it at the resolved address.
func (o *rootOptions) newClient(ctx context.Context, cfg *config.Config) (*remote.Client, *remote.Resolver) {
	resolver := remote.NewResolver(remote.ResolverConfig{
		ExplicitURL:   cfg.Remote.BaseURL,
		LocalURL:      cfg.Remote.LocalURL,
		ProductionURL: cfg.Remote.ProductionURL,
		HealthPath:    cfg.Remote.PathPrefix + "/health",
		ProbeTimeout:  cfg.Remote.ProbeTimeout(),
		ProbeCacheTTL: cfg.Remote.ProbeCacheTTL(),
	}, o.logger)
	base, local := resolver.Resolve(ctx)
	o.logger.Printf("queue service at %s (local=%t)", base, local)

	clientOpts := []remote.Option{
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithPathPrefix(cfg.Remote.PathPrefix),
		remote.WithProxy(cfg.Remote.HTTPProxy),
	}
	if cfg.Remote.RateLimitPerSec > 0 {
		clientOpts = append(clientOpts, remote.WithRateLimit(cfg.Remote.RateLimitPerSec, cfg.Remote.RateLimitBurst))
	}
	return remote.NewClient(base, clientOpts...), resolver
}
