package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ddigate/internal/app"
	"ddigate/internal/infra/telemetry"
)

type rootOptions struct {
	configPath string
}

func main() {
	opts := &rootOptions{}
	root := newRootCmd(opts)
	if err := root.Execute(); err != nil {
		// Bootstrap failures (missing credential, port bind) exit non-zero.
		os.Exit(1)
	}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "ddigate",
		Short:         "Tool gateway exposing Universal DDI network management over MCP",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional path to a YAML config file; environment wins")

	root.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Load(opts.configPath)
			if err != nil {
				return err
			}

			logger, err := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			if err := app.New(logger).Serve(ctx, cfg); err != nil {
				logger.Error("gateway exited with error", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration without starting listeners",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Load(opts.configPath)
			if err != nil {
				return err
			}
			logger, err := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return app.New(logger).ValidateConfig(cfg)
		},
	}
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
