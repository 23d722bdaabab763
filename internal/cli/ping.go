package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check the configured document store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Debug, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			rt, err := openRuntime(ctx, cfg, logger, prometheus.NewRegistry(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()
			if err := rt.service.Ping(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "almacenamiento %s disponible\n", cfg.Storage.Driver)
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "overall deadline")

	return cmd
}
