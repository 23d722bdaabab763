// Package cli implements the arquitectura command line.
package cli

import (
	"arquitectura/internal/config"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Debug      bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "arquitectura",
		Short: "Arquitectura - gestión de obras",
		Long: `Backend for a construction and architecture firm: clients, projects,
orders, suppliers, workers and materials over a document store.

Settings come from an optional YAML file (--config) and ARQUITECTURA_*
environment variables, the latter taking precedence.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML configuration file")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "development logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewPingCommand(opts))

	return cmd
}

func (o *RootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Debug {
		cfg.Debug = true
	}
	return cfg, nil
}
