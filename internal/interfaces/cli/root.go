// Package cli defines the nodenorm command tree: serve, load, and
// convert-kgx.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nodenorm",
		Short: "Biomedical identifier normalization service",
		Long: "nodenorm resolves compact identifiers (CURIEs) to their canonical " +
			"equivalence cliques, serves TRAPI message normalization, and loads " +
			"compendium files into the backing stores.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "",
		"path to the configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "",
		"override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))
	cmd.AddCommand(newConvertKGXCommand(opts))

	return cmd
}

// setup loads configuration and builds the logger shared by the subcommands.
func (o *RootOptions) setup() (*config.Config, logging.Logger, error) {
	var cfg *config.Config
	var err error
	if o.ConfigPath != "" {
		cfg, err = config.Load(o.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, nil, err
	}
	if cfg.Version == "dev" && Version != "dev" {
		cfg.Version = Version
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
