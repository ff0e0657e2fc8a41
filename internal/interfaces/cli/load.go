package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/biograph-io/nodenorm/internal/biolink"
	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/database/redis"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/internal/infrastructure/storage/minio"
	"github.com/biograph-io/nodenorm/internal/ingest"
)

func newLoadCommand(opts *RootOptions) *cobra.Command {
	var dataFiles []string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load compendium and conflation files into the stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			if len(dataFiles) > 0 {
				cfg.Ingest.DataFiles = dataFiles
			}
			return runLoad(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringSliceVarP(&dataFiles, "compendium-file", "f", nil,
		"compendium file names to load (default: the configured set)")
	return cmd
}

func runLoad(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	if cfg.Ingest.Object.Endpoint != "" {
		fetcher, err := minio.NewFetcher(cfg.Ingest.Object, logger)
		if err != nil {
			return err
		}
		if err := fetcher.Fetch(ctx, cfg.Ingest.DataFiles, cfg.Ingest.CompendiumDirectory); err != nil {
			return err
		}
		conflationFiles := make([]string, 0, len(cfg.Ingest.Conflations))
		for _, src := range cfg.Ingest.Conflations {
			conflationFiles = append(conflationFiles, src.File)
		}
		if err := fetcher.Fetch(ctx, conflationFiles, cfg.Ingest.ConflationDirectory); err != nil {
			return err
		}
	}

	topo, err := config.LoadStoreTopology(cfg.Stores.ConfigFile)
	if err != nil {
		return err
	}
	store, err := redis.Connect(topo, cfg.Stores, logger.Named("redis"))
	if err != nil {
		return err
	}
	defer store.Close()

	schema, err := ingest.LoadSchema(cfg.Ingest.SchemaFile)
	if err != nil {
		return err
	}

	loader := ingest.NewLoader(ingest.NewStores(store), biolink.Default(), schema, logger)
	return loader.Run(ctx, cfg.Ingest)
}
