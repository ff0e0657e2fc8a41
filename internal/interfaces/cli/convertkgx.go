package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/biograph-io/nodenorm/internal/biolink"
	"github.com/biograph-io/nodenorm/internal/ingest"
)

func newConvertKGXCommand(opts *RootOptions) *cobra.Command {
	var outPrefix string

	cmd := &cobra.Command{
		Use:   "convert-kgx",
		Short: "Export the configured compendia as KGX node and edge files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}

			schema, err := ingest.LoadSchema(cfg.Ingest.SchemaFile)
			if err != nil {
				return err
			}

			compendia := make([]string, 0, len(cfg.Ingest.DataFiles))
			for _, name := range cfg.Ingest.DataFiles {
				compendia = append(compendia, filepath.Join(cfg.Ingest.CompendiumDirectory, name))
			}

			// The converter never touches the stores; it only needs the
			// schema and the files.
			loader := ingest.NewLoader(nil, biolink.Default(), schema, logger)
			return loader.ConvertToKGX(compendia,
				filepath.Join(cfg.Ingest.CompendiumDirectory, outPrefix+"_nodes.jsonl"),
				filepath.Join(cfg.Ingest.CompendiumDirectory, outPrefix+"_edges.jsonl"))
		},
	}

	cmd.Flags().StringVarP(&outPrefix, "output-prefix", "o", "kgx",
		"prefix of the generated node and edge files")
	return cmd
}
