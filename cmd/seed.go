package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/hierarchy"
)

var seedFilePath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a hierarchy from a YAML seed file",
	Long:  "Reads a nested YAML document of business outcomes and upserts every node it describes. Seeds that carry explicit ids can be re-applied after edits.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		nodes, err := hierarchy.LoadSeed(seedFilePath)
		if err != nil {
			return err
		}

		count, err := st.BulkCreateNodes(ctx, nodes)
		if err != nil {
			return eris.Wrap(err, "seed nodes")
		}

		zap.L().Info("seed complete",
			zap.String("file", seedFilePath),
			zap.Int("nodes", len(nodes)),
			zap.Int64("written", count),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFilePath, "file", "", "path to YAML seed file (required)")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}
