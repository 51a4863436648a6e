package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/workbook"
)

var (
	exportOutPath string
	exportSheet   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the annotated scorecard to an xlsx workbook",
	Long:  "Writes one row per node with its rolled-up progress and status, coloring the status cell with the band's fill. The file keeps the import column layout, so it can be re-imported.",
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

		roots, err := loadForest(ctx, st)
		if err != nil {
			return err
		}
		if len(roots) == 0 {
			fmt.Fprintln(os.Stderr, "No nodes found. Run 'scorecard seed' or 'scorecard import' first.")
			return nil
		}

		results := computeForest(ctx, roots)

		if err := workbook.Export(exportOutPath, roots, results, workbook.ExportOptions{Sheet: exportSheet}); err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("file", exportOutPath))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutPath, "out", "", "output xlsx path (required)")
	exportCmd.Flags().StringVar(&exportSheet, "sheet", "", "sheet name (default Scorecard)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
