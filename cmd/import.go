package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/workbook"
)

var (
	importFilePath string
	importSheet    string
	importSkipRows int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import hierarchy rows from an xlsx workbook",
	Long:  "Reads one row per node (Level, Name, Parent, Formula, Current, Target), resolves parents by exact then fuzzy name match, and merges rows onto existing nodes by level and name. Rows with a fill color listed in import.skip_colors are ignored.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		opts := workbook.ImportOptions{
			Sheet:          cfg.Import.Sheet,
			SkipRows:       cfg.Import.SkipRows,
			SkipColors:     cfg.Import.SkipColors,
			MatchThreshold: cfg.Import.MatchThreshold,
		}
		if cmd.Flags().Changed("sheet") {
			opts.Sheet = importSheet
		}
		if cmd.Flags().Changed("skip-rows") {
			opts.SkipRows = importSkipRows
		}

		stats, err := workbook.NewImporter(st, opts).Import(ctx, importFilePath)
		if err != nil {
			return err
		}

		for _, u := range stats.Unresolved {
			fmt.Fprintln(os.Stderr, "skipped: "+u)
		}

		zap.L().Info("import complete",
			zap.String("file", importFilePath),
			zap.Int("rows", stats.Rows),
			zap.Int("created", stats.Created),
			zap.Int("updated", stats.Updated),
			zap.Int("unresolved", len(stats.Unresolved)),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to xlsx workbook (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name (default first sheet)")
	importCmd.Flags().IntVar(&importSkipRows, "skip-rows", 0, "header rows to skip (default from config)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
