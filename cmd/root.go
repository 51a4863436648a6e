package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scorecard",
	Short: "Hierarchical progress rollup for business scorecards",
	Long:  "Aggregates indicator measurements up a six-level hierarchy (indicator, key result, functional objective, department, org objective, business outcome), classifies every node into a red/amber/green band, and serves the annotated tree over CLI, xlsx, and a JSON API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
