package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sells-group/scorecard/internal/model"
	"github.com/sells-group/scorecard/internal/rollup"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the rolled-up scorecard",
	Long:  "Loads the hierarchy, runs a full rollup, and prints every node with its progress percent and red/amber/green band.",
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

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		formatStatusTable(os.Stdout, results)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the raw result trees as JSON")
	rootCmd.AddCommand(statusCmd)
}

// formatStatusTable renders the annotated forest as an indented table, one
// row per node, parents before children.
func formatStatusTable(out io.Writer, results []*rollup.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Level", "Name", "Progress", "Status"})

	var walk func(r *rollup.Result, depth int)
	walk = func(r *rollup.Result, depth int) {
		tw.AppendRow(table.Row{
			r.Level.Label(),
			strings.Repeat("  ", depth) + r.Name,
			formatProgress(r),
			string(r.Status),
		})
		for _, c := range r.Children {
			walk(c, depth+1)
		}
	}
	for _, r := range results {
		walk(r, 0)
	}

	tw.Render()
}

// formatProgress renders a whole display percent, or a dash when no
// measurement reached the node.
func formatProgress(r *rollup.Result) string {
	if !r.HasData {
		return "-"
	}
	return fmt.Sprintf("%d%%", int(math.Round(r.Progress)))
}

// statusSummary tallies how many nodes of each level sit in each band.
func statusSummary(results []*rollup.Result) map[model.Level]map[rollup.Status]int {
	summary := make(map[model.Level]map[rollup.Status]int)
	rollup.Walk(results, func(r *rollup.Result) {
		if summary[r.Level] == nil {
			summary[r.Level] = make(map[rollup.Status]int)
		}
		summary[r.Level][r.Status]++
	})
	return summary
}
