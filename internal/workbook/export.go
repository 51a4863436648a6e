package workbook

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/model"
	"github.com/sells-group/scorecard/internal/rollup"
)

// statusFills maps each status band to its ARGB fill.
var statusFills = map[rollup.Status]string{
	rollup.StatusGreen:  "FF92D050",
	rollup.StatusAmber:  "FFFFC000",
	rollup.StatusRed:    "FFFF5050",
	rollup.StatusNotSet: "FFD9D9D9",
}

// ExportOptions configures a workbook export.
type ExportOptions struct {
	Sheet string // sheet name; "Scorecard" when empty
}

// Export writes the annotated forest to a workbook, one row per node in
// depth-first order. Progress is rounded to whole percents for display; the
// status cell carries its band's fill color.
func Export(path string, roots []*model.Node, results []*rollup.Result, opts ExportOptions) error {
	if len(roots) != len(results) {
		return eris.New("workbook: forest and results out of step")
	}
	name := opts.Sheet
	if name == "" {
		name = "Scorecard"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "workbook: add sheet %s", name)
	}

	header := sheet.AddRow()
	for _, h := range []string{"Level", "Name", "Parent", "Formula", "Current", "Target", "Progress", "Status"} {
		header.AddCell().SetString(h)
	}

	rows := 0
	for i := range roots {
		n, err := writeNode(sheet, roots[i], results[i], "")
		if err != nil {
			return err
		}
		rows += n
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "workbook: save %s", path)
	}

	zap.L().Info("workbook: exported scorecard",
		zap.String("path", path), zap.Int("rows", rows))
	return nil
}

func writeNode(sheet *xlsx.Sheet, n *model.Node, res *rollup.Result, parentName string) (int, error) {
	if len(n.Children) != len(res.Children) {
		return 0, eris.Errorf("workbook: node %s out of step with its result", n.ID)
	}

	row := sheet.AddRow()
	row.AddCell().SetString(n.Level.Label())
	row.AddCell().SetString(n.Name)
	row.AddCell().SetString(parentName)

	formulaCell := row.AddCell()
	if n.Formula != nil {
		formulaCell.SetString(*n.Formula)
	}
	writeOptionalFloat(row.AddCell(), n.CurrentValue)
	writeOptionalFloat(row.AddCell(), n.TargetValue)

	progressCell := row.AddCell()
	if res.HasData {
		progressCell.SetFloat(math.Round(res.Progress))
	}

	statusCell := row.AddCell()
	statusCell.SetString(string(res.Status))
	style := xlsx.NewStyle()
	style.Fill = *xlsx.NewFill("solid", statusFills[res.Status], statusFills[res.Status])
	style.ApplyFill = true
	statusCell.SetStyle(style)

	written := 1
	for i := range n.Children {
		childRows, err := writeNode(sheet, n.Children[i], res.Children[i], n.Name)
		if err != nil {
			return written, err
		}
		written += childRows
	}
	return written, nil
}

func writeOptionalFloat(cell *xlsx.Cell, v *float64) {
	if v != nil {
		cell.SetFloat(*v)
	}
}
