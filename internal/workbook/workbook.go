// Package workbook reads hierarchy rows from xlsx sheets and writes annotated
// scorecards back out.
//
// Sheet layout, one row per node:
//
//	Level | Name | Parent | Formula | Current | Target
//
// Export appends Progress | Status, so an exported file stays importable.
package workbook

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/model"
)

const (
	colLevel = iota
	colName
	colParent
	colFormula
	colCurrent
	colTarget
	colProgress
	colStatus
)

// Row is one parsed workbook line.
type Row struct {
	Line    int
	Level   model.Level
	Name    string
	Parent  string
	Formula *string
	Current *float64
	Target  *float64
}

// ReadOptions configures the workbook reader.
type ReadOptions struct {
	Sheet      string   // sheet name; first sheet when empty
	SkipRows   int      // header rows to skip
	SkipColors []string // ARGB fill colors marking rows to ignore
}

// Read parses hierarchy rows from a workbook. Rows with a skip-listed fill
// color, a blank name, or an unknown level are dropped with a warning rather
// than failing the whole file.
func Read(path string, opts ReadOptions) ([]Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "workbook: open file")
	}
	sheet, err := getSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(opts.SkipColors))
	for _, c := range opts.SkipColors {
		skip[normalizeColor(c)] = true
	}

	log := zap.L()
	var rows []Row
	for i, r := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		line := i + 1

		cells := rowToStrings(r)
		if blankRow(cells) {
			continue
		}
		if color := rowColor(r); skip[color] {
			log.Debug("workbook: skipped colored row",
				zap.Int("line", line), zap.String("color", color))
			continue
		}

		levelText := cellAt(cells, colLevel)
		level, ok := model.ParseLevel(levelText)
		if !ok {
			log.Warn("workbook: skipped row with unknown level",
				zap.Int("line", line), zap.String("level", levelText))
			continue
		}
		name := strings.TrimSpace(cellAt(cells, colName))
		if name == "" {
			log.Warn("workbook: skipped row without name", zap.Int("line", line))
			continue
		}

		row := Row{
			Line:   line,
			Level:  level,
			Name:   name,
			Parent: strings.TrimSpace(cellAt(cells, colParent)),
		}
		if formula := strings.TrimSpace(cellAt(cells, colFormula)); formula != "" {
			row.Formula = &formula
		}
		row.Current = parseNumber(cells, colCurrent, line, "current")
		row.Target = parseNumber(cells, colTarget, line, "target")
		rows = append(rows, row)
	}

	return rows, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("workbook: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("workbook: file has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// rowColor returns the first explicit solid fill in the row; default styles
// carry a fill color too, so the pattern type is what distinguishes a marked
// row.
func rowColor(r *xlsx.Row) string {
	for _, c := range r.Cells {
		style := c.GetStyle()
		if style.Fill.PatternType != "solid" {
			continue
		}
		if color := normalizeColor(style.Fill.FgColor); color != "" {
			return color
		}
	}
	return ""
}

// normalizeColor uppercases an ARGB color and pads a bare RGB value with an
// opaque alpha so "bfbfbf" and "FFBFBFBF" compare equal.
func normalizeColor(c string) string {
	c = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(c), "#"))
	if len(c) == 6 {
		c = "FF" + c
	}
	return c
}

func cellAt(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseNumber(cells []string, idx, line int, field string) *float64 {
	s := strings.TrimSpace(cellAt(cells, idx))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		zap.L().Warn("workbook: unparseable number treated as empty",
			zap.Int("line", line), zap.String("field", field), zap.String("value", s))
		return nil
	}
	return &v
}
