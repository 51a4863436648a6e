package rollup

import "strings"

// FormulaType identifies one of the five aggregation strategies a node can
// select through its free-text formula field.
type FormulaType string

const (
	FormulaAVG         FormulaType = "AVG"
	FormulaSUM         FormulaType = "SUM"
	FormulaWeightedAVG FormulaType = "WEIGHTED_AVG"
	FormulaMIN         FormulaType = "MIN"
	FormulaMAX         FormulaType = "MAX"
)

// ParseFormulaType extracts the aggregation strategy from a node's formula
// field. The field is free text, so matching is a case-insensitive substring
// scan: "SUM of completed audits" resolves to SUM. WEIGHTED_AVG (with either
// an underscore or a space) is checked before the others so it is never
// misread as a plain average. nil, empty, or unrecognized text resolves to
// AVG; a malformed formula degrades to the default instead of failing.
func ParseFormulaType(formula *string) FormulaType {
	if formula == nil {
		return FormulaAVG
	}
	f := strings.ToUpper(strings.TrimSpace(*formula))
	switch {
	case strings.Contains(f, "WEIGHTED_AVG"), strings.Contains(f, "WEIGHTED AVG"):
		return FormulaWeightedAVG
	case strings.Contains(f, "SUM"):
		return FormulaSUM
	case strings.Contains(f, "MIN"):
		return FormulaMIN
	case strings.Contains(f, "MAX"):
		return FormulaMAX
	default:
		return FormulaAVG
	}
}
