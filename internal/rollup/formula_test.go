package rollup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFormulaType(t *testing.T) {
	tests := []struct {
		name    string
		formula *string
		want    FormulaType
	}{
		{"nil", nil, FormulaAVG},
		{"empty", ptrString(""), FormulaAVG},
		{"whitespace only", ptrString("   "), FormulaAVG},
		{"plain avg", ptrString("AVG"), FormulaAVG},
		{"unrecognized", ptrString("banana"), FormulaAVG},
		{"sum", ptrString("SUM"), FormulaSUM},
		{"sum lowercase", ptrString("sum"), FormulaSUM},
		{"sum in sentence", ptrString("SUM of KPIs"), FormulaSUM},
		{"min", ptrString("MIN"), FormulaMIN},
		{"minimum", ptrString("minimum of children"), FormulaMIN},
		{"max", ptrString("Max of children"), FormulaMAX},
		{"weighted underscore", ptrString("WEIGHTED_AVG"), FormulaWeightedAVG},
		{"weighted space", ptrString("weighted avg"), FormulaWeightedAVG},
		{"weighted in sentence", ptrString("Weighted Avg by target"), FormulaWeightedAVG},
		{"weighted beats sum", ptrString("weighted_avg of sums"), FormulaWeightedAVG},
		{"sum beats min", ptrString("sum to minimum"), FormulaSUM},
		{"padded", ptrString("  sum  "), FormulaSUM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFormulaType(tt.formula))
		})
	}
}
