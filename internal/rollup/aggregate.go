package rollup

import "math"

// Aggregate folds child progress values into one parent progress value using
// the given formula. weights pairs index-wise with values and applies to
// WEIGHTED_AVG only; when weights is nil, length-mismatched, or sums to zero
// the weighted average falls back to a plain AVG over all values rather than
// dividing by zero or dropping elements. An empty values slice returns 0.
func Aggregate(values []float64, formula FormulaType, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	switch formula {
	case FormulaSUM:
		return sum(values)
	case FormulaMIN:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Min(m, v)
		}
		return m
	case FormulaMAX:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Max(m, v)
		}
		return m
	case FormulaWeightedAVG:
		if len(weights) != len(values) {
			break
		}
		var weighted, total float64
		for i, v := range values {
			weighted += v * weights[i]
			total += weights[i]
		}
		if total == 0 {
			break
		}
		return weighted / total
	}

	// AVG, plus the WEIGHTED_AVG fallback paths.
	return sum(values) / float64(len(values))
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
