package rollup

// CalculateProgress converts a raw (current, target) measurement pair into a
// progress percentage. Pairs with a missing value or a non-positive target
// have no defined progress and return 0; callers that need to tell "no data"
// apart from a true zero check Node.HasMeasurement. The result is neither
// capped nor rounded, so SUM-style aggregation above it keeps full precision;
// rounding to a whole percent happens only at presentation.
func CalculateProgress(current, target *float64) float64 {
	if current == nil || target == nil || *target <= 0 {
		return 0
	}
	return (*current / *target) * 100
}
