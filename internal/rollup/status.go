package rollup

// Status is the traffic-light classification attached to every node after a
// rollup.
type Status string

const (
	StatusGreen  Status = "green"
	StatusAmber  Status = "amber"
	StatusRed    Status = "red"
	StatusNotSet Status = "not-set"
)

// Thresholds carries the classification band boundaries as an explicit value
// so the engine holds no package-level state. Green and Amber are the lower
// bounds of their bands in percent.
type Thresholds struct {
	Green float64 `json:"green" mapstructure:"green"`
	Amber float64 `json:"amber" mapstructure:"amber"`
}

// DefaultThresholds returns the system-wide bands: green from 76%, amber
// from 51%.
func DefaultThresholds() Thresholds {
	return Thresholds{Green: 76, Amber: 51}
}

// Classify maps a progress percentage onto a status band. hasData false is
// always not-set. With data present: progress >= Green is green, >= Amber is
// amber, anything above zero is red. Exactly zero classifies as not-set even
// with data present; work that has not started reads as unmeasured, not
// failing.
func (t Thresholds) Classify(progress float64, hasData bool) Status {
	if !hasData {
		return StatusNotSet
	}
	switch {
	case progress >= t.Green:
		return StatusGreen
	case progress >= t.Amber:
		return StatusAmber
	case progress > 0:
		return StatusRed
	default:
		return StatusNotSet
	}
}
