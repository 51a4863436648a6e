package model

import (
	"strings"
	"time"
)

// Level identifies a node's position in the scorecard hierarchy, from the
// business outcome at the top down to leaf indicators.
type Level string

const (
	LevelBusinessOutcome     Level = "business_outcome"
	LevelOrgObjective        Level = "org_objective"
	LevelDepartment          Level = "department"
	LevelFunctionalObjective Level = "functional_objective"
	LevelKeyResult           Level = "key_result"
	LevelIndicator           Level = "indicator"
)

// levelOrder lists levels top-down. Depth and parent/child checks derive
// from the position in this slice.
var levelOrder = []Level{
	LevelBusinessOutcome,
	LevelOrgObjective,
	LevelDepartment,
	LevelFunctionalObjective,
	LevelKeyResult,
	LevelIndicator,
}

// levelAliases maps spreadsheet- and user-friendly spellings onto levels.
var levelAliases = map[string]Level{
	"business_outcome":     LevelBusinessOutcome,
	"outcome":              LevelBusinessOutcome,
	"bo":                   LevelBusinessOutcome,
	"org_objective":        LevelOrgObjective,
	"organization_objective": LevelOrgObjective,
	"oo":                   LevelOrgObjective,
	"department":           LevelDepartment,
	"dept":                 LevelDepartment,
	"functional_objective": LevelFunctionalObjective,
	"fo":                   LevelFunctionalObjective,
	"key_result":           LevelKeyResult,
	"kr":                   LevelKeyResult,
	"indicator":            LevelIndicator,
	"kpi":                  LevelIndicator,
}

// ParseLevel resolves a free-form level label ("Key Result", "kpi", "DEPT")
// to its Level. The bool reports whether the label was recognized.
func ParseLevel(s string) (Level, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	lvl, ok := levelAliases[key]
	return lvl, ok
}

// Valid reports whether l is one of the six hierarchy levels.
func (l Level) Valid() bool {
	for _, known := range levelOrder {
		if l == known {
			return true
		}
	}
	return false
}

// Depth returns the zero-based depth of the level, business outcome = 0,
// indicator = 5. Unknown levels return -1.
func (l Level) Depth() int {
	for i, known := range levelOrder {
		if l == known {
			return i
		}
	}
	return -1
}

// ChildLevel returns the level expected directly beneath l. Indicators have
// no children; the bool is false for them and for unknown levels.
func (l Level) ChildLevel() (Level, bool) {
	d := l.Depth()
	if d < 0 || d >= len(levelOrder)-1 {
		return "", false
	}
	return levelOrder[d+1], true
}

// Label returns the human-readable form used in tables and workbooks.
func (l Level) Label() string {
	switch l {
	case LevelBusinessOutcome:
		return "Business Outcome"
	case LevelOrgObjective:
		return "Org Objective"
	case LevelDepartment:
		return "Department"
	case LevelFunctionalObjective:
		return "Functional Objective"
	case LevelKeyResult:
		return "Key Result"
	case LevelIndicator:
		return "Indicator"
	default:
		return string(l)
	}
}

// Levels returns all hierarchy levels top-down.
func Levels() []Level {
	out := make([]Level, len(levelOrder))
	copy(out, levelOrder)
	return out
}

// MaxDepth is the fixed depth of the hierarchy (indicator level).
const MaxDepth = 5

// Node is one hierarchy row as the store hands it out: a generic record with
// a level tag rather than one struct per level. For indicators CurrentValue
// and TargetValue are the raw measurement; for aggregation nodes they are the
// fallback pair used only when no descendant has reported data. Children is
// populated by the hierarchy builder, never by the store.
type Node struct {
	ID           string     `json:"id"`
	ParentID     *string    `json:"parent_id,omitempty"`
	Level        Level      `json:"level"`
	Name         string     `json:"name"`
	Formula      *string    `json:"formula,omitempty"`
	CurrentValue *float64   `json:"current_value,omitempty"`
	TargetValue  *float64   `json:"target_value,omitempty"`
	SortOrder    int        `json:"sort_order"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Children []*Node `json:"children,omitempty"`
}

// HasMeasurement reports whether the node's own (current, target) pair
// defines a progress value: both present and target strictly positive.
// Indicators without a measurement contribute no data point to their parent;
// aggregation nodes without one have no fallback.
func (n *Node) HasMeasurement() bool {
	return n.CurrentValue != nil && n.TargetValue != nil && *n.TargetValue > 0
}
