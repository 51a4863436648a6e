package rollup

import (
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/model"
)

// Result is the computed annotation for one node: unrounded progress, status
// band, and whether any measurement reached the node. Children mirror the
// input tree's order. Results are built fresh on every Compute call and the
// input nodes are never written to, so repeated rollups of an unchanged tree
// are deep-equal.
type Result struct {
	NodeID   string      `json:"node_id"`
	Level    model.Level `json:"level"`
	Name     string      `json:"name"`
	Progress float64     `json:"progress"`
	Status   Status      `json:"status"`
	HasData  bool        `json:"has_data"`
	Children []*Result   `json:"children,omitempty"`
}

// Policy resolves the effective aggregation formula for a node, so the
// per-level formula rules live in one visible place instead of inside the
// traversal.
type Policy func(n *model.Node) FormulaType

// DefaultPolicy honors the node's own formula field at the key result and
// functional objective levels and aggregates with plain AVG everywhere above
// (department, org objective, business outcome), whatever those nodes'
// formula fields say.
func DefaultPolicy(n *model.Node) FormulaType {
	switch n.Level {
	case model.LevelKeyResult, model.LevelFunctionalObjective:
		return ParseFormulaType(n.Formula)
	default:
		return FormulaAVG
	}
}

// Options configures one Compute invocation. The zero value selects
// DefaultThresholds and DefaultPolicy.
type Options struct {
	Thresholds Thresholds
	Policy     Policy
}

func (o Options) withDefaults() Options {
	if o.Thresholds == (Thresholds{}) {
		o.Thresholds = DefaultThresholds()
	}
	if o.Policy == nil {
		o.Policy = DefaultPolicy
	}
	return o
}

// Compute runs a full bottom-up rollup over the given roots and returns one
// Result tree per root. Roots are nodes with Children already assembled; the
// forest is assumed acyclic with depth bounded by the six fixed levels, which
// the hierarchy builder guarantees. Compute never fails: missing data
// surfaces as not-set results, not as errors.
func Compute(roots []*model.Node, opts Options) []*Result {
	opts = opts.withDefaults()

	results := make([]*Result, 0, len(roots))
	for _, root := range roots {
		results = append(results, computeNode(root, opts, 0))
	}

	zap.L().Debug("rollup: computed forest", zap.Int("roots", len(results)))
	return results
}

// computeNode evaluates one node after its children, post-order. Children
// without data contribute nothing to the parent; a parent with no reporting
// children falls back to its own measurement pair, and with neither it stays
// not-set. depth caps recursion at the fixed hierarchy depth.
func computeNode(n *model.Node, opts Options, depth int) *Result {
	res := &Result{NodeID: n.ID, Level: n.Level, Name: n.Name}

	var values, weights []float64
	if depth < model.MaxDepth {
		for _, child := range n.Children {
			cr := computeNode(child, opts, depth+1)
			res.Children = append(res.Children, cr)
			if !cr.HasData {
				continue
			}
			values = append(values, cr.Progress)
			weights = append(weights, childWeight(child))
		}
	}

	switch {
	case len(values) > 0:
		res.Progress = Aggregate(values, opts.Policy(n), weights)
		res.HasData = true
	case n.HasMeasurement():
		res.Progress = CalculateProgress(n.CurrentValue, n.TargetValue)
		res.HasData = true
	}

	res.Status = opts.Thresholds.Classify(res.Progress, res.HasData)
	return res
}

// childWeight is a child's contribution weight under WEIGHTED_AVG: its target
// value, defaulting to 1 when absent or not positive. Bigger targets count
// more.
func childWeight(n *model.Node) float64 {
	if n.TargetValue != nil && *n.TargetValue > 0 {
		return *n.TargetValue
	}
	return 1
}

// Walk visits every result in the forest depth-first, parents before
// children.
func Walk(results []*Result, fn func(*Result)) {
	for _, r := range results {
		fn(r)
		Walk(r.Children, fn)
	}
}

// Find returns the result for the given node id, searching the forest
// depth-first, or nil when the id is absent.
func Find(results []*Result, id string) *Result {
	for _, r := range results {
		if r.NodeID == id {
			return r
		}
		if found := Find(r.Children, id); found != nil {
			return found
		}
	}
	return nil
}
