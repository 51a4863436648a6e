// Package hierarchy assembles flat node rows into the validated forest the
// rollup engine consumes, and loads YAML seed documents.
package hierarchy

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/model"
)

// Report records which rows a Build call excluded and why.
type Report struct {
	Total      int      `json:"total"`
	Kept       int      `json:"kept"`
	Orphans    []string `json:"orphans,omitempty"`
	Mismatched []string `json:"mismatched,omitempty"`
	Cyclic     []string `json:"cyclic,omitempty"`
}

// Dropped returns the number of excluded rows.
func (r Report) Dropped() int {
	return len(r.Orphans) + len(r.Mismatched) + len(r.Cyclic)
}

// Build turns flat rows into a forest. Rows with a nil parent id become roots;
// everything else is attached under its parent, siblings ordered by sort order
// then name.
//
// Malformed rows are dropped with a warning instead of failing the load:
// orphans (parent id that resolves to no row), mismatches (a level that is not
// the one directly below the parent's), and cyclic rows (rows on a parent loop
// or beneath an excluded row, which the root walk never reaches). Build copies
// every row, so mutating the returned forest leaves the input alone. It errors
// only when a non-empty input yields no usable root at all.
func Build(nodes []model.Node) ([]*model.Node, Report, error) {
	log := zap.L()
	report := Report{Total: len(nodes)}

	byID := make(map[string]*model.Node, len(nodes))
	order := make([]*model.Node, 0, len(nodes))
	for i := range nodes {
		n := nodes[i]
		n.Children = nil
		byID[n.ID] = &n
		order = append(order, &n)
	}

	var roots []*model.Node
	childrenOf := make(map[string][]*model.Node)
	classified := make(map[string]bool, len(nodes))

	for _, n := range order {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if _, exists := byID[*n.ParentID]; !exists {
			report.Orphans = append(report.Orphans, n.ID)
			classified[n.ID] = true
			log.Warn("hierarchy: dropped orphan row",
				zap.String("id", n.ID), zap.String("name", n.Name),
				zap.String("parent_id", *n.ParentID))
			continue
		}
		childrenOf[*n.ParentID] = append(childrenOf[*n.ParentID], n)
	}

	var attach func(n *model.Node)
	attach = func(n *model.Node) {
		classified[n.ID] = true
		report.Kept++

		childLevel, ok := n.Level.ChildLevel()
		for _, c := range childrenOf[n.ID] {
			if !ok || c.Level != childLevel {
				report.Mismatched = append(report.Mismatched, c.ID)
				classified[c.ID] = true
				log.Warn("hierarchy: dropped level mismatch",
					zap.String("id", c.ID), zap.String("name", c.Name),
					zap.String("level", string(c.Level)),
					zap.String("parent_level", string(n.Level)))
				continue
			}
			n.Children = append(n.Children, c)
			attach(c)
		}
		sortSiblings(n.Children)
	}

	for _, r := range roots {
		attach(r)
	}

	for _, n := range order {
		if !classified[n.ID] {
			report.Cyclic = append(report.Cyclic, n.ID)
			log.Warn("hierarchy: dropped unreachable row",
				zap.String("id", n.ID), zap.String("name", n.Name))
		}
	}

	sort.Strings(report.Orphans)
	sort.Strings(report.Mismatched)
	sortSiblings(roots)

	if len(nodes) > 0 && len(roots) == 0 {
		return nil, report, eris.New("hierarchy: no usable roots")
	}

	log.Debug("hierarchy: built forest",
		zap.Int("total", report.Total),
		zap.Int("roots", len(roots)),
		zap.Int("dropped", report.Dropped()))
	return roots, report, nil
}

func sortSiblings(nodes []*model.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
}
