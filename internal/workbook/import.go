package workbook

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/scorecard/internal/model"
	"github.com/sells-group/scorecard/internal/store"
)

// ImportOptions configures a workbook import.
type ImportOptions struct {
	Sheet          string
	SkipRows       int
	SkipColors     []string
	MatchThreshold float64 // minimum Jaccard score for a fuzzy parent match
}

// ImportStats summarizes what an import did.
type ImportStats struct {
	Rows       int      // parsed data rows
	Created    int      // rows inserted as new nodes
	Updated    int      // rows merged onto an existing node by level and name
	Unresolved []string // rows dropped because their parent could not be resolved
}

// Importer merges workbook rows into the store.
type Importer struct {
	store store.Store
	opts  ImportOptions
}

// defaultMatchThreshold matches the configuration default for fuzzy parent
// resolution.
const defaultMatchThreshold = 0.4

func NewImporter(st store.Store, opts ImportOptions) *Importer {
	if opts.MatchThreshold <= 0 {
		opts.MatchThreshold = defaultMatchThreshold
	}
	return &Importer{store: st, opts: opts}
}

type candidate struct {
	id   string
	name string
}

// Import reads a workbook and upserts its rows. A row merges onto an existing
// node when level and normalized name agree, otherwise it becomes a new node.
// Parent references resolve against the level directly above, exact name
// first and then the best fuzzy match at or above the configured threshold;
// rows whose parent cannot be resolved are dropped and reported, never
// imported as orphans.
func (im *Importer) Import(ctx context.Context, path string) (*ImportStats, error) {
	rows, err := Read(path, ReadOptions{
		Sheet:      im.opts.Sheet,
		SkipRows:   im.opts.SkipRows,
		SkipColors: im.opts.SkipColors,
	})
	if err != nil {
		return nil, err
	}

	existing, err := im.store.ListNodes(ctx, store.NodeFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "workbook: list existing nodes")
	}
	index := make(map[model.Level][]candidate)
	for _, n := range existing {
		index[n.Level] = append(index[n.Level], candidate{id: n.ID, name: n.Name})
	}

	// Parents before children, sheet order within a level.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Level.Depth() < rows[j].Level.Depth()
	})

	log := zap.L()
	stats := &ImportStats{Rows: len(rows)}
	var batch []model.Node

	for _, row := range rows {
		var parentID *string
		if row.Parent != "" {
			pl, ok := parentLevel(row.Level)
			if !ok {
				stats.Unresolved = append(stats.Unresolved,
					fmt.Sprintf("line %d: a %s row cannot have a parent", row.Line, row.Level))
				continue
			}
			cands := index[pl]
			names := make([]string, len(cands))
			for i, c := range cands {
				names[i] = c.name
			}
			i, score := resolveName(row.Parent, names, im.opts.MatchThreshold)
			if i < 0 {
				stats.Unresolved = append(stats.Unresolved,
					fmt.Sprintf("line %d: no %s matches parent %q", row.Line, pl, row.Parent))
				log.Warn("workbook: unresolved parent",
					zap.Int("line", row.Line), zap.String("parent", row.Parent))
				continue
			}
			parentID = &cands[i].id
			if score < 1 {
				log.Debug("workbook: fuzzy parent match",
					zap.Int("line", row.Line), zap.String("parent", row.Parent),
					zap.String("matched", cands[i].name), zap.Float64("score", score))
			}
		}

		id := ""
		want := normalizeName(row.Name)
		for _, c := range index[row.Level] {
			if normalizeName(c.name) == want {
				id = c.id
				break
			}
		}
		if id == "" {
			id = uuid.New().String()
			index[row.Level] = append(index[row.Level], candidate{id: id, name: row.Name})
			stats.Created++
		} else {
			stats.Updated++
		}

		batch = append(batch, model.Node{
			ID:           id,
			ParentID:     parentID,
			Level:        row.Level,
			Name:         row.Name,
			Formula:      row.Formula,
			CurrentValue: row.Current,
			TargetValue:  row.Target,
			SortOrder:    len(batch),
		})
	}

	if len(batch) > 0 {
		if _, err := im.store.BulkCreateNodes(ctx, batch); err != nil {
			return nil, eris.Wrap(err, "workbook: import nodes")
		}
	}

	log.Info("workbook: import complete",
		zap.Int("rows", stats.Rows),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("unresolved", len(stats.Unresolved)))
	return stats, nil
}

func parentLevel(l model.Level) (model.Level, bool) {
	d := l.Depth()
	if d <= 0 {
		return "", false
	}
	return model.Levels()[d-1], true
}
