package hierarchy

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/scorecard/internal/model"
)

type seedNode struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	Formula  *string    `yaml:"formula"`
	Current  *float64   `yaml:"current"`
	Target   *float64   `yaml:"target"`
	Children []seedNode `yaml:"children"`
}

type seedDocument struct {
	BusinessOutcomes []seedNode `yaml:"business_outcomes"`
}

// LoadSeed reads a nested YAML seed document and flattens it into store rows.
func LoadSeed(path string) ([]model.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: read %s", path)
	}
	return ParseSeed(data)
}

// ParseSeed parses and flattens seed YAML. Levels are implied by nesting
// depth, business_outcome at the top. Nodes keep an explicit id when the
// document provides one, so re-seeding the same file updates rows in place
// instead of duplicating them.
func ParseSeed(data []byte) ([]model.Node, error) {
	var doc seedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "seed: parse yaml")
	}
	if len(doc.BusinessOutcomes) == 0 {
		return nil, eris.New("seed: document has no business_outcomes")
	}

	levels := model.Levels()
	var problems []string
	var flat []model.Node

	var walk func(sn seedNode, depth int, parentID *string, idx int, path string)
	walk = func(sn seedNode, depth int, parentID *string, idx int, path string) {
		if strings.TrimSpace(sn.Name) == "" {
			problems = append(problems, path+": name is required")
			return
		}
		if depth >= len(levels) {
			problems = append(problems, path+": nested deeper than indicator")
			return
		}

		id := sn.ID
		if id == "" {
			id = uuid.New().String()
		}
		flat = append(flat, model.Node{
			ID:           id,
			ParentID:     parentID,
			Level:        levels[depth],
			Name:         strings.TrimSpace(sn.Name),
			Formula:      sn.Formula,
			CurrentValue: sn.Current,
			TargetValue:  sn.Target,
			SortOrder:    idx,
		})
		for i, c := range sn.Children {
			walk(c, depth+1, &id, i, fmt.Sprintf("%s.children[%d]", path, i))
		}
	}

	for i, bo := range doc.BusinessOutcomes {
		walk(bo, 0, nil, i, fmt.Sprintf("business_outcomes[%d]", i))
	}

	if len(problems) > 0 {
		return nil, eris.New("seed: invalid document: " + strings.Join(problems, "; "))
	}
	return flat, nil
}
