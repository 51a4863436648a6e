package store

import (
	"context"

	"github.com/sells-group/scorecard/internal/model"
)

// NodeFilter specifies criteria for listing nodes. A zero filter lists the
// whole hierarchy.
type NodeFilter struct {
	Level  model.Level `json:"level,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

// Store defines the persistence interface for hierarchy nodes. Children on
// returned nodes are never populated; tree assembly is the hierarchy
// package's job.
type Store interface {
	// Nodes
	CreateNode(ctx context.Context, n *model.Node) (*model.Node, error)
	GetNode(ctx context.Context, id string) (*model.Node, error)
	GetNodeByName(ctx context.Context, level model.Level, name string) (*model.Node, error)
	ListNodes(ctx context.Context, filter NodeFilter) ([]model.Node, error)
	ListChildren(ctx context.Context, parentID string) ([]model.Node, error)
	UpdateValues(ctx context.Context, id string, current, target *float64) error
	UpdateFormula(ctx context.Context, id string, formula *string) error
	DeleteNode(ctx context.Context, id string) error

	// BulkCreateNodes inserts the given nodes, replacing any existing row
	// with the same id. Nodes without an id are assigned one.
	BulkCreateNodes(ctx context.Context, nodes []model.Node) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
