package main

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/scorecard/internal/hierarchy"
	"github.com/sells-group/scorecard/internal/model"
	"github.com/sells-group/scorecard/internal/rollup"
	"github.com/sells-group/scorecard/internal/store"
)

// openStore validates the store section and opens the configured backend.
// Callers should defer st.Close().
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// thresholds maps the configured band boundaries onto the engine's value type.
func thresholds() rollup.Thresholds {
	return rollup.Thresholds{
		Green: cfg.Rollup.GreenThreshold,
		Amber: cfg.Rollup.AmberThreshold,
	}
}

// loadForest reads every node and assembles the forest. Rows the builder
// drops are already logged per row; the summary here keeps the count visible
// on every command that renders the tree.
func loadForest(ctx context.Context, st store.Store) ([]*model.Node, error) {
	nodes, err := st.ListNodes(ctx, store.NodeFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "list nodes")
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	roots, report, err := hierarchy.Build(nodes)
	if err != nil {
		return nil, err
	}
	if report.Dropped() > 0 {
		zap.L().Warn("some rows were excluded from the hierarchy",
			zap.Int("kept", report.Kept),
			zap.Int("dropped", report.Dropped()),
		)
	}
	return roots, nil
}

// computeForest rolls up each business outcome tree in parallel. The engine
// is pure and the trees are independent, so the only coordination needed is
// the index into the result slice.
func computeForest(ctx context.Context, roots []*model.Node) []*rollup.Result {
	opts := rollup.Options{Thresholds: thresholds()}

	results := make([]*rollup.Result, len(roots))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, root := range roots {
		g.Go(func() error {
			results[i] = rollup.Compute([]*model.Node{root}, opts)[0]
			return nil
		})
	}
	_ = g.Wait() // compute never fails

	return results
}
