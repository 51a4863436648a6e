package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/scorecard/internal/config"
	"github.com/sells-group/scorecard/internal/model"
	"github.com/sells-group/scorecard/internal/rollup"
	"github.com/sells-group/scorecard/internal/store"
)

// testConfig returns a config pointing at a fresh temp-dir sqlite database.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "scorecard.db")},
		Log:    config.LogConfig{Level: "info", Format: "json"},
		Server: config.ServerConfig{Port: 8080, CORSOrigins: []string{"*"}, RatePerSecond: 100, RateBurst: 100},
		Import: config.ImportConfig{SkipRows: 1, MatchThreshold: 0.4},
		Rollup: config.RollupConfig{GreenThreshold: 76, AmberThreshold: 51},
	}
}

// newCmdStore points the global config at a temp database and opens it.
func newCmdStore(t *testing.T) store.Store {
	t.Helper()
	cfg = testConfig(t)

	st, err := openStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// seedChain creates a functional objective with one key result and one
// indicator measuring current/target.
func seedChain(t *testing.T, st store.Store, current, target float64) (foID, krID string) {
	t.Helper()
	ctx := context.Background()

	fo, err := st.CreateNode(ctx, &model.Node{Level: model.LevelFunctionalObjective, Name: "Hit pipeline targets"})
	require.NoError(t, err)
	kr, err := st.CreateNode(ctx, &model.Node{Level: model.LevelKeyResult, Name: "Close 40 deals", ParentID: &fo.ID})
	require.NoError(t, err)
	_, err = st.CreateNode(ctx, &model.Node{
		Level: model.LevelIndicator, Name: "Deals closed", ParentID: &kr.ID,
		CurrentValue: &current, TargetValue: &target,
	})
	require.NoError(t, err)
	return fo.ID, kr.ID
}

func TestOpenStore_SQLite(t *testing.T) {
	st := newCmdStore(t)
	_, ok := st.(*store.SQLiteStore)
	assert.True(t, ok)
}

func TestOpenStore_UnsupportedDriver(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "oracle"

	_, err := openStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestThresholds_FromConfig(t *testing.T) {
	cfg = testConfig(t)
	cfg.Rollup.GreenThreshold = 90
	cfg.Rollup.AmberThreshold = 60

	assert.Equal(t, rollup.Thresholds{Green: 90, Amber: 60}, thresholds())
}

func TestLoadForest_Empty(t *testing.T) {
	st := newCmdStore(t)

	roots, err := loadForest(context.Background(), st)
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestLoadForest_And_ComputeForest(t *testing.T) {
	st := newCmdStore(t)
	ctx := context.Background()
	_, krID := seedChain(t, st, 80, 100)

	roots, err := loadForest(ctx, st)
	require.NoError(t, err)
	require.Len(t, roots, 1)

	results := computeForest(ctx, roots)
	require.Len(t, results, 1)
	assert.Equal(t, rollup.StatusGreen, results[0].Status)
	assert.InDelta(t, 80.0, results[0].Progress, 0.0001)

	kr := rollup.Find(results, krID)
	require.NotNil(t, kr)
	assert.True(t, kr.HasData)
}

func TestComputeForest_HonorsConfiguredThresholds(t *testing.T) {
	st := newCmdStore(t)
	ctx := context.Background()
	seedChain(t, st, 80, 100)

	// 80% is green under the defaults but amber when green starts at 90.
	cfg.Rollup.GreenThreshold = 90
	cfg.Rollup.AmberThreshold = 60

	roots, err := loadForest(ctx, st)
	require.NoError(t, err)
	results := computeForest(ctx, roots)
	require.Len(t, results, 1)
	assert.Equal(t, rollup.StatusAmber, results[0].Status)
}
