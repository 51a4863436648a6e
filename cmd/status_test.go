package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/scorecard/internal/model"
	"github.com/sells-group/scorecard/internal/rollup"
	"github.com/sells-group/scorecard/internal/store"
)

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "-", formatProgress(&rollup.Result{HasData: false, Progress: 0}))
	assert.Equal(t, "80%", formatProgress(&rollup.Result{HasData: true, Progress: 79.6}))
	assert.Equal(t, "0%", formatProgress(&rollup.Result{HasData: true, Progress: 0.2}))
	assert.Equal(t, "100%", formatProgress(&rollup.Result{HasData: true, Progress: 100}))
}

func TestFormatStatusTable_IndentsChildren(t *testing.T) {
	results := []*rollup.Result{{
		NodeID: "fo-1", Level: model.LevelFunctionalObjective, Name: "Hit pipeline targets",
		Progress: 80, Status: rollup.StatusGreen, HasData: true,
		Children: []*rollup.Result{{
			NodeID: "kr-1", Level: model.LevelKeyResult, Name: "Close 40 deals",
			Progress: 80, Status: rollup.StatusGreen, HasData: true,
		}},
	}}

	var buf bytes.Buffer
	formatStatusTable(&buf, results)
	out := buf.String()

	assert.Contains(t, out, "Functional Objective")
	assert.Contains(t, out, "Hit pipeline targets")
	assert.Contains(t, out, "  Close 40 deals")
	assert.Contains(t, out, "80%")
	assert.Contains(t, out, "green")
}

func TestFormatStatusTable_DashForNoData(t *testing.T) {
	results := []*rollup.Result{{
		NodeID: "bo-1", Level: model.LevelBusinessOutcome, Name: "Grow revenue",
		Status: rollup.StatusNotSet,
	}}

	var buf bytes.Buffer
	formatStatusTable(&buf, results)

	assert.Contains(t, buf.String(), "-")
	assert.Contains(t, buf.String(), "not-set")
}

func TestStatusSummary_CountsPerLevelAndBand(t *testing.T) {
	results := []*rollup.Result{{
		NodeID: "fo-1", Level: model.LevelFunctionalObjective, Status: rollup.StatusGreen,
		Children: []*rollup.Result{
			{NodeID: "kr-1", Level: model.LevelKeyResult, Status: rollup.StatusGreen},
			{NodeID: "kr-2", Level: model.LevelKeyResult, Status: rollup.StatusRed},
		},
	}}

	summary := statusSummary(results)

	assert.Equal(t, 1, summary[model.LevelFunctionalObjective][rollup.StatusGreen])
	assert.Equal(t, 1, summary[model.LevelKeyResult][rollup.StatusGreen])
	assert.Equal(t, 1, summary[model.LevelKeyResult][rollup.StatusRed])
	assert.Empty(t, summary[model.LevelIndicator])
}

func TestStatusCmd_EmptyStore(t *testing.T) {
	cfg = testConfig(t)

	statusCmd.SetContext(context.Background())
	defer statusCmd.SetContext(context.TODO())

	require.NoError(t, statusCmd.RunE(statusCmd, nil))
}

func TestMigrateCmd_CreatesSchema(t *testing.T) {
	cfg = testConfig(t)

	migrateCmd.SetContext(context.Background())
	defer migrateCmd.SetContext(context.TODO())

	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))

	// Schema exists: a plain open and list succeeds.
	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	_, err = st.ListNodes(context.Background(), store.NodeFilter{})
	require.NoError(t, err)
}
