package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/scorecard/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetNode_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM nodes WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetNode(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNodeByName_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM nodes WHERE level = \$1 AND name = \$2`).
		WithArgs("department", "Unknown").
		WillReturnError(pgx.ErrNoRows)

	n, err := s.GetNodeByName(context.Background(), model.LevelDepartment, "Unknown")
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateNode(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO nodes`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "key_result", "Close 40 deals",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := s.CreateNode(context.Background(), &model.Node{
		Level: model.LevelKeyResult,
		Name:  "Close 40 deals",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateNode_InvalidLevel(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.CreateNode(context.Background(), &model.Node{Level: "galaxy", Name: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid level")
}

func TestPostgresStore_UpdateValues(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE nodes SET current_value = \$1, target_value = \$2`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "n1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	current, target := 55.0, 100.0
	err := s.UpdateValues(context.Background(), "n1", &current, &target)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateValues_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE nodes SET current_value = \$1, target_value = \$2`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateValues(context.Background(), "missing", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateFormula(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE nodes SET formula = \$1`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "n1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	formula := "SUM"
	err := s.UpdateFormula(context.Background(), "n1", &formula)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteNode(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM nodes WHERE id = \$1`).
		WithArgs("n1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := s.DeleteNode(context.Background(), "n1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteNode_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM nodes WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteNode(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BulkCreateNodes_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	count, err := s.BulkCreateNodes(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BulkCreateNodes_InvalidLevel(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.BulkCreateNodes(context.Background(), []model.Node{
		{Level: "galaxy", Name: "Nope"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid level")
}

func TestPostgresStore_BulkCreateNodes_CopiesIntoEmptyTable(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectCopyFrom(pgx.Identifier{"nodes"}, nodeColumnList).
		WillReturnResult(2)

	count, err := s.BulkCreateNodes(context.Background(), []model.Node{
		{Level: model.LevelBusinessOutcome, Name: "Grow ARR"},
		{Level: model.LevelOrgObjective, Name: "Expand enterprise"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BulkCreateNodes_UpsertsIntoPopulatedTable(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_nodes"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_nodes"}, nodeColumnList).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "nodes" .* ON CONFLICT \("id"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	count, err := s.BulkCreateNodes(context.Background(), []model.Node{
		{ID: "kr-1", Level: model.LevelKeyResult, Name: "Close 40 deals"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS nodes`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
