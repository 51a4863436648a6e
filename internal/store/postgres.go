package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/scorecard/internal/db"
	"github.com/sells-group/scorecard/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_node":      `INSERT INTO nodes (id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"get_node":         `SELECT id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at FROM nodes WHERE id = $1`,
	"get_node_by_name": `SELECT id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at FROM nodes WHERE level = $1 AND name = $2 LIMIT 1`,
	"list_children":    `SELECT id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at FROM nodes WHERE parent_id = $1 ORDER BY sort_order, name`,
	"update_values":    `UPDATE nodes SET current_value = $1, target_value = $2, updated_at = $3 WHERE id = $4`,
	"update_formula":   `UPDATE nodes SET formula = $1, updated_at = $2 WHERE id = $3`,
	"delete_node":      `DELETE FROM nodes WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS nodes (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	parent_id     TEXT REFERENCES nodes(id) ON DELETE CASCADE,
	level         TEXT NOT NULL,
	name          TEXT NOT NULL,
	formula       TEXT,
	current_value DOUBLE PRECISION,
	target_value  DOUBLE PRECISION,
	sort_order    INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_nodes_parent_id ON nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_nodes_level ON nodes(level);
CREATE INDEX IF NOT EXISTS idx_nodes_level_name ON nodes(level, name);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateNode(ctx context.Context, n *model.Node) (*model.Node, error) {
	if !n.Level.Valid() {
		return nil, eris.Errorf("postgres: invalid level %q", n.Level)
	}
	id := n.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO nodes (id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, n.ParentID, string(n.Level), n.Name, n.Formula,
		n.CurrentValue, n.TargetValue, n.SortOrder, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert node %s", n.Name)
	}

	created := *n
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

func (s *PostgresStore) GetNode(ctx context.Context, id string) (*model.Node, error) {
	var n model.Node
	err := s.pool.QueryRow(ctx,
		`SELECT id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at
		 FROM nodes WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.ParentID, &n.Level, &n.Name, &n.Formula,
		&n.CurrentValue, &n.TargetValue, &n.SortOrder, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("node not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get node %s", id)
	}
	return &n, nil
}

// GetNodeByName looks a node up by level and name. Unlike GetNode a miss is
// not an error; importers probe with it before deciding to insert.
func (s *PostgresStore) GetNodeByName(ctx context.Context, level model.Level, name string) (*model.Node, error) {
	var n model.Node
	err := s.pool.QueryRow(ctx,
		`SELECT id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at
		 FROM nodes WHERE level = $1 AND name = $2 LIMIT 1`,
		string(level), name,
	).Scan(&n.ID, &n.ParentID, &n.Level, &n.Name, &n.Formula,
		&n.CurrentValue, &n.TargetValue, &n.SortOrder, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get node by name")
	}
	return &n, nil
}

func (s *PostgresStore) ListNodes(ctx context.Context, filter NodeFilter) ([]model.Node, error) {
	query := `SELECT id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at
	          FROM nodes WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Level != "" {
		query += fmt.Sprintf(` AND level = $%d`, argIdx)
		args = append(args, string(filter.Level))
		argIdx++
	}
	query += ` ORDER BY sort_order, name`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++

		if filter.Offset > 0 {
			query += fmt.Sprintf(` OFFSET $%d`, argIdx)
			args = append(args, filter.Offset)
			argIdx++
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list nodes")
	}
	defer rows.Close()

	return collectPgNodes(rows)
}

func (s *PostgresStore) ListChildren(ctx context.Context, parentID string) ([]model.Node, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at
		 FROM nodes WHERE parent_id = $1 ORDER BY sort_order, name`,
		parentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list children of %s", parentID)
	}
	defer rows.Close()

	return collectPgNodes(rows)
}

func (s *PostgresStore) UpdateValues(ctx context.Context, id string, current, target *float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE nodes SET current_value = $1, target_value = $2, updated_at = $3 WHERE id = $4`,
		current, target, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update values %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("node not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateFormula(ctx context.Context, id string, formula *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE nodes SET formula = $1, updated_at = $2 WHERE id = $3`,
		formula, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update formula %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("node not found: %s", id)
	}
	return nil
}

// DeleteNode removes a node; the foreign key cascade takes the subtree with it.
func (s *PostgresStore) DeleteNode(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete node %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("node not found: %s", id)
	}
	return nil
}

var nodeColumnList = []string{"id", "parent_id", "level", "name", "formula", "current_value", "target_value", "sort_order", "created_at", "updated_at"}

// BulkCreateNodes lands a batch in one round trip: straight COPY when the
// table is still empty (first seed or import), COPY into a temp table plus
// INSERT ... ON CONFLICT otherwise.
func (s *PostgresStore) BulkCreateNodes(ctx context.Context, nodes []model.Node) (int64, error) {
	if len(nodes) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		if !n.Level.Valid() {
			return 0, eris.Errorf("postgres: invalid level %q for node %s", n.Level, n.Name)
		}
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		rows = append(rows, []any{
			n.ID, n.ParentID, string(n.Level), n.Name, n.Formula,
			n.CurrentValue, n.TargetValue, n.SortOrder, now, now,
		})
	}

	var hasRows bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM nodes)`).Scan(&hasRows); err != nil {
		return 0, eris.Wrap(err, "postgres: check nodes table")
	}

	if !hasRows {
		count, err := db.CopyFrom(ctx, s.pool, "nodes", nodeColumnList, rows)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: bulk create nodes")
		}
		return count, nil
	}

	count, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "nodes",
		Columns:      nodeColumnList,
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"parent_id", "level", "name", "formula", "current_value", "target_value", "sort_order", "updated_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk create nodes")
	}
	return count, nil
}

func collectPgNodes(rows pgx.Rows) ([]model.Node, error) {
	var nodes []model.Node
	for rows.Next() {
		var n model.Node
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Level, &n.Name, &n.Formula,
			&n.CurrentValue, &n.TargetValue, &n.SortOrder, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan node")
		}
		nodes = append(nodes, n)
	}
	return nodes, eris.Wrap(rows.Err(), "postgres: iterate nodes")
}
