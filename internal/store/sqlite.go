package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/scorecard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// Foreign keys are enabled so deleting a node cascades to its subtree.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS nodes (
	id            TEXT PRIMARY KEY,
	parent_id     TEXT REFERENCES nodes(id) ON DELETE CASCADE,
	level         TEXT NOT NULL,
	name          TEXT NOT NULL,
	formula       TEXT,
	current_value REAL,
	target_value  REAL,
	sort_order    INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_nodes_parent_id ON nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_nodes_level ON nodes(level);
CREATE INDEX IF NOT EXISTS idx_nodes_level_name ON nodes(level, name);
`

const nodeColumns = `id, parent_id, level, name, formula, current_value, target_value, sort_order, created_at, updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateNode(ctx context.Context, n *model.Node) (*model.Node, error) {
	if !n.Level.Valid() {
		return nil, eris.Errorf("sqlite: invalid level %q", n.Level)
	}
	id := n.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, n.ParentID, string(n.Level), n.Name, n.Formula,
		n.CurrentValue, n.TargetValue, n.SortOrder, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert node %s", n.Name)
	}

	created := *n
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

func (s *SQLiteStore) GetNode(ctx context.Context, id string) (*model.Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	return scanNode(row)
}

// GetNodeByName looks a node up by level and name. Unlike GetNode a miss is
// not an error; importers probe with it before deciding to insert.
func (s *SQLiteStore) GetNodeByName(ctx context.Context, level model.Level, name string) (*model.Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE level = ? AND name = ? LIMIT 1`,
		string(level), name)
	n, err := scanNode(row)
	if err != nil && eris.Is(err, errNodeNotFound) {
		return nil, nil
	}
	return n, err
}

func (s *SQLiteStore) ListNodes(ctx context.Context, filter NodeFilter) ([]model.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE 1=1`
	var args []any

	if filter.Level != "" {
		query += ` AND level = ?`
		args = append(args, string(filter.Level))
	}
	query += ` ORDER BY sort_order, name`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list nodes")
	}
	defer rows.Close()

	return collectNodes(rows)
}

func (s *SQLiteStore) ListChildren(ctx context.Context, parentID string) ([]model.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? ORDER BY sort_order, name`,
		parentID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list children of %s", parentID)
	}
	defer rows.Close()

	return collectNodes(rows)
}

func (s *SQLiteStore) UpdateValues(ctx context.Context, id string, current, target *float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET current_value = ?, target_value = ?, updated_at = ? WHERE id = ?`,
		current, target, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update values %s", id)
	}
	return checkRowsAffected(res, "node", id)
}

func (s *SQLiteStore) UpdateFormula(ctx context.Context, id string, formula *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET formula = ?, updated_at = ? WHERE id = ?`,
		formula, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update formula %s", id)
	}
	return checkRowsAffected(res, "node", id)
}

// DeleteNode removes a node; the foreign key cascade takes the subtree with it.
func (s *SQLiteStore) DeleteNode(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete node %s", id)
	}
	return checkRowsAffected(res, "node", id)
}

func (s *SQLiteStore) BulkCreateNodes(ctx context.Context, nodes []model.Node) (int64, error) {
	if len(nodes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk create")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			level = excluded.level,
			name = excluded.name,
			formula = excluded.formula,
			current_value = excluded.current_value,
			target_value = excluded.target_value,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk create")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var count int64
	for i := range nodes {
		n := &nodes[i]
		if !n.Level.Valid() {
			return 0, eris.Errorf("sqlite: invalid level %q for node %s", n.Level, n.Name)
		}
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx,
			n.ID, n.ParentID, string(n.Level), n.Name, n.Formula,
			n.CurrentValue, n.TargetValue, n.SortOrder, now, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: bulk create node %s", n.Name)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk create")
	}
	return count, nil
}

// helpers

var errNodeNotFound = eris.New("node not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNode(row scannable) (*model.Node, error) {
	var n model.Node
	var parentID, formula sql.NullString
	var current, target sql.NullFloat64

	err := row.Scan(&n.ID, &parentID, &n.Level, &n.Name, &formula,
		&current, &target, &n.SortOrder, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errNodeNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan node")
	}

	if parentID.Valid {
		n.ParentID = &parentID.String
	}
	if formula.Valid {
		n.Formula = &formula.String
	}
	if current.Valid {
		n.CurrentValue = &current.Float64
	}
	if target.Valid {
		n.TargetValue = &target.Float64
	}
	return &n, nil
}

func collectNodes(rows *sql.Rows) ([]model.Node, error) {
	var nodes []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, eris.Wrap(rows.Err(), "sqlite: iterate nodes")
}
