// Package store persists named projects as model snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/gusset/pkg/model"
)

// ErrNotFound reports a project id with no stored row.
var ErrNotFound = errors.New("project not found")

// Project is a stored model snapshot with identity and bookkeeping.
// List results omit the snapshot.
type Project struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Snapshot  *model.Snapshot `json:"snapshot,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store is a SQLite-backed project repository.
type Store struct {
	db *sql.DB
}

// Open opens the project database at path, creating it and its schema
// when missing. Pass ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: stores coherent across the pool.
	db.SetMaxOpenConns(1)

	st := &Store{db: db}
	if err := st.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return st, nil
}

func (st *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data JSON NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name);
	`
	_, err := st.db.Exec(schema)
	return err
}

// Create stores a new project and returns it with id and timestamps set.
func (st *Store) Create(ctx context.Context, name string, snap *model.Snapshot) (*Project, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	id := uuid.NewString()
	_, err = st.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, data) VALUES (?, ?, ?)
	`, id, name, data)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return st.Get(ctx, id)
}

// Get loads a project including its snapshot.
func (st *Store) Get(ctx context.Context, id string) (*Project, error) {
	var (
		p    Project
		data []byte
	)
	err := st.db.QueryRowContext(ctx, `
		SELECT id, name, data, created_at, updated_at
		FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &data, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}

	p.Snapshot = &model.Snapshot{}
	if err := json.Unmarshal(data, p.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &p, nil
}

// List returns project metadata, most recently updated first.
func (st *Store) List(ctx context.Context) ([]*Project, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM projects ORDER BY updated_at DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

// Update replaces a project's name and snapshot.
func (st *Store) Update(ctx context.Context, id, name string, snap *model.Snapshot) (*Project, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	res, err := st.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, data = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, name, data, id)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return st.Get(ctx, id)
}

// Delete removes a project.
func (st *Store) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (st *Store) Close() error {
	return st.db.Close()
}
