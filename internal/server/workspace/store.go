package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workspaces (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	version INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS manifest_entries (
	workspace_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	file_id TEXT NOT NULL,
	storage_key TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0,
	kind TEXT NOT NULL,
	PRIMARY KEY (workspace_id, file_path)
);

CREATE INDEX IF NOT EXISTS idx_manifest_file_id ON manifest_entries(workspace_id, file_id);

CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	provisional_version INTEGER NOT NULL,
	base_version INTEGER NOT NULL,
	actions TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reservations_version ON reservations(workspace_id, provisional_version);

CREATE INDEX IF NOT EXISTS idx_reservations_expiry ON reservations(expires_at);
`

// Store provides access to workspace metadata in SQLite.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("init workspace schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateWorkspace(ctx context.Context, name string) (*Workspace, error) {
	ws := &Workspace{
		ID:        uuid.NewString(),
		Name:      name,
		Version:   0,
		CreatedAt: time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, version, created_at) VALUES (?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.Version, ws.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return ws, nil
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	var ws Workspace
	err := s.db.GetContext(ctx, &ws, `SELECT * FROM workspaces WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return &ws, nil
}

// GetManifest returns all committed entries ordered by path.
func (s *Store) GetManifest(ctx context.Context, workspaceID string) ([]*ManifestEntry, error) {
	var entries []*ManifestEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT * FROM manifest_entries WHERE workspace_id = ? ORDER BY file_path`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	return entries, nil
}

// GetSnapshot reads the workspace row and its manifest entries in one
// transaction, so the returned version and entries are mutually
// consistent even while commits run concurrently.
func (s *Store) GetSnapshot(ctx context.Context, workspaceID string) (*Workspace, []*ManifestEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	var ws Workspace
	err = tx.GetContext(ctx, &ws, `SELECT * FROM workspaces WHERE id = ?`, workspaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get workspace: %w", err)
	}

	var entries []*ManifestEntry
	err = tx.SelectContext(ctx, &entries,
		`SELECT * FROM manifest_entries WHERE workspace_id = ? ORDER BY file_path`,
		workspaceID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("get manifest: %w", err)
	}
	return &ws, entries, nil
}

func (s *Store) GetEntry(ctx context.Context, workspaceID, filePath string) (*ManifestEntry, error) {
	var entry ManifestEntry
	err := s.db.GetContext(ctx, &entry,
		`SELECT * FROM manifest_entries WHERE workspace_id = ? AND file_path = ?`,
		workspaceID, filePath,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &entry, nil
}

// PutReservation records a prepared phase-1 round. Concurrent rounds for
// the same provisional version coexist as separate rows.
func (s *Store) PutReservation(ctx context.Context, res *Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reservations (id, workspace_id, provisional_version, base_version, actions, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		res.ID, res.WorkspaceID, res.ProvisionalVersion, res.BaseVersion, res.Actions, res.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("put reservation: %w", err)
	}
	return nil
}

// GetReservations returns every reservation held for a provisional version.
func (s *Store) GetReservations(ctx context.Context, workspaceID string, provisionalVersion int64) ([]*Reservation, error) {
	var reservations []*Reservation
	err := s.db.SelectContext(ctx, &reservations,
		`SELECT * FROM reservations WHERE workspace_id = ? AND provisional_version = ?`,
		workspaceID, provisionalVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("get reservations: %w", err)
	}
	return reservations, nil
}

// DeleteExpiredReservations removes reservations whose TTL has passed.
func (s *Store) DeleteExpiredReservations(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM reservations WHERE expires_at <= ?`, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired reservations: %w", err)
	}
	return result.RowsAffected()
}

// DB exposes the underlying handle for transactional callers.
func (s *Store) DB() *sqlx.DB {
	return s.db
}
