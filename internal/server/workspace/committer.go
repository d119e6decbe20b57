package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codepod-dev/codepod/internal/blob"
)

// Committer performs the atomic phase-2 commit: manifest mutation and the
// version advance happen in one transaction conditioned on the stored
// version, so it is a single-writer critical section per workspace without
// any application-level lock.
type Committer struct {
	store   *Store
	backend blob.Backend
	now     func() time.Time
}

func NewCommitter(store *Store, backend blob.Backend) *Committer {
	return &Committer{
		store:   store,
		backend: backend,
		now:     time.Now,
	}
}

// Confirm finalizes a reserved round. Exactly one of any set of concurrent
// confirms against the same provisional version succeeds; the rest observe
// a ConflictError. On success the workspace version equals
// provisionalVersion and the manifest reflects every finalized action.
func (c *Committer) Confirm(ctx context.Context, workspaceID string, provisionalVersion int64, actions []*FinalizedAction) (int64, error) {
	if len(actions) == 0 {
		return 0, validationf("empty action set")
	}

	tx, err := c.store.DB().BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback()

	var ws Workspace
	err = tx.GetContext(ctx, &ws, `SELECT * FROM workspaces WHERE id = ?`, workspaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrWorkspaceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get workspace: %w", err)
	}

	var reservations []*Reservation
	err = tx.SelectContext(ctx, &reservations,
		`SELECT * FROM reservations WHERE workspace_id = ? AND provisional_version = ?`,
		workspaceID, provisionalVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("get reservations: %w", err)
	}

	res, err := c.pickReservation(&ws, reservations, actions)
	if err != nil {
		return 0, err
	}

	for _, action := range actions {
		switch action.Op {
		case OpUpsert:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO manifest_entries (workspace_id, file_path, file_id, storage_key, content_hash, size, kind)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (workspace_id, file_path)
				DO UPDATE SET file_id = excluded.file_id,
				              storage_key = excluded.storage_key,
				              content_hash = excluded.content_hash,
				              size = excluded.size,
				              kind = excluded.kind`,
				workspaceID, action.FilePath, action.FileID, action.StorageKey,
				action.ContentHash, action.Size, action.Kind,
			)
		case OpDelete:
			_, err = tx.ExecContext(ctx,
				`DELETE FROM manifest_entries WHERE workspace_id = ? AND file_path = ?`,
				workspaceID, action.FilePath,
			)
		}
		if err != nil {
			return 0, fmt.Errorf("apply %s %s: %w", action.Op, action.FilePath, err)
		}
	}

	// conditional version advance: the OCC commit point
	result, err := tx.ExecContext(ctx,
		`UPDATE workspaces SET version = version + 1 WHERE id = ? AND version = ?`,
		workspaceID, res.BaseVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("advance version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("advance version: %w", err)
	}
	if affected != 1 {
		return 0, &ConflictError{CurrentVersion: ws.Version}
	}

	// all reservations for this workspace are now stale
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reservations WHERE workspace_id = ?`, workspaceID,
	); err != nil {
		return 0, fmt.Errorf("clear reservations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	newVersion := res.BaseVersion + 1
	slog.Info("workspace committed",
		"workspace", workspaceID,
		"version", newVersion,
		"actions", len(actions))

	// blob deletions run only after the manifest rows are gone; failures
	// leave unlinked objects for garbage collection, never a broken manifest
	for _, action := range actions {
		if action.Op != OpDelete || action.Kind != KindFile || action.StorageKey == "" {
			continue
		}
		if _, err := c.backend.DeleteObject(ctx, action.StorageKey); err != nil {
			slog.Warn("blob delete failed", "key", action.StorageKey, "error", err)
		}
	}

	return newVersion, nil
}

// pickReservation finds the live reservation this confirm belongs to. The
// round is identified by its action set: concurrent rounds may share a
// provisional version but never a matching plan and a fresh base version
// at the same time.
func (c *Committer) pickReservation(ws *Workspace, reservations []*Reservation, actions []*FinalizedAction) (*Reservation, error) {
	if len(reservations) == 0 {
		// consumed by a concurrent commit or swept
		return nil, &ConflictError{CurrentVersion: ws.Version}
	}

	var matchErr error
	expired := false
	for _, res := range reservations {
		planned, err := res.DecodeActions()
		if err != nil {
			return nil, fmt.Errorf("decode reservation: %w", err)
		}
		if err := matchPlan(actions, planned); err != nil {
			matchErr = err
			continue
		}
		if res.Expired(c.now()) {
			expired = true
			continue
		}
		if ws.Version != res.BaseVersion {
			// a concurrent confirm won the race
			return nil, &ConflictError{CurrentVersion: ws.Version}
		}
		return res, nil
	}

	if expired {
		return nil, &ConflictError{CurrentVersion: ws.Version, Expired: true}
	}
	if matchErr != nil {
		return nil, matchErr
	}
	return nil, &ConflictError{CurrentVersion: ws.Version}
}

// matchPlan checks the finalized actions cover the reserved plan exactly;
// the commit is all-or-nothing over the round's action set. Every planned
// path must be consumed exactly once, so a payload cannot repeat one path
// to smuggle another reserved action out of the round.
func matchPlan(actions []*FinalizedAction, planned []*SyncAction) error {
	if len(actions) != len(planned) {
		return validationf("finalized %d of %d reserved actions", len(actions), len(planned))
	}

	byPath := make(map[string]*SyncAction, len(planned))
	for _, p := range planned {
		byPath[p.FilePath] = p
	}

	seen := make(map[string]struct{}, len(actions))
	for _, action := range actions {
		if _, dup := seen[action.FilePath]; dup {
			return validationf("duplicate path: %s", action.FilePath)
		}
		seen[action.FilePath] = struct{}{}

		plan, ok := byPath[action.FilePath]
		if !ok {
			return validationf("action not in reservation: %s", action.FilePath)
		}
		if action.FileID != plan.FileID || action.StorageKey != plan.StorageKey || action.Kind != plan.Kind {
			return validationf("action does not match reservation: %s", action.FilePath)
		}

		switch action.Op {
		case OpUpsert:
			if plan.Action == ActionDelete {
				return validationf("upsert for a delete action: %s", action.FilePath)
			}
			if action.Kind == KindFile {
				if action.ContentHash == "" {
					return validationf("missing content hash: %s", action.FilePath)
				}
				if action.ContentHash != plan.ClientHash {
					return validationf("content hash does not match announced hash: %s", action.FilePath)
				}
				if action.Size < 0 {
					return validationf("invalid size: %s", action.FilePath)
				}
			}
		case OpDelete:
			if plan.Action != ActionDelete {
				return validationf("delete for a non-delete action: %s", action.FilePath)
			}
		default:
			return validationf("unknown op %q for %s", action.Op, action.FilePath)
		}
	}
	return nil
}
