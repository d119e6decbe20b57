package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codepod-dev/codepod/internal/blob"
	"github.com/codepod-dev/codepod/internal/utils"
)

// ReservationTTL bounds how long a phase-1 reservation stays confirmable.
// Twice the upload capability expiry, so a round that can still upload can
// still confirm.
const ReservationTTL = 2 * blob.UploadExpiry

// Validator is the authoritative phase-1 gate. It checks the submitted
// version, allocates storage keys and upload capabilities, and reserves a
// provisional version. It never mutates committed state.
type Validator struct {
	store   *Store
	backend blob.Backend
	now     func() time.Time
}

func NewValidator(store *Store, backend blob.Backend) *Validator {
	return &Validator{
		store:   store,
		backend: backend,
		now:     time.Now,
	}
}

// Sync validates a change set against the stored workspace version and, on
// success, returns the per-path actions bound to a reserved provisional
// version. A stale clientVersion yields a ConflictError carrying the
// current version; no state is touched in that case.
func (v *Validator) Sync(ctx context.Context, workspaceID string, clientVersion int64, changes []*FileChange) (*SyncPlan, error) {
	ws, err := v.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if clientVersion != ws.Version {
		return nil, &ConflictError{CurrentVersion: ws.Version}
	}

	if len(changes) == 0 {
		return nil, validationf("empty change set")
	}

	if err := validateChanges(changes); err != nil {
		return nil, err
	}

	manifest, err := v.store.GetManifest(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]*ManifestEntry, len(manifest))
	for _, entry := range manifest {
		byPath[entry.FilePath] = entry
	}

	actions := make([]*SyncAction, 0, len(changes))
	for _, change := range changes {
		action, err := v.planAction(ctx, ws, change, byPath)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}

	provisional := ws.Version + 1
	encoded, err := encodeActions(actions)
	if err != nil {
		return nil, fmt.Errorf("encode actions: %w", err)
	}

	if err := v.store.PutReservation(ctx, &Reservation{
		WorkspaceID:        workspaceID,
		ProvisionalVersion: provisional,
		BaseVersion:        ws.Version,
		Actions:            encoded,
		ExpiresAt:          v.now().Add(ReservationTTL).Unix(),
	}); err != nil {
		return nil, err
	}

	slog.Info("sync validated",
		"workspace", workspaceID,
		"baseVersion", ws.Version,
		"provisionalVersion", provisional,
		"actions", len(actions))

	return &SyncPlan{
		Actions:            actions,
		ProvisionalVersion: provisional,
	}, nil
}

func (v *Validator) planAction(ctx context.Context, ws *Workspace, change *FileChange, byPath map[string]*ManifestEntry) (*SyncAction, error) {
	entry, exists := byPath[change.FilePath]

	switch change.Change {
	case ChangeNew:
		if exists {
			return nil, validationf("path already committed: %s", change.FilePath)
		}
		fileID := uuid.NewString()
		action := &SyncAction{
			FilePath:   change.FilePath,
			FileID:     fileID,
			Kind:       change.Kind,
			Action:     ActionNone,
			ClientHash: change.ClientHash,
		}
		if change.Kind == KindFile {
			action.StorageKey = StorageKey(ws.ID, fileID)
			capability, err := v.backend.PresignPutObject(ctx, action.StorageKey)
			if err != nil {
				return nil, fmt.Errorf("mint upload capability: %w", err)
			}
			action.Action = ActionUpload
			action.UploadCapability = capability
		}
		return action, nil

	case ChangeModified:
		if !exists {
			return nil, validationf("modified path not in manifest: %s", change.FilePath)
		}
		if entry.Kind != change.Kind || change.Kind != KindFile {
			return nil, validationf("path/kind mismatch: %s", change.FilePath)
		}
		capability, err := v.backend.PresignPutObject(ctx, entry.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("mint upload capability: %w", err)
		}
		return &SyncAction{
			FilePath:         change.FilePath,
			FileID:           entry.FileID,
			StorageKey:       entry.StorageKey,
			Kind:             entry.Kind,
			Action:           ActionUpload,
			UploadCapability: capability,
			ClientHash:       change.ClientHash,
		}, nil

	case ChangeDeleted:
		if !exists {
			return nil, validationf("deleted path not in manifest: %s", change.FilePath)
		}
		// deletes carry no capability; the blob removal is server-issued
		// at commit time
		return &SyncAction{
			FilePath:   change.FilePath,
			FileID:     entry.FileID,
			StorageKey: entry.StorageKey,
			Kind:       entry.Kind,
			Action:     ActionDelete,
		}, nil

	default:
		return nil, validationf("unknown change %q for %s", change.Change, change.FilePath)
	}
}

func validateChanges(changes []*FileChange) error {
	seen := make(map[string]struct{}, len(changes))
	for _, change := range changes {
		if !utils.ValidWorkspacePath(change.FilePath) {
			return validationf("malformed path: %q", change.FilePath)
		}
		if !change.Kind.Valid() {
			return validationf("unknown kind %q for %s", change.Kind, change.FilePath)
		}
		if !change.Change.Valid() {
			return validationf("unknown change %q for %s", change.Change, change.FilePath)
		}
		if change.Kind == KindFolder && change.Change == ChangeModified {
			return validationf("folders cannot be modified: %s", change.FilePath)
		}
		// every file upload announces its hash up front so the commit can
		// hold the finalized content to it
		if change.Kind == KindFile && change.Change != ChangeDeleted && change.ClientHash == "" {
			return validationf("missing client hash: %s", change.FilePath)
		}
		if _, dup := seen[change.FilePath]; dup {
			return validationf("duplicate path: %s", change.FilePath)
		}
		seen[change.FilePath] = struct{}{}
	}
	return nil
}

// StorageKey returns the blob object key for a file. Keyed by stable file
// id so re-uploads of identical bytes land on the same object.
func StorageKey(workspaceID, fileID string) string {
	return workspaceID + "/" + fileID
}
