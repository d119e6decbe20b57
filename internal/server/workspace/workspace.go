package workspace

import (
	"encoding/json"
	"time"
)

// PathKind distinguishes files from folders in the manifest.
type PathKind string

const (
	KindFile   PathKind = "file"
	KindFolder PathKind = "folder"
)

func (k PathKind) Valid() bool {
	return k == KindFile || k == KindFolder
}

// ChangeKind is the client-reported change for a path in phase 1.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "new"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

func (c ChangeKind) Valid() bool {
	return c == ChangeNew || c == ChangeModified || c == ChangeDeleted
}

// ActionRequired is the server's prescription for a changed path.
type ActionRequired string

const (
	ActionUpload ActionRequired = "upload"
	ActionDelete ActionRequired = "delete"
	ActionNone   ActionRequired = "none"
)

// Workspace is the versioned collection of files shared by collaborators.
// Version is the OCC token; it advances by exactly one per committed round.
type Workspace struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Version   int64  `db:"version"`
	CreatedAt int64  `db:"created_at"`
}

// ManifestEntry is one committed path in a workspace. Folders carry no
// hash, size or storage key.
type ManifestEntry struct {
	WorkspaceID string   `db:"workspace_id"`
	FilePath    string   `db:"file_path"`
	FileID      string   `db:"file_id"`
	StorageKey  string   `db:"storage_key"`
	ContentHash string   `db:"content_hash"`
	Size        int64    `db:"size"`
	Kind        PathKind `db:"kind"`
}

// FileChange is one entry of the client's submitted change set.
type FileChange struct {
	FilePath   string
	Kind       PathKind
	Change     ChangeKind
	ClientHash string
}

// SyncAction is the per-path outcome of phase 1. ClientHash is the hash
// the client announced with the change; confirm must present a matching
// content hash.
type SyncAction struct {
	FilePath         string         `json:"filePath"`
	FileID           string         `json:"fileId"`
	StorageKey       string         `json:"storageKey"`
	Kind             PathKind       `json:"kind"`
	Action           ActionRequired `json:"actionRequired"`
	UploadCapability string         `json:"uploadCapability,omitempty"`
	ClientHash       string         `json:"clientHash,omitempty"`
}

// SyncPlan is a successful phase-1 result: the prescribed actions plus the
// reserved provisional version they are bound to.
type SyncPlan struct {
	Actions            []*SyncAction
	ProvisionalVersion int64
}

// FinalOp is the client-finalized operation for one action in phase 2.
type FinalOp string

const (
	OpUpsert FinalOp = "upsert"
	OpDelete FinalOp = "delete"
)

// FinalizedAction re-states one action for commit, with the content hash
// and size recomputed client-side after upload.
type FinalizedAction struct {
	FilePath    string
	FileID      string
	StorageKey  string
	Op          FinalOp
	Kind        PathKind
	ContentHash string
	Size        int64
}

// Reservation is a prepared-but-uncommitted phase-1 transaction handle.
// It is live until confirmed, superseded or expired. Concurrent phase-1
// rounds against the same base version hold separate reservations for the
// same provisional version; confirm arbitrates.
type Reservation struct {
	ID                 string `db:"id"`
	WorkspaceID        string `db:"workspace_id"`
	ProvisionalVersion int64  `db:"provisional_version"`
	BaseVersion        int64  `db:"base_version"`
	Actions            string `db:"actions"`
	ExpiresAt          int64  `db:"expires_at"`
}

func (r *Reservation) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

func (r *Reservation) DecodeActions() ([]*SyncAction, error) {
	var actions []*SyncAction
	if err := json.Unmarshal([]byte(r.Actions), &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

func encodeActions(actions []*SyncAction) (string, error) {
	raw, err := json.Marshal(actions)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
