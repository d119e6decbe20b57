package sdk

import "time"

// Sync statuses (phase 1).
const (
	SyncStatusOK       = "ok"
	SyncStatusConflict = "workspace_conflict"
	SyncStatusError    = "error"
)

// Confirm statuses (phase 2).
const (
	ConfirmStatusSuccess  = "success"
	ConfirmStatusConflict = "conflict"
	ConfirmStatusError    = "error"
)

// Path kinds.
const (
	KindFile   = "file"
	KindFolder = "folder"
)

// Change kinds reported in a sync request.
const (
	ChangeNew      = "new"
	ChangeModified = "modified"
	ChangeDeleted  = "deleted"
)

// Actions the server may require for a planned change.
const (
	ActionUpload = "upload"
	ActionDelete = "delete"
	ActionNone   = "none"
)

// Final operations submitted at confirm.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

type CreateWorkspaceRequest struct {
	Name string `json:"name"`
}

type CreateWorkspaceResponse struct {
	WorkspaceID      string `json:"workspaceId"`
	WorkspaceVersion int64  `json:"workspaceVersion"`
}

type ManifestEntry struct {
	FilePath           string `json:"filePath"`
	FileID             string `json:"fileId"`
	StorageKey         string `json:"storageKey,omitempty"`
	ContentHash        string `json:"contentHash,omitempty"`
	Size               int64  `json:"size"`
	Kind               string `json:"kind"`
	DownloadCapability string `json:"downloadCapability,omitempty"`
}

type ManifestResponse struct {
	Manifest         []ManifestEntry `json:"manifest"`
	WorkspaceVersion int64           `json:"workspaceVersion"`
}

type SyncFile struct {
	FilePath   string `json:"filePath"`
	Kind       string `json:"kind"`
	Action     string `json:"action"`
	ClientHash string `json:"clientHash,omitempty"`
}

type SyncRequest struct {
	WorkspaceVersion int64      `json:"workspaceVersion"`
	Files            []SyncFile `json:"files"`
}

type SyncAction struct {
	FilePath         string `json:"filePath"`
	Kind             string `json:"kind"`
	FileID           string `json:"fileId"`
	StorageKey       string `json:"storageKey,omitempty"`
	ActionRequired   string `json:"actionRequired"`
	UploadCapability string `json:"uploadCapability,omitempty"`
}

type SyncResponse struct {
	Status             string       `json:"status"`
	Actions            []SyncAction `json:"actions,omitempty"`
	ProvisionalVersion int64        `json:"provisionalVersion,omitempty"`
	CurrentVersion     int64        `json:"currentVersion,omitempty"`
	ErrorCode          string       `json:"errorCode,omitempty"`
	ErrorMessage       string       `json:"errorMessage,omitempty"`
}

type ConfirmAction struct {
	FilePath   string `json:"filePath"`
	FileID     string `json:"fileId"`
	StorageKey string `json:"storageKey,omitempty"`
	Action     string `json:"action"`
	Kind       string `json:"kind"`
	ClientHash string `json:"clientHash,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

type ConfirmRequest struct {
	WorkspaceVersion int64           `json:"workspaceVersion"`
	SyncActions      []ConfirmAction `json:"syncActions"`
}

type ConfirmResponse struct {
	Status           string `json:"status"`
	WorkspaceVersion int64  `json:"workspaceVersion,omitempty"`
	CurrentVersion   int64  `json:"currentVersion,omitempty"`
	ErrorCode        string `json:"errorCode,omitempty"`
	ErrorMessage     string `json:"errorMessage,omitempty"`
}

type ExecuteRequest struct {
	EntrypointFile string `json:"entrypointFile"`
	Input          string `json:"input,omitempty"`
}

type ExecuteResponse struct {
	JobID string `json:"jobId"`
}

// Job statuses.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

type Job struct {
	ID               string    `json:"jobId"`
	WorkspaceID      string    `json:"workspaceId"`
	WorkspaceVersion int64     `json:"workspaceVersion"`
	EntrypointFile   string    `json:"entrypointFile"`
	Input            string    `json:"input"`
	Status           string    `json:"status"`
	Output           string    `json:"output,omitempty"`
	Error            string    `json:"error,omitempty"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// Done reports whether the job reached a terminal status.
func (j *Job) Done() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
