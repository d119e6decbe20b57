package workspace

// Error codes returned alongside non-ok statuses.
const (
	CodeValidation         = "E_VALIDATION"          // malformed request or action set
	CodeWorkspaceNotFound  = "E_WORKSPACE_NOT_FOUND" // unknown workspace id
	CodeWorkspaceConflict  = "E_WORKSPACE_CONFLICT"  // OCC version mismatch or lost race
	CodeReservationExpired = "E_RESERVATION_EXPIRED" // reservation TTL passed before confirm
	CodeInternalError      = "E_INTERNAL_ERROR"      // internal server error
)

// Statuses for the sync (phase 1) response.
const (
	SyncStatusOK       = "ok"
	SyncStatusConflict = "workspace_conflict"
	SyncStatusError    = "error"
)

// Statuses for the confirm (phase 2) response.
const (
	ConfirmStatusSuccess  = "success"
	ConfirmStatusConflict = "conflict"
	ConfirmStatusError    = "error"
)

type CreateRequest struct {
	Name string `json:"name"`
}

type CreateResponse struct {
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
