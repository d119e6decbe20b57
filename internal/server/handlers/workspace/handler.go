package workspace

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codepod-dev/codepod/internal/server/workspace"
)

type WorkspaceHandler struct {
	svc *workspace.Service
}

func New(svc *workspace.Service) *WorkspaceHandler {
	return &WorkspaceHandler{
		svc: svc,
	}
}

func (h *WorkspaceHandler) Create(ctx *gin.Context) {
	var req CreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.PureJSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  CodeValidation,
		})
		return
	}

	ws, err := h.svc.Store().CreateWorkspace(ctx.Request.Context(), req.Name)
	if err != nil {
		slog.Error("create workspace failed", "error", err)
		ctx.PureJSON(http.StatusInternalServerError, gin.H{
			"error": "could not create workspace",
			"code":  CodeInternalError,
		})
		return
	}

	ctx.PureJSON(http.StatusOK, &CreateResponse{
		WorkspaceID:      ws.ID,
		WorkspaceVersion: ws.Version,
	})
}

func (h *WorkspaceHandler) GetManifest(ctx *gin.Context) {
	workspaceID := ctx.Param("id")

	entries, downloads, version, err := h.svc.Manifest(ctx.Request.Context(), workspaceID)
	if errors.Is(err, workspace.ErrWorkspaceNotFound) {
		ctx.PureJSON(http.StatusNotFound, gin.H{
			"error": "workspace not found",
			"code":  CodeWorkspaceNotFound,
		})
		return
	}
	if err != nil {
		slog.Error("manifest fetch failed", "workspace", workspaceID, "error", err)
		ctx.PureJSON(http.StatusInternalServerError, gin.H{
			"error": "could not load manifest",
			"code":  CodeInternalError,
		})
		return
	}

	manifest := make([]ManifestEntry, 0, len(entries))
	for _, entry := range entries {
		manifest = append(manifest, ManifestEntry{
			FilePath:           entry.FilePath,
			FileID:             entry.FileID,
			StorageKey:         entry.StorageKey,
			ContentHash:        entry.ContentHash,
			Size:               entry.Size,
			Kind:               string(entry.Kind),
			DownloadCapability: downloads[entry.FilePath],
		})
	}

	ctx.PureJSON(http.StatusOK, &ManifestResponse{
		Manifest:         manifest,
		WorkspaceVersion: version,
	})
}

// Sync is phase 1: validate the change set against the stored version,
// allocate actions and reserve a provisional version.
func (h *WorkspaceHandler) Sync(ctx *gin.Context) {
	workspaceID := ctx.Param("id")

	var req SyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.PureJSON(http.StatusBadRequest, &SyncResponse{
			Status:       SyncStatusError,
			ErrorCode:    CodeValidation,
			ErrorMessage: err.Error(),
		})
		return
	}

	changes := make([]*workspace.FileChange, 0, len(req.Files))
	for _, f := range req.Files {
		changes = append(changes, &workspace.FileChange{
			FilePath:   f.FilePath,
			Kind:       workspace.PathKind(f.Kind),
			Change:     workspace.ChangeKind(f.Action),
			ClientHash: f.ClientHash,
		})
	}

	plan, err := h.svc.Validator().Sync(ctx.Request.Context(), workspaceID, req.WorkspaceVersion, changes)
	if err != nil {
		h.writeSyncError(ctx, workspaceID, err)
		return
	}

	actions := make([]SyncAction, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		actions = append(actions, SyncAction{
			FilePath:         a.FilePath,
			Kind:             string(a.Kind),
			FileID:           a.FileID,
			StorageKey:       a.StorageKey,
			ActionRequired:   string(a.Action),
			UploadCapability: a.UploadCapability,
		})
	}

	ctx.PureJSON(http.StatusOK, &SyncResponse{
		Status:             SyncStatusOK,
		Actions:            actions,
		ProvisionalVersion: plan.ProvisionalVersion,
	})
}

func (h *WorkspaceHandler) writeSyncError(ctx *gin.Context, workspaceID string, err error) {
	if conflict, ok := workspace.AsConflict(err); ok {
		ctx.PureJSON(http.StatusConflict, &SyncResponse{
			Status:         SyncStatusConflict,
			CurrentVersion: conflict.CurrentVersion,
			ErrorCode:      CodeWorkspaceConflict,
			ErrorMessage:   conflict.Error(),
		})
		return
	}
	if v, ok := workspace.AsValidation(err); ok {
		ctx.PureJSON(http.StatusBadRequest, &SyncResponse{
			Status:       SyncStatusError,
			ErrorCode:    CodeValidation,
			ErrorMessage: v.Reason,
		})
		return
	}
	if errors.Is(err, workspace.ErrWorkspaceNotFound) {
		ctx.PureJSON(http.StatusNotFound, &SyncResponse{
			Status:       SyncStatusError,
			ErrorCode:    CodeWorkspaceNotFound,
			ErrorMessage: "workspace not found",
		})
		return
	}

	slog.Error("sync failed", "workspace", workspaceID, "error", err)
	ctx.PureJSON(http.StatusInternalServerError, &SyncResponse{
		Status:       SyncStatusError,
		ErrorCode:    CodeInternalError,
		ErrorMessage: "sync failed",
	})
}

// Confirm is phase 2: atomically apply the finalized actions and advance
// the workspace version.
func (h *WorkspaceHandler) Confirm(ctx *gin.Context) {
	workspaceID := ctx.Param("id")

	var req ConfirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.PureJSON(http.StatusBadRequest, &ConfirmResponse{
			Status:       ConfirmStatusError,
			ErrorCode:    CodeValidation,
			ErrorMessage: err.Error(),
		})
		return
	}

	actions := make([]*workspace.FinalizedAction, 0, len(req.SyncActions))
	for _, a := range req.SyncActions {
		actions = append(actions, &workspace.FinalizedAction{
			FilePath:    a.FilePath,
			FileID:      a.FileID,
			StorageKey:  a.StorageKey,
			Op:          workspace.FinalOp(a.Action),
			Kind:        workspace.PathKind(a.Kind),
			ContentHash: a.ClientHash,
			Size:        a.Size,
		})
	}

	version, err := h.svc.Committer().Confirm(ctx.Request.Context(), workspaceID, req.WorkspaceVersion, actions)
	if err != nil {
		h.writeConfirmError(ctx, workspaceID, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &ConfirmResponse{
		Status:           ConfirmStatusSuccess,
		WorkspaceVersion: version,
	})
}

func (h *WorkspaceHandler) writeConfirmError(ctx *gin.Context, workspaceID string, err error) {
	if conflict, ok := workspace.AsConflict(err); ok {
		code := CodeWorkspaceConflict
		if conflict.Expired {
			code = CodeReservationExpired
		}
		ctx.PureJSON(http.StatusConflict, &ConfirmResponse{
			Status:         ConfirmStatusConflict,
			CurrentVersion: conflict.CurrentVersion,
			ErrorCode:      code,
			ErrorMessage:   conflict.Error(),
		})
		return
	}
	if v, ok := workspace.AsValidation(err); ok {
		ctx.PureJSON(http.StatusBadRequest, &ConfirmResponse{
			Status:       ConfirmStatusError,
			ErrorCode:    CodeValidation,
			ErrorMessage: v.Reason,
		})
		return
	}
	if errors.Is(err, workspace.ErrWorkspaceNotFound) {
		ctx.PureJSON(http.StatusNotFound, &ConfirmResponse{
			Status:       ConfirmStatusError,
			ErrorCode:    CodeWorkspaceNotFound,
			ErrorMessage: "workspace not found",
		})
		return
	}

	slog.Error("confirm failed", "workspace", workspaceID, "error", err)
	ctx.PureJSON(http.StatusInternalServerError, &ConfirmResponse{
		Status:       ConfirmStatusError,
		ErrorCode:    CodeInternalError,
		ErrorMessage: "confirm failed",
	})
}
