package exec

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codepod-dev/codepod/internal/server/exec"
	"github.com/codepod-dev/codepod/internal/server/workspace"
)

type ExecuteRequest struct {
	EntrypointFile string `json:"entrypointFile"`
	Input          string `json:"input,omitempty"`
}

type ExecuteResponse struct {
	JobID string `json:"jobId"`
}

type ExecHandler struct {
	jobs       *exec.Service
	workspaces *workspace.Service
}

func New(jobs *exec.Service, workspaces *workspace.Service) *ExecHandler {
	return &ExecHandler{
		jobs:       jobs,
		workspaces: workspaces,
	}
}

// Execute triggers a run against the workspace's committed version.
func (h *ExecHandler) Execute(ctx *gin.Context) {
	workspaceID := ctx.Param("id")

	var req ExecuteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.PureJSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	ws, err := h.workspaces.Store().GetWorkspace(ctx.Request.Context(), workspaceID)
	if errors.Is(err, workspace.ErrWorkspaceNotFound) {
		ctx.PureJSON(http.StatusNotFound, gin.H{
			"error": "workspace not found",
		})
		return
	}
	if err != nil {
		slog.Error("execute lookup failed", "workspace", workspaceID, "error", err)
		ctx.PureJSON(http.StatusInternalServerError, gin.H{
			"error": "could not load workspace",
		})
		return
	}

	job, err := h.jobs.Submit(ctx.Request.Context(), ws.ID, ws.Version, req.EntrypointFile, req.Input)
	if err != nil {
		ctx.PureJSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	ctx.PureJSON(http.StatusOK, &ExecuteResponse{
		JobID: job.ID,
	})
}

// GetJob is the poll endpoint for job status and result.
func (h *ExecHandler) GetJob(ctx *gin.Context) {
	job, err := h.jobs.Get(ctx.Param("id"))
	if errors.Is(err, exec.ErrJobNotFound) {
		ctx.PureJSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}
	if err != nil {
		ctx.PureJSON(http.StatusInternalServerError, gin.H{
			"error": "could not load job",
		})
		return
	}

	ctx.PureJSON(http.StatusOK, job)
}
