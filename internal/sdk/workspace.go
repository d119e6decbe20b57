package sdk

import (
	"context"
	"fmt"

	"github.com/imroc/req/v3"
)

const (
	v1WorkspaceCreate   = "/api/v1/workspace"
	v1WorkspaceManifest = "/api/v1/workspace/%s/manifest"
	v1WorkspaceSync     = "/api/v1/workspace/%s/sync"
	v1WorkspaceConfirm  = "/api/v1/workspace/%s/confirm"
)

type WorkspaceAPI struct {
	client *req.Client
}

func newWorkspaceAPI(client *req.Client) *WorkspaceAPI {
	return &WorkspaceAPI{
		client: client,
	}
}

// Create provisions a new workspace at version 0.
func (w *WorkspaceAPI) Create(ctx context.Context, name string) (apiResp *CreateWorkspaceResponse, err error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(&CreateWorkspaceRequest{Name: name}).
		SetSuccessResult(&apiResp).
		Post(v1WorkspaceCreate)

	if err := handleAPIError(resp, err, "workspace create"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Manifest fetches the committed manifest and current version.
func (w *WorkspaceAPI) Manifest(ctx context.Context, workspaceID string) (apiResp *ManifestResponse, err error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetSuccessResult(&apiResp).
		Get(fmt.Sprintf(v1WorkspaceManifest, workspaceID))

	if err := handleAPIError(resp, err, "workspace manifest"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Sync runs phase 1: submit the change set against a base version, get
// back per-file actions and a provisional version. A stale base version
// surfaces as a ConflictError.
func (w *WorkspaceAPI) Sync(ctx context.Context, workspaceID string, params *SyncRequest) (*SyncResponse, error) {
	var apiResp SyncResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&apiResp).
		SetErrorResult(&apiResp).
		Post(fmt.Sprintf(v1WorkspaceSync, workspaceID))
	if err != nil {
		return nil, fmt.Errorf("http request error: workspace sync %w", err)
	}

	if resp.IsErrorState() {
		return nil, roundError(resp, "workspace sync", apiResp.ErrorCode, apiResp.ErrorMessage, apiResp.CurrentVersion)
	}

	return &apiResp, nil
}

// Confirm runs phase 2: submit the finalized actions under the
// provisional version. A lost race or lapsed reservation surfaces as a
// ConflictError carrying the server's current version.
func (w *WorkspaceAPI) Confirm(ctx context.Context, workspaceID string, params *ConfirmRequest) (*ConfirmResponse, error) {
	var apiResp ConfirmResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&apiResp).
		SetErrorResult(&apiResp).
		Post(fmt.Sprintf(v1WorkspaceConfirm, workspaceID))
	if err != nil {
		return nil, fmt.Errorf("http request error: workspace confirm %w", err)
	}

	if resp.IsErrorState() {
		return nil, roundError(resp, "workspace confirm", apiResp.ErrorCode, apiResp.ErrorMessage, apiResp.CurrentVersion)
	}

	return &apiResp, nil
}

func roundError(resp *req.Response, operation, code, message string, currentVersion int64) error {
	switch code {
	case CodeWorkspaceConflict, CodeReservationExpired:
		return &ConflictError{
			Code:           code,
			Message:        message,
			CurrentVersion: currentVersion,
		}
	case "":
		return fmt.Errorf("api error: %s %s", operation, resp.Dump())
	default:
		return fmt.Errorf("%s %w", operation, NewAPIError(code, message))
	}
}
