package sync

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codepod-dev/codepod/internal/sdk"
)

// Phase of a sync round, in the order rounds move through them.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDiffing    Phase = "diffing"
	PhaseSyncing    Phase = "syncing"
	PhaseUploading  Phase = "uploading"
	PhaseConfirming Phase = "confirming"
	PhaseExecuting  Phase = "executing"
	PhaseDone       Phase = "done"
	PhaseAborted    Phase = "aborted"
)

// User-facing messages for aborted rounds.
const (
	MsgStaleView = "your view is stale, reloading"
	MsgNotSaved  = "changes not saved, please retry"
)

const manifestCacheSize = 64

// Transport is the server surface a round needs. *sdk.CodepodSDK
// satisfies it through sdkTransport.
type Transport interface {
	Manifest(ctx context.Context, workspaceID string) (*sdk.ManifestResponse, error)
	Sync(ctx context.Context, workspaceID string, params *sdk.SyncRequest) (*sdk.SyncResponse, error)
	Confirm(ctx context.Context, workspaceID string, params *sdk.ConfirmRequest) (*sdk.ConfirmResponse, error)
	Execute(ctx context.Context, workspaceID string, params *sdk.ExecuteRequest) (*sdk.ExecuteResponse, error)
	Upload(ctx context.Context, uploads []*sdk.Upload) error
}

type sdkTransport struct {
	sdk *sdk.CodepodSDK
}

func (t *sdkTransport) Manifest(ctx context.Context, workspaceID string) (*sdk.ManifestResponse, error) {
	return t.sdk.Workspace.Manifest(ctx, workspaceID)
}

func (t *sdkTransport) Sync(ctx context.Context, workspaceID string, params *sdk.SyncRequest) (*sdk.SyncResponse, error) {
	return t.sdk.Workspace.Sync(ctx, workspaceID, params)
}

func (t *sdkTransport) Confirm(ctx context.Context, workspaceID string, params *sdk.ConfirmRequest) (*sdk.ConfirmResponse, error) {
	return t.sdk.Workspace.Confirm(ctx, workspaceID, params)
}

func (t *sdkTransport) Execute(ctx context.Context, workspaceID string, params *sdk.ExecuteRequest) (*sdk.ExecuteResponse, error) {
	return t.sdk.Exec.Execute(ctx, workspaceID, params)
}

func (t *sdkTransport) Upload(ctx context.Context, uploads []*sdk.Upload) error {
	return t.sdk.Uploader.UploadAll(ctx, uploads)
}

type cachedManifest struct {
	Version int64
	Entries []sdk.ManifestEntry
}

// RunResult is the outcome of one sync round.
type RunResult struct {
	Phase            Phase
	Changes          int
	WorkspaceVersion int64
	JobID            string
	Message          string
}

func (r *RunResult) Aborted() bool {
	return r.Phase == PhaseAborted
}

// Engine drives sync rounds against one server. It caches the last
// confirmed manifest per workspace so an unchanged tree can skip
// straight to execution; the cache is only updated after a confirmed
// round or a conflict reload, never mid-round.
type Engine struct {
	transport Transport
	manifests *lru.Cache[string, *cachedManifest]
}

func NewEngine(client *sdk.CodepodSDK) (*Engine, error) {
	return newEngine(&sdkTransport{sdk: client})
}

func newEngine(transport Transport) (*Engine, error) {
	manifests, err := lru.New[string, *cachedManifest](manifestCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create manifest cache: %w", err)
	}
	return &Engine{
		transport: transport,
		manifests: manifests,
	}, nil
}

// Run executes one round: diff the local tree against the committed
// manifest, sync, upload, confirm, then trigger execution when an
// entrypoint is given. A conflicted round reloads the manifest and
// aborts without committing anything; the caller shows Message and
// retries with a fresh diff.
func (e *Engine) Run(ctx context.Context, workspaceID string, local []*FileState, entrypoint string) (*RunResult, error) {
	manifest, err := e.manifest(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	changes := DiffManifest(local, manifest.Entries)
	slog.Debug("round diff", "workspace", workspaceID, "base", manifest.Version, "changes", len(changes))

	if len(changes) == 0 {
		return e.execute(ctx, workspaceID, manifest.Version, 0, entrypoint)
	}

	syncResp, err := e.transport.Sync(ctx, workspaceID, &sdk.SyncRequest{
		WorkspaceVersion: manifest.Version,
		Files:            syncFiles(changes),
	})
	if err != nil {
		if _, ok := sdk.AsConflict(err); ok {
			slog.Info("round stale at sync", "workspace", workspaceID, "base", manifest.Version)
			e.reload(ctx, workspaceID)
			return &RunResult{Phase: PhaseAborted, Changes: len(changes), Message: MsgStaleView}, nil
		}
		return nil, fmt.Errorf("sync: %w", err)
	}

	uploads, err := collectUploads(syncResp.Actions, local)
	if err != nil {
		return nil, err
	}
	if len(uploads) > 0 {
		if err := e.transport.Upload(ctx, uploads); err != nil {
			// nothing was confirmed, the round just stops here
			slog.Warn("round upload failed", "workspace", workspaceID, "error", err)
			return &RunResult{Phase: PhaseAborted, Changes: len(changes), Message: MsgNotSaved}, fmt.Errorf("upload: %w", err)
		}
	}

	confirmResp, err := e.transport.Confirm(ctx, workspaceID, &sdk.ConfirmRequest{
		WorkspaceVersion: syncResp.ProvisionalVersion,
		SyncActions:      confirmActions(syncResp.Actions, local),
	})
	if err != nil {
		if _, ok := sdk.AsConflict(err); ok {
			slog.Info("round lost at confirm", "workspace", workspaceID, "provisional", syncResp.ProvisionalVersion)
			e.reload(ctx, workspaceID)
			return &RunResult{Phase: PhaseAborted, Changes: len(changes), Message: MsgStaleView}, nil
		}
		return nil, fmt.Errorf("confirm: %w", err)
	}

	e.reload(ctx, workspaceID)
	return e.execute(ctx, workspaceID, confirmResp.WorkspaceVersion, len(changes), entrypoint)
}

func (e *Engine) execute(ctx context.Context, workspaceID string, version int64, changes int, entrypoint string) (*RunResult, error) {
	result := &RunResult{
		Phase:            PhaseDone,
		Changes:          changes,
		WorkspaceVersion: version,
	}
	if entrypoint == "" {
		return result, nil
	}

	execResp, err := e.transport.Execute(ctx, workspaceID, &sdk.ExecuteRequest{
		EntrypointFile: entrypoint,
	})
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	result.JobID = execResp.JobID
	return result, nil
}

// manifest returns the cached view, fetching on a cold cache.
func (e *Engine) manifest(ctx context.Context, workspaceID string) (*cachedManifest, error) {
	if cached, ok := e.manifests.Get(workspaceID); ok {
		return cached, nil
	}
	return e.fetch(ctx, workspaceID)
}

func (e *Engine) fetch(ctx context.Context, workspaceID string) (*cachedManifest, error) {
	resp, err := e.transport.Manifest(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	cached := &cachedManifest{
		Version: resp.WorkspaceVersion,
		Entries: resp.Manifest,
	}
	e.manifests.Add(workspaceID, cached)
	return cached, nil
}

// reload refreshes the cached manifest, dropping it if the server
// cannot be reached so the next round starts from a clean fetch.
func (e *Engine) reload(ctx context.Context, workspaceID string) {
	if _, err := e.fetch(ctx, workspaceID); err != nil {
		slog.Warn("manifest reload failed", "workspace", workspaceID, "error", err)
		e.manifests.Remove(workspaceID)
	}
}

func syncFiles(changes []*Change) []sdk.SyncFile {
	files := make([]sdk.SyncFile, 0, len(changes))
	for _, change := range changes {
		files = append(files, sdk.SyncFile{
			FilePath:   change.Path,
			Kind:       change.Kind,
			Action:     change.Action,
			ClientHash: change.Hash,
		})
	}
	return files
}

func collectUploads(actions []sdk.SyncAction, local []*FileState) ([]*sdk.Upload, error) {
	localByPath := make(map[string]*FileState, len(local))
	for _, f := range local {
		localByPath[f.Path] = f
	}

	uploads := make([]*sdk.Upload, 0, len(actions))
	for _, action := range actions {
		if action.ActionRequired != sdk.ActionUpload {
			continue
		}
		f, ok := localByPath[action.FilePath]
		if !ok {
			return nil, fmt.Errorf("upload %s: no local content", action.FilePath)
		}
		uploads = append(uploads, &sdk.Upload{
			FilePath:   action.FilePath,
			Capability: action.UploadCapability,
			Content:    f.Content,
		})
	}
	return uploads, nil
}

func confirmActions(actions []sdk.SyncAction, local []*FileState) []sdk.ConfirmAction {
	localByPath := make(map[string]*FileState, len(local))
	for _, f := range local {
		localByPath[f.Path] = f
	}

	confirmed := make([]sdk.ConfirmAction, 0, len(actions))
	for _, action := range actions {
		ca := sdk.ConfirmAction{
			FilePath:   action.FilePath,
			FileID:     action.FileID,
			StorageKey: action.StorageKey,
			Kind:       action.Kind,
			Action:     sdk.OpUpsert,
		}
		if action.ActionRequired == sdk.ActionDelete {
			ca.Action = sdk.OpDelete
		} else if action.Kind == sdk.KindFile {
			if f, ok := localByPath[action.FilePath]; ok {
				ca.ClientHash = f.Hash()
				ca.Size = int64(len(f.Content))
			}
		}
		confirmed = append(confirmed, ca)
	}
	return confirmed
}
