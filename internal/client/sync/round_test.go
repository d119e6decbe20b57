package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepod-dev/codepod/internal/sdk"
)

// fakeServer implements Transport with just enough server behavior to
// drive rounds end to end.
type fakeServer struct {
	version int64
	entries map[string]sdk.ManifestEntry

	manifestCalls int
	syncCalls     int
	confirmCalls  int
	uploads       []*sdk.Upload
	executed      []*sdk.ExecuteRequest

	syncErr    error
	confirmErr error
	uploadErr  error
}

func newFakeServer() *fakeServer {
	return &fakeServer{entries: make(map[string]sdk.ManifestEntry)}
}

func (s *fakeServer) seed(entry sdk.ManifestEntry) {
	s.entries[entry.FilePath] = entry
	s.version++
}

func (s *fakeServer) Manifest(ctx context.Context, workspaceID string) (*sdk.ManifestResponse, error) {
	s.manifestCalls++
	manifest := make([]sdk.ManifestEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		manifest = append(manifest, entry)
	}
	return &sdk.ManifestResponse{Manifest: manifest, WorkspaceVersion: s.version}, nil
}

func (s *fakeServer) Sync(ctx context.Context, workspaceID string, params *sdk.SyncRequest) (*sdk.SyncResponse, error) {
	s.syncCalls++
	if s.syncErr != nil {
		return nil, s.syncErr
	}
	if params.WorkspaceVersion != s.version {
		return nil, &sdk.ConflictError{Code: sdk.CodeWorkspaceConflict, CurrentVersion: s.version}
	}

	actions := make([]sdk.SyncAction, 0, len(params.Files))
	for _, f := range params.Files {
		action := sdk.SyncAction{
			FilePath:   f.FilePath,
			Kind:       f.Kind,
			FileID:     "id-" + f.FilePath,
			StorageKey: "ws" + f.FilePath,
		}
		if existing, ok := s.entries[f.FilePath]; ok {
			action.FileID = existing.FileID
			action.StorageKey = existing.StorageKey
		}
		switch {
		case f.Action == sdk.ChangeDeleted:
			action.ActionRequired = sdk.ActionDelete
		case f.Kind == sdk.KindFile:
			action.ActionRequired = sdk.ActionUpload
			action.UploadCapability = "cap:" + action.StorageKey
		default:
			action.ActionRequired = sdk.ActionNone
		}
		actions = append(actions, action)
	}

	return &sdk.SyncResponse{
		Status:             sdk.SyncStatusOK,
		Actions:            actions,
		ProvisionalVersion: s.version + 1,
	}, nil
}

func (s *fakeServer) Upload(ctx context.Context, uploads []*sdk.Upload) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.uploads = append(s.uploads, uploads...)
	return nil
}

func (s *fakeServer) Confirm(ctx context.Context, workspaceID string, params *sdk.ConfirmRequest) (*sdk.ConfirmResponse, error) {
	s.confirmCalls++
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}

	for _, action := range params.SyncActions {
		if action.Action == sdk.OpDelete {
			delete(s.entries, action.FilePath)
			continue
		}
		s.entries[action.FilePath] = sdk.ManifestEntry{
			FilePath:    action.FilePath,
			FileID:      action.FileID,
			StorageKey:  action.StorageKey,
			Kind:        action.Kind,
			ContentHash: action.ClientHash,
			Size:        action.Size,
		}
	}
	s.version++
	return &sdk.ConfirmResponse{Status: sdk.ConfirmStatusSuccess, WorkspaceVersion: s.version}, nil
}

func (s *fakeServer) Execute(ctx context.Context, workspaceID string, params *sdk.ExecuteRequest) (*sdk.ExecuteResponse, error) {
	s.executed = append(s.executed, params)
	return &sdk.ExecuteResponse{JobID: "job-1"}, nil
}

func newTestEngine(t *testing.T, server *fakeServer) *Engine {
	t.Helper()
	engine, err := newEngine(server)
	require.NoError(t, err)
	return engine
}

func TestRoundHappyPath(t *testing.T) {
	server := newFakeServer()
	engine := newTestEngine(t, server)

	local := []*FileState{
		fileState("/main.py", "print('hi')"),
		folderState("/docs"),
	}

	result, err := engine.Run(context.Background(), "ws-1", local, "/main.py")
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, result.Phase)
	assert.EqualValues(t, 1, result.WorkspaceVersion)
	assert.Equal(t, 2, result.Changes)
	assert.Equal(t, "job-1", result.JobID)

	require.Len(t, server.uploads, 1)
	assert.Equal(t, "/main.py", server.uploads[0].FilePath)
	assert.Equal(t, []byte("print('hi')"), server.uploads[0].Content)
	assert.Equal(t, 1, server.confirmCalls)
	assert.Len(t, server.entries, 2)
}

func TestRoundUnchangedTreeSkipsSync(t *testing.T) {
	server := newFakeServer()
	engine := newTestEngine(t, server)

	local := []*FileState{fileState("/main.py", "content")}
	_, err := engine.Run(context.Background(), "ws-1", local, "")
	require.NoError(t, err)
	require.Equal(t, 1, server.syncCalls)

	// same tree again: the cached manifest matches, execution runs
	// without another sync round
	result, err := engine.Run(context.Background(), "ws-1", local, "/main.py")
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, result.Phase)
	assert.Equal(t, 0, result.Changes)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, 1, server.syncCalls)
	assert.Len(t, server.executed, 1)
}

func TestRoundNoEntrypointNoExecution(t *testing.T) {
	server := newFakeServer()
	engine := newTestEngine(t, server)

	result, err := engine.Run(context.Background(), "ws-1", []*FileState{fileState("/a.py", "a")}, "")
	require.NoError(t, err)
	assert.Empty(t, result.JobID)
	assert.Empty(t, server.executed)
}

func TestRoundSyncConflictReloadsManifest(t *testing.T) {
	server := newFakeServer()
	engine := newTestEngine(t, server)

	server.syncErr = &sdk.ConflictError{Code: sdk.CodeWorkspaceConflict, CurrentVersion: 5}

	result, err := engine.Run(context.Background(), "ws-1", []*FileState{fileState("/a.py", "a")}, "/a.py")
	require.NoError(t, err)
	assert.True(t, result.Aborted())
	assert.Equal(t, MsgStaleView, result.Message)
	assert.Empty(t, result.JobID)
	assert.Equal(t, 0, server.confirmCalls)
	// one fetch for the round, one for the reload
	assert.Equal(t, 2, server.manifestCalls)
}

func TestRoundUploadFailureSkipsConfirm(t *testing.T) {
	server := newFakeServer()
	engine := newTestEngine(t, server)

	server.uploadErr = assert.AnError

	result, err := engine.Run(context.Background(), "ws-1", []*FileState{fileState("/a.py", "a")}, "/a.py")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Aborted())
	assert.Equal(t, MsgNotSaved, result.Message)
	assert.Equal(t, 0, server.confirmCalls)
	assert.EqualValues(t, 0, server.version)
}

func TestRoundConfirmConflictAborts(t *testing.T) {
	server := newFakeServer()
	engine := newTestEngine(t, server)

	server.confirmErr = &sdk.ConflictError{Code: sdk.CodeWorkspaceConflict, CurrentVersion: 1}

	result, err := engine.Run(context.Background(), "ws-1", []*FileState{fileState("/a.py", "a")}, "/a.py")
	require.NoError(t, err)
	assert.True(t, result.Aborted())
	assert.Equal(t, MsgStaleView, result.Message)
	assert.Empty(t, result.JobID)
	assert.Equal(t, 2, server.manifestCalls)
}

func TestRoundDelete(t *testing.T) {
	server := newFakeServer()
	server.seed(sdk.ManifestEntry{
		FilePath: "/old.py", FileID: "id-old", StorageKey: "ws/old.py",
		Kind: sdk.KindFile, ContentHash: "h", Size: 1,
	})
	engine := newTestEngine(t, server)

	result, err := engine.Run(context.Background(), "ws-1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, result.Phase)
	assert.EqualValues(t, 2, result.WorkspaceVersion)
	assert.Empty(t, server.entries)
	assert.Empty(t, server.uploads)
}
