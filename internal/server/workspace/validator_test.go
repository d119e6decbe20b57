package workspace

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorVersionConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ws, err := svc.Store().CreateWorkspace(ctx, "")
	require.NoError(t, err)

	_, err = svc.Validator().Sync(ctx, ws.ID, 7, []*FileChange{
		{FilePath: "/a.py", Kind: KindFile, Change: ChangeNew, ClientHash: "h"},
	})
	conflict, ok := AsConflict(err)
	require.True(t, ok)
	assert.EqualValues(t, 0, conflict.CurrentVersion)
	assert.False(t, conflict.Expired)

	// conflicts leave no reservation behind
	reservations, err := svc.Store().GetReservations(ctx, ws.ID, 8)
	require.NoError(t, err)
	assert.Empty(t, reservations)
}

func TestValidatorNewFileAndFolder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ws, err := svc.Store().CreateWorkspace(ctx, "")
	require.NoError(t, err)

	plan, err := svc.Validator().Sync(ctx, ws.ID, 0, []*FileChange{
		{FilePath: "/a.py", Kind: KindFile, Change: ChangeNew, ClientHash: "h1"},
		{FilePath: "/docs", Kind: KindFolder, Change: ChangeNew},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, plan.ProvisionalVersion)
	require.Len(t, plan.Actions, 2)

	byPath := map[string]*SyncAction{}
	for _, a := range plan.Actions {
		byPath[a.FilePath] = a
	}

	file := byPath["/a.py"]
	require.NotNil(t, file)
	assert.Equal(t, ActionUpload, file.Action)
	assert.NotEmpty(t, file.FileID)
	assert.Equal(t, StorageKey(ws.ID, file.FileID), file.StorageKey)
	assert.NotEmpty(t, file.UploadCapability)

	// folders never receive upload capabilities
	folder := byPath["/docs"]
	require.NotNil(t, folder)
	assert.Equal(t, ActionNone, folder.Action)
	assert.Empty(t, folder.StorageKey)
	assert.Empty(t, folder.UploadCapability)

	reservations, err := svc.Store().GetReservations(ctx, ws.ID, 1)
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.EqualValues(t, 0, reservations[0].BaseVersion)
}

func TestValidatorModifiedReusesIdentity(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	ws := commitSeedFile(t, svc, backend, "/a.py", []byte("v1"))

	plan, err := svc.Validator().Sync(ctx, ws.ID, 1, []*FileChange{
		{FilePath: "/a.py", Kind: KindFile, Change: ChangeModified, ClientHash: "h2"},
	})
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)

	entry, err := svc.Store().GetEntry(ctx, ws.ID, "/a.py")
	require.NoError(t, err)

	action := plan.Actions[0]
	assert.Equal(t, entry.FileID, action.FileID)
	assert.Equal(t, entry.StorageKey, action.StorageKey)
	assert.Equal(t, ActionUpload, action.Action)
	assert.NotEmpty(t, action.UploadCapability)
}

func TestValidatorDeleteEchoesWithoutCapability(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	ws := commitSeedFile(t, svc, backend, "/b.py", []byte("bye"))

	plan, err := svc.Validator().Sync(ctx, ws.ID, 1, []*FileChange{
		{FilePath: "/b.py", Kind: KindFile, Change: ChangeDeleted},
	})
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)

	action := plan.Actions[0]
	assert.Equal(t, ActionDelete, action.Action)
	assert.Empty(t, action.UploadCapability)
	assert.NotEmpty(t, action.StorageKey)
}

func TestValidatorValidationErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ws, err := svc.Store().CreateWorkspace(ctx, "")
	require.NoError(t, err)

	cases := []struct {
		name    string
		changes []*FileChange
	}{
		{"empty set", nil},
		{"relative path", []*FileChange{{FilePath: "a.py", Kind: KindFile, Change: ChangeNew}}},
		{"dotdot path", []*FileChange{{FilePath: "/a/../b", Kind: KindFile, Change: ChangeNew}}},
		{"bad kind", []*FileChange{{FilePath: "/a.py", Kind: "link", Change: ChangeNew}}},
		{"bad change", []*FileChange{{FilePath: "/a.py", Kind: KindFile, Change: "renamed"}}},
		{"modified folder", []*FileChange{{FilePath: "/docs", Kind: KindFolder, Change: ChangeModified}}},
		{"new file without hash", []*FileChange{{FilePath: "/a.py", Kind: KindFile, Change: ChangeNew}}},
		{"modified file without hash", []*FileChange{{FilePath: "/a.py", Kind: KindFile, Change: ChangeModified}}},
		{"duplicate path", []*FileChange{
			{FilePath: "/a.py", Kind: KindFile, Change: ChangeNew, ClientHash: "h"},
			{FilePath: "/a.py", Kind: KindFile, Change: ChangeNew, ClientHash: "h"},
		}},
		{"modified unknown path", []*FileChange{{FilePath: "/ghost.py", Kind: KindFile, Change: ChangeModified, ClientHash: "h"}}},
		{"deleted unknown path", []*FileChange{{FilePath: "/ghost.py", Kind: KindFile, Change: ChangeDeleted}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Validator().Sync(ctx, ws.ID, 0, tc.changes)
			_, ok := AsValidation(err)
			assert.True(t, ok, "expected validation error, got %v", err)
		})
	}
}

func TestValidatorWorkspaceNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Validator().Sync(context.Background(), "missing", 0, []*FileChange{
		{FilePath: "/a.py", Kind: KindFile, Change: ChangeNew},
	})
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
}

func TestStorageKeyShape(t *testing.T) {
	key := StorageKey("ws", "file")
	assert.Equal(t, "ws/file", key)
	assert.Equal(t, 1, strings.Count(key, "/"))
}
