package sync

import (
	"github.com/codepod-dev/codepod/internal/sdk"
	"github.com/codepod-dev/codepod/internal/utils"
)

// FileState is the client's view of one path in the working tree.
type FileState struct {
	Path    string
	Kind    string
	Content []byte
}

// Hash returns the content hash for files, empty for folders.
func (f *FileState) Hash() string {
	if f.Kind != sdk.KindFile {
		return ""
	}
	return utils.HashBytes(f.Content)
}
