package sync

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/codepod-dev/codepod/internal/sdk"
)

// Change is one local divergence from the committed manifest.
type Change struct {
	Path   string
	Kind   string
	Action string
	Hash   string
}

// DiffManifest compares the local working tree against the committed
// manifest and returns the change set, sorted by path. The result
// depends only on the two states, not on their input order.
//
// Folders carry no content, so a folder present on both sides is never
// reported as modified. A path whose kind flipped is reported as
// deleted first; the replacement surfaces as new on the following
// round.
func DiffManifest(local []*FileState, manifest []sdk.ManifestEntry) []*Change {
	localByPath := make(map[string]*FileState, len(local))
	localPaths := mapset.NewSetWithSize[string](len(local))
	for _, f := range local {
		localByPath[f.Path] = f
		localPaths.Add(f.Path)
	}

	remoteByPath := make(map[string]sdk.ManifestEntry, len(manifest))
	remotePaths := mapset.NewSetWithSize[string](len(manifest))
	for _, e := range manifest {
		remoteByPath[e.FilePath] = e
		remotePaths.Add(e.FilePath)
	}

	changes := make([]*Change, 0)

	for path := range localPaths.Difference(remotePaths).Iter() {
		f := localByPath[path]
		changes = append(changes, &Change{
			Path:   path,
			Kind:   f.Kind,
			Action: sdk.ChangeNew,
			Hash:   f.Hash(),
		})
	}

	for path := range remotePaths.Difference(localPaths).Iter() {
		entry := remoteByPath[path]
		changes = append(changes, &Change{
			Path:   path,
			Kind:   entry.Kind,
			Action: sdk.ChangeDeleted,
		})
	}

	for path := range localPaths.Intersect(remotePaths).Iter() {
		f := localByPath[path]
		entry := remoteByPath[path]

		if f.Kind != entry.Kind {
			changes = append(changes, &Change{
				Path:   path,
				Kind:   entry.Kind,
				Action: sdk.ChangeDeleted,
			})
			continue
		}
		if f.Kind != sdk.KindFile {
			continue
		}
		if hash := f.Hash(); hash != entry.ContentHash {
			changes = append(changes, &Change{
				Path:   path,
				Kind:   sdk.KindFile,
				Action: sdk.ChangeModified,
				Hash:   hash,
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}
