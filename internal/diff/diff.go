// Package diff computes the change set between a local and a remote manifest.
package diff

import (
	"sort"

	"github.com/forgeops/sitesync/synctypes"
)

// Compute compares the two manifests and partitions the union of their paths
// into Upload, Delete, and Unchanged. It is a pure function: identical inputs
// always produce identical output, which is what makes re-runs idempotent.
//
// Rules:
//   - present locally, absent remotely: Upload
//   - present in both, fingerprints equal and comparable: Unchanged
//   - present in both, fingerprints differ or the remote tag is opaque: Upload
//   - present remotely, absent locally: Delete
//
// Modification times never participate; they are metadata, not identity.
// Output slices are sorted so downstream batching is deterministic.
func Compute(local, remote synctypes.Manifest) synctypes.DiffResult {
	var result synctypes.DiffResult

	for path, localEntry := range local {
		remoteEntry, exists := remote[path]
		switch {
		case !exists:
			result.Upload = append(result.Upload, path)
		case changed(localEntry, remoteEntry):
			result.Upload = append(result.Upload, path)
		default:
			result.Unchanged = append(result.Unchanged, path)
		}
	}

	for path := range remote {
		if _, exists := local[path]; !exists {
			result.Delete = append(result.Delete, path)
		}
	}

	sort.Strings(result.Upload)
	sort.Strings(result.Delete)
	sort.Strings(result.Unchanged)
	return result
}

// changed reports whether the local file must replace the remote object.
// An opaque remote tag means the fingerprint algorithms cannot be compared,
// so the entry is conservatively treated as changed.
func changed(local, remote synctypes.ManifestEntry) bool {
	if remote.OpaqueTag {
		return true
	}
	if local.Size != remote.Size {
		return true
	}
	return local.Fingerprint != remote.Fingerprint
}
