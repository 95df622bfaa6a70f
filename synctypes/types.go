// Package synctypes provides shared type definitions for the sitesync module.
package synctypes

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/charmbracelet/log"
)

// ManifestEntry describes a single file, local or remote, within a Manifest.
type ManifestEntry struct {
	// Path is the relative path of the file within the sync root or prefix.
	// It is the unique key within a Manifest and always uses forward slashes.
	Path string

	// Fingerprint is the hex-encoded content hash. For local files this is
	// an MD5 digest of the file content. For remote objects it is the entity
	// tag reported by S3 with surrounding quotes stripped.
	Fingerprint string

	// Size is the file or object size in bytes.
	Size int64

	// ModTime is the local modification time or remote LastModified. It is
	// metadata only and never participates in change detection.
	ModTime time.Time

	// OpaqueTag marks a fingerprint whose hash algorithm is unknown, such as
	// a multipart-upload entity tag. Entries with an opaque tag always
	// compare as changed.
	OpaqueTag bool
}

// Manifest is a snapshot mapping of relative paths to entries. Manifests are
// immutable once built; the diff that consumes them discards them afterwards.
type Manifest map[string]ManifestEntry

// Paths returns the set of paths in the manifest, unsorted.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	return paths
}

// DiffResult partitions the union of local and remote paths into the three
// sets a sync run acts on. No path ever appears in more than one set.
type DiffResult struct {
	// Upload holds paths that are new locally or whose content differs.
	Upload []string

	// Delete holds paths present remotely but absent locally.
	Delete []string

	// Unchanged holds paths whose fingerprints match.
	Unchanged []string
}

// Empty reports whether the diff requires no remote mutation.
func (d *DiffResult) Empty() bool {
	return len(d.Upload) == 0 && len(d.Delete) == 0
}

// Changed returns the union of uploaded and deleted paths, the set a cache
// invalidation must cover.
func (d *DiffResult) Changed() []string {
	changed := make([]string, 0, len(d.Upload)+len(d.Delete))
	changed = append(changed, d.Upload...)
	changed = append(changed, d.Delete...)
	return changed
}

// InvalidationRequest records a CDN invalidation issued after a sync run.
// Its lifecycle ends when the CDN acknowledges acceptance; completion is
// asynchronous and tracked externally via the ID.
type InvalidationRequest struct {
	// ID is the identifier assigned by the CDN, used for status polling.
	ID string

	// Paths are the path patterns submitted for invalidation.
	Paths []string

	// IssuedAt is when the request was accepted.
	IssuedAt time.Time
}

// KeyError records a per-key failure during sync execution.
type KeyError struct {
	// Key is the object key the operation targeted.
	Key string

	// Op is the operation that failed ("upload" or "delete").
	Op string

	// Err is the underlying error.
	Err error
}

// SyncResult is the machine-readable summary of a sync run.
type SyncResult struct {
	// Uploaded is the number of objects successfully uploaded.
	Uploaded int `json:"uploaded"`

	// Deleted is the number of objects successfully deleted.
	Deleted int `json:"deleted"`

	// Skipped is the number of unchanged paths.
	Skipped int `json:"skipped"`

	// Failed is the number of keys whose upload or delete failed.
	Failed int `json:"failed"`

	// BytesUploaded is the total payload uploaded.
	BytesUploaded int64 `json:"bytes_uploaded"`

	// Errors holds the per-key failures, empty on full success.
	Errors []KeyError `json:"-"`

	// FailedKeys lists the keys that failed, for the JSON summary.
	FailedKeys []string `json:"failed_keys,omitempty"`

	// Invalidation is the CDN invalidation issued for this run, nil when the
	// diff was empty or no distribution is configured.
	Invalidation *InvalidationRequest `json:"invalidation,omitempty"`

	// DryRun indicates the plan was computed but not executed.
	DryRun bool `json:"dry_run,omitempty"`

	// Duration is the wall-clock time of the whole run.
	Duration time.Duration `json:"duration_ns"`
}

// ClientConfig holds configuration for the sitesync client.
type ClientConfig struct {
	Region           string
	MaxRetries       int
	Timeout          time.Duration
	Concurrency      int
	ForcePathStyle   bool
	DistributionID   string
	CustomAWSConfig  *aws.Config
	CustomHTTPClient *http.Client
	Logger           *log.Logger
}

// SyncOptionConfig holds per-run configuration applied via functional options.
type SyncOptionConfig struct {
	DryRun                bool
	DeleteExtra           bool
	IncludePatterns       []string
	ExcludePatterns       []string
	CacheControl          string
	Concurrency           int
	DistributionID        string
	InvalidationThreshold int
}

// Option is a functional option for configuring the client.
type (
	Option func(*ClientConfig)
	// SyncOption is a functional option for configuring a single sync run.
	SyncOption func(*SyncOptionConfig)
)
