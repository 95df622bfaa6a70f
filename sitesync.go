package sitesync

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/forgeops/sitesync/errors"
	"github.com/forgeops/sitesync/internal/diff"
	"github.com/forgeops/sitesync/internal/invalidate"
	"github.com/forgeops/sitesync/internal/remote"
	"github.com/forgeops/sitesync/internal/scan"
	"github.com/forgeops/sitesync/internal/syncexec"
	"github.com/forgeops/sitesync/internal/validation"
	"github.com/forgeops/sitesync/synctypes"
)

// Sync synchronizes a local directory with a bucket prefix and, when the run
// changed anything, issues a CDN invalidation for exactly the changed paths.
//
// The run has four phases:
//  1. Inventory: the local scan and the remote listing run concurrently
//  2. Diff: a pure comparison partitions paths into upload/delete/unchanged
//  3. Execution: uploads and deletes run under a bounded worker pool, and a
//     key's failure never aborts its siblings
//  4. Invalidation: fired only for a non-empty diff, and only when a
//     distribution is configured; its failure does not fail the sync
//
// Re-running against the post-sync remote state with unchanged local files
// produces an empty diff, so repeated runs are idempotent.
//
// The returned SyncResult always describes what happened, even when err is
// non-nil. A partial failure returns the result together with an error
// matching errors.ErrPartialSync that lists the failed keys.
func (c *Client) Sync(
	ctx context.Context,
	localPath, bucket, prefix string,
	opts ...synctypes.SyncOption,
) (*synctypes.SyncResult, error) {
	startTime := time.Now()

	cfg := &synctypes.SyncOptionConfig{
		Concurrency:           c.concurrency,
		DistributionID:        c.distributionID,
		InvalidationThreshold: invalidate.DefaultWildcardThreshold,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if localPath == "" {
		return nil, errors.NewValidationError("localPath cannot be empty")
	}
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := validation.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	absPath, err := filepath.Abs(localPath)
	if err != nil {
		return nil, errors.NewError("sync", err)
	}

	// Phase 1: build both inventories concurrently. They share no state; a
	// failure of either aborts the whole run before anything is mutated.
	local, remoteManifest, err := c.buildInventories(ctx, absPath, bucket, prefix, cfg)
	if err != nil {
		return nil, err
	}

	// Phase 2: diff.
	d := diff.Compute(local, remoteManifest)
	if !cfg.DeleteExtra {
		d.Delete = nil
	}

	c.logger.Info("sync plan",
		"upload", len(d.Upload), "delete", len(d.Delete), "unchanged", len(d.Unchanged))

	result := &synctypes.SyncResult{
		Skipped: len(d.Unchanged),
		DryRun:  cfg.DryRun,
	}

	if cfg.DryRun || d.Empty() {
		result.Duration = time.Since(startTime)
		return result, nil
	}

	// Phase 3: execute.
	ex := syncexec.NewExecutor(c.s3Client, cfg.Concurrency, c.logger)
	execResult := ex.Apply(ctx, &syncexec.Config{
		Bucket:       bucket,
		Prefix:       prefix,
		LocalRoot:    absPath,
		CacheControl: cfg.CacheControl,
	}, &d)

	result.Uploaded = execResult.Uploaded()
	result.Deleted = execResult.Deleted()
	result.BytesUploaded = execResult.BytesUploaded()
	result.Errors = execResult.Errors()
	result.Failed = len(result.Errors)
	for _, keyErr := range result.Errors {
		result.FailedKeys = append(result.FailedKeys, keyErr.Key)
	}

	// Phase 4: invalidate only what actually changed remotely. Keys that
	// failed stay cached as their old content, which is still correct.
	c.invalidateChanged(ctx, cfg, prefix, &d, result)

	result.Duration = time.Since(startTime)

	if result.Failed > 0 {
		failed := make(map[string]error, result.Failed)
		for _, keyErr := range result.Errors {
			failed[keyErr.Key] = keyErr.Err
		}
		return result, errors.NewPartialSyncError(failed)
	}
	return result, nil
}

// buildInventories runs the local scan and remote listing concurrently.
func (c *Client) buildInventories(
	ctx context.Context,
	absPath, bucket, prefix string,
	cfg *synctypes.SyncOptionConfig,
) (synctypes.Manifest, synctypes.Manifest, error) {
	var local, remoteManifest synctypes.Manifest

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var scanErr error
		sc := scan.NewScanner()
		local, scanErr = sc.Scan(ctx, absPath, cfg.IncludePatterns, cfg.ExcludePatterns)
		if scanErr != nil {
			return scanErr
		}
		for _, link := range sc.SkippedSymlinks() {
			c.logger.Warn("skipped symlink", "path", link)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var listErr error
		lister := remote.NewLister(c.s3Client, c.backoff)
		remoteManifest, listErr = lister.List(ctx, bucket, prefix)
		return listErr
	})
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	return local, remoteManifest, nil
}

// invalidateChanged fires the CDN invalidation for a non-empty change set.
// Invalidation failure is recorded but never fails the sync; the object
// store is already in the desired state.
func (c *Client) invalidateChanged(
	ctx context.Context,
	cfg *synctypes.SyncOptionConfig,
	prefix string,
	d *synctypes.DiffResult,
	result *synctypes.SyncResult,
) {
	if cfg.DistributionID == "" {
		return
	}
	changed := changedSucceeded(prefix, d, result)
	if len(changed) == 0 {
		return
	}

	trigger := invalidate.NewTrigger(c.cfClient, cfg.InvalidationThreshold)
	req, err := trigger.Invalidate(ctx, cfg.DistributionID, changed)
	if err != nil {
		c.logger.Error("invalidation failed", "distribution", cfg.DistributionID, "err", err)
		return
	}
	if req != nil {
		c.logger.Info("invalidation issued", "id", req.ID, "paths", len(req.Paths))
		result.Invalidation = req
	}
}

// changedSucceeded returns the changed object keys whose remote mutation
// succeeded. Per-key errors are recorded under the full key, so relative
// paths are prefixed before the lookup.
func changedSucceeded(prefix string, d *synctypes.DiffResult, result *synctypes.SyncResult) []string {
	failed := make(map[string]struct{}, len(result.Errors))
	for _, keyErr := range result.Errors {
		failed[keyErr.Key] = struct{}{}
	}

	var changed []string
	for _, p := range d.Changed() {
		if _, ok := failed[prefix+p]; !ok {
			changed = append(changed, prefix+p)
		}
	}
	return changed
}
