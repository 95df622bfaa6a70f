package sitesync

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/charmbracelet/log"

	"github.com/forgeops/sitesync/synctypes"
)

// WithRegion sets the AWS region for the client.
func WithRegion(region string) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Region = region
	}
}

// WithMaxRetries sets the bounded attempt count for retryable remote calls.
func WithMaxRetries(maxRetries int) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(timeout time.Duration) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithConcurrency sets the default upload worker count for sync runs.
func WithConcurrency(n int) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Concurrency = n
	}
}

// WithDistribution sets the default CloudFront distribution to invalidate
// after a sync with changes.
func WithDistribution(distributionID string) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.DistributionID = distributionID
	}
}

// WithForcePathStyle enables path-style bucket addressing, needed for
// S3-compatible endpoints like LocalStack or MinIO.
func WithForcePathStyle(force bool) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.ForcePathStyle = force
	}
}

// WithAWSConfig supplies a pre-built AWS configuration instead of the
// default credential chain.
func WithAWSConfig(cfg aws.Config) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.CustomAWSConfig = &cfg
	}
}

// WithLogger sets the structured logger used by the client.
func WithLogger(logger *log.Logger) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithSyncDryRun computes and reports the plan without executing it.
func WithSyncDryRun(dryRun bool) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.DryRun = dryRun
	}
}

// WithSyncDelete enables deletion of remote objects absent locally.
func WithSyncDelete(deleteExtra bool) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.DeleteExtra = deleteExtra
	}
}

// WithSyncIncludePattern adds a glob pattern files must match to be synced.
func WithSyncIncludePattern(pattern string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.IncludePatterns = append(c.IncludePatterns, pattern)
	}
}

// WithSyncExcludePattern adds a glob pattern excluding files from the sync.
func WithSyncExcludePattern(pattern string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.ExcludePatterns = append(c.ExcludePatterns, pattern)
	}
}

// WithSyncCacheControl sets the Cache-Control header on uploaded objects.
func WithSyncCacheControl(cacheControl string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.CacheControl = cacheControl
	}
}

// WithSyncConcurrency overrides the client's upload worker count for one run.
func WithSyncConcurrency(n int) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.Concurrency = n
	}
}

// WithSyncDistribution overrides the client's distribution for one run.
func WithSyncDistribution(distributionID string) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.DistributionID = distributionID
	}
}

// WithSyncInvalidationThreshold sets the changed-path count above which a
// single /* wildcard invalidation is issued instead of per-path entries.
func WithSyncInvalidationThreshold(n int) synctypes.SyncOption {
	return func(c *synctypes.SyncOptionConfig) {
		c.InvalidationThreshold = n
	}
}
