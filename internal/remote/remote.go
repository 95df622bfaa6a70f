// Package remote builds the remote inventory manifest from S3 object metadata.
package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/forgeops/sitesync/errors"
	"github.com/forgeops/sitesync/internal/awsapi"
	"github.com/forgeops/sitesync/internal/retry"
	"github.com/forgeops/sitesync/synctypes"
)

// Lister pages through a bucket prefix and produces a Manifest keyed by
// prefix-relative path, using entity tags as fingerprints. Multipart entity
// tags (containing "-") are marked opaque so the diff treats them as
// always-differing, forcing a re-upload rather than guessing.
type Lister struct {
	client  awsapi.S3API
	backoff *retry.Backoff
}

// NewLister creates a lister with the given S3 client and retry policy.
func NewLister(client awsapi.S3API, backoff *retry.Backoff) *Lister {
	if backoff == nil {
		backoff = retry.New(0)
	}
	return &Lister{client: client, backoff: backoff}
}

// List returns the remote manifest for bucket/prefix. Each page request is
// retried with bounded exponential backoff; once retries are exhausted the
// error wraps errors.ErrRemoteUnavailable and the whole listing fails.
func (l *Lister) List(ctx context.Context, bucket, prefix string) (synctypes.Manifest, error) {
	manifest := make(synctypes.Manifest)

	var continuationToken *string
	for {
		select {
		case <-ctx.Done():
			return nil, errors.NewError("list", ctx.Err()).WithBucket(bucket)
		default:
		}

		input := &s3.ListObjectsV2Input{
			Bucket:            &bucket,
			Prefix:            &prefix,
			ContinuationToken: continuationToken,
			MaxKeys:           aws.Int32(1000),
		}

		var page *s3.ListObjectsV2Output
		err := l.backoff.Do(ctx, func(ctx context.Context) error {
			var callErr error
			page, callErr = l.client.ListObjectsV2(ctx, input)
			return callErr
		})
		if err != nil {
			return nil, errors.NewError(
				"list",
				fmt.Errorf("%w: %v", errors.ErrRemoteUnavailable, err),
			).WithBucket(bucket)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil || !strings.HasPrefix(*obj.Key, prefix) {
				continue
			}
			relPath := strings.TrimPrefix(strings.TrimPrefix(*obj.Key, prefix), "/")
			if relPath == "" || strings.HasSuffix(relPath, "/") {
				// Zero-byte directory markers carry no content.
				continue
			}

			entry := synctypes.ManifestEntry{
				Path: relPath,
			}
			if obj.Size != nil {
				entry.Size = *obj.Size
			}
			if obj.LastModified != nil {
				entry.ModTime = *obj.LastModified
			}
			if obj.ETag != nil {
				entry.Fingerprint = strings.Trim(*obj.ETag, `"`)
				entry.OpaqueTag = strings.Contains(entry.Fingerprint, "-")
			} else {
				entry.OpaqueTag = true
			}

			manifest[relPath] = entry
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		continuationToken = page.NextContinuationToken
	}

	return manifest, nil
}
