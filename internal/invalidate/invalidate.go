// Package invalidate issues CDN cache invalidations for changed paths.
package invalidate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"

	"github.com/forgeops/sitesync/errors"
	"github.com/forgeops/sitesync/internal/awsapi"
	"github.com/forgeops/sitesync/synctypes"
)

// DefaultWildcardThreshold is the changed-path count above which a single /*
// invalidation replaces per-path entries. CloudFront bills per path, so a
// large deploy is cheaper to invalidate wholesale.
const DefaultWildcardThreshold = 25

// Trigger submits one invalidation per sync run covering exactly the changed
// paths. It is fire-and-forget: the CDN's acceptance ends our involvement,
// and the returned request ID is recorded for external status polling.
type Trigger struct {
	client    awsapi.CloudFrontAPI
	threshold int
}

// NewTrigger creates a trigger. A non-positive threshold selects the default.
func NewTrigger(client awsapi.CloudFrontAPI, threshold int) *Trigger {
	if threshold <= 0 {
		threshold = DefaultWildcardThreshold
	}
	return &Trigger{client: client, threshold: threshold}
}

// Invalidate issues a single invalidation for the given changed paths.
// An empty changed set issues nothing and returns nil. Failures wrap
// errors.ErrInvalidation; callers treat them as non-fatal since the object
// store is already correct.
func (t *Trigger) Invalidate(
	ctx context.Context,
	distributionID string,
	changed []string,
) (*synctypes.InvalidationRequest, error) {
	if len(changed) == 0 {
		return nil, nil
	}
	if distributionID == "" {
		return nil, errors.NewValidationError("distribution ID cannot be empty")
	}

	paths := invalidationPaths(changed, t.threshold)

	input := &cloudfront.CreateInvalidationInput{
		DistributionId: &distributionID,
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(uuid.NewString()),
			Paths: &cftypes.Paths{
				Items:    paths,
				Quantity: aws.Int32(int32(len(paths))),
			},
		},
	}

	output, err := t.client.CreateInvalidation(ctx, input)
	if err != nil {
		return nil, errors.NewError(
			"invalidate",
			fmt.Errorf("%w: %v", errors.ErrInvalidation, err),
		)
	}

	req := &synctypes.InvalidationRequest{
		Paths:    paths,
		IssuedAt: time.Now(),
	}
	if output.Invalidation != nil {
		req.ID = aws.ToString(output.Invalidation.Id)
		if output.Invalidation.CreateTime != nil {
			req.IssuedAt = *output.Invalidation.CreateTime
		}
	}
	return req, nil
}

// invalidationPaths converts changed keys into CloudFront path patterns,
// collapsing to a single wildcard above the threshold.
func invalidationPaths(changed []string, threshold int) []string {
	if len(changed) > threshold {
		return []string{"/*"}
	}

	paths := make([]string, 0, len(changed))
	for _, p := range changed {
		paths = append(paths, "/"+p)
	}
	sort.Strings(paths)
	return paths
}
