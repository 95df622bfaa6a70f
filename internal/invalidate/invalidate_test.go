package invalidate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/sitesync/errors"
	"github.com/forgeops/sitesync/internal/testutil"
)

func TestInvalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("issues one invalidation covering the changed paths", func(t *testing.T) {
		created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		var got *cloudfront.CreateInvalidationInput
		mock := &testutil.MockCloudFrontClient{
			CreateInvalidationFunc: func(_ context.Context, params *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
				got = params
				return &cloudfront.CreateInvalidationOutput{
					Invalidation: &cftypes.Invalidation{
						Id:         aws.String("INV123"),
						CreateTime: &created,
					},
				}, nil
			},
		}

		req, err := NewTrigger(mock, 0).Invalidate(ctx, "E2EXAMPLE", []string{"index.html", "css/site.css"})
		require.NoError(t, err)
		require.NotNil(t, req)

		assert.Equal(t, "INV123", req.ID)
		assert.Equal(t, created, req.IssuedAt)
		assert.Equal(t, []string{"/css/site.css", "/index.html"}, req.Paths)

		require.NotNil(t, got)
		assert.Equal(t, "E2EXAMPLE", aws.ToString(got.DistributionId))
		assert.NotEmpty(t, aws.ToString(got.InvalidationBatch.CallerReference))
		assert.Equal(t, int32(2), aws.ToInt32(got.InvalidationBatch.Paths.Quantity))
	})

	t.Run("caller reference differs across runs", func(t *testing.T) {
		refs := map[string]bool{}
		mock := &testutil.MockCloudFrontClient{
			CreateInvalidationFunc: func(_ context.Context, params *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
				refs[aws.ToString(params.InvalidationBatch.CallerReference)] = true
				return &cloudfront.CreateInvalidationOutput{}, nil
			},
		}

		trig := NewTrigger(mock, 0)
		for i := 0; i < 3; i++ {
			_, err := trig.Invalidate(ctx, "E2EXAMPLE", []string{"index.html"})
			require.NoError(t, err)
		}
		assert.Len(t, refs, 3)
	})

	t.Run("collapses to wildcard above the threshold", func(t *testing.T) {
		var got *cloudfront.CreateInvalidationInput
		mock := &testutil.MockCloudFrontClient{
			CreateInvalidationFunc: func(_ context.Context, params *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
				got = params
				return &cloudfront.CreateInvalidationOutput{}, nil
			},
		}

		changed := make([]string, 5)
		for i := range changed {
			changed[i] = fmt.Sprintf("page-%d.html", i)
		}

		req, err := NewTrigger(mock, 4).Invalidate(ctx, "E2EXAMPLE", changed)
		require.NoError(t, err)
		assert.Equal(t, []string{"/*"}, req.Paths)
		assert.Equal(t, []string{"/*"}, got.InvalidationBatch.Paths.Items)
		assert.Equal(t, int32(1), aws.ToInt32(got.InvalidationBatch.Paths.Quantity))
	})

	t.Run("at the threshold keeps individual paths", func(t *testing.T) {
		mock := &testutil.MockCloudFrontClient{
			CreateInvalidationFunc: func(_ context.Context, params *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
				return &cloudfront.CreateInvalidationOutput{}, nil
			},
		}

		changed := []string{"a.html", "b.html", "c.html", "d.html"}
		req, err := NewTrigger(mock, 4).Invalidate(ctx, "E2EXAMPLE", changed)
		require.NoError(t, err)
		assert.Len(t, req.Paths, 4)
		assert.NotContains(t, req.Paths, "/*")
	})

	t.Run("empty changed set issues nothing", func(t *testing.T) {
		calls := 0
		mock := &testutil.MockCloudFrontClient{
			CreateInvalidationFunc: func(context.Context, *cloudfront.CreateInvalidationInput, ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
				calls++
				return &cloudfront.CreateInvalidationOutput{}, nil
			},
		}

		req, err := NewTrigger(mock, 0).Invalidate(ctx, "E2EXAMPLE", nil)
		require.NoError(t, err)
		assert.Nil(t, req)
		assert.Equal(t, 0, calls)
	})

	t.Run("empty distribution ID is rejected", func(t *testing.T) {
		_, err := NewTrigger(&testutil.MockCloudFrontClient{}, 0).Invalidate(ctx, "", []string{"index.html"})
		require.Error(t, err)
		assert.True(t, errors.IsInvalidInput(err))
	})

	t.Run("API failure wraps the invalidation sentinel", func(t *testing.T) {
		mock := &testutil.MockCloudFrontClient{
			CreateInvalidationFunc: func(context.Context, *cloudfront.CreateInvalidationInput, ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
				return nil, fmt.Errorf("cdn unreachable")
			},
		}

		_, err := NewTrigger(mock, 0).Invalidate(ctx, "E2EXAMPLE", []string{"index.html"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidation)
	})
}
