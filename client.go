// Package sitesync deploys static-site files to an S3 bucket fronted by a
// CloudFront distribution, uploading only what changed, pruning what was
// removed, and invalidating the CDN cache for affected paths.
package sitesync

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"

	"github.com/forgeops/sitesync/errors"
	"github.com/forgeops/sitesync/internal/awsapi"
	"github.com/forgeops/sitesync/internal/retry"
	"github.com/forgeops/sitesync/synctypes"
)

// Client performs sync runs against a bucket and distribution. It is safe
// for concurrent use; each Sync call builds its own manifests and diff.
type Client struct {
	s3Client awsapi.S3API
	cfClient awsapi.CloudFrontAPI

	config  aws.Config
	backoff *retry.Backoff

	// concurrency bounds the upload worker pool
	concurrency int

	// distributionID is the default CloudFront distribution for invalidations
	distributionID string

	logger *log.Logger
}

// New creates a sitesync client with the provided options. AWS credentials
// come from the default credential chain unless a custom config is supplied.
//
// Example:
//
//	client, err := sitesync.New(
//	    sitesync.WithRegion("us-east-1"),
//	    sitesync.WithDistribution("E2EXAMPLE"),
//	)
func New(opts ...synctypes.Option) (*Client, error) {
	clientCfg := &synctypes.ClientConfig{
		MaxRetries:  retry.DefaultMaxAttempts,
		Concurrency: 8,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}

	var cfg aws.Config
	var err error
	if clientCfg.CustomAWSConfig != nil {
		cfg = *clientCfg.CustomAWSConfig
	} else {
		cfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	if clientCfg.Region != "" {
		cfg.Region = clientCfg.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var s3Opts []func(*s3.Options)
	if clientCfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if clientCfg.Timeout > 0 {
		httpClient := &http.Client{Timeout: clientCfg.Timeout}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}
	if clientCfg.CustomHTTPClient != nil {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = clientCfg.CustomHTTPClient
		})
	}

	logger := clientCfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr)
		logger.SetLevel(log.WarnLevel)
	}

	return &Client{
		s3Client:       s3.NewFromConfig(cfg, s3Opts...),
		cfClient:       cloudfront.NewFromConfig(cfg),
		config:         cfg,
		backoff:        retry.New(clientCfg.MaxRetries),
		concurrency:    clientCfg.Concurrency,
		distributionID: clientCfg.DistributionID,
		logger:         logger,
	}, nil
}

// NewWithClients creates a client with custom API implementations.
// This is primarily used for testing with mocks.
func NewWithClients(s3Client awsapi.S3API, cfClient awsapi.CloudFrontAPI) *Client {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.WarnLevel)
	return &Client{
		s3Client:    s3Client,
		cfClient:    cfClient,
		backoff:     retry.New(0),
		concurrency: 8,
		logger:      logger,
	}
}
