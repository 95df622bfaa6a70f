// Package syncexec applies a computed diff to the remote bucket.
// Uploads run through a bounded worker pool; deletes go out in batches.
package syncexec

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sourcegraph/conc/pool"

	"github.com/forgeops/sitesync/internal/awsapi"
	"github.com/forgeops/sitesync/synctypes"
)

// maxDeleteBatch is the S3 DeleteObjects per-request limit.
const maxDeleteBatch = 1000

// Executor applies a DiffResult to a bucket. Each key gets exactly one
// upload or delete intent per run; a key's failure is recorded and never
// aborts sibling keys.
type Executor struct {
	client       awsapi.S3API
	workers      int
	cacheControl string
	logger       *log.Logger
}

// Config holds the destination and content settings for one run.
type Config struct {
	Bucket       string
	Prefix       string
	LocalRoot    string
	CacheControl string
}

// Result accumulates the outcome of applying a diff.
type Result struct {
	uploaded      atomic.Int64
	deleted       atomic.Int64
	bytesUploaded atomic.Int64

	mu     sync.Mutex
	errors []synctypes.KeyError
}

// Uploaded returns the number of objects successfully uploaded.
func (r *Result) Uploaded() int { return int(r.uploaded.Load()) }

// Deleted returns the number of objects successfully deleted.
func (r *Result) Deleted() int { return int(r.deleted.Load()) }

// BytesUploaded returns the total payload uploaded.
func (r *Result) BytesUploaded() int64 { return r.bytesUploaded.Load() }

// Errors returns the per-key failures recorded during the run.
func (r *Result) Errors() []synctypes.KeyError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]synctypes.KeyError, len(r.errors))
	copy(out, r.errors)
	return out
}

func (r *Result) addError(key, op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, synctypes.KeyError{Key: key, Op: op, Err: err})
}

// NewExecutor creates an executor with the given worker bound.
func NewExecutor(client awsapi.S3API, workers int, logger *log.Logger) *Executor {
	if workers <= 0 {
		workers = 8
	}
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Executor{
		client:  client,
		workers: workers,
		logger:  logger,
	}
}

// WithCacheControl sets the Cache-Control header applied to every upload.
func (e *Executor) WithCacheControl(cacheControl string) *Executor {
	e.cacheControl = cacheControl
	return e
}

// Apply executes the uploads and deletes in the diff. Uploads and deletes run
// concurrently with each other. Cancellation stops issuing new operations;
// in-flight requests finish or fail on their own, so no object is torn down
// mid-write.
func (e *Executor) Apply(ctx context.Context, cfg *Config, d *synctypes.DiffResult) *Result {
	result := &Result{}

	var wg sync.WaitGroup
	if len(d.Upload) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.executeUploads(ctx, cfg, d.Upload, result)
		}()
	}
	if len(d.Delete) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.executeDeletes(ctx, cfg, d.Delete, result)
		}()
	}
	wg.Wait()

	return result
}

// executeUploads pushes each path through the worker pool.
func (e *Executor) executeUploads(ctx context.Context, cfg *Config, paths []string, result *Result) {
	p := pool.New().WithMaxGoroutines(e.workers)

	for _, relPath := range paths {
		// Stop handing out new work once cancelled.
		select {
		case <-ctx.Done():
			result.addError(cfg.Prefix+relPath, "upload", ctx.Err())
			continue
		default:
		}

		p.Go(func() {
			key := cfg.Prefix + relPath
			if err := e.uploadOne(ctx, cfg, relPath, key); err != nil {
				e.logger.Error("upload failed", "key", key, "err", err)
				result.addError(key, "upload", err)
				return
			}
			localPath := filepath.Join(cfg.LocalRoot, filepath.FromSlash(relPath))
			if info, err := os.Stat(localPath); err == nil {
				result.bytesUploaded.Add(info.Size())
			}
			result.uploaded.Add(1)
			e.logger.Debug("uploaded", "key", key)
		})
	}

	p.Wait()
}

// uploadOne performs a single PutObject with sniffed content type.
func (e *Executor) uploadOne(ctx context.Context, cfg *Config, relPath, key string) error {
	localPath := filepath.Join(cfg.LocalRoot, filepath.FromSlash(relPath))

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	input := &s3.PutObjectInput{
		Bucket:        &cfg.Bucket,
		Key:           &key,
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(detectContentType(localPath)),
	}
	if cfg.CacheControl != "" {
		input.CacheControl = &cfg.CacheControl
	}

	if _, err := e.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// executeDeletes removes remote-only keys in batches of up to 1000.
func (e *Executor) executeDeletes(ctx context.Context, cfg *Config, paths []string, result *Result) {
	for start := 0; start < len(paths); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		select {
		case <-ctx.Done():
			for _, relPath := range batch {
				result.addError(cfg.Prefix+relPath, "delete", ctx.Err())
			}
			continue
		default:
		}

		e.deleteBatch(ctx, cfg, batch, result)
	}
}

// deleteBatch issues one DeleteObjects call and records per-key outcomes.
func (e *Executor) deleteBatch(ctx context.Context, cfg *Config, batch []string, result *Result) {
	objects := make([]s3types.ObjectIdentifier, 0, len(batch))
	for _, relPath := range batch {
		key := cfg.Prefix + relPath
		objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(key)})
	}

	input := &s3.DeleteObjectsInput{
		Bucket: &cfg.Bucket,
		Delete: &s3types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(false),
		},
	}

	output, err := e.client.DeleteObjects(ctx, input)
	if err != nil {
		e.logger.Error("delete batch failed", "bucket", cfg.Bucket, "keys", len(batch), "err", err)
		for _, relPath := range batch {
			result.addError(cfg.Prefix+relPath, "delete", err)
		}
		return
	}

	result.deleted.Add(int64(len(output.Deleted)))
	for _, delErr := range output.Errors {
		key := aws.ToString(delErr.Key)
		result.addError(key, "delete", fmt.Errorf("delete rejected: %s", aws.ToString(delErr.Message)))
		e.logger.Error("delete rejected", "key", key, "code", aws.ToString(delErr.Code))
	}
}

// detectContentType sniffs the file content, falling back to the extension.
// Sniffing misreads CSS and JS as text/plain, so well-known static-site
// extensions win over the sniffed type.
func detectContentType(localPath string) string {
	if byExt := mime.TypeByExtension(filepath.Ext(localPath)); byExt != "" {
		return byExt
	}
	if mt, err := mimetype.DetectFile(localPath); err == nil {
		return mt.String()
	}
	return "application/octet-stream"
}
