// Package errors provides error types and handling for sitesync operations.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error represents a sync operation error with context about what failed.
// It wraps the underlying AWS SDK or filesystem error for error chaining.
type Error struct {
	// Op is the operation that failed (e.g., "scan", "list", "upload")
	Op string

	// Bucket is the destination bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("sitesync.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("sitesync.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("sitesync.%s key %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("sitesync.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewValidationError creates an Error wrapping ErrInvalidInput with a message.
func NewValidationError(msg string) *Error {
	return &Error{
		Op:  "validate",
		Err: fmt.Errorf("%s: %w", msg, ErrInvalidInput),
	}
}

// Sentinel errors for the failure kinds a sync run can surface.
// These can be used with errors.Is() for error checking.
var (
	// ErrLocalRead indicates the local filesystem could not be read
	ErrLocalRead = errors.New("sitesync: local read failed")

	// ErrRemoteUnavailable indicates the remote store could not be reached
	// after bounded retries (network, auth, or service failure)
	ErrRemoteUnavailable = errors.New("sitesync: remote unavailable")

	// ErrPartialSync indicates some keys failed while others succeeded;
	// the run must be re-executed by an operator
	ErrPartialSync = errors.New("sitesync: partial sync failure")

	// ErrInvalidation indicates the CDN invalidation request was rejected;
	// non-fatal since the object store is already correct
	ErrInvalidation = errors.New("sitesync: invalidation failed")

	// ErrInvalidInput indicates the provided input is invalid
	ErrInvalidInput = errors.New("sitesync: invalid input")

	// ErrInvalidBucketName indicates the bucket name is not DNS-compliant
	ErrInvalidBucketName = errors.New("sitesync: invalid bucket name")

	// ErrInvalidObjectKey indicates the object key is invalid
	ErrInvalidObjectKey = errors.New("sitesync: invalid object key")
)

// PartialSyncError aggregates per-key failures from a sync run. Sibling keys
// are never aborted by one key's failure; the aggregate is returned once the
// whole batch has been attempted.
type PartialSyncError struct {
	// Failed maps object keys to the error that failed them.
	Failed map[string]error
}

// Error implements the error interface.
func (e *PartialSyncError) Error() string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%v: %d keys failed: %s", ErrPartialSync, len(e.Failed), strings.Join(keys, ", "))
}

// Unwrap lets errors.Is match ErrPartialSync.
func (e *PartialSyncError) Unwrap() error {
	return ErrPartialSync
}

// NewPartialSyncError builds an aggregate from per-key failures.
// Returns nil when no key failed.
func NewPartialSyncError(failed map[string]error) error {
	if len(failed) == 0 {
		return nil
	}
	return &PartialSyncError{Failed: failed}
}

// IsRemoteUnavailable checks if an error indicates the remote store was
// unreachable after retries.
func IsRemoteUnavailable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// IsPartialSync checks if an error is an aggregate per-key failure.
func IsPartialSync(err error) bool {
	return errors.Is(err, ErrPartialSync)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
