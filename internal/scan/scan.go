// Package scan builds the local inventory manifest for a sync run.
// It walks a directory tree in parallel, fingerprinting every regular file.
package scan

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/forgeops/sitesync/errors"
	"github.com/forgeops/sitesync/synctypes"
)

// Scanner walks a local directory and produces a Manifest of relative paths,
// MD5 fingerprints, and sizes. MD5 keeps local fingerprints directly
// comparable with single-part S3 entity tags.
type Scanner struct {
	matcher *PatternMatcher

	// skipped records symlinks skipped during the last scan. Symlinks are
	// never followed, which also rules out link cycles.
	skipped struct {
		mu    sync.Mutex
		links []string
	}
}

// NewScanner creates a scanner with default pattern matching.
func NewScanner() *Scanner {
	return &Scanner{matcher: NewPatternMatcher()}
}

// SkippedSymlinks returns the symlink paths skipped by the last Scan call.
func (s *Scanner) SkippedSymlinks() []string {
	s.skipped.mu.Lock()
	defer s.skipped.mu.Unlock()
	out := make([]string, len(s.skipped.links))
	copy(out, s.skipped.links)
	return out
}

// Scan walks root and returns a manifest keyed by slash-separated relative
// path. Include/exclude patterns filter by relative path, excludes winning.
// An unreadable root fails the whole scan; the returned error wraps
// errors.ErrLocalRead.
func (s *Scanner) Scan(
	ctx context.Context,
	root string,
	includePatterns, excludePatterns []string,
) (synctypes.Manifest, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.NewError("scan", fmt.Errorf("%w: %v", errors.ErrLocalRead, err))
	}
	if info, statErr := os.Stat(absRoot); statErr != nil || !info.IsDir() {
		if statErr == nil {
			statErr = fmt.Errorf("%s is not a directory", absRoot)
		}
		return nil, errors.NewError("scan", fmt.Errorf("%w: %v", errors.ErrLocalRead, statErr))
	}

	s.skipped.mu.Lock()
	s.skipped.links = nil
	s.skipped.mu.Unlock()

	manifest := make(synctypes.Manifest)
	var mu sync.Mutex

	conf := fastwalk.Config{
		Follow: false, // symlinks are recorded and skipped, never traversed
	}

	walkErr := fastwalk.Walk(&conf, absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %v", errors.ErrLocalRead, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.Type()&fs.ModeSymlink != 0 {
			s.skipped.mu.Lock()
			s.skipped.links = append(s.skipped.links, path)
			s.skipped.mu.Unlock()
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		if !s.matcher.ShouldIncludeFile(relPath, includePatterns, excludePatterns) {
			return nil
		}

		entry, err := fingerprintFile(path, relPath)
		if err != nil {
			return fmt.Errorf("%w: %v", errors.ErrLocalRead, err)
		}

		mu.Lock()
		manifest[relPath] = entry
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, errors.NewError("scan", fmt.Errorf("failed to walk %s: %w", absRoot, walkErr))
	}

	return manifest, nil
}

// fingerprintFile stats and hashes a single regular file.
func fingerprintFile(path, relPath string) (synctypes.ManifestEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return synctypes.ManifestEntry{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return synctypes.ManifestEntry{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return synctypes.ManifestEntry{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return synctypes.ManifestEntry{
		Path:        relPath,
		Fingerprint: fmt.Sprintf("%x", h.Sum(nil)),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}
