package scan

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/sitesync/errors"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func md5Hex(content string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(content)))
}

func TestScan(t *testing.T) {
	ctx := context.Background()

	t.Run("builds manifest with relative slash paths", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "index.html", "<html></html>")
		writeFile(t, root, "css/site.css", "body{}")
		writeFile(t, root, "js/lib/app.js", "let x=1")

		m, err := NewScanner().Scan(ctx, root, nil, nil)
		require.NoError(t, err)

		require.Len(t, m, 3)
		assert.Contains(t, m, "index.html")
		assert.Contains(t, m, "css/site.css")
		assert.Contains(t, m, "js/lib/app.js")

		entry := m["css/site.css"]
		assert.Equal(t, "css/site.css", entry.Path)
		assert.Equal(t, md5Hex("body{}"), entry.Fingerprint)
		assert.Equal(t, int64(len("body{}")), entry.Size)
		assert.False(t, entry.OpaqueTag)
	})

	t.Run("fingerprint changes when content changes", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "page.html", "v1")

		sc := NewScanner()
		before, err := sc.Scan(ctx, root, nil, nil)
		require.NoError(t, err)

		writeFile(t, root, "page.html", "v2")
		after, err := sc.Scan(ctx, root, nil, nil)
		require.NoError(t, err)

		assert.NotEqual(t, before["page.html"].Fingerprint, after["page.html"].Fingerprint)
	})

	t.Run("exclude patterns filter files", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "index.html", "x")
		writeFile(t, root, "draft.tmp", "x")
		writeFile(t, root, "notes/draft.tmp", "x")

		m, err := NewScanner().Scan(ctx, root, nil, []string{"*.tmp"})
		require.NoError(t, err)

		assert.Len(t, m, 1)
		assert.Contains(t, m, "index.html")
	})

	t.Run("include patterns require a match", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "index.html", "x")
		writeFile(t, root, "style.css", "x")
		writeFile(t, root, "readme.md", "x")

		m, err := NewScanner().Scan(ctx, root, []string{"*.html", "*.css"}, nil)
		require.NoError(t, err)

		assert.Len(t, m, 2)
		assert.NotContains(t, m, "readme.md")
	})

	t.Run("symlinks are skipped and reported", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlink creation requires privileges on windows")
		}
		root := t.TempDir()
		writeFile(t, root, "real.txt", "x")
		require.NoError(t, os.Symlink(
			filepath.Join(root, "real.txt"),
			filepath.Join(root, "link.txt"),
		))

		sc := NewScanner()
		m, err := sc.Scan(ctx, root, nil, nil)
		require.NoError(t, err)

		assert.Len(t, m, 1)
		assert.NotContains(t, m, "link.txt")
		assert.Len(t, sc.SkippedSymlinks(), 1)
	})

	t.Run("missing root fails with local read error", func(t *testing.T) {
		_, err := NewScanner().Scan(ctx, filepath.Join(t.TempDir(), "nope"), nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrLocalRead)
	})

	t.Run("cancelled context aborts the walk", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a.txt", "x")

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewScanner().Scan(cancelled, root, nil, nil)
		require.Error(t, err)
	})
}

func TestPatternMatcher(t *testing.T) {
	pm := NewPatternMatcher()

	cases := []struct {
		name     string
		relPath  string
		include  []string
		exclude  []string
		expected bool
	}{
		{"no patterns includes everything", "a/b/c.txt", nil, nil, true},
		{"bare extension exclude applies at depth", "deep/nested/x.tmp", nil, []string{"*.tmp"}, false},
		{"directory exclude", "node_modules/pkg/index.js", nil, []string{"node_modules/"}, false},
		{"recursive wildcard exclude", "assets/cache/img.png", nil, []string{"assets/cache/**"}, false},
		{"include must match", "style.css", []string{"*.html"}, nil, false},
		{"include matches", "index.html", []string{"*.html"}, nil, true},
		{"exclude wins over include", "secret.html", []string{"*.html"}, []string{"secret.*"}, false},
		{"recursive suffix pattern", "src/a/b/test.js", nil, []string{"src/**/*.js"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pm.ShouldIncludeFile(tc.relPath, tc.include, tc.exclude)
			assert.Equal(t, tc.expected, got)
		})
	}
}
