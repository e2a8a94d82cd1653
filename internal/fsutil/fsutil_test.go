package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/turbopath"
)

func abs(s string) turbopath.AbsoluteSystemPath {
	return turbopath.AbsoluteSystemPathFromUpstream(s)
}

func TestNewStagingDirCreatesUnderTmpRoot(t *testing.T) {
	tmpRoot := filepath.Join(t.TempDir(), "tmp")
	dir, err := NewStagingDir(abs(tmpRoot))
	require.NoError(t, err)
	assert.Equal(t, tmpRoot, filepath.Dir(dir.ToString()))

	other, err := NewStagingDir(abs(tmpRoot))
	require.NoError(t, err)
	assert.NotEqual(t, dir.ToString(), other.ToString())
}

func TestPromoteMovesStagingIntoPlace(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "staging")
	require.NoError(t, os.MkdirAll(staging, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "payload"), []byte("data"), 0o644))
	final := filepath.Join(root, "image", "tool", "1.0.0")

	require.NoError(t, Promote(hclog.NewNullLogger(), abs(staging), abs(final)))

	data, err := os.ReadFile(filepath.Join(final, "payload"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
	_, err = os.Stat(staging)
	assert.True(t, os.IsNotExist(err))
}

func TestPromoteReplacesExistingDestination(t *testing.T) {
	root := t.TempDir()
	final := filepath.Join(root, "image")
	require.NoError(t, os.MkdirAll(final, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(final, "old"), []byte("stale"), 0o644))

	staging := filepath.Join(root, "staging")
	require.NoError(t, os.MkdirAll(staging, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "new"), []byte("fresh"), 0o644))

	require.NoError(t, Promote(hclog.NewNullLogger(), abs(staging), abs(final)))

	_, err := os.Stat(filepath.Join(final, "old"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(final, "new"))
	assert.NoError(t, err)
}

func TestScrubTmp(t *testing.T) {
	tmpRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpRoot, "stage-abandoned"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpRoot, "stray-file"), []byte("x"), 0o644))

	require.NoError(t, ScrubTmp(abs(tmpRoot)))

	entries, err := os.ReadDir(tmpRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScrubTmpMissingRoot(t *testing.T) {
	assert.NoError(t, ScrubTmp(abs(filepath.Join(t.TempDir(), "never-created"))))
}

func TestAcquireLockExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	lock, ok := AcquireLock(hclog.NewNullLogger(), abs(path))
	require.True(t, ok)
	defer lock.Release(hclog.NewNullLogger())

	// A second acquisition from the same process fails but is not fatal.
	second, ok := AcquireLock(hclog.NewNullLogger(), abs(path))
	assert.False(t, ok)
	second.Release(hclog.NewNullLogger())
}

func TestFibonacciDelaysCoverBudget(t *testing.T) {
	budget := 28 * time.Second
	delays := fibonacciMillis(budget)
	var total time.Duration
	for _, d := range delays {
		total += d
	}
	assert.GreaterOrEqual(t, total, budget)
}
