package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/turbopath"
)

func testLayout(t *testing.T) *layout.Layout {
	t.Helper()
	return layout.New(turbopath.AbsoluteSystemPathFromUpstream(t.TempDir()))
}

func mkdir(t *testing.T, parts ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(parts...), 0o755))
}

func TestListEmptyHome(t *testing.T) {
	lo := testLayout(t)
	entries, err := List(lo, "node")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListVersions(t *testing.T) {
	lo := testLayout(t)
	mkdir(t, lo.ImageDir("node").ToString(), "18.17.1")
	mkdir(t, lo.ImageDir("node").ToString(), "20.0.0")

	entries, err := List(lo, "node")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "18.17.1", entries[0].Version)
	assert.Equal(t, "20.0.0", entries[1].Version)
}

func TestListPackagesWithScopes(t *testing.T) {
	lo := testLayout(t)
	mkdir(t, lo.ImageDir("packages").ToString(), "cowsay", "1.5.0")
	mkdir(t, lo.ImageDir("packages").ToString(), "@angular", "cli", "16.0.0")

	entries, err := ListPackages(lo)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "@angular/cli", entries[0].Name)
	assert.Equal(t, "16.0.0", entries[0].Version)
	assert.Equal(t, "cowsay", entries[1].Name)
}

func TestHas(t *testing.T) {
	lo := testLayout(t)
	assert.False(t, Has(lo, "yarn", "1.22.19"))
	mkdir(t, lo.ImageVersionDir("yarn", "1.22.19").ToString())
	assert.True(t, Has(lo, "yarn", "1.22.19"))
}

func TestAll(t *testing.T) {
	lo := testLayout(t)
	mkdir(t, lo.ImageVersionDir("node", "18.17.1").ToString())
	mkdir(t, lo.ImageDir("packages").ToString(), "cowsay", "1.5.0")

	entries, err := All(lo)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "node", entries[0].Tool)
	assert.Equal(t, "packages", entries[1].Tool)
}
