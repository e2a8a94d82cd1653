package shim

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/binconfig"
	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/packagemanager"
	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/turbopath"
	"github.com/toolpin/toolpin/internal/version"
)

func testLayout(t *testing.T) *layout.Layout {
	t.Helper()
	return layout.New(turbopath.AbsoluteSystemPathFromUpstream(t.TempDir()))
}

func TestEnsureIdempotent(t *testing.T) {
	lo := testLayout(t)
	require.NoError(t, Ensure(lo, "node"))
	path := shimPath(lo, "node")
	require.True(t, fs.FileExists(path.ToString()))

	info, err := os.Stat(path.ToString())
	require.NoError(t, err)

	require.NoError(t, Ensure(lo, "node"))
	again, err := os.Stat(path.ToString())
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestRemoveMissingShimIsNotAnError(t *testing.T) {
	lo := testLayout(t)
	assert.NoError(t, Remove(lo, "never-created"))
}

func TestEnsureManyAndRemove(t *testing.T) {
	lo := testLayout(t)
	require.NoError(t, EnsureMany(lo, []string{"node", "npm", "cowsay"}))
	for _, name := range []string{"node", "npm", "cowsay"} {
		assert.True(t, fs.FileExists(
			shimPath(lo, name).ToString()))
	}

	require.NoError(t, Remove(lo, "cowsay"))
	assert.False(t, fs.FileExists(
		shimPath(lo, "cowsay").ToString()))
}

func TestRemoveOrphans(t *testing.T) {
	lo := testLayout(t)

	// binconfig persists through the shared config fs; point it at the
	// real disk so ListBins sees what we write.
	prev := config.DefaultFs
	config.DefaultFs = afero.NewOsFs()
	t.Cleanup(func() { config.DefaultFs = prev })

	v, err := version.ParseExact("1.5.0")
	require.NoError(t, err)
	node, err := version.ParseExact("18.0.0")
	require.NoError(t, err)
	spec := &platform.PlatformSpec{
		Node: &platform.Sourced[version.Version]{Value: node, Source: platform.OriginDefault},
	}
	require.NoError(t, binconfig.SaveBin(lo, binconfig.NewBinConfig("cowsay", "cowsay", v, spec, packagemanager.Npm)))

	require.NoError(t, EnsureMany(lo, []string{"node", "cowsay", "stale-bin"}))
	require.NoError(t, RemoveOrphans(lo))

	assert.True(t, fs.FileExists(
		shimPath(lo, "node").ToString()))
	assert.True(t, fs.FileExists(
		shimPath(lo, "cowsay").ToString()))
	assert.False(t, fs.FileExists(
		shimPath(lo, "stale-bin").ToString()))
}

func TestRegenerateAllCoversDefaultsAndBins(t *testing.T) {
	lo := testLayout(t)
	require.NoError(t, RegenerateAll(lo))
	for _, name := range DefaultTools {
		assert.True(t, fs.FileExists(
			shimPath(lo, name).ToString()), name)
	}
}
