package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/turbopath"
)

func testHome(t *testing.T) *layout.Layout {
	t.Helper()
	home := filepath.Join(t.TempDir(), "toolpin-home")
	return layout.New(turbopath.AbsoluteSystemPathFromUpstream(home))
}

func markerCount(t *testing.T, lo *layout.Layout) (int, int) {
	t.Helper()
	count, newest := 0, 0
	for v := 1; v <= layout.CurrentSchemaVersion; v++ {
		if fs.FileExists(lo.SchemaMarker(v).ToString()) {
			count++
			newest = v
		}
	}
	return count, newest
}

func TestDetectEmpty(t *testing.T) {
	lo := testHome(t)
	d := Detect(lo)
	assert.Equal(t, Empty, d.State)
	assert.True(t, NeedsMigration(d))
}

func TestDetectLegacy(t *testing.T) {
	lo := testHome(t)
	require.NoError(t, os.MkdirAll(lo.Home().ToString(), 0o755))
	d := Detect(lo)
	assert.Equal(t, Legacy, d.State)
	assert.True(t, NeedsMigration(d))
}

func TestDetectNewestMarkerWins(t *testing.T) {
	lo := testHome(t)
	require.NoError(t, os.MkdirAll(lo.Home().ToString(), 0o755))
	// A crash between marker creation and old-marker deletion leaves
	// both on disk; detection must treat the home as the newer version.
	require.NoError(t, os.WriteFile(lo.SchemaMarker(2).ToString(), nil, 0o644))
	require.NoError(t, os.WriteFile(lo.SchemaMarker(3).ToString(), nil, 0o644))

	d := Detect(lo)
	assert.Equal(t, Versioned, d.State)
	assert.Equal(t, 3, d.SchemaVersion)
}

func TestRunFromEmpty(t *testing.T) {
	lo := testHome(t)
	require.NoError(t, Run(hclog.NewNullLogger(), lo))

	count, newest := markerCount(t, lo)
	assert.Equal(t, 1, count)
	assert.Equal(t, layout.CurrentSchemaVersion, newest)
	for _, dir := range lo.RequiredDirs() {
		assert.True(t, fs.IsDirectory(dir.ToString()), dir.ToString())
	}

	// A second run is a no-op.
	require.NoError(t, Run(hclog.NewNullLogger(), lo))
	count, _ = markerCount(t, lo)
	assert.Equal(t, 1, count)
}

func TestRunFromV1(t *testing.T) {
	lo := testHome(t)
	require.NoError(t, Run(hclog.NewNullLogger(), lo))
	// Rewind to V1 with a legacy bundled-npm directory inside a node
	// image.
	require.NoError(t, os.Remove(lo.SchemaMarker(layout.CurrentSchemaVersion).ToString()))
	require.NoError(t, os.WriteFile(lo.SchemaMarker(1).ToString(), nil, 0o644))
	legacyNpm := filepath.Join(lo.ImageVersionDir("node", "14.0.0").ToString(), "npm")
	require.NoError(t, os.MkdirAll(legacyNpm, 0o755))

	require.NoError(t, Run(hclog.NewNullLogger(), lo))

	count, newest := markerCount(t, lo)
	assert.Equal(t, 1, count)
	assert.Equal(t, layout.CurrentSchemaVersion, newest)
	assert.False(t, fs.PathExists(legacyNpm), "bundled npm dir should be removed by the v1->v2 step")
}
