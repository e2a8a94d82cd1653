package platform

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/turbopath"
)

func withMemFs(t *testing.T) *layout.Layout {
	t.Helper()
	prev := config.DefaultFs
	config.DefaultFs = afero.NewMemMapFs()
	t.Cleanup(func() { config.DefaultFs = prev })
	return layout.New(turbopath.AbsoluteSystemPathFromUpstream("/home/tester/.toolpin"))
}

func TestLoadDefaultAbsent(t *testing.T) {
	lo := withMemFs(t)
	spec, err := LoadDefault(lo)
	require.NoError(t, err)
	assert.Nil(t, spec)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	lo := withMemFs(t)
	spec := &PlatformSpec{
		Node: sourced(t, "18.17.1", OriginDefault),
		Yarn: sourced(t, "1.22.19", OriginDefault),
	}
	require.NoError(t, SaveDefault(lo, spec))

	loaded, err := LoadDefault(lo)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "18.17.1", loaded.Node.Value.String())
	assert.Nil(t, loaded.Npm)
	assert.Nil(t, loaded.Pnpm)
	require.NotNil(t, loaded.Yarn)
	assert.Equal(t, "1.22.19", loaded.Yarn.Value.String())
	assert.Equal(t, OriginDefault, loaded.Node.Source)
}

func TestSaveDefaultOnDiskShape(t *testing.T) {
	lo := withMemFs(t)
	spec := &PlatformSpec{Node: sourced(t, "18.17.1", OriginDefault)}
	require.NoError(t, SaveDefault(lo, spec))

	raw, err := afero.ReadFile(config.DefaultFs, lo.UserPlatformFile().ToString())
	require.NoError(t, err)
	assert.JSONEq(t, `{"node":{"runtime":"18.17.1","npm":null}}`, string(raw))
}
