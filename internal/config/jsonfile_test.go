package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/turbopath"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func useMemFs(t *testing.T) {
	t.Helper()
	prev := DefaultFs
	DefaultFs = afero.NewMemMapFs()
	t.Cleanup(func() { DefaultFs = prev })
}

func TestReadJSONOptionalMissing(t *testing.T) {
	useMemFs(t)
	_, ok, err := ReadJSONOptional(turbopath.AbsoluteSystemPathFromUpstream("/nope/missing.json"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	useMemFs(t)
	path := turbopath.AbsoluteSystemPathFromUpstream("/home/tester/.toolpin/tools/user/platform.json")

	require.NoError(t, WriteJSONAtomic(path, sample{Name: "cowsay", Count: 2}))

	var got sample
	ok, err := ReadJSON(path, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample{Name: "cowsay", Count: 2}, got)
}

func TestWriteLeavesNoStagingFile(t *testing.T) {
	useMemFs(t)
	path := turbopath.AbsoluteSystemPathFromUpstream("/home/tester/file.json")
	require.NoError(t, WriteJSONAtomic(path, sample{Name: "x"}))

	entries, err := afero.ReadDir(DefaultFs, "/home/tester")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file.json", entries[0].Name())
}

func TestRemoveMissingIsNotAnError(t *testing.T) {
	useMemFs(t)
	assert.NoError(t, Remove(turbopath.AbsoluteSystemPathFromUpstream("/nope.json")))
}

func TestReadJSONMalformed(t *testing.T) {
	useMemFs(t)
	path := turbopath.AbsoluteSystemPathFromUpstream("/home/tester/broken.json")
	require.NoError(t, afero.WriteFile(DefaultFs, path.ToString(), []byte("{not json"), 0o644))

	var got sample
	ok, err := ReadJSON(path, &got)
	assert.True(t, ok)
	assert.Error(t, err)
}
