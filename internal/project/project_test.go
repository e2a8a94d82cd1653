package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/turbopath"
)

func writeManifest(t *testing.T, dir, content string) turbopath.AbsoluteSystemPath {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "package.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return turbopath.AbsoluteSystemPathFromUpstream(path)
}

func TestFindNearestManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `{"name": "app"}`)
	nested := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindNearestManifest(turbopath.AbsoluteSystemPathFromUpstream(nested))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "package.json"), found.ToString())
}

func TestFindNearestManifestSkipsNodeModules(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `{"name": "app"}`)
	depDir := filepath.Join(root, "node_modules", "dep")
	writeManifest(t, depDir, `{"name": "dep"}`)

	found, err := FindNearestManifest(turbopath.AbsoluteSystemPathFromUpstream(depDir))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "package.json"), found.ToString())
}

func TestLoadExtendsChain(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "workspace"), `{
  "name": "workspace-root",
  "dependencies": {"left-pad": "1.0.0", "shared": "2.0.0"},
  "toolpin": {"yarn": "3.2.0"}
}`)
	writeManifest(t, filepath.Join(root, "workspace", "app"), `{
  "name": "app",
  "dependencies": {"shared": "3.0.0"},
  "toolpin": {"node": "20.0.0", "extends": "../package.json"}
}`)

	proj, err := Load(turbopath.AbsoluteSystemPathFromUpstream(filepath.Join(root, "workspace", "app")))
	require.NoError(t, err)

	require.NotNil(t, proj.Platform)
	require.NotNil(t, proj.Platform.Node)
	assert.Equal(t, "20.0.0", proj.Platform.Node.Value.String())
	require.NotNil(t, proj.Platform.Yarn, "yarn should be inherited from the workspace root")
	assert.Equal(t, "3.2.0", proj.Platform.Yarn.Value.String())

	// Innermost dependency entries win on collision.
	assert.Equal(t, "3.0.0", proj.Dependencies["shared"])
	assert.Equal(t, "1.0.0", proj.Dependencies["left-pad"])
	assert.Len(t, proj.ExtendsChain, 1)
}

func TestLoadExtendsCycle(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "a"), `{
  "name": "a",
  "toolpin": {"node": "20.0.0", "extends": "../b/package.json"}
}`)
	writeManifest(t, filepath.Join(root, "b"), `{
  "name": "b",
  "toolpin": {"extends": "../a/package.json"}
}`)

	_, err := Load(turbopath.AbsoluteSystemPathFromUpstream(filepath.Join(root, "a")))
	require.Error(t, err)
	cycleErr := &CycleError{}
	require.ErrorAs(t, err, &cycleErr)
	// Every manifest in the cycle is named in the error.
	assert.Contains(t, cycleErr.Error(), filepath.Join("a", "package.json"))
	assert.Contains(t, cycleErr.Error(), filepath.Join("b", "package.json"))
}

func TestLoadExtendsMissingTarget(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "a"), `{
  "name": "a",
  "toolpin": {"extends": "../gone/package.json"}
}`)
	_, err := Load(turbopath.AbsoluteSystemPathFromUpstream(filepath.Join(root, "a")))
	require.Error(t, err)
}

func TestNeedsYarnRun(t *testing.T) {
	root := t.TempDir()
	manifest := writeManifest(t, root, `{
  "name": "app",
  "toolpin": {"node": "20.0.0", "yarn": "3.2.0"}
}`)
	proj, err := Load(manifest.Dir())
	require.NoError(t, err)
	assert.False(t, NeedsYarnRun(proj))

	require.NoError(t, os.WriteFile(filepath.Join(root, ".pnp.cjs"), []byte("{}"), 0o644))
	assert.True(t, NeedsYarnRun(proj))
}

func TestNeedsYarnRunRequiresYarnPin(t *testing.T) {
	root := t.TempDir()
	manifest := writeManifest(t, root, `{
  "name": "app",
  "toolpin": {"node": "20.0.0"}
}`)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".yarnrc.yml"), []byte(""), 0o644))
	proj, err := Load(manifest.Dir())
	require.NoError(t, err)
	assert.False(t, NeedsYarnRun(proj))
}
