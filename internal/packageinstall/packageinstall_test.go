package packageinstall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/turbopath"
)

func TestPackageNameFromSpec(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"cowsay", "cowsay"},
		{"cowsay@1.5.0", "cowsay"},
		{"cowsay@^1", "cowsay"},
		{"@angular/cli", "@angular/cli"},
		{"@angular/cli@16.0.0", "@angular/cli"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.want, packageNameFromSpec(tt.spec))
		})
	}
}

func TestExtractBinNamesMap(t *testing.T) {
	pkg := &packageJSON{
		Name: "cowsay",
		Bin: map[string]interface{}{
			"cowsay":   "./cli.js",
			"cowthink": "./think.js",
		},
	}
	names := extractBinNames(pkg, "cowsay")
	assert.ElementsMatch(t, []string{"cowsay", "cowthink"}, names)
}

func TestExtractBinNamesString(t *testing.T) {
	pkg := &packageJSON{Name: "@scope/tool", Bin: "./cli.js"}
	names := extractBinNames(pkg, "@scope/tool")
	assert.Equal(t, []string{"tool"}, names)
}

func TestExtractBinNamesDropsPathSeparators(t *testing.T) {
	pkg := &packageJSON{
		Name: "weird",
		Bin: map[string]interface{}{
			"ok":         "./cli.js",
			"nested/no":  "./bad.js",
			"back\\also": "./worse.js",
		},
	}
	names := extractBinNames(pkg, "weird")
	assert.Equal(t, []string{"ok"}, names)
}

func TestExtractBinNamesAbsent(t *testing.T) {
	pkg := &packageJSON{Name: "libonly"}
	assert.Empty(t, extractBinNames(pkg, "libonly"))
}

func stage(t *testing.T, layoutRel string, pkgJSON string) turbopath.AbsoluteSystemPath {
	t.Helper()
	staging := t.TempDir()
	dir := filepath.Join(staging, filepath.FromSlash(layoutRel))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(pkgJSON), 0o644))
	return turbopath.AbsoluteSystemPathFromUpstream(staging)
}

func TestScanInstalledPackageNpmLayout(t *testing.T) {
	staging := stage(t, "lib/node_modules/cowsay", `{"name":"cowsay","version":"1.5.0"}`)
	name, dir, err := scanInstalledPackage(staging, "cowsay@^1")
	require.NoError(t, err)
	assert.Equal(t, "cowsay", name)
	assert.Equal(t, filepath.Join(staging.ToString(), "lib", "node_modules", "cowsay"), dir.ToString())
}

func TestScanInstalledPackageScoped(t *testing.T) {
	staging := stage(t, "lib/node_modules/@angular/cli", `{"name":"@angular/cli","version":"16.0.0"}`)
	name, dir, err := scanInstalledPackage(staging, "@angular/cli@16")
	require.NoError(t, err)
	assert.Equal(t, "@angular/cli", name)
	assert.Contains(t, dir.ToString(), filepath.Join("@angular", "cli"))
}

func TestScanInstalledPackageDirectorySpec(t *testing.T) {
	// A link-style install passes the project directory as the spec; the
	// installed name is discovered from the staging tree instead.
	staging := stage(t, "lib/node_modules/my-tool", `{"name":"my-tool","version":"0.1.0"}`)
	name, _, err := scanInstalledPackage(staging, "/somewhere/my-project")
	require.NoError(t, err)
	assert.Equal(t, "my-tool", name)
}

func TestScanInstalledPackageMissing(t *testing.T) {
	staging := turbopath.AbsoluteSystemPathFromUpstream(t.TempDir())
	_, _, err := scanInstalledPackage(staging, "cowsay")
	require.Error(t, err)
}

func TestUnscopedName(t *testing.T) {
	assert.Equal(t, "cli", unscopedName("@angular/cli"))
	assert.Equal(t, "cowsay", unscopedName("cowsay"))
}
