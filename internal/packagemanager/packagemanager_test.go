package packagemanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyYarn(t *testing.T) {
	tests := []struct {
		version string
		want    Slug
	}{
		{"1.22.19", Yarn},
		{"v1.9.0", Yarn},
		{"2.0.0", YarnBerry},
		{"3.2.0", YarnBerry},
		{"2.0.0-rc.1", YarnBerry},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := ClassifyYarn(tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ClassifyYarn("not-a-version")
	assert.Error(t, err)
}

func TestNpmGlobalInstallShape(t *testing.T) {
	mgr, ok := Get(Npm)
	require.True(t, ok)
	assert.Equal(t, []string{"install", "--global", "cowsay@1.5.0"},
		mgr.GlobalInstallArgs([]string{"cowsay@1.5.0"}))
	assert.Equal(t, []string{"npm_config_prefix=/staging"},
		mgr.GlobalInstallEnv("/staging", "/staging/bin"))
	assert.Nil(t, mgr.ExtraPath)
}

func TestYarnGlobalInstallShape(t *testing.T) {
	mgr, ok := Get(Yarn)
	require.True(t, ok)
	env := mgr.GlobalInstallEnv("/staging", "/staging/bin")
	assert.Contains(t, env, "npm_config_prefix=/staging")
	assert.Contains(t, env, "npm_config_global_folder=/staging/lib")
}

func TestPnpmGlobalInstallShape(t *testing.T) {
	mgr, ok := Get(Pnpm)
	require.True(t, ok)
	require.NotNil(t, mgr.GlobalDirFlags)
	flags := mgr.GlobalDirFlags("/staging", "/staging/bin")
	assert.Equal(t, []string{"--global-dir", "/staging", "--global-bin-dir", "/staging/bin"}, flags)

	env := mgr.GlobalInstallEnv("/staging", "/staging/bin")
	assert.Contains(t, env, "PNPM_HOME=/staging/bin")

	// pnpm refuses to run unless its bin dir leads PATH.
	require.NotNil(t, mgr.ExtraPath)
	assert.Equal(t, []string{"/staging/bin"}, mgr.ExtraPath("/staging/bin"))
}

func TestGetUnknownSlug(t *testing.T) {
	_, ok := Get(Slug("cargo"))
	assert.False(t, ok)
}

func TestPatternsCoverEveryManager(t *testing.T) {
	for _, slug := range []Slug{Npm, Yarn, YarnBerry, Pnpm, Bun} {
		assert.NotEmpty(t, InstallPatterns[slug].Verbs, string(slug))
		assert.NotEmpty(t, UninstallPatterns[slug].Verbs, string(slug))
	}
}
