package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvEmpty(t *testing.T) {
	for _, v := range []string{"TOOLPIN_HOME", "TOOLPIN_BYPASS", "TOOLPIN_LOGLEVEL", "TOOLPIN_FEATURE_PNPM"} {
		t.Setenv(v, "")
	}
	env, err := Env()
	require.NoError(t, err)
	assert.Empty(t, env.Home)
	assert.Empty(t, env.Bypass)
	assert.Empty(t, env.LogLevel)
	assert.Empty(t, env.FeaturePnpm)
}

func TestEnvReadsEveryVariable(t *testing.T) {
	t.Setenv("TOOLPIN_HOME", "/custom/home")
	t.Setenv("TOOLPIN_BYPASS", "1")
	t.Setenv("TOOLPIN_LOGLEVEL", "debug")
	t.Setenv("TOOLPIN_FEATURE_PNPM", "1")

	env, err := Env()
	require.NoError(t, err)
	assert.Equal(t, "/custom/home", env.Home)
	assert.Equal(t, "1", env.Bypass)
	assert.Equal(t, "debug", env.LogLevel)
	assert.Equal(t, "1", env.FeaturePnpm)
}
