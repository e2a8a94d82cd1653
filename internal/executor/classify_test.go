package executor

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/session"
	"github.com/toolpin/toolpin/internal/turbopath"
)

func testSession(t *testing.T) *session.Session {
	t.Helper()
	lo := layout.New(turbopath.AbsoluteSystemPathFromUpstream(t.TempDir()))
	return session.New(lo, hclog.NewNullLogger())
}

func TestClassifyRuntimeTools(t *testing.T) {
	t.Setenv(session.PnpmFeatureEnvVar, "1")
	s := testSession(t)
	tests := []struct {
		argv0 string
		kind  Kind
	}{
		{"node", KindNode},
		{"npm", KindNpm},
		{"npx", KindNpx},
		{"pnpm", KindPnpm},
		{"pnpx", KindPnpx},
		{"yarn", KindYarn},
		{"node.exe", KindNode},
		{"yarn.cmd", KindYarn},
	}
	for _, tt := range tests {
		t.Run(tt.argv0, func(t *testing.T) {
			class, err := Classify(s, tt.argv0)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, class.Kind)
		})
	}
}

func TestClassifyBypassWinsOverEverything(t *testing.T) {
	t.Setenv(session.BypassEnvVar, "1")
	s := testSession(t)
	class, err := Classify(s, "node")
	require.NoError(t, err)
	assert.Equal(t, KindBypass, class.Kind)
}

func TestClassifyPnpmGatedBehindFeature(t *testing.T) {
	t.Setenv(session.PnpmFeatureEnvVar, "")
	s := testSession(t)
	for _, argv0 := range []string{"pnpm", "pnpx"} {
		class, err := Classify(s, argv0)
		require.NoError(t, err)
		assert.Equal(t, KindBypass, class.Kind, argv0)
	}
}
