package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Masterminds/semver"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/turbopath"
)

func testLayout(t *testing.T) *layout.Layout {
	t.Helper()
	return layout.New(turbopath.AbsoluteSystemPathFromUpstream(t.TempDir()))
}

func TestMaxAgeOf(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", defaultIndexTTL},
		{"max-age=300", 5 * time.Minute},
		{"public, max-age=14400", 4 * time.Hour},
		{"no-cache", defaultIndexTTL},
		{"max-age=garbage", defaultIndexTTL},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, maxAgeOf(tt.header))
		})
	}
}

func TestLTSFieldShapes(t *testing.T) {
	var r NodeRelease
	require.NoError(t, json.Unmarshal([]byte(`{"version":"v18.17.1","lts":"Hydrogen"}`), &r))
	assert.True(t, r.LTS.Set)
	assert.Equal(t, "Hydrogen", r.LTS.Name)

	require.NoError(t, json.Unmarshal([]byte(`{"version":"v20.0.0","lts":false}`), &r))
	assert.False(t, r.LTS.Set)
}

func mustConstraint(t *testing.T, s string) *semver.Constraints {
	t.Helper()
	c, err := semver.NewConstraint(s)
	require.NoError(t, err)
	return c
}

func release(version, lts string) NodeRelease {
	return NodeRelease{Version: version, LTS: LTSField{Name: lts, Set: lts != ""}}
}

func TestSortReleasesNewestFirst(t *testing.T) {
	releases := []NodeRelease{
		release("v18.17.1", "Hydrogen"),
		release("v20.0.0", ""),
		release("v16.20.0", "Gallium"),
	}
	sortReleasesNewestFirst(releases)
	assert.Equal(t, "v20.0.0", releases[0].Version)
	assert.Equal(t, "v16.20.0", releases[2].Version)
}

func TestResolveExact(t *testing.T) {
	releases := []NodeRelease{
		release("v20.0.0", ""),
		release("v18.17.1", "Hydrogen"),
		release("v18.16.0", "Hydrogen"),
	}

	newest, err := ResolveExact(releases, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "v20.0.0", newest.Version)

	lts, err := ResolveExact(releases, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "v18.17.1", lts.Version)

	constraint := mustConstraint(t, "^18.16")
	ranged, err := ResolveExact(releases, constraint, false)
	require.NoError(t, err)
	assert.Equal(t, "v18.17.1", ranged.Version)

	none := mustConstraint(t, "^21")
	_, err = ResolveExact(releases, none, false)
	require.Error(t, err)
}

func TestCacheRoundTrip(t *testing.T) {
	lo := testLayout(t)
	client := NewNodeClient(hclog.NewNullLogger(), "")
	releases := []NodeRelease{release("v18.17.1", "Hydrogen")}

	require.NoError(t, client.writeCache(lo, releases, time.Hour))

	cached, ok := client.readCache(lo)
	require.True(t, ok)
	require.Len(t, cached, 1)
	assert.Equal(t, "v18.17.1", cached[0].Version)
}

func TestCacheExpired(t *testing.T) {
	lo := testLayout(t)
	client := NewNodeClient(hclog.NewNullLogger(), "")
	require.NoError(t, client.writeCache(lo, []NodeRelease{release("v18.17.1", "")}, time.Hour))

	// Force the stamp into the past.
	expired := fmt.Sprintf("%d", time.Now().Add(-time.Minute).Unix())
	require.NoError(t, os.WriteFile(lo.NodeIndexExpiryFile().ToString(), []byte(expired), 0o644))

	_, ok := client.readCache(lo)
	assert.False(t, ok)
}

func TestCacheDiscardedOnURLChange(t *testing.T) {
	lo := testLayout(t)
	original := NewNodeClient(hclog.NewNullLogger(), "https://mirror-a.example.com/index.json")
	require.NoError(t, original.writeCache(lo, []NodeRelease{release("v18.17.1", "")}, time.Hour))

	_, ok := original.readCache(lo)
	require.True(t, ok)

	changed := NewNodeClient(hclog.NewNullLogger(), "https://mirror-b.example.com/index.json")
	_, ok = changed.readCache(lo)
	assert.False(t, ok, "a cache written for another index URL must be discarded")
}
