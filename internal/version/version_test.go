package version

import (
	"encoding/json"
	"testing"

	"github.com/Masterminds/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExactAcceptsVPrefix(t *testing.T) {
	bare, err := ParseExact("18.17.1")
	require.NoError(t, err)
	prefixed, err := ParseExact("v18.17.1")
	require.NoError(t, err)
	assert.Equal(t, bare.String(), prefixed.String())
	assert.Equal(t, "18.17.1", prefixed.String())
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
		str   string
	}{
		{"", KindNone, ""},
		{"latest", KindTag, "latest"},
		{"lts", KindTag, "lts"},
		{"18.17.1", KindExact, "18.17.1"},
		{"v20.0.0", KindExact, "20.0.0"},
		{"^18", KindRange, "^18"},
		{">=16 <19", KindRange, ">=16 <19"},
		{"next", KindTag, "next"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseRequest(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind)
			assert.Equal(t, tt.str, v.String())
		})
	}
}

func TestEquivalentToLatest(t *testing.T) {
	none, _ := ParseRequest("")
	latest, _ := ParseRequest("latest")
	lts, _ := ParseRequest("lts")
	exact, _ := ParseRequest("18.0.0")

	assert.True(t, none.EquivalentToLatest())
	assert.True(t, latest.EquivalentToLatest())
	assert.False(t, lts.EquivalentToLatest())
	assert.False(t, exact.EquivalentToLatest())
}

func TestMatches(t *testing.T) {
	candidate := semver.MustParse("18.17.1")

	exact, _ := ParseExact("18.17.1")
	assert.True(t, exact.Matches(candidate))

	other, _ := ParseExact("18.17.0")
	assert.False(t, other.Matches(candidate))

	rng, _ := ParseRange("^18")
	assert.True(t, rng.Matches(candidate))

	narrow, _ := ParseRange("^19")
	assert.False(t, narrow.Matches(candidate))

	assert.False(t, None.Matches(candidate))
}

func TestJSONRoundTrip(t *testing.T) {
	v, _ := ParseExact("9.6.7")
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `"9.6.7"`, string(data))

	var parsed Version
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, KindExact, parsed.Kind)
	assert.Equal(t, "9.6.7", parsed.String())
}

func TestJSONNull(t *testing.T) {
	data, err := json.Marshal(None)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var parsed Version
	require.NoError(t, json.Unmarshal([]byte("null"), &parsed))
	assert.True(t, parsed.IsNone())
}
