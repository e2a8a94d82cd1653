package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/platform"
)

func TestSplitSpec(t *testing.T) {
	tests := []struct {
		spec    string
		name    string
		request string
	}{
		{"node", "node", ""},
		{"node@18.17.1", "node", "18.17.1"},
		{"node@lts", "node", "lts"},
		{"cowsay@^1", "cowsay", "^1"},
		{"@angular/cli", "@angular/cli", ""},
		{"@angular/cli@16.0.0", "@angular/cli", "16.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			name, request := splitSpec(tt.spec)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.request, request)
		})
	}
}

func TestSetDefaultVersion(t *testing.T) {
	updated := setDefaultVersion(nil, "node", "18.17.1")
	require.NotNil(t, updated.Node)
	assert.Equal(t, "18.17.1", updated.Node.Value.String())
	assert.Equal(t, platform.OriginDefault, updated.Node.Source)
	assert.Nil(t, updated.Yarn)

	// A later install of another tool keeps the existing pins.
	again := setDefaultVersion(updated, "yarn", "1.22.19")
	require.NotNil(t, again.Node)
	assert.Equal(t, "18.17.1", again.Node.Value.String())
	require.NotNil(t, again.Yarn)
	assert.Equal(t, "1.22.19", again.Yarn.Value.String())
}
