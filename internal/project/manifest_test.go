package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalManifestToolpinSection(t *testing.T) {
	data := []byte(`{
  "name": "app",
  "toolpin": {"node": "18.17.1", "yarn": "1.22.19"}
}`)
	m, err := UnmarshalManifest(data, "")
	require.NoError(t, err)
	require.NotNil(t, m.Toolpin)
	assert.Equal(t, "18.17.1", m.Toolpin.Node)
	assert.Equal(t, "1.22.19", m.Toolpin.Yarn)
	assert.Empty(t, m.Toolpin.Npm)
}

func TestMarshalManifestPreservesUnknownFields(t *testing.T) {
	data := []byte(`{
  "name": "app",
  "scripts": {"build": "tsc"},
  "custom": {"nested": [1, 2, 3]}
}`)
	m, err := UnmarshalManifest(data, "")
	require.NoError(t, err)
	m.Toolpin = &ToolpinSection{Node: "18.17.1"}

	out, err := MarshalManifest(m)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &parsed))
	assert.Equal(t, "app", parsed["name"])
	assert.Equal(t, map[string]interface{}{"build": "tsc"}, parsed["scripts"])
	assert.Contains(t, parsed, "custom")
	assert.Equal(t, map[string]interface{}{"node": "18.17.1"}, parsed["toolpin"])
}

func TestDetectIndent(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"two spaces", "{\n  \"name\": \"a\"\n}", "  "},
		{"four spaces", "{\n    \"name\": \"a\"\n}", "    "},
		{"tabs", "{\n\t\"name\": \"a\"\n}", "\t"},
		{"flat document", `{"name": "a"}`, "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectIndent([]byte(tt.doc)))
		})
	}
}

func TestMarshalManifestKeepsIndent(t *testing.T) {
	data := []byte("{\n    \"name\": \"app\"\n}")
	m, err := UnmarshalManifest(data, "")
	require.NoError(t, err)
	out, err := MarshalManifest(m)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n    \"name\"")
}

func TestPin(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, `{
  "name": "app",
  "scripts": {"test": "jest"}
}`)

	require.NoError(t, Pin(path, "node", "18.17.1"))
	require.NoError(t, Pin(path, "yarn", "1.22.19"))

	m, err := ReadManifest(path)
	require.NoError(t, err)
	require.NotNil(t, m.Toolpin)
	assert.Equal(t, "18.17.1", m.Toolpin.Node)
	assert.Equal(t, "1.22.19", m.Toolpin.Yarn)
	// Fields outside the toolpin key survive the rewrite.
	assert.Contains(t, m.RawJSON, "scripts")

	err = Pin(path, "deno", "1.0.0")
	require.Error(t, err)
}

func TestWriteManifestAtomicReplacement(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, `{"name": "app"}`)
	m, err := ReadManifest(path)
	require.NoError(t, err)
	m.Toolpin = &ToolpinSection{Node: "20.0.0"}
	require.NoError(t, WriteManifest(m))

	entries, err := os.ReadDir(filepath.Dir(path.ToString()))
	require.NoError(t, err)
	// No staging leftovers next to the manifest.
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
