package hook

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/turbopath"
)

func withMemFs(t *testing.T) *layout.Layout {
	t.Helper()
	prev := config.DefaultFs
	config.DefaultFs = afero.NewMemMapFs()
	t.Cleanup(func() { config.DefaultFs = prev })
	return layout.New(turbopath.AbsoluteSystemPathFromUpstream("/home/tester/.toolpin"))
}

func TestResolverValidate(t *testing.T) {
	tests := []struct {
		name    string
		r       Resolver
		wantErr string
	}{
		{"prefix only", Resolver{Prefix: "https://mirror/"}, ""},
		{"template only", Resolver{Template: "https://mirror/{{version}}"}, ""},
		{"bin only", Resolver{Bin: "resolve-node"}, ""},
		{"none", Resolver{}, "no fields specified"},
		{"multiple", Resolver{Prefix: "a", Bin: "b"}, "multiple fields specified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestResolverPrefix(t *testing.T) {
	r := Resolver{Prefix: "https://mirror.example.com/node/"}
	url, err := r.Resolve("node-v18.17.1-linux-x64.tar.gz", "linux", "x64", "18.17.1")
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com/node/node-v18.17.1-linux-x64.tar.gz", url)
}

func TestResolverTemplate(t *testing.T) {
	r := Resolver{Template: "https://mirror/{{os}}/{{arch}}/node-{{version}}.tar.gz"}
	url, err := r.Resolve("ignored", "linux", "x64", "18.17.1")
	require.NoError(t, err)
	assert.Equal(t, "https://mirror/linux/x64/node-18.17.1.tar.gz", url)
}

func TestPublishHookValidate(t *testing.T) {
	assert.NoError(t, (&PublishHook{URL: "https://example.com"}).Validate())
	assert.NoError(t, (&PublishHook{Bin: "publish-events"}).Validate())

	err := (&PublishHook{URL: "https://example.com", Bin: "publish-events"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both url and bin")

	err = (&PublishHook{}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fields specified")
}

func TestLoadAbsent(t *testing.T) {
	lo := withMemFs(t)
	cfg, err := Load(lo)
	require.NoError(t, err)
	assert.Nil(t, cfg.Node)
	assert.Nil(t, cfg.Events)
}

func TestLoadJSON(t *testing.T) {
	lo := withMemFs(t)
	doc := `{
  "node": {"distro": {"prefix": "https://mirror/node/"}},
  "yarn": {"index": {"template": "https://mirror/{{version}}"}, "format": "github"},
  "events": {"publish": {"url": "https://telemetry.example.com"}}
}`
	require.NoError(t, afero.WriteFile(config.DefaultFs, lo.HooksFile().ToString(), []byte(doc), 0o644))

	cfg, err := Load(lo)
	require.NoError(t, err)
	require.NotNil(t, cfg.Node)
	assert.Equal(t, "https://mirror/node/", cfg.Node.Distro.Prefix)
	require.NotNil(t, cfg.Yarn)
	assert.Equal(t, "github", cfg.Yarn.Format)
	require.NotNil(t, cfg.Events)
	assert.Equal(t, "https://telemetry.example.com", cfg.Events.Publish.URL)
}

func TestLoadInvalidResolverIsFatal(t *testing.T) {
	lo := withMemFs(t)
	doc := `{"node": {"distro": {"prefix": "a", "bin": "b"}}}`
	require.NoError(t, afero.WriteFile(config.DefaultFs, lo.HooksFile().ToString(), []byte(doc), 0o644))

	_, err := Load(lo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple fields specified")
}

func TestLoadYamlFallback(t *testing.T) {
	lo := withMemFs(t)
	doc := "node:\n  distro:\n    prefix: https://mirror/node/\n"
	require.NoError(t, afero.WriteFile(config.DefaultFs, lo.HooksYamlFile().ToString(), []byte(doc), 0o644))

	cfg, err := Load(lo)
	require.NoError(t, err)
	require.NotNil(t, cfg.Node)
	assert.Equal(t, "https://mirror/node/", cfg.Node.Distro.Prefix)
}

func TestMergeProjectLocal(t *testing.T) {
	base := &Config{
		Node: &ToolHooks{Distro: &Resolver{Prefix: "https://base/"}},
		Npm:  &ToolHooks{Latest: &Resolver{Bin: "latest-npm"}},
	}
	local := &Config{Node: &ToolHooks{Distro: &Resolver{Prefix: "https://local/"}}}

	merged := MergeProjectLocal(base, local)
	assert.Equal(t, "https://local/", merged.Node.Distro.Prefix)
	assert.Equal(t, "latest-npm", merged.Npm.Latest.Bin)

	assert.Same(t, base, MergeProjectLocal(base, nil))
}
