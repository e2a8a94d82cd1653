package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toolpin/toolpin/internal/packagemanager"
)

func TestInterceptNpm(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		kind  InterceptKind
		names []string
	}{
		{"install -g", []string{"install", "-g", "cowsay"}, InterceptInstall, []string{"cowsay"}},
		{"i --global", []string{"i", "--global", "cowsay"}, InterceptInstall, []string{"cowsay"}},
		{"add -g", []string{"add", "-g", "cowsay"}, InterceptInstall, []string{"cowsay"}},
		{"isntall typo alias", []string{"isntall", "-g", "cowsay"}, InterceptInstall, []string{"cowsay"}},
		{"multiple packages fan out", []string{"install", "-g", "cowsay", "lolcatjs"}, InterceptInstall, []string{"cowsay", "lolcatjs"}},
		{"flag after names", []string{"install", "cowsay", "--global"}, InterceptInstall, []string{"cowsay"}},
		{"local install passes through", []string{"install", "cowsay"}, InterceptNone, nil},
		{"bare install passes through", []string{"install"}, InterceptNone, nil},
		{"uninstall -g", []string{"uninstall", "-g", "cowsay"}, InterceptUninstall, []string{"cowsay"}},
		{"rm --global", []string{"rm", "--global", "cowsay"}, InterceptUninstall, []string{"cowsay"}},
		{"unlink -g", []string{"unlink", "-g", "cowsay"}, InterceptUninstall, []string{"cowsay"}},
		{"link current project", []string{"link"}, InterceptLink, nil},
		{"link named package", []string{"link", "cowsay"}, InterceptLink, []string{"cowsay"}},
		{"run passes through", []string{"run", "build"}, InterceptNone, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, names := Intercept(packagemanager.Npm, tt.args)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestInterceptYarn(t *testing.T) {
	kind, names := Intercept(packagemanager.Yarn, []string{"global", "add", "cowsay"})
	assert.Equal(t, InterceptInstall, kind)
	assert.Equal(t, []string{"cowsay"}, names)

	kind, names = Intercept(packagemanager.Yarn, []string{"global", "remove", "cowsay"})
	assert.Equal(t, InterceptUninstall, kind)
	assert.Equal(t, []string{"cowsay"}, names)

	// yarn add without "global" is a project install.
	kind, _ = Intercept(packagemanager.Yarn, []string{"add", "cowsay"})
	assert.Equal(t, InterceptNone, kind)

	// yarn has no link interception.
	kind, _ = Intercept(packagemanager.Yarn, []string{"link"})
	assert.Equal(t, InterceptNone, kind)
}

func TestInterceptPnpm(t *testing.T) {
	kind, names := Intercept(packagemanager.Pnpm, []string{"add", "-g", "cowsay"})
	assert.Equal(t, InterceptInstall, kind)
	assert.Equal(t, []string{"cowsay"}, names)

	kind, names = Intercept(packagemanager.Pnpm, []string{"un", "--global", "cowsay"})
	assert.Equal(t, InterceptUninstall, kind)
	assert.Equal(t, []string{"cowsay"}, names)

	kind, _ = Intercept(packagemanager.Pnpm, []string{"add", "cowsay"})
	assert.Equal(t, InterceptNone, kind)
}

func TestInterceptScopedPackage(t *testing.T) {
	kind, names := Intercept(packagemanager.Npm, []string{"install", "-g", "@angular/cli@16"})
	assert.Equal(t, InterceptInstall, kind)
	assert.Equal(t, []string{"@angular/cli@16"}, names)
}
