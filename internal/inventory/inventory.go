// Package inventory enumerates the distributions already unpacked into
// the layout's image tree, used by `toolpin list` and by the executor and
// the install/pin commands to decide whether a version needs fetching at
// all.
package inventory

import (
	"os"
	"sort"

	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// Entry is one unpacked installation.
type Entry struct {
	Tool    string
	Name    string // for Tool == "packages", the package name; empty otherwise
	Version string
}

// Tools lists the fixed, non-package tool kinds the layout always
// tracks (packages are enumerated separately since they're keyed by
// name as well as version).
var Tools = []string{"node", "npm", "pnpm", "yarn"}

// List enumerates every installed version of tool (one of Tools).
func List(lo *layout.Layout, tool string) ([]Entry, error) {
	dir := lo.ImageDir(tool)
	versions, err := readDirNames(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(versions))
	for _, v := range versions {
		entries = append(entries, Entry{Tool: tool, Version: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// ListPackages enumerates every installed global package and version,
// descending one extra level for scoped (@scope/name) packages the same
// way the package-install pipeline stores them.
func ListPackages(lo *layout.Layout) ([]Entry, error) {
	root := lo.ImageDir("packages")
	names, err := readDirNames(root)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, n := range names {
		if len(n) > 0 && n[0] == '@' {
			scopedDir := root.Join(turbopath.RelativeSystemPathFromUpstream(n))
			subNames, err := readDirNames(scopedDir)
			if err != nil {
				continue
			}
			for _, sub := range subNames {
				versions, err := readDirNames(scopedDir.Join(turbopath.RelativeSystemPathFromUpstream(sub)))
				if err != nil {
					continue
				}
				for _, v := range versions {
					entries = append(entries, Entry{Tool: "packages", Name: n + "/" + sub, Version: v})
				}
			}
			continue
		}
		versions, err := readDirNames(root.Join(turbopath.RelativeSystemPathFromUpstream(n)))
		if err != nil {
			continue
		}
		for _, v := range versions {
			entries = append(entries, Entry{Tool: "packages", Name: n, Version: v})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Version < entries[j].Version
	})
	return entries, nil
}

// All enumerates every installed distribution across every tool kind
// plus global packages.
func All(lo *layout.Layout) ([]Entry, error) {
	var all []Entry
	for _, tool := range Tools {
		entries, err := List(lo, tool)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	packages, err := ListPackages(lo)
	if err != nil {
		return nil, err
	}
	return append(all, packages...), nil
}

// Has reports whether the given exact version of tool is already
// unpacked at its canonical image path.
func Has(lo *layout.Layout, tool, version string) bool {
	info, err := os.Stat(lo.ImageVersionDir(tool, version).ToString())
	return err == nil && info.IsDir()
}

func readDirNames(dir turbopath.AbsoluteSystemPath) ([]string, error) {
	entries, err := os.ReadDir(dir.ToString())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
