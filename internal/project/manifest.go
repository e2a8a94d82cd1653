// Package project implements the project manifest model: locating the
// nearest package.json, parsing its toolpin section and dependency maps,
// and following the extends chain across workspace roots with cycle
// detection.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// manifestKey is the project-manifest field this system owns; every other
// field of package.json keeps its value when the manifest is rewritten
// (see MarshalManifest for what is not kept).
const manifestKey = "toolpin"

// ToolpinSection is the shape of the "toolpin" key in package.json.
type ToolpinSection struct {
	Node    string `json:"node,omitempty"`
	Npm     string `json:"npm,omitempty"`
	Pnpm    string `json:"pnpm,omitempty"`
	Yarn    string `json:"yarn,omitempty"`
	Extends string `json:"extends,omitempty"`
}

// Manifest is a single parsed package.json, keeping every field outside
// the toolpin key in RawJSON so it can be written back.
type Manifest struct {
	Name         string            `json:"name,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`

	Toolpin *ToolpinSection `json:"-"`

	// RawJSON is the full decoded document; MarshalManifest writes it
	// back with only the toolpin section replaced, so unknown fields
	// round-trip.
	RawJSON map[string]interface{} `json:"-"`
	// Path is where this manifest was read from.
	Path turbopath.AbsoluteSystemPath `json:"-"`
	// DetectedIndent is the indentation found in the source document,
	// reused on write so an edit doesn't reformat the whole file.
	DetectedIndent string `json:"-"`
}

// ReadManifest parses the package.json at path.
func ReadManifest(path turbopath.AbsoluteSystemPath) (*Manifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalManifest(data, path)
}

func readFile(path turbopath.AbsoluteSystemPath) ([]byte, error) {
	return os.ReadFile(path.ToString())
}

// UnmarshalManifest parses raw package.json bytes.
func UnmarshalManifest(data []byte, path turbopath.AbsoluteSystemPath) (*Manifest, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m := &Manifest{RawJSON: raw, Path: path, DetectedIndent: detectIndent(data)}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if raw, ok := raw[manifestKey]; ok {
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		var section ToolpinSection
		if err := json.Unmarshal(b, &section); err != nil {
			return nil, fmt.Errorf("%s: toolpin section: %w", path, err)
		}
		m.Toolpin = &section
	}
	return m, nil
}

// detectIndent extracts the indentation of the first indented line, so
// a rewritten manifest keeps the file's existing style. Two spaces is
// the fallback for a document with no nesting at all.
func detectIndent(data []byte) string {
	for _, line := range bytes.Split(data, []byte("\n")) {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) == len(line) || len(trimmed) == 0 {
			continue
		}
		return string(line[:len(line)-len(trimmed)])
	}
	return "  "
}

// MarshalManifest re-serializes a Manifest from its RawJSON map, with the
// toolpin section replaced by m.Toolpin (or removed when it is nil) and
// indentation carried from the struct's DetectedIndent. Every other field
// keeps its decoded value, but the document is re-encoded: keys come out
// in sorted order and other source formatting is not kept, so the output
// is not byte-for-byte identical outside the toolpin key. Name and
// Dependencies are not written back from the struct.
func MarshalManifest(m *Manifest) ([]byte, error) {
	fields := make(map[string]interface{}, len(m.RawJSON))
	for k, v := range m.RawJSON {
		fields[k] = v
	}
	if m.Toolpin != nil {
		b, err := json.Marshal(m.Toolpin)
		if err != nil {
			return nil, err
		}
		var v interface{}
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, err
		}
		fields[manifestKey] = v
	} else {
		delete(fields, manifestKey)
	}

	indent := m.DetectedIndent
	if indent == "" {
		indent = "  "
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PlatformSpec converts the manifest's toolpin section into a
// platform.PlatformSpec, or nil if the manifest has none.
func (m *Manifest) PlatformSpec() (*platform.PlatformSpec, error) {
	if m.Toolpin == nil {
		return nil, nil
	}
	return platform.ParseSpec(m.Toolpin.Node, m.Toolpin.Npm, m.Toolpin.Pnpm, m.Toolpin.Yarn)
}
