// Package manifest reads the parts of package.json that decide which files
// are public entry points.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileName is the manifest file read from the analyzed root.
const FileName = "package.json"

// Manifest is the subset of package.json used for entry detection.
type Manifest struct {
	Name    string
	Main    string
	Module  string
	Types   string
	Bin     []string
	Exports []string // every file path leaf of the exports map
	Private *bool
	Found   bool
}

// Reader loads a manifest for a project root.
type Reader interface {
	Read(root string) (*Manifest, error)
}

// FileReader reads package.json from disk.
type FileReader struct{}

// Read parses root/package.json. A missing manifest yields an empty one.
func (FileReader) Read(root string) (*Manifest, error) {
	p := filepath.Join(root, FileName)
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return &Manifest{}, nil
	}

	k := koanf.New("\x00")
	if err := k.Load(file.Provider(p), json.Parser()); err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}
	return FromMap(k.Raw()), nil
}

// FromMap builds a Manifest from a decoded package.json document.
func FromMap(raw map[string]any) *Manifest {
	m := &Manifest{Found: true}
	m.Name = str(raw["name"])
	m.Main = str(raw["main"])
	m.Module = str(raw["module"])
	m.Types = str(raw["types"])
	if m.Types == "" {
		m.Types = str(raw["typings"])
	}

	switch bin := raw["bin"].(type) {
	case string:
		m.Bin = []string{bin}
	case map[string]any:
		for _, v := range bin {
			if s := str(v); s != "" {
				m.Bin = append(m.Bin, s)
			}
		}
	}
	sort.Strings(m.Bin)

	if exp, ok := raw["exports"]; ok && exp != nil {
		collectLeaves(exp, &m.Exports)
		m.Exports = dedupe(m.Exports)
	}

	if b, ok := raw["private"].(bool); ok {
		m.Private = &b
	}
	return m
}

// IsLibrary reports whether the package publishes an API. A package marked
// private never does. Otherwise exports or types declare one, and a bare
// main/module entry needs an explicit "private": false.
func (m *Manifest) IsLibrary() bool {
	if !m.Found || (m.Private != nil && *m.Private) {
		return false
	}
	if len(m.Exports) > 0 || m.Types != "" {
		return true
	}
	return (m.Main != "" || m.Module != "") && m.Private != nil && !*m.Private
}

// EntryFiles returns the files named by main, module and bin.
func (m *Manifest) EntryFiles() []string {
	var out []string
	for _, p := range []string{m.Main, m.Module} {
		if p != "" {
			out = append(out, clean(p))
		}
	}
	for _, p := range m.Bin {
		out = append(out, clean(p))
	}
	return dedupe(out)
}

// PublicFiles returns the files that make up the package's public surface.
func (m *Manifest) PublicFiles() []string {
	var out []string
	for _, p := range m.Exports {
		out = append(out, clean(p))
	}
	for _, p := range []string{m.Main, m.Module, m.Types} {
		if p != "" {
			out = append(out, clean(p))
		}
	}
	return dedupe(out)
}

func collectLeaves(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		if strings.HasPrefix(t, "./") || strings.HasPrefix(t, "/") || !strings.Contains(t, ":") {
			*out = append(*out, t)
		}
	case map[string]any:
		for _, child := range t {
			collectLeaves(child, out)
		}
	case []any:
		for _, child := range t {
			collectLeaves(child, out)
		}
	}
}

func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
