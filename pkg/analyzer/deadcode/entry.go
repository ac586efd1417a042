package deadcode

import (
	"path"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/panbanda/deadwood/internal/manifest"
	"github.com/panbanda/deadwood/pkg/config"
)

// EntryReason says why a file is an entry point.
type EntryReason string

const (
	EntryConventional EntryReason = "conventional"
	EntryManifest     EntryReason = "manifest"
	EntryPattern      EntryReason = "pattern"
	EntryTest         EntryReason = "test"
	EntryPublic       EntryReason = "public-api"
)

var conventionalNames = map[string]bool{
	"main":   true,
	"index":  true,
	"app":    true,
	"server": true,
	"cli":    true,
}

// Build output directories that usually mirror src/.
var outputDirs = map[string]bool{
	"dist":  true,
	"lib":   true,
	"build": true,
	"out":   true,
}

// EntryOptions configures entry point detection.
type EntryOptions struct {
	Manifest *manifest.Manifest
	Patterns []glob.Glob
	// Library is one of config.LibraryAuto, LibraryOn or LibraryOff.
	Library string
}

// EntryFile is a file whose nodes are roots.
type EntryFile struct {
	File   int
	Path   string
	Reason EntryReason
}

// EntryPointSet is the set of reachability roots.
type EntryPointSet struct {
	Roots   *SymbolSet
	Files   []EntryFile
	Library bool
}

// CompilePatterns compiles slash-separated path globs.
func CompilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, &ValidationError{Field: "pattern", Value: p, Err: ErrInvalidPattern}
		}
		out = append(out, g)
	}
	return out, nil
}

// DetectEntries returns the roots of g. Entry, test and pattern-matched
// files contribute their file node, which declares every symbol of the
// file. In library mode the export tables of the public files are roots too.
func DetectEntries(g *SymbolGraph, opts EntryOptions) *EntryPointSet {
	set := &EntryPointSet{Roots: NewSymbolSet()}
	reasons := make(map[int]EntryReason)
	mark := func(fi int, reason EntryReason) {
		if _, ok := reasons[fi]; ok {
			return
		}
		reasons[fi] = reason
		set.Roots.Add(g.Files[fi].Node)
	}

	for fi, f := range g.Files {
		switch {
		case isConventionalEntry(f.Path):
			mark(fi, EntryConventional)
		case f.Test:
			mark(fi, EntryTest)
		case matchesAny(opts.Patterns, f.Path):
			mark(fi, EntryPattern)
		}
	}

	m := opts.Manifest
	if m == nil {
		m = &manifest.Manifest{}
	}
	for _, p := range m.EntryFiles() {
		if fi, ok := findManifestFile(g, p); ok {
			mark(fi, EntryManifest)
		}
	}

	set.Library = opts.Library == config.LibraryOn || (opts.Library != config.LibraryOff && m.IsLibrary())
	if set.Library {
		for _, p := range m.PublicFiles() {
			fi, ok := findManifestFile(g, p)
			if !ok {
				continue
			}
			if _, done := reasons[fi]; !done {
				reasons[fi] = EntryPublic
			}
			set.Roots.Add(g.Files[fi].Module)
			for _, ids := range g.Exports(fi) {
				set.Roots.AddMany(ids)
			}
		}
	}

	for fi, reason := range reasons {
		set.Files = append(set.Files, EntryFile{File: fi, Path: g.Files[fi].Path, Reason: reason})
	}
	sort.Slice(set.Files, func(i, j int) bool { return set.Files[i].File < set.Files[j].File })
	return set
}

func isConventionalEntry(rel string) bool {
	dir := path.Dir(rel)
	if dir == "bin" || strings.HasPrefix(dir, "bin/") {
		return true
	}
	if dir != "." && dir != "src" {
		return false
	}
	return conventionalNames[stem(path.Base(rel))]
}

func stem(name string) string {
	if strings.HasSuffix(name, ".d.ts") {
		return strings.TrimSuffix(name, ".d.ts")
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

func matchesAny(patterns []glob.Glob, rel string) bool {
	for _, p := range patterns {
		if p.Match(rel) {
			return true
		}
	}
	return false
}

// findManifestFile maps a path from package.json to an analyzed file. Paths
// into a build directory are retried against src/ so that a package whose
// main is dist/index.js still roots src/index.ts.
func findManifestFile(g *SymbolGraph, p string) (int, bool) {
	if p == "" {
		return 0, false
	}
	base := path.Join(path.Dir(p), stem(path.Base(p)))
	tries := [][]string{candidates(p), candidates(base)}
	if first, rest, ok := strings.Cut(base, "/"); ok && outputDirs[first] {
		tries = append(tries, candidates(path.Join("src", rest)))
	}
	for _, list := range tries {
		for _, c := range list {
			if fi, ok := g.FileByPath(c); ok {
				return fi, true
			}
		}
	}
	return 0, false
}
