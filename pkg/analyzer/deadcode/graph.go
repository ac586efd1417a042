package deadcode

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/panbanda/deadwood/pkg/extract"
)

// BuildOptions configures graph construction.
type BuildOptions struct {
	// Aliases maps import prefixes such as "@app" to project directories.
	Aliases          map[string]string
	ResolveCacheSize int
}

// binding is a local name bound to another module's export.
type binding struct {
	file     int // -1 when the module is external or unresolved
	imported string
	line     uint32
}

type builder struct {
	g       *SymbolGraph
	results []*extract.FileResult
	res     *resolver

	imports   [][]resolution
	reexports [][]resolution
	bindings  []map[string]binding
	explicit  []map[string]bool

	seen   map[Edge]struct{}
	diags  []extract.Diagnostic
	warned map[string]bool
}

// BuildGraph merges per-file extraction results into one symbol graph.
// Results may arrive in any order; ids depend only on paths and content.
func BuildGraph(results []*extract.FileResult, opts BuildOptions) (*SymbolGraph, []extract.Diagnostic) {
	sorted := make([]*extract.FileResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	b := &builder{
		g:       newSymbolGraph(),
		results: sorted,
		seen:    make(map[Edge]struct{}),
		warned:  make(map[string]bool),
	}
	b.addNodes()
	b.res = newResolver(b.g.byPath, opts.Aliases, opts.ResolveCacheSize)
	b.resolveModules()
	b.buildExportTables()
	for fi := range b.results {
		b.addFileEdges(fi)
	}
	b.g.sortEdges()
	return b.g, b.diags
}

func (b *builder) addNodes() {
	g := b.g
	for fi, r := range b.results {
		f := File{
			Path:   r.Path,
			Failed: r.Failed,
			Test:   IsTestFile(r.Path),
			byName: make(map[string]uint32, len(r.Decls)),
		}
		f.Node = g.addNode(Node{Kind: NodeFile, File: fi, Name: r.Path})
		f.Module = g.addNode(Node{Kind: NodeModule, File: fi, Name: r.Path})

		decls := append([]extract.Decl(nil), r.Decls...)
		sort.SliceStable(decls, func(i, j int) bool {
			if decls[i].Line != decls[j].Line {
				return decls[i].Line < decls[j].Line
			}
			if decls[i].Column != decls[j].Column {
				return decls[i].Column < decls[j].Column
			}
			return decls[i].Name < decls[j].Name
		})
		for _, d := range decls {
			if _, dup := f.byName[d.Name]; dup {
				continue
			}
			id := g.addNode(Node{
				Kind:     NodeSymbol,
				File:     fi,
				Name:     d.Name,
				Symbol:   d.Kind,
				Line:     d.Line,
				EndLine:  d.EndLine,
				Column:   d.Column,
				Exported: d.Exported,
			})
			f.byName[d.Name] = id
			f.Symbols = append(f.Symbols, id)
		}

		g.byPath[r.Path] = fi
		g.Files = append(g.Files, f)
	}
}

// resolveModules resolves every specifier once and records local bindings.
func (b *builder) resolveModules() {
	n := len(b.results)
	b.imports = make([][]resolution, n)
	b.reexports = make([][]resolution, n)
	b.bindings = make([]map[string]binding, n)

	for fi, r := range b.results {
		f := &b.g.Files[fi]
		b.bindings[fi] = make(map[string]binding)
		seenTarget := make(map[int]bool)
		track := func(res resolution) {
			if res.status == resolvedFile && res.file != fi && !seenTarget[res.file] {
				seenTarget[res.file] = true
				f.Imports = append(f.Imports, res.file)
			}
		}

		for _, imp := range r.Imports {
			res := b.resolveSpec(r.Path, imp.Source, imp.Line)
			b.imports[fi] = append(b.imports[fi], res)
			track(res)

			target := -1
			if res.status == resolvedFile {
				target = res.file
			}
			for _, bnd := range imp.Bindings {
				b.bindings[fi][bnd.Local] = binding{file: target, imported: bnd.Imported, line: imp.Line}
			}
		}
		for _, re := range r.ReExports {
			res := b.resolveSpec(r.Path, re.Source, re.Line)
			b.reexports[fi] = append(b.reexports[fi], res)
			track(res)
		}
	}
}

func (b *builder) resolveSpec(from, spec string, line uint32) resolution {
	res := b.res.resolve(from, spec)
	if res.status == unresolved {
		b.diag(from, line, fmt.Sprintf("cannot resolve import %q", spec))
	}
	return res
}

func (b *builder) diag(path string, line uint32, msg string) {
	key := fmt.Sprintf("%s:%d:%s", path, line, msg)
	if b.warned[key] {
		return
	}
	b.warned[key] = true
	b.diags = append(b.diags, extract.Diagnostic{Path: path, Line: line, Severity: extract.SeverityInfo, Message: msg})
}

// buildExportTables computes every file's export table as a fixed point so
// that re-export cycles converge. Explicit names shadow names from
// export * and are never overwritten by them.
func (b *builder) buildExportTables() {
	n := len(b.results)
	b.g.exports = make([]map[string][]uint32, n)
	b.explicit = make([]map[string]bool, n)

	for fi, r := range b.results {
		f := &b.g.Files[fi]
		t := make(map[string][]uint32)
		exp := make(map[string]bool)
		for _, d := range r.Decls {
			if !d.Exported {
				continue
			}
			id, ok := f.byName[d.Name]
			if !ok {
				continue
			}
			key := d.Name
			if d.DefaultExport {
				key = extract.DefaultName
			}
			addIDs(t, key, []uint32{id})
			exp[key] = true
		}
		for _, le := range r.LocalExports {
			exp[le.Exported] = true
		}
		for _, re := range r.ReExports {
			for _, bnd := range re.Bindings {
				exp[bnd.Local] = true
			}
		}
		b.g.exports[fi] = t
		b.explicit[fi] = exp
	}

	for changed := true; changed; {
		changed = false
		for fi := range b.results {
			if b.mergeExports(fi) {
				changed = true
			}
		}
	}
}

func (b *builder) mergeExports(fi int) bool {
	r := b.results[fi]
	t := b.g.exports[fi]
	changed := false

	for _, le := range r.LocalExports {
		if addIDs(t, le.Exported, b.localIDs(fi, le.Local)) {
			changed = true
		}
	}

	for i, re := range r.ReExports {
		res := b.reexports[fi][i]
		if res.status != resolvedFile {
			continue
		}
		target := b.g.exports[res.file]

		if re.Star && len(re.Bindings) == 0 {
			for _, key := range sortedKeys(target) {
				if key == extract.DefaultName || b.explicit[fi][key] {
					continue
				}
				if addIDs(t, key, target[key]) {
					changed = true
				}
			}
			continue
		}
		for _, bnd := range re.Bindings {
			var ids []uint32
			if bnd.Imported == extract.Namespace {
				ids = b.namespaceIDs(res.file)
			} else {
				ids = target[bnd.Imported]
			}
			if addIDs(t, bnd.Local, ids) {
				changed = true
			}
		}
	}
	return changed
}

// localIDs returns what a local name in file fi stands for.
func (b *builder) localIDs(fi int, local string) []uint32 {
	if id, ok := b.g.Files[fi].byName[local]; ok {
		return []uint32{id}
	}
	bnd, ok := b.bindings[fi][local]
	if !ok || bnd.file < 0 {
		return nil
	}
	if bnd.imported == extract.Namespace {
		return b.namespaceIDs(bnd.file)
	}
	return b.g.exports[bnd.file][bnd.imported]
}

// namespaceIDs is the module node of fi plus everything it exports.
func (b *builder) namespaceIDs(fi int) []uint32 {
	ids := []uint32{b.g.Files[fi].Module}
	for _, key := range sortedKeys(b.g.exports[fi]) {
		ids = append(ids, b.g.exports[fi][key]...)
	}
	return uniqueSorted(ids)
}

func (b *builder) addFileEdges(fi int) {
	g := b.g
	f := &g.Files[fi]
	r := b.results[fi]

	b.edge(f.Node, f.Module, EdgeDeclares)
	for _, id := range f.Symbols {
		b.edge(f.Node, id, EdgeDeclares)
	}

	for i, imp := range r.Imports {
		res := b.imports[fi][i]
		if res.status != resolvedFile {
			continue
		}
		target := g.Files[res.file].Module
		escapes := len(imp.Bindings) == 0 &&
			(imp.Kind == extract.ImportDynamic || (imp.Kind == extract.ImportRequire && imp.From != extract.ModuleScope))
		for _, src := range b.scope(fi, imp.From) {
			b.edge(src, target, EdgeImports)
			if escapes {
				b.edges(src, b.namespaceIDs(res.file), EdgeImports)
			}
		}
	}
	for i := range r.ReExports {
		if res := b.reexports[fi][i]; res.status == resolvedFile {
			b.edge(f.Module, g.Files[res.file].Module, EdgeImports)
		}
	}

	// Whatever a test file imports or re-exports is in use, whether or not
	// a traversed scope names it.
	if f.Test {
		for _, imp := range r.Imports {
			for _, ib := range imp.Bindings {
				if bnd, ok := b.bindings[fi][ib.Local]; ok {
					b.edges(f.Module, b.bindingTargets(fi, bnd, r.Path), EdgeImports)
				}
			}
		}
		b.edges(f.Module, b.namespaceIDs(fi), EdgeImports)
	}

	for _, ref := range r.Refs {
		srcs := b.scope(fi, ref.From)
		if id, ok := f.byName[ref.To]; ok {
			for _, src := range srcs {
				b.edge(src, id, EdgeReferences)
			}
			continue
		}
		if bnd, ok := b.bindings[fi][ref.To]; ok {
			targets := b.bindingTargets(fi, bnd, r.Path)
			for _, src := range srcs {
				b.edges(src, targets, EdgeImports)
			}
		}
	}

	for _, m := range r.MemberRefs {
		bnd, ok := b.bindings[fi][m.Object]
		if !ok || bnd.file < 0 {
			continue
		}
		srcs := b.scope(fi, m.From)
		module := g.Files[bnd.file].Module
		if bnd.imported != extract.Namespace {
			targets := b.bindingTargets(fi, bnd, r.Path)
			for _, src := range srcs {
				b.edges(src, targets, EdgeImports)
			}
			continue
		}

		table := g.exports[bnd.file]
		for _, src := range srcs {
			b.edge(src, module, EdgeImports)
			switch {
			case !m.Dynamic:
				b.edges(src, table[m.Property], EdgeImports)
			case m.Property != "":
				b.edges(src, table[m.Property], EdgeDynamicCandidate)
			default:
				b.edges(src, b.namespaceIDs(bnd.file), EdgeDynamicCandidate)
			}
		}
	}

	for _, d := range r.Dynamic {
		var targets []uint32
		if id, ok := f.byName[d.Key]; ok {
			targets = append(targets, id)
		}
		for _, other := range f.Imports {
			if id, ok := g.Files[other].byName[d.Key]; ok {
				targets = append(targets, id)
			}
		}
		for _, src := range b.scope(fi, d.From) {
			b.edges(src, targets, EdgeDynamicCandidate)
		}
	}

	for _, di := range r.DynamicImports {
		targets := b.prefixTargets(r.Path, di.Prefix)
		for _, src := range b.scope(fi, di.From) {
			b.edges(src, targets, EdgeDynamicCandidate)
		}
	}
}

// scope returns the nodes that act for the named scope of file fi.
func (b *builder) scope(fi int, from string) []uint32 {
	f := &b.g.Files[fi]
	if from != extract.ModuleScope {
		if id, ok := f.byName[from]; ok {
			return []uint32{id}
		}
	}
	return []uint32{f.Module}
}

// bindingTargets returns the nodes a use of bnd reaches.
func (b *builder) bindingTargets(fi int, bnd binding, fromPath string) []uint32 {
	if bnd.file < 0 {
		return nil
	}
	target := b.g.Files[bnd.file]
	if bnd.imported == extract.Namespace {
		return b.namespaceIDs(bnd.file)
	}
	ids, ok := b.g.exports[bnd.file][bnd.imported]
	if ok {
		return append([]uint32{target.Module}, ids...)
	}
	if bnd.imported == extract.DefaultName {
		// default import of a module without a default export sees the
		// whole module object (CommonJS interop)
		return b.namespaceIDs(bnd.file)
	}
	if !target.Failed {
		b.diag(fromPath, bnd.line, fmt.Sprintf("%q is not exported by %s", bnd.imported, target.Path))
	}
	return []uint32{target.Module}
}

// prefixTargets returns the exported symbols of every file a template
// import with the given static prefix may load.
func (b *builder) prefixTargets(fromPath, prefix string) []uint32 {
	joined := path.Join(path.Dir(fromPath), prefix)
	if strings.HasSuffix(prefix, "/") {
		joined += "/"
	}
	if strings.HasPrefix(joined, "../") {
		return nil
	}
	if joined == "./" {
		joined = ""
	}

	var ids []uint32
	for fi, f := range b.g.Files {
		if f.Path == fromPath || !strings.HasPrefix(f.Path, joined) {
			continue
		}
		for _, key := range sortedKeys(b.g.exports[fi]) {
			ids = append(ids, b.g.exports[fi][key]...)
		}
	}
	return uniqueSorted(ids)
}

func (b *builder) edge(from, to uint32, kind EdgeKind) {
	if from == to {
		return
	}
	e := Edge{From: from, To: to, Kind: kind}
	if _, ok := b.seen[e]; ok {
		return
	}
	b.seen[e] = struct{}{}
	b.g.addEdge(e)
}

func (b *builder) edges(from uint32, to []uint32, kind EdgeKind) {
	for _, id := range to {
		b.edge(from, id, kind)
	}
}

// addIDs unions ids into t[key] and reports whether anything was added.
func addIDs(t map[string][]uint32, key string, ids []uint32) bool {
	if len(ids) == 0 {
		return false
	}
	cur := t[key]
	merged := uniqueSorted(append(append([]uint32(nil), cur...), ids...))
	if len(merged) == len(cur) {
		return false
	}
	t[key] = merged
	return true
}

func uniqueSorted(ids []uint32) []uint32 {
	if len(ids) == 0 {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

func sortedKeys(m map[string][]uint32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsTestFile reports whether a slash-separated relative path follows a
// JavaScript test file convention.
func IsTestFile(rel string) bool {
	base := path.Base(rel)
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	p := "/" + rel
	for _, dir := range []string{"/__tests__/", "/test/", "/tests/", "/e2e/"} {
		if strings.Contains(p, dir) {
			return true
		}
	}
	return false
}
