// Package extract turns a single ECMAScript source file into the declarations,
// references and module edges it contributes to the project symbol graph.
//
// Extraction is a pure function of (path, content). Results carry no tree-sitter
// state and are safe to cache and share between goroutines.
package extract

// Kind classifies a declared symbol.
type Kind string

const (
	KindFunction      Kind = "function"
	KindClass         Kind = "class"
	KindVariable      Kind = "variable"
	KindDefaultExport Kind = "default-export"
)

// ModuleScope is the From value of references made by top-level statements
// rather than by a declaration body.
const ModuleScope = ""

// Namespace is the Imported name of a binding that captures a whole module
// (import * as ns, const ns = require(...), export * as ns).
const Namespace = "*"

// DefaultName is the export name of a module's default export.
const DefaultName = "default"

// Decl is a top-level declaration.
type Decl struct {
	Name          string `json:"name"`
	Kind          Kind   `json:"kind"`
	Line          uint32 `json:"line"`
	EndLine       uint32 `json:"end_line"`
	Column        uint32 `json:"column"`
	Exported      bool   `json:"exported"`
	DefaultExport bool   `json:"default_export"`
}

// Binding maps a name exported by another module to a local name.
type Binding struct {
	Imported string `json:"imported"`
	Local    string `json:"local"`
}

// ImportKind distinguishes the syntactic forms that load a module.
type ImportKind uint8

const (
	ImportStatic  ImportKind = iota // import ... from "x"
	ImportRequire                   // require("x")
	ImportDynamic                   // import("x") with a literal specifier
)

// Import is a module load. Static imports are always module scoped; require
// and import() calls record the declaration they appear in.
type Import struct {
	Source   string     `json:"source"`
	Line     uint32     `json:"line"`
	Kind     ImportKind `json:"kind"`
	From     string     `json:"from"`
	Bindings []Binding  `json:"bindings,omitempty"`
}

// SideEffect reports whether the import binds no names.
func (i Import) SideEffect() bool {
	return len(i.Bindings) == 0
}

// ReExport is an export ... from statement. For bindings, Local is the name
// under which the re-exporting module exposes the imported name.
type ReExport struct {
	Source   string    `json:"source"`
	Line     uint32    `json:"line"`
	Star     bool      `json:"star"`
	Bindings []Binding `json:"bindings,omitempty"`
}

// LocalExport exposes a local name (a declaration or an import binding)
// under an export name.
type LocalExport struct {
	Local    string `json:"local"`
	Exported string `json:"exported"`
}

// Ref records that the scope From mentions the top-level name To.
type Ref struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MemberRef is a property access on a namespace binding. Dynamic accesses
// use bracket notation; an empty Property means the key is not a literal.
type MemberRef struct {
	From     string `json:"from"`
	Object   string `json:"object"`
	Property string `json:"property"`
	Dynamic  bool   `json:"dynamic"`
	Line     uint32 `json:"line"`
}

// DynamicAccess is a bracket-notation access with a literal key on an
// arbitrary object, e.g. registry["handleUser"].
type DynamicAccess struct {
	From string `json:"from"`
	Key  string `json:"key"`
	Line uint32 `json:"line"`
}

// DynamicImport is an import() whose specifier is a template literal with
// substitutions. Prefix is the literal text before the first substitution.
type DynamicImport struct {
	From   string `json:"from"`
	Prefix string `json:"prefix"`
	Line   uint32 `json:"line"`
}

// Severity ranks diagnostics.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is a non-fatal problem found while analyzing a file.
type Diagnostic struct {
	Path     string   `json:"path"`
	Line     uint32   `json:"line,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// FileResult is everything one file contributes to the symbol graph.
type FileResult struct {
	Path           string          `json:"path"`
	Failed         bool            `json:"failed"`
	Decls          []Decl          `json:"decls,omitempty"`
	Refs           []Ref           `json:"refs,omitempty"`
	MemberRefs     []MemberRef     `json:"member_refs,omitempty"`
	Imports        []Import        `json:"imports,omitempty"`
	ReExports      []ReExport      `json:"re_exports,omitempty"`
	LocalExports   []LocalExport   `json:"local_exports,omitempty"`
	Dynamic        []DynamicAccess `json:"dynamic,omitempty"`
	DynamicImports []DynamicImport `json:"dynamic_imports,omitempty"`
	Diagnostics    []Diagnostic    `json:"diagnostics,omitempty"`
}

// Decl returns the declaration with the given name.
func (r *FileResult) Decl(name string) (Decl, bool) {
	for _, d := range r.Decls {
		if d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}
