package extract

import (
	"context"
	"fmt"

	"github.com/panbanda/deadwood/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Extract parses content and returns what the file declares and references.
// A file that cannot be parsed, or whose syntax errors leave nothing
// recoverable, yields a result with Failed set, no declarations and a
// warning diagnostic; it never returns an error.
func Extract(ctx context.Context, psr *parser.Parser, path string, content []byte) *FileResult {
	res := &FileResult{Path: path}

	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		return res.fail(fmt.Sprintf("unsupported file type: %s", path))
	}

	tree, err := psr.Parse(ctx, content, lang)
	if err != nil {
		return res.fail(err.Error())
	}
	defer tree.Close()

	root := tree.RootNode()
	e := newExtractor(res, content)
	for i := range int(root.NamedChildCount()) {
		e.collectStatement(root.NamedChild(i), false)
	}
	for _, s := range e.scopes {
		e.walkScope(s.node, s.from)
	}
	e.finish()

	if !root.HasError() {
		return res
	}
	errLine := firstErrorLine(root)
	if len(res.Decls) == 0 && len(res.Imports) == 0 && len(res.ReExports) == 0 {
		failed := (&FileResult{Path: path}).fail(fmt.Sprintf("syntax error at line %d", errLine))
		failed.Diagnostics[0].Line = errLine
		return failed
	}
	res.Diagnostics = append(res.Diagnostics, Diagnostic{
		Path:     path,
		Line:     errLine,
		Severity: SeverityWarning,
		Message:  "syntax errors; extraction may be incomplete",
	})
	return res
}

func (r *FileResult) fail(msg string) *FileResult {
	r.Failed = true
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Path:     r.Path,
		Severity: SeverityWarning,
		Message:  "parse failed: " + msg,
	})
	return r
}

func firstErrorLine(root *sitter.Node) uint32 {
	var line uint32
	parser.Walk(root, func(n *sitter.Node, typ string) bool {
		if line != 0 {
			return false
		}
		if typ == "ERROR" || n.IsMissing() {
			line = n.StartPoint().Row + 1
			return false
		}
		return n.HasError()
	})
	return line
}

// scope is a subtree whose identifier mentions are attributed to from.
type scope struct {
	node *sitter.Node
	from string
}

type extractor struct {
	res      *FileResult
	src      []byte
	declared map[string]bool
	locals   map[string]Binding
	scopes   []scope
	refs     map[Ref]bool
	members  map[MemberRef]bool
}

func newExtractor(res *FileResult, src []byte) *extractor {
	return &extractor{
		res:      res,
		src:      src,
		declared: make(map[string]bool),
		locals:   make(map[string]Binding),
		refs:     make(map[Ref]bool),
		members:  make(map[MemberRef]bool),
	}
}

func (e *extractor) text(n *sitter.Node) string {
	return parser.Text(n, e.src)
}

func line(n *sitter.Node) uint32 {
	return n.StartPoint().Row + 1
}

// collectStatement records declarations, imports and exports of one
// top-level statement and queues the subtrees that need reference walking.
func (e *extractor) collectStatement(node *sitter.Node, exported bool) {
	switch node.Type() {
	case "import_statement":
		e.collectImport(node)

	case "export_statement":
		e.collectExport(node)

	case "function_declaration", "generator_function_declaration":
		e.declare(node.ChildByFieldName("name"), node, KindFunction, exported, false)

	case "class_declaration", "abstract_class_declaration":
		e.declare(node.ChildByFieldName("name"), node, KindClass, exported, false)

	case "lexical_declaration", "variable_declaration":
		for i := range int(node.NamedChildCount()) {
			child := node.NamedChild(i)
			if child.Type() == "variable_declarator" {
				e.collectDeclarator(child, exported)
			}
		}

	case "expression_statement":
		if !e.collectCommonJSExport(node) {
			e.queue(node, ModuleScope)
		}

	case "interface_declaration", "type_alias_declaration", "ambient_declaration",
		"function_signature", "comment", "empty_statement":
		// Type-level or inert; contributes nothing at runtime.

	default:
		e.queue(node, ModuleScope)
	}
}

func (e *extractor) queue(node *sitter.Node, from string) {
	if node != nil {
		e.scopes = append(e.scopes, scope{node: node, from: from})
	}
}

func (e *extractor) declare(nameNode, node *sitter.Node, kind Kind, exported, isDefault bool) {
	name := e.text(nameNode)
	if name == "" {
		if !isDefault {
			e.queue(node, ModuleScope)
			return
		}
		name = DefaultName
	}
	e.addDecl(name, node, kind, exported, isDefault)
	e.queue(node, name)
}

func (e *extractor) addDecl(name string, node *sitter.Node, kind Kind, exported, isDefault bool) {
	if e.declared[name] {
		return
	}
	e.declared[name] = true
	e.res.Decls = append(e.res.Decls, Decl{
		Name:          name,
		Kind:          kind,
		Line:          line(node),
		EndLine:       node.EndPoint().Row + 1,
		Column:        node.StartPoint().Column,
		Exported:      exported,
		DefaultExport: isDefault,
	})
}

func (e *extractor) collectDeclarator(decl *sitter.Node, exported bool) {
	nameNode := decl.ChildByFieldName("name")
	value := decl.ChildByFieldName("value")

	if spec, ok := e.requireSpecifier(value); ok {
		e.collectRequireBindings(nameNode, spec, line(decl))
		return
	}

	if nameNode == nil || nameNode.Type() != "identifier" {
		// Destructured bindings are not tracked as symbols.
		e.queue(value, ModuleScope)
		return
	}

	if value != nil && isClosure(unwrap(value)) {
		kind := KindVariable
		if unwrap(value).Type() == "class" {
			kind = KindClass
		}
		e.addDecl(e.text(nameNode), decl, kind, exported, false)
		e.queue(value, e.text(nameNode))
		return
	}

	if exported {
		e.addDecl(e.text(nameNode), decl, KindVariable, true, false)
		e.queue(value, e.text(nameNode))
		return
	}
	e.queue(value, ModuleScope)
}

func (e *extractor) collectExport(node *sitter.Node) {
	if source := node.ChildByFieldName("source"); source != nil {
		e.collectReExport(node, source)
		return
	}

	var isDefault, isAssign bool
	for i := range int(node.ChildCount()) {
		switch node.Child(i).Type() {
		case "default":
			isDefault = true
		case "=":
			isAssign = true
		case "export_clause":
			e.collectExportClause(node.Child(i))
		}
	}

	if decl := node.ChildByFieldName("declaration"); decl != nil {
		if !isDefault {
			e.collectStatement(decl, true)
			return
		}
		switch decl.Type() {
		case "function_declaration", "generator_function_declaration":
			e.declare(decl.ChildByFieldName("name"), decl, KindFunction, true, true)
		case "class_declaration", "abstract_class_declaration":
			e.declare(decl.ChildByFieldName("name"), decl, KindClass, true, true)
		default:
			e.collectStatement(decl, true)
		}
		return
	}

	value := node.ChildByFieldName("value")
	if value == nil && isAssign {
		// TypeScript "export = expr"
		value = lastNamed(node)
		isDefault = true
	}
	if value == nil || !isDefault {
		return
	}

	v := unwrap(value)
	if v.Type() == "identifier" {
		e.res.LocalExports = append(e.res.LocalExports, LocalExport{Local: e.text(v), Exported: DefaultName})
		return
	}

	kind := KindDefaultExport
	switch v.Type() {
	case "function", "function_expression", "arrow_function", "generator_function":
		kind = KindFunction
	case "class":
		kind = KindClass
	}
	e.declare(v.ChildByFieldName("name"), node, kind, true, true)
}

func (e *extractor) collectExportClause(clause *sitter.Node) {
	for i := range int(clause.NamedChildCount()) {
		spec := clause.NamedChild(i)
		if spec.Type() != "export_specifier" {
			continue
		}
		local := e.text(spec.ChildByFieldName("name"))
		exported := local
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			exported = e.text(alias)
		}
		if local != "" {
			e.res.LocalExports = append(e.res.LocalExports, LocalExport{Local: local, Exported: exported})
		}
	}
}

func (e *extractor) collectReExport(node, source *sitter.Node) {
	spec, ok := parser.StringValue(source, e.src)
	if !ok {
		return
	}
	re := ReExport{Source: spec, Line: line(node)}

	var sawStar, sawAs bool
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "*":
			sawStar = true
		case "as":
			sawAs = true
		case "namespace_export":
			if n := lastNamed(child); n != nil {
				re.Bindings = append(re.Bindings, Binding{Imported: Namespace, Local: unquote(e.text(n))})
			}
		case "identifier":
			if sawStar && sawAs {
				re.Bindings = append(re.Bindings, Binding{Imported: Namespace, Local: e.text(child)})
			}
		case "export_clause":
			for j := range int(child.NamedChildCount()) {
				s := child.NamedChild(j)
				if s.Type() != "export_specifier" {
					continue
				}
				name := unquote(e.text(s.ChildByFieldName("name")))
				alias := name
				if a := s.ChildByFieldName("alias"); a != nil {
					alias = unquote(e.text(a))
				}
				re.Bindings = append(re.Bindings, Binding{Imported: name, Local: alias})
			}
		}
	}
	re.Star = sawStar && len(re.Bindings) == 0
	e.res.ReExports = append(e.res.ReExports, re)
}

func (e *extractor) collectImport(node *sitter.Node) {
	imp := Import{Line: line(node), Kind: ImportStatic, From: ModuleScope}
	if source := node.ChildByFieldName("source"); source != nil {
		imp.Source, _ = parser.StringValue(source, e.src)
	}

	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "import_clause":
			imp.Bindings = append(imp.Bindings, e.importClause(child)...)
		case "import_require_clause":
			// import x = require("y")
			for j := range int(child.NamedChildCount()) {
				c := child.NamedChild(j)
				switch c.Type() {
				case "identifier":
					imp.Bindings = append(imp.Bindings, Binding{Imported: Namespace, Local: e.text(c)})
				case "string":
					imp.Source, _ = parser.StringValue(c, e.src)
				}
			}
			imp.Kind = ImportRequire
		case "string":
			if imp.Source == "" {
				imp.Source, _ = parser.StringValue(child, e.src)
			}
		}
	}

	if imp.Source == "" {
		return
	}
	e.addImport(imp)
}

func (e *extractor) importClause(clause *sitter.Node) []Binding {
	var out []Binding
	for i := range int(clause.NamedChildCount()) {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "identifier":
			out = append(out, Binding{Imported: DefaultName, Local: e.text(child)})
		case "namespace_import":
			if n := lastNamed(child); n != nil {
				out = append(out, Binding{Imported: Namespace, Local: e.text(n)})
			}
		case "named_imports":
			for j := range int(child.NamedChildCount()) {
				s := child.NamedChild(j)
				if s.Type() != "import_specifier" {
					continue
				}
				name := unquote(e.text(s.ChildByFieldName("name")))
				local := name
				if a := s.ChildByFieldName("alias"); a != nil {
					local = e.text(a)
				}
				if name != "" {
					out = append(out, Binding{Imported: name, Local: local})
				}
			}
		}
	}
	return out
}

func (e *extractor) addImport(imp Import) {
	for _, b := range imp.Bindings {
		e.locals[b.Local] = b
	}
	e.res.Imports = append(e.res.Imports, imp)
}

// requireSpecifier reports whether value is require("literal").
func (e *extractor) requireSpecifier(value *sitter.Node) (string, bool) {
	value = unwrap(value)
	if value == nil || value.Type() != "call_expression" {
		return "", false
	}
	fn := value.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || e.text(fn) != "require" {
		return "", false
	}
	return e.firstStringArg(value)
}

func (e *extractor) firstStringArg(call *sitter.Node) (string, bool) {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return "", false
	}
	return parser.StringValue(args.NamedChild(0), e.src)
}

func (e *extractor) collectRequireBindings(pattern *sitter.Node, spec string, ln uint32) {
	imp := Import{Source: spec, Line: ln, Kind: ImportRequire, From: ModuleScope}
	if pattern != nil {
		switch pattern.Type() {
		case "identifier":
			imp.Bindings = append(imp.Bindings, Binding{Imported: Namespace, Local: e.text(pattern)})
		case "object_pattern":
			for i := range int(pattern.NamedChildCount()) {
				p := pattern.NamedChild(i)
				switch p.Type() {
				case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
					name := e.text(p)
					imp.Bindings = append(imp.Bindings, Binding{Imported: name, Local: name})
				case "pair_pattern":
					key := e.text(p.ChildByFieldName("key"))
					val := p.ChildByFieldName("value")
					if val != nil && val.Type() == "identifier" && key != "" {
						imp.Bindings = append(imp.Bindings, Binding{Imported: key, Local: e.text(val)})
					}
				}
			}
		}
	}
	e.addImport(imp)
}

// collectCommonJSExport handles module.exports = ... and exports.name = ...
func (e *extractor) collectCommonJSExport(stmt *sitter.Node) bool {
	assign := stmt.NamedChild(0)
	if assign == nil || assign.Type() != "assignment_expression" {
		return false
	}
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil {
		return false
	}

	if e.isModuleExports(left) {
		r := unwrap(right)
		switch r.Type() {
		case "identifier":
			e.res.LocalExports = append(e.res.LocalExports, LocalExport{Local: e.text(r), Exported: DefaultName})
		case "object":
			for i := range int(r.NamedChildCount()) {
				p := r.NamedChild(i)
				switch p.Type() {
				case "shorthand_property_identifier":
					name := e.text(p)
					e.res.LocalExports = append(e.res.LocalExports, LocalExport{Local: name, Exported: name})
				case "pair":
					key := unquote(e.text(p.ChildByFieldName("key")))
					val := unwrap(p.ChildByFieldName("value"))
					if val != nil && val.Type() == "identifier" {
						e.res.LocalExports = append(e.res.LocalExports, LocalExport{Local: e.text(val), Exported: key})
					} else {
						e.queue(val, ModuleScope)
					}
				default:
					e.queue(p, ModuleScope)
				}
			}
		default:
			e.addDecl(DefaultName, stmt, KindDefaultExport, true, true)
			e.queue(right, DefaultName)
		}
		return true
	}

	name, ok := e.exportsProperty(left)
	if !ok {
		return false
	}
	r := unwrap(right)
	if r.Type() == "identifier" {
		e.res.LocalExports = append(e.res.LocalExports, LocalExport{Local: e.text(r), Exported: name})
		return true
	}
	kind := KindVariable
	if r.Type() == "class" {
		kind = KindClass
	}
	e.addDecl(name, stmt, kind, true, false)
	e.queue(right, name)
	return true
}

func (e *extractor) isModuleExports(n *sitter.Node) bool {
	if n == nil || n.Type() != "member_expression" {
		return false
	}
	obj := n.ChildByFieldName("object")
	prop := n.ChildByFieldName("property")
	return obj != nil && obj.Type() == "identifier" && e.text(obj) == "module" && e.text(prop) == "exports"
}

func (e *extractor) exportsProperty(n *sitter.Node) (string, bool) {
	if n == nil || n.Type() != "member_expression" {
		return "", false
	}
	obj := n.ChildByFieldName("object")
	if obj == nil {
		return "", false
	}
	if (obj.Type() == "identifier" && e.text(obj) == "exports") || e.isModuleExports(obj) {
		return e.text(n.ChildByFieldName("property")), true
	}
	return "", false
}

// walkScope attributes every mention of a top-level name inside node to from.
func (e *extractor) walkScope(node *sitter.Node, from string) {
	parser.Walk(node, func(n *sitter.Node, nodeType string) bool {
		switch nodeType {
		case "identifier", "shorthand_property_identifier", "type_identifier":
			e.addRef(from, e.text(n))
			return false

		case "property_identifier", "statement_identifier", "import_statement", "export_clause":
			return false

		case "member_expression":
			obj := unwrap(n.ChildByFieldName("object"))
			if e.isNamespaceIdent(obj) {
				e.addMember(MemberRef{
					From:     from,
					Object:   e.text(obj),
					Property: e.text(n.ChildByFieldName("property")),
					Line:     line(n),
				})
				return false
			}
			return true

		case "subscript_expression":
			return e.visitSubscript(n, from)

		case "call_expression":
			return e.visitCall(n, from)
		}
		return true
	})
}

func (e *extractor) visitSubscript(n *sitter.Node, from string) bool {
	obj := unwrap(n.ChildByFieldName("object"))
	index := n.ChildByFieldName("index")
	key, literal := parser.StringValue(index, e.src)

	if e.isNamespaceIdent(obj) {
		e.addMember(MemberRef{From: from, Object: e.text(obj), Property: key, Dynamic: true, Line: line(n)})
		if !literal {
			e.walkScope(index, from)
		}
		return false
	}
	if literal && key != "" {
		e.res.Dynamic = append(e.res.Dynamic, DynamicAccess{From: from, Key: key, Line: line(n)})
	}
	return true
}

func (e *extractor) visitCall(n *sitter.Node, from string) bool {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return true
	}

	switch {
	case fn.Type() == "import":
		args := n.ChildByFieldName("arguments")
		if args == nil || args.NamedChildCount() == 0 {
			return false
		}
		arg := args.NamedChild(0)
		if spec, ok := parser.StringValue(arg, e.src); ok {
			e.res.Imports = append(e.res.Imports, Import{Source: spec, Line: line(n), Kind: ImportDynamic, From: from})
			return false
		}
		if arg.Type() == "template_string" {
			e.res.DynamicImports = append(e.res.DynamicImports, DynamicImport{
				From:   from,
				Prefix: parser.TemplatePrefix(arg, e.src),
				Line:   line(n),
			})
		}
		e.walkScope(args, from)
		return false

	case fn.Type() == "identifier" && e.text(fn) == "require":
		if spec, ok := e.firstStringArg(n); ok {
			e.res.Imports = append(e.res.Imports, Import{Source: spec, Line: line(n), Kind: ImportRequire, From: from})
			return false
		}
	}
	return true
}

func (e *extractor) isNamespaceIdent(n *sitter.Node) bool {
	if n == nil || n.Type() != "identifier" {
		return false
	}
	b, ok := e.locals[e.text(n)]
	return ok && b.Imported == Namespace
}

func (e *extractor) addRef(from, to string) {
	if from == to {
		return
	}
	if !e.declared[to] {
		if _, ok := e.locals[to]; !ok {
			return
		}
	}
	r := Ref{From: from, To: to}
	if e.refs[r] {
		return
	}
	e.refs[r] = true
	e.res.Refs = append(e.res.Refs, r)
}

func (e *extractor) addMember(m MemberRef) {
	key := m
	key.Line = 0
	if e.members[key] {
		return
	}
	e.members[key] = true
	e.res.MemberRefs = append(e.res.MemberRefs, m)
}

// finish applies export lists to the declarations they name.
// A declaration exported by its own statement keeps DefaultExport unset so
// that its own name stays an export name.
func (e *extractor) finish() {
	direct := make([]bool, len(e.res.Decls))
	for i, d := range e.res.Decls {
		direct[i] = d.Exported
	}
	for _, le := range e.res.LocalExports {
		for i := range e.res.Decls {
			d := &e.res.Decls[i]
			if d.Name != le.Local {
				continue
			}
			d.Exported = true
			if le.Exported == DefaultName && !direct[i] {
				d.DefaultExport = true
			}
		}
	}
}

func isClosure(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "arrow_function", "function", "function_expression", "generator_function", "class":
		return true
	}
	return false
}

// unwrap strips parentheses and TypeScript assertion wrappers.
func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			if n.NamedChildCount() == 0 {
				return n
			}
			n = n.NamedChild(0)
		case "type_assertion":
			n = lastNamed(n)
		default:
			return n
		}
	}
	return nil
}

func lastNamed(n *sitter.Node) *sitter.Node {
	count := int(n.NamedChildCount())
	if count == 0 {
		return nil
	}
	return n.NamedChild(count - 1)
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
