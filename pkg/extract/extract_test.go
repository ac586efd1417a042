package extract

import (
	"context"
	"testing"

	"github.com/panbanda/deadwood/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractSource(t *testing.T, path, src string) *FileResult {
	t.Helper()
	psr := parser.New()
	defer psr.Close()
	return Extract(context.Background(), psr, path, []byte(src))
}

func declNames(r *FileResult) []string {
	names := make([]string, 0, len(r.Decls))
	for _, d := range r.Decls {
		names = append(names, d.Name)
	}
	return names
}

func TestExtract_Declarations(t *testing.T) {
	src := `
function helper() { return 1; }
export function activeFn() { return helper(); }
export class Service {}
class Internal {}
export const handler = () => helper();
const local = function () {};
export const config = { retries: 3 };
const plain = 42;
`
	r := extractSource(t, "src/used.ts", src)
	require.False(t, r.Failed)

	assert.Equal(t, []string{"helper", "activeFn", "Service", "Internal", "handler", "local", "config"}, declNames(r))

	tests := []struct {
		name     string
		kind     Kind
		exported bool
		line     uint32
	}{
		{"helper", KindFunction, false, 2},
		{"activeFn", KindFunction, true, 3},
		{"Service", KindClass, true, 4},
		{"Internal", KindClass, false, 5},
		{"handler", KindVariable, true, 6},
		{"local", KindVariable, false, 7},
		{"config", KindVariable, true, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := r.Decl(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.exported, d.Exported)
			assert.Equal(t, tt.line, d.Line)
		})
	}

	_, ok := r.Decl("plain")
	assert.False(t, ok, "unexported plain values are not symbols")
}

func TestExtract_LocalReferences(t *testing.T) {
	src := `
function a() { b(); }
function b() { return new C(); }
class C {}
a();
`
	r := extractSource(t, "x.ts", src)

	assert.Contains(t, r.Refs, Ref{From: "a", To: "b"})
	assert.Contains(t, r.Refs, Ref{From: "b", To: "C"})
	assert.Contains(t, r.Refs, Ref{From: ModuleScope, To: "a"})
	assert.NotContains(t, r.Refs, Ref{From: "a", To: "a"})
}

func TestExtract_Imports(t *testing.T) {
	src := `
import def, { one, two as alias } from "./mod";
import * as ns from "../lib/ns";
import "./polyfill";
import React from "react";

export function use() { return def() + one() + alias() + ns.thing(); }
`
	r := extractSource(t, "src/app.ts", src)
	require.Len(t, r.Imports, 4)

	assert.Equal(t, "./mod", r.Imports[0].Source)
	assert.Equal(t, []Binding{
		{Imported: DefaultName, Local: "def"},
		{Imported: "one", Local: "one"},
		{Imported: "two", Local: "alias"},
	}, r.Imports[0].Bindings)

	assert.Equal(t, "../lib/ns", r.Imports[1].Source)
	assert.Equal(t, []Binding{{Imported: Namespace, Local: "ns"}}, r.Imports[1].Bindings)

	assert.True(t, r.Imports[2].SideEffect())
	assert.Equal(t, "react", r.Imports[3].Source)

	assert.Contains(t, r.Refs, Ref{From: "use", To: "def"})
	assert.Contains(t, r.Refs, Ref{From: "use", To: "alias"})
	assert.NotContains(t, r.Refs, Ref{From: "use", To: "ns"}, "member access on a namespace is not an escape")

	require.Len(t, r.MemberRefs, 1)
	assert.Equal(t, "ns", r.MemberRefs[0].Object)
	assert.Equal(t, "thing", r.MemberRefs[0].Property)
	assert.False(t, r.MemberRefs[0].Dynamic)
}

func TestExtract_ReExports(t *testing.T) {
	src := `
export * from "./a";
export { b, c as d } from "./bc";
export * as utils from "./utils";
`
	r := extractSource(t, "index.ts", src)
	require.Len(t, r.ReExports, 3)

	assert.True(t, r.ReExports[0].Star)
	assert.Equal(t, "./a", r.ReExports[0].Source)

	assert.False(t, r.ReExports[1].Star)
	assert.Equal(t, []Binding{{Imported: "b", Local: "b"}, {Imported: "c", Local: "d"}}, r.ReExports[1].Bindings)

	assert.False(t, r.ReExports[2].Star)
	assert.Equal(t, []Binding{{Imported: Namespace, Local: "utils"}}, r.ReExports[2].Bindings)
	assert.Empty(t, r.Decls)
}

func TestExtract_ExportLists(t *testing.T) {
	src := `
function a() {}
function b() {}
export { a, b as bee };
export default a;
`
	r := extractSource(t, "x.js", src)

	a, _ := r.Decl("a")
	b, _ := r.Decl("b")
	assert.True(t, a.Exported)
	assert.True(t, a.DefaultExport)
	assert.True(t, b.Exported)
	assert.False(t, b.DefaultExport)
	assert.Contains(t, r.LocalExports, LocalExport{Local: "b", Exported: "bee"})
	assert.NotContains(t, r.Refs, Ref{From: ModuleScope, To: "a"}, "export lists are not uses")
}

func TestExtract_DefaultExports(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantName string
		wantKind Kind
	}{
		{"named function", "export default function main() {}\n", "main", KindFunction},
		{"anonymous arrow", "export default () => 1;\n", DefaultName, KindFunction},
		{"named class", "export default class App {}\n", "App", KindClass},
		{"object", "export default { a: 1 };\n", DefaultName, KindDefaultExport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := extractSource(t, "x.ts", tt.src)
			require.Len(t, r.Decls, 1)
			d := r.Decls[0]
			assert.Equal(t, tt.wantName, d.Name)
			assert.Equal(t, tt.wantKind, d.Kind)
			assert.True(t, d.Exported)
			assert.True(t, d.DefaultExport)
		})
	}
}

func TestExtract_DynamicAccess(t *testing.T) {
	src := `
import * as handlers from "./handlers";
const registry = {};

export function dispatch(name: string) {
  (handlers as any)["handleUser"]();
  registry["onSave"]();
  return import(` + "`./plugins/${name}`" + `);
}
`
	r := extractSource(t, "main.ts", src)

	require.Len(t, r.MemberRefs, 1)
	assert.Equal(t, MemberRef{From: "dispatch", Object: "handlers", Property: "handleUser", Dynamic: true, Line: 6}, r.MemberRefs[0])

	require.Len(t, r.Dynamic, 1)
	assert.Equal(t, DynamicAccess{From: "dispatch", Key: "onSave", Line: 7}, r.Dynamic[0])

	require.Len(t, r.DynamicImports, 1)
	assert.Equal(t, "./plugins/", r.DynamicImports[0].Prefix)
	assert.Equal(t, "dispatch", r.DynamicImports[0].From)
}

func TestExtract_LiteralDynamicImport(t *testing.T) {
	r := extractSource(t, "main.js", "async function load() { return import('./lazy'); }\nload();\n")

	require.Len(t, r.Imports, 1)
	assert.Equal(t, ImportDynamic, r.Imports[0].Kind)
	assert.Equal(t, "load", r.Imports[0].From)
	assert.Equal(t, "./lazy", r.Imports[0].Source)
}

func TestExtract_CommonJS(t *testing.T) {
	src := `
const lib = require("./lib");
const { parse, format: fmt } = require("./text");
require("./setup");

function run() { return lib.go() + parse() + fmt(); }
function unused() {}
module.exports = { run, other: unused };
exports.extra = function () {};
`
	r := extractSource(t, "index.js", src)

	require.Len(t, r.Imports, 3)
	assert.Equal(t, []Binding{{Imported: Namespace, Local: "lib"}}, r.Imports[0].Bindings)
	assert.Equal(t, []Binding{{Imported: "parse", Local: "parse"}, {Imported: "format", Local: "fmt"}}, r.Imports[1].Bindings)
	assert.True(t, r.Imports[2].SideEffect())
	assert.Equal(t, ImportRequire, r.Imports[2].Kind)

	assert.Contains(t, r.LocalExports, LocalExport{Local: "run", Exported: "run"})
	assert.Contains(t, r.LocalExports, LocalExport{Local: "unused", Exported: "other"})

	run, _ := r.Decl("run")
	assert.True(t, run.Exported)
	extra, ok := r.Decl("extra")
	require.True(t, ok)
	assert.True(t, extra.Exported)
}

func TestExtract_UnsupportedFile(t *testing.T) {
	r := extractSource(t, "README.md", "# hi")
	assert.True(t, r.Failed)
	assert.Empty(t, r.Decls)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, SeverityWarning, r.Diagnostics[0].Severity)
}

func TestExtract_SyntaxErrorWithNothingRecovered(t *testing.T) {
	r := extractSource(t, "broken.ts", "}}} ((( === ;;;\n")
	assert.True(t, r.Failed)
	assert.Empty(t, r.Decls)
	assert.Empty(t, r.Refs)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, SeverityWarning, r.Diagnostics[0].Severity)
	assert.Equal(t, uint32(1), r.Diagnostics[0].Line)
}

func TestExtract_SyntaxErrorKeepsDeclarations(t *testing.T) {
	r := extractSource(t, "broken.ts", "export function ok() {}\nfunction (\n")
	assert.False(t, r.Failed)
	require.NotEmpty(t, r.Diagnostics)
	assert.Equal(t, SeverityWarning, r.Diagnostics[0].Severity)
	_, ok := r.Decl("ok")
	assert.True(t, ok)
}

func TestExtract_Deterministic(t *testing.T) {
	src := "import { x } from './x';\nexport function a() { x(); b(); }\nfunction b() {}\n"
	first := extractSource(t, "a.ts", src)
	second := extractSource(t, "a.ts", src)
	assert.Equal(t, first, second)
}
