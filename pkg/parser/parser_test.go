package parser

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, lang Language, src string) *sitter.Node {
	t.Helper()
	p := New()
	t.Cleanup(p.Close)
	tree, err := p.Parse(context.Background(), []byte(src), lang)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree.RootNode()
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]Language{
		"app.ts":            LangTypeScript,
		"src/server.mts":    LangTypeScript,
		"legacy.cts":        LangTypeScript,
		"APP.TS":            LangTypeScript,
		"component.tsx":     LangTSX,
		"component.jsx":     LangTSX,
		"script.js":         LangJavaScript,
		"module.mjs":        LangJavaScript,
		"common.cjs":        LangJavaScript,
		"vendor/lib.d.js":   LangJavaScript,
		"types/global.d.ts": LangUnknown,
		"types/esm.d.mts":   LangUnknown,
		"main.go":           LangUnknown,
		"package.json":      LangUnknown,
		"README":            LangUnknown,
	}
	for path, want := range cases {
		assert.Equal(t, want, DetectLanguage(path), path)
	}
}

func TestParse_EveryGrammar(t *testing.T) {
	sources := map[Language]string{
		LangTypeScript: "export function main(): void {}\n",
		LangTSX:        "export const App = () => <div>{1}</div>;\n",
		LangJavaScript: "module.exports = function () {};\n",
	}
	for lang, src := range sources {
		t.Run(string(lang), func(t *testing.T) {
			root := parse(t, lang, src)
			assert.Equal(t, "program", root.Type())
			assert.False(t, root.HasError())
		})
	}
}

func TestParse_Unsupported(t *testing.T) {
	p := New()
	defer p.Close()
	_, err := p.Parse(context.Background(), []byte("x"), LangUnknown)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New()
	defer p.Close()
	_, err := p.Parse(ctx, []byte("const a = 1;"), LangJavaScript)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_SyntaxErrorsStillYieldTree(t *testing.T) {
	root := parse(t, LangTypeScript, "export function ok() {}\nfunction broken( {\n")
	assert.True(t, root.HasError())
}

func TestWalk_SkipsChildren(t *testing.T) {
	src := "function outer() { function inner() {} }\nfunction next() {}\n"
	root := parse(t, LangJavaScript, src)

	var names []string
	Walk(root, func(n *sitter.Node, typ string) bool {
		if typ == "function_declaration" {
			names = append(names, Text(n.ChildByFieldName("name"), []byte(src)))
			return false
		}
		return true
	})
	assert.Equal(t, []string{"outer", "next"}, names)
}

func TestText(t *testing.T) {
	src := []byte("const answer = 42;")
	root := parse(t, LangJavaScript, string(src))
	assert.Equal(t, string(src), Text(root.NamedChild(0), src))
	assert.Equal(t, "", Text(nil, src))
	assert.Equal(t, "", Text(root, src[:5]), "range past the end of src")
}

func TestStringValue(t *testing.T) {
	src := "const a = 'x'; const b = \"y\"; const c = `z`; const d = `p/${q}.js`; const e = 1;\n"
	root := parse(t, LangJavaScript, src)

	var values, prefixes []string
	Walk(root, func(n *sitter.Node, typ string) bool {
		switch typ {
		case "string", "template_string", "number":
			if v, ok := StringValue(n, []byte(src)); ok {
				values = append(values, v)
			} else if typ == "template_string" {
				prefixes = append(prefixes, TemplatePrefix(n, []byte(src)))
			}
			return false
		}
		return true
	})

	assert.Equal(t, []string{"x", "y", "z"}, values)
	assert.Equal(t, []string{"p/"}, prefixes)
}
