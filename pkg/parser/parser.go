// Package parser wraps tree-sitter grammars for the JavaScript family of
// languages and a few helpers for reading their syntax trees.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language names the grammar a file is parsed with.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJavaScript Language = "javascript"
	LangUnknown    Language = "unknown"
)

// byExt maps source extensions to grammars. JSX goes through the TSX
// grammar, which accepts it.
var byExt = map[string]Language{
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
	".jsx": LangTSX,
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
}

// DetectLanguage picks the grammar for path by extension, ignoring case.
// Declaration files hold no runtime code and report LangUnknown.
func DetectLanguage(path string) Language {
	base := strings.ToLower(filepath.Base(path))
	ext := filepath.Ext(base)
	lang, ok := byExt[ext]
	if !ok || (lang == LangTypeScript && strings.HasSuffix(strings.TrimSuffix(base, ext), ".d")) {
		return LangUnknown
	}
	return lang
}

func (l Language) grammar() *sitter.Language {
	switch l {
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	}
	return nil
}

// ErrUnsupported is returned for a language with no grammar.
var ErrUnsupported = errors.New("unsupported language")

// Parser holds one tree-sitter parser. It must not be used from more than
// one goroutine at a time.
type Parser struct {
	ts *sitter.Parser
}

func New() *Parser {
	return &Parser{ts: sitter.NewParser()}
}

// Close frees the underlying C parser.
func (p *Parser) Close() {
	p.ts.Close()
}

// Parse builds a syntax tree for src. The caller closes the tree. Syntax
// errors do not fail the parse; they show up as ERROR nodes.
func (p *Parser) Parse(ctx context.Context, src []byte, lang Language) (*sitter.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := lang.grammar()
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, lang)
	}
	p.ts.SetLanguage(g)
	tree, err := p.ts.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errors.New("no tree produced")
	}
	return tree, nil
}

// Walk visits node and its descendants depth first. Returning false from
// visit skips the children of that node. The node type is passed along
// since reading it crosses into C.
func Walk(node *sitter.Node, visit func(n *sitter.Node, typ string) bool) {
	if node == nil || !visit(node, node.Type()) {
		return
	}
	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), visit)
	}
}

// Text returns the source covered by node, or "" for nil or a node whose
// range lies outside src.
func Text(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || int(end) > len(src) {
		return ""
	}
	return string(src[start:end])
}

// StringValue unquotes a string literal or a template literal without
// substitutions. ok is false for anything else.
func StringValue(node *sitter.Node, src []byte) (string, bool) {
	if node == nil {
		return "", false
	}
	typ := node.Type()
	if typ != "string" && typ != "template_string" {
		return "", false
	}
	text := Text(node, src)
	if len(text) < 2 || (typ == "template_string" && strings.Contains(text, "${")) {
		return "", false
	}
	return text[1 : len(text)-1], true
}

// TemplatePrefix is the literal head of a template string, up to its first
// substitution.
func TemplatePrefix(node *sitter.Node, src []byte) string {
	text := strings.TrimPrefix(Text(node, src), "`")
	if head, _, found := strings.Cut(text, "${"); found {
		return head
	}
	return strings.TrimSuffix(text, "`")
}
