package mcpserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/deadwood/internal/output"
	"github.com/panbanda/deadwood/internal/service/analysis"
	"github.com/panbanda/deadwood/pkg/analyzer/deadcode"
)

// DeadCodeInput is the input of analyze_dead_code.
type DeadCodeInput struct {
	Path          string `json:"path,omitempty" jsonschema:"Project root to analyze. Defaults to the current directory."`
	MinConfidence *int   `json:"min_confidence,omitempty" jsonschema:"Only report symbols with at least this confidence (0-100). Defaults to the project config."`
	Format        string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	MaxTokens     int    `json:"max_tokens,omitempty" jsonschema:"Approximate token budget for the response. Default 32000."`
}

// ClearCacheInput is the input of clear_dead_code_cache.
type ClearCacheInput struct {
	Path string `json:"path,omitempty" jsonschema:"Project root whose cache to clear. Defaults to the current directory."`
}

func getPath(p string) string {
	if p == "" {
		return "."
	}
	return p
}

func getFormat(f string) output.Format {
	switch f {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func render(a *deadcode.Analysis, format output.Format) (string, error) {
	var buf bytes.Buffer
	f := output.NewWriterFormatter(format, &buf, false)
	if err := f.Output(output.NewDeadCodeView(a, true)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fitToBudget drops trailing files until the rendering fits the token
// budget. The summary keeps describing the whole project.
func fitToBudget(a *deadcode.Analysis, format output.Format, budget output.TokenBudget) (string, int, error) {
	text, err := render(a, format)
	if err != nil {
		return "", 0, err
	}
	if budget.Fits(text) || a.Result == nil {
		return text, 0, nil
	}

	trimmed := *a
	res := *a.Result
	trimmed.Result = &res
	files := a.Result.Files
	for n := len(files) - 1; n >= 0; n-- {
		res.Files = files[:n]
		text, err = render(&trimmed, format)
		if err != nil {
			return "", 0, err
		}
		if budget.Fits(text) {
			return text, len(files) - n, nil
		}
	}
	return text, len(files), nil
}

func toolResult(text string, notes ...string) (*mcp.CallToolResult, any, error) {
	content := []mcp.Content{&mcp.TextContent{Text: text}}
	for _, n := range notes {
		content = append(content, &mcp.TextContent{Text: n})
	}
	return &mcp.CallToolResult{Content: content}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyzeDeadCode(ctx context.Context, req *mcp.CallToolRequest, input DeadCodeInput) (*mcp.CallToolResult, any, error) {
	a, err := s.svc.AnalyzeDeadCode(ctx, getPath(input.Path), analysis.DeadCodeOptions{MinConfidence: input.MinConfidence})
	if err != nil {
		return toolError(err.Error())
	}

	budget := output.TokenBudget(input.MaxTokens)
	if budget <= 0 {
		budget = output.DefaultBudget
	}
	text, omitted, err := fitToBudget(a, getFormat(input.Format), budget)
	if err != nil {
		return toolError(err.Error())
	}
	if omitted > 0 {
		return toolResult(text, fmt.Sprintf("%d files omitted to stay within ~%s tokens; raise min_confidence or max_tokens to see them.",
			omitted, budget))
	}
	return toolResult(text)
}

func (s *Server) handleClearCache(ctx context.Context, req *mcp.CallToolRequest, input ClearCacheInput) (*mcp.CallToolResult, any, error) {
	if err := s.svc.ClearCache(getPath(input.Path)); err != nil {
		return toolError(err.Error())
	}
	return toolResult("cache cleared")
}
