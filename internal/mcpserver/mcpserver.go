// Package mcpserver exposes dead code analysis to LLM agents over the
// Model Context Protocol.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/deadwood/internal/service/analysis"
)

const instructions = `Deadwood finds unreachable top-level symbols in JavaScript and TypeScript projects.
Start with analyze_dead_code on the project root. Findings at confidence 100 are safe to delete;
lower scores carry reasons that say what to check first. Call clear_dead_code_cache after
switching branches if results look stale.`

// Server serves the deadwood tools and prompts over MCP.
type Server struct {
	server *mcp.Server
	svc    *analysis.Service
}

// NewServer builds a server around svc, or a default service when nil.
func NewServer(version string, svc *analysis.Service) *Server {
	if version == "" {
		version = "dev"
	}
	if svc == nil {
		svc = analysis.New()
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: "deadwood", Title: "Deadwood", Version: version},
			&mcp.ServerOptions{Instructions: instructions}),
		svc: svc,
	}

	mcp.AddTool(s.server, &mcp.Tool{Name: "analyze_dead_code", Description: describeAnalyzeDeadCode()}, s.handleAnalyzeDeadCode)
	mcp.AddTool(s.server, &mcp.Tool{Name: "clear_dead_code_cache", Description: describeClearCache()}, s.handleClearCache)
	if err := s.registerPrompts(); err != nil {
		slog.Warn("prompts unavailable", "error", err)
	}
	return s
}

// Run serves on stdin and stdout until ctx is done or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
