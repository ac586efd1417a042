package main

import (
	"fmt"
	"os"

	"github.com/panbanda/deadwood/internal/mcpserver"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes dead code
analysis as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "deadwood": {
        "command": "deadwood",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_dead_code       Unreachable symbols with confidence scores
  - clear_dead_code_cache   Drop cached extractions for a project`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry server.json",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	// stdout carries the protocol; logs stay on stderr.
	server := mcpserver.NewServer(version, newService(c))
	return server.Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	if path := c.String("output"); path != "" {
		return os.WriteFile(path, append(data, '\n'), 0o644)
	}
	fmt.Println(string(data))
	return nil
}
