package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		color.Red("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "deadwood",
		Usage:    "Find unreachable code in JavaScript and TypeScript projects",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `Deadwood builds a symbol graph of a JS/TS project, walks it from the
project's entry points and reports every declaration nothing can reach,
scored by how confident the analysis is that it is really unused.

Supports: JavaScript, TypeScript, JSX, TSX (.js .jsx .mjs .cjs .ts .tsx .mts .cts)`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"DEADWOOD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown, toon",
				EnvVars: []string{"DEADWOOD_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:    "no-cache",
				Usage:   "Disable the extraction cache",
				EnvVars: []string{"DEADWOOD_NO_CACHE"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging and show all diagnostics",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before: func(c *cli.Context) error {
			slog.SetDefault(newLogger(c.Bool("verbose")))
			return startProfiling(c)
		},
		After: stopProfiling,
		Commands: []*cli.Command{
			analyzeCmd(),
			watchCmd(),
			mcpCmd(),
			initCmd(),
			configCmd(),
			cacheCmd(),
		},
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
