package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/deadwood/internal/service/analysis"
	"github.com/panbanda/deadwood/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for file changes and re-analyze",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "min-confidence",
				Usage: "Only report symbols scored at least this confident (0-100)",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before a re-run",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	absPath, err := filepath.Abs(getPath(c))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	svc := newService(c)
	cfg, err := svc.Config(absPath)
	if err != nil {
		return err
	}
	format := outputFormat(c, cfg)

	watcher, err := watch.NewWatcher(absPath, cfg, c.Duration("debounce"), os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	opts := analysis.DeadCodeOptions{MinConfidence: minConfidence(c)}
	analyze := func() {
		result, err := svc.AnalyzeDeadCode(c.Context, absPath, opts)
		if err != nil {
			color.Red("Analysis error: %v", err)
			return
		}
		if err := writeAnalysis(c, result, format, cfg.Output.Color); err != nil {
			color.Red("Output error: %v", err)
		}
	}

	analyze()
	watcher.SetCallback(func([]string) { analyze() })

	err = watcher.Start(c.Context)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
