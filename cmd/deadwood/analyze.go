package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/panbanda/deadwood/internal/metrics"
	"github.com/panbanda/deadwood/internal/output"
	"github.com/panbanda/deadwood/internal/progress"
	"github.com/panbanda/deadwood/internal/service/analysis"
	"github.com/panbanda/deadwood/pkg/analyzer/deadcode"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"deadcode", "dc"},
		Usage:     "Report unreachable functions, classes, and variables",
		ArgsUsage: "[path | owner/repo[@ref] | git URL]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "min-confidence",
				Usage: "Only report symbols scored at least this confident (0-100); defaults to the config value",
			},
			&cli.BoolFlag{
				Name:  "shallow",
				Usage: "Shallow-clone remote repositories (faster, disables recency scoring)",
			},
			&cli.BoolFlag{
				Name:  "fail-on-dead",
				Usage: "Exit with status 2 when dead code is reported",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not draw a progress bar",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics for the run to this file",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	root, cleanup, err := resolveRoot(c)
	if err != nil {
		return err
	}
	defer cleanup()

	var recorder *metrics.Recorder
	var opts []analysis.Option
	if c.Bool("shallow") {
		opts = append(opts, analysis.WithoutRecency())
	}
	if c.String("metrics-file") != "" {
		recorder = metrics.New()
		opts = append(opts, analysis.WithMetrics(recorder))
	}
	svc := newService(c, opts...)

	cfg, err := svc.Config(root)
	if err != nil {
		return err
	}
	format := outputFormat(c, cfg)

	var bar *progress.Bar
	dcOpts := analysis.DeadCodeOptions{MinConfidence: minConfidence(c)}
	if format == output.FormatText && !c.Bool("no-progress") && !color.NoColor {
		bar = progress.New(os.Stderr, "Analyzing")
		dcOpts.OnProgress = bar.Update
	}

	result, err := svc.AnalyzeDeadCode(c.Context, root, dcOpts)
	if bar != nil {
		if err != nil {
			bar.FinishError(err)
		} else {
			bar.Finish()
		}
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := writeAnalysis(c, result, format, cfg.Output.Color); err != nil {
		return err
	}

	if recorder != nil {
		if err := recorder.WriteToTextfile(c.String("metrics-file")); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	if c.Bool("fail-on-dead") && result.Result != nil && result.Result.Summary.DeadSymbols > 0 {
		return cli.Exit(fmt.Sprintf("%d dead symbols found", result.Result.Summary.DeadSymbols), 2)
	}
	return nil
}

func writeAnalysis(c *cli.Context, result *deadcode.Analysis, format output.Format, colored bool) error {
	formatter, err := output.NewFormatter(format, c.String("output"), colored && !color.NoColor)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewDeadCodeView(result, c.Bool("verbose")))
}

// outputFormat prefers --format and falls back to the config file.
func outputFormat(c *cli.Context, cfg *config.Config) output.Format {
	if c.IsSet("format") || cfg.Output.Format == "" {
		return output.ParseFormat(c.String("format"))
	}
	return output.ParseFormat(cfg.Output.Format)
}
