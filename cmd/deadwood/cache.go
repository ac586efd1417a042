package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/deadwood/internal/output"
	"github.com/urfave/cli/v2"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the extraction cache",
		Subcommands: []*cli.Command{
			{
				Name:      "stats",
				Usage:     "Show cache size and entry count",
				ArgsUsage: "[path]",
				Action:    runCacheStats,
			},
			{
				Name:      "clear",
				Usage:     "Remove every cached extraction",
				ArgsUsage: "[path]",
				Action:    runCacheClear,
			},
		},
	}
}

func runCacheStats(c *cli.Context) error {
	stats, err := newService(c).CacheStats(getPath(c))
	if err != nil {
		return err
	}

	formatter := output.NewWriterFormatter(output.ParseFormat(c.String("format")), c.App.Writer, !color.NoColor)
	return formatter.Output(output.NewTable("Extraction Cache",
		[]string{"Entries", "Size", "Schema"},
		[][]string{{fmt.Sprintf("%d", stats.Entries), formatBytes(stats.TotalSize), stats.Schema}},
		stats))
}

func runCacheClear(c *cli.Context) error {
	if err := newService(c).ClearCache(getPath(c)); err != nil {
		return err
	}
	color.Green("Cache cleared")
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
