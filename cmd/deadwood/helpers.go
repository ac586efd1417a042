package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/panbanda/deadwood/internal/remote"
	"github.com/panbanda/deadwood/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

// getPath returns the project root from positional args, defaulting to ".".
func getPath(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

// newService builds an analysis service from the global flags.
func newService(c *cli.Context, opts ...analysis.Option) *analysis.Service {
	base := []analysis.Option{}
	if path := c.String("config"); path != "" {
		base = append(base, analysis.WithConfigPath(path))
	}
	if c.Bool("no-cache") {
		base = append(base, analysis.WithoutCache())
	}
	return analysis.New(append(base, opts...)...)
}

// minConfidence returns the --min-confidence override, or nil when the
// configured threshold applies.
func minConfidence(c *cli.Context) *int {
	if !c.IsSet("min-confidence") {
		return nil
	}
	v := c.Int("min-confidence")
	return &v
}

// resolveRoot returns a local directory for the path argument, cloning it
// first when it names a remote repository. cleanup removes the clone.
func resolveRoot(c *cli.Context) (string, func(), error) {
	path := getPath(c)
	src, err := remote.Parse(path)
	if err != nil {
		return "", nil, err
	}
	if src == nil {
		return path, func() {}, nil
	}

	fmt.Fprintln(os.Stderr, color.CyanString("Cloning %s...", src.URL))
	if err := src.Clone(c.Context, os.Stderr, c.Bool("shallow")); err != nil {
		return "", nil, fmt.Errorf("failed to clone %s: %w", path, err)
	}
	return src.CloneDir, src.Cleanup, nil
}
