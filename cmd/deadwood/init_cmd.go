package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new deadwood configuration file",
		Description: `Creates a new deadwood.toml configuration file in the current directory
with sensible defaults. Use --path to specify a different location.

Examples:
  deadwood init                              # Creates deadwood.toml
  deadwood init --path .deadwood/deadwood.toml
  deadwood init --force                      # Overwrite existing config file`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Value: "deadwood.toml",
				Usage: "Config file to create",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	path := c.String("path")
	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if c.Bool("force") {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", path)
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, color.GreenString("Created %s", path))
	fmt.Fprintln(c.App.Writer, "Edit it to tune entry points, dynamic patterns and exclusions.")
	return nil
}

const configHeader = `# Deadwood configuration
# Documentation: https://github.com/panbanda/deadwood

`

func generateDefaultConfig() (string, error) {
	body, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	return configHeader + string(body), nil
}
