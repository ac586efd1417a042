package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "[path]",
				Description: `Validates the config that applies to a project against the schema.

Examples:
  deadwood config validate                      # Searches the current directory
  deadwood -c deadwood.toml config validate     # Validates a specific file`,
				Action: runConfigValidate,
			},
			{
				Name:      "show",
				Usage:     "Show the effective configuration",
				ArgsUsage: "[path]",
				Action:    runConfigShow,
			},
		},
	}
}

// configSource returns the file that applies to root, or "" for defaults.
func configSource(c *cli.Context, root string) string {
	if path := c.String("config"); path != "" {
		return path
	}
	path, _ := config.Find(root)
	return path
}

func runConfigValidate(c *cli.Context) error {
	source := configSource(c, getPath(c))
	if source == "" {
		color.Yellow("No config file found. Default configuration is valid.")
		return nil
	}

	if _, err := config.Load(source); err != nil {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(c.App.Writer, "  - %s\n", err)
		return err
	}
	color.Green("Configuration valid: %s", source)
	return nil
}

func runConfigShow(c *cli.Context) error {
	source := configSource(c, getPath(c))

	cfg := config.DefaultConfig()
	if source != "" {
		loaded, err := config.Load(source)
		if err != nil {
			return err
		}
		cfg = loaded
		fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(c.App.Writer, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(c.App.Writer, string(content))
	return nil
}
