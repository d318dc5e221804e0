package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/sweep/pkg/config"
)

func configCmd() *cli.Command {
	pathFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
	}
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a sweep configuration file for syntax errors and invalid values.

Examples:
  sweep config validate                   # Validates default config locations
  sweep config validate -c sweep.toml     # Validates specific file
  sweep config validate -c .sweep/sweep.toml`,
				Flags:  []cli.Flag{pathFlag},
				Action: runConfigValidate,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the merged configuration from defaults and config file.

Examples:
  sweep config show               # Show effective config
  sweep config show -c sweep.toml # Show config from specific file`,
				Flags:  []cli.Flag{pathFlag},
				Action: runConfigShow,
			},
		},
	}
}

// readConfig loads the file named by --config (on the subcommand or the
// app) or the first one found in the working directory, without anchoring
// any paths.
func readConfig(c *cli.Context) (*config.Config, string, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	return config.LoadOrDefault(".")
}

func runConfigValidate(c *cli.Context) error {
	cfg, source, err := readConfig(c)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		color.Red("Configuration validation failed:")
		for _, line := range strings.Split(err.Error(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Printf("  - %s\n", line)
			}
		}
		return err
	}

	if source != "" {
		color.Green("Configuration valid: %s", source)
	} else {
		color.Yellow("No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, source, err := readConfig(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}
	if source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(w, string(content))
	return nil
}
