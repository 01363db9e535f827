// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for polychat.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display the effective configuration
//   path                Show configuration file path
//   init [--force]      Write a default config file
//   get <key>           Print one value
//   set <key> <value>   Set a value in the config file
//   keys                List settable keys
//   reset               Reset the config file to defaults
//
// "show" and "get" report the effective values, including POLYCHAT_*
// environment overrides. "set" and "reset" only touch the file.
//
// Examples:
//   polychat config
//   polychat config show --json
//   polychat config set storage.backend sqlite
//   polychat config set server.rate_limit 0
//   polychat config get presets.share_base_url

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/polychat/internal/config"
)

// ConfigPathData is the structured output of "config path".
type ConfigPathData struct {
	Path   string `json:"path" yaml:"path"`
	Exists bool   `json:"exists" yaml:"exists"`
}

// ConfigValue is the structured output of "config get" and "config set".
type ConfigValue struct {
	Key   string `json:"key" yaml:"key"`
	Value any    `json:"value" yaml:"value"`
}

func newConfigCmd(app *App) *cobra.Command {
	show := func(cmd *cobra.Command, _ []string) error {
		cfg, err := app.Config()
		if err != nil {
			return err
		}
		return app.emit(cmd, cfg, func(w io.Writer) {
			printConfig(w, cfg)
		})
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Args:  exactArgs(0),
		RunE:  show,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  exactArgs(0),
		RunE:  show,
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.configFile()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			_, statErr := os.Stat(path)
			data := ConfigPathData{Path: path, Exists: statErr == nil}
			return app.emit(cmd, data, func(w io.Writer) {
				fmt.Fprintln(w, path)
				if !data.Exists {
					fmt.Fprintln(w, DimStyle.Render("(not created yet, defaults in use)"))
				}
			})
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.configFile()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%w: %s exists, pass --force to overwrite", ErrNotConfirmed, path)
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			return app.emit(cmd, ConfigPathData{Path: path, Exists: true}, func(w io.Writer) {
				printDone(w, "Wrote %s", path)
			})
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return NewValidationErrorWithExample("key", args[0], err.Error(), "polychat config keys")
			}
			return app.emit(cmd, ConfigValue{Key: args[0], Value: value}, func(w io.Writer) {
				fmt.Fprintln(w, value)
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the config file",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.configFile()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			cfg, err := loadConfigFile(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return NewValidationErrorWithExample("key", args[0], err.Error(), "polychat config set server.addr 127.0.0.1:9000")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			if err := config.SaveTOML(cfg, path); err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			value, _ := cfg.Get(args[0])
			return app.emit(cmd, ConfigValue{Key: args[0], Value: value}, func(w io.Writer) {
				printDone(w, "Set %s = %v", args[0], value)
			})
		},
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List settable keys",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := config.Keys()
			return app.emit(cmd, keys, func(w io.Writer) {
				for _, k := range keys {
					fmt.Fprintln(w, k)
				}
			})
		},
	}

	var yes bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the config file to defaults",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.confirm(yes, "reset the config file"); err != nil {
				return err
			}
			path, err := app.configFile()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			return app.emit(cmd, ConfigPathData{Path: path, Exists: true}, func(w io.Writer) {
				printDone(w, "Configuration reset to defaults")
			})
		},
	}
	resetCmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")

	cmd.AddCommand(showCmd, pathCmd, initCmd, getCmd, setCmd, keysCmd, resetCmd)
	return cmd
}

// loadConfigFile reads only the file at path, without environment
// overrides, so that saving it back does not persist them.
func loadConfigFile(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

// printConfig renders the configuration grouped by section.
func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, TitleStyle.Render("polychat Configuration"))
	fmt.Fprintln(w, RenderSeparator(41))

	section := ""
	for _, key := range config.Keys() {
		head, field, ok := strings.Cut(key, ".")
		if !ok {
			head, field = "", key
		}
		if head != section {
			section = head
			fmt.Fprintln(w)
			fmt.Fprintln(w, SectionStyle.Render("["+section+"]"))
		}
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %s\n", RenderField(field, fmt.Sprint(value)))
	}

	if len(cfg.Layers) > 0 {
		fmt.Fprintln(w)
		for name, band := range cfg.Layers {
			fmt.Fprintln(w, SectionStyle.Render("[layers."+name+"]"))
			fmt.Fprintf(w, "  %s\n", RenderField("base", fmt.Sprint(band.Base)))
			fmt.Fprintf(w, "  %s\n", RenderField("span", fmt.Sprint(band.Span)))
		}
	}
}
