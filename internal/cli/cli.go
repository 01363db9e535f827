// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command and entry point for polychat.

package cli

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// VersionData is the structured form of "polychat version".
type VersionData struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// NewRootCmd builds the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "polychat",
		Short: "Manage quick presets, stacking layers and window layouts",
		Long: `polychat manages the quick presets of a multi-model chat workspace:
named model selections with usage tracking, version history, categories,
templates, import/export, share links and recommendations. It also drives
the layer coordinator that stacks floating windows, dropdowns, popovers,
modals and toasts, and stores named window layouts.

Run "polychat serve" to expose the same operations over a local HTTP API.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)
	root.SetErr(app.ErrOut)
	root.SetIn(app.In)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ValidationError{Field: "flag", Reason: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "config file (default ~/.polychat/config.toml)")
	flags.StringVar(&app.dataDir, "data-dir", "", "override the storage data directory")
	flags.BoolVar(&app.jsonOut, "json", false, "output in JSON format")
	flags.BoolVar(&app.yamlOut, "yaml", false, "output in YAML format")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "log diagnostics to stderr")
	flags.BoolVar(&app.ephemeral, "ephemeral", false, "use in-memory storage; nothing is saved")
	root.MarkFlagsMutuallyExclusive("json", "yaml")

	root.AddCommand(
		newPresetCmd(app),
		newCategoryCmd(app),
		newTemplateCmd(app),
		newLayerCmd(app),
		newLayoutCmd(app),
		newServeCmd(app),
		newConfigCmd(app),
		newDoctorCmd(app),
		newVersionCmd(app),
	)
	return root
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
			}
			return app.emit(cmd, data, func(w io.Writer) {
				fmt.Fprintf(w, "polychat version %s\n", data.Version)
				fmt.Fprintf(w, "  Git commit: %s\n", data.GitCommit)
				fmt.Fprintf(w, "  Build date: %s\n", data.BuildDate)
				fmt.Fprintf(w, "  Go:         %s\n", data.GoVersion)
			})
		},
	}
}

// Run executes args against app and returns the exit code.
func Run(app *App, args []string) int {
	root := NewRootCmd(app)
	root.SetArgs(args)
	cmd, err := root.ExecuteC()
	if closeErr := app.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close storage: %w", closeErr)
	}
	if err != nil && !errors.Is(err, errReported) {
		out := app.ErrOut
		if app.structured() {
			out = app.Out
		}
		DisplayError(out, commandName(cmd), err, app.jsonOut, app.yamlOut)
	}
	return GetExitCode(err)
}

// Execute runs the process command line.
func Execute(args []string) int {
	return Run(NewApp(), args)
}
