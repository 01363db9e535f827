// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// category_cmd.go - Category and template commands for polychat.
//
// Command: category [list|add|rename|rm]
// Command: template [list|use]
//
// Examples:
//   polychat category add translation
//   polychat category rename translation localization
//   polychat template list --category writing
//   polychat template use pair-programmer "My reviewer"

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/polychat/internal/preset"
	"github.com/jeranaias/polychat/internal/util"
)

// CategoryList is the structured output of "category list".
type CategoryList struct {
	Categories []string `json:"categories" yaml:"categories"`
	Custom     []string `json:"custom" yaml:"custom"`
}

func newCategoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories", "cat"},
		Short:   "Manage preset categories",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List default and custom categories",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			res := CategoryList{Categories: store.Categories(), Custom: nonNilStrings(store.CustomCategories())}
			return app.emit(cmd, res, func(w io.Writer) {
				counts := map[string]int{}
				for _, p := range store.Presets() {
					counts[p.Category]++
				}
				for _, name := range res.Categories {
					kind := "custom"
					if preset.IsDefaultCategory(name) {
						kind = "default"
					}
					fmt.Fprintf(w, "  %s %s %s\n",
						util.FitWidth(name, 20),
						DimStyle.Render(util.FitWidth(kind, 8)),
						fmt.Sprintf("%d presets", counts[name]))
				}
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			if err := store.AddCategory(args[0]); err != nil {
				return err
			}
			res := CategoryList{Categories: store.Categories(), Custom: nonNilStrings(store.CustomCategories())}
			return app.emit(cmd, res, func(w io.Writer) {
				printDone(w, "Added category %q", args[0])
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a custom category and move its presets",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			list, err := store.RenameCategory(args[0], args[1])
			if err != nil {
				return err
			}
			return app.emitPresets(cmd, preset.FilterCategory(list, args[1]),
				fmt.Sprintf("Renamed %q to %q", args[0], args[1]))
		},
	}

	remove := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove a custom category",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			if err := store.RemoveCategory(args[0]); err != nil {
				return err
			}
			res := CategoryList{Categories: store.Categories(), Custom: nonNilStrings(store.CustomCategories())}
			return app.emit(cmd, res, func(w io.Writer) {
				printDone(w, "Removed category %q", args[0])
			})
		},
	}

	cmd.AddCommand(list, add, rename, remove)
	return cmd
}

func newTemplateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates", "tpl"},
		Short:   "Browse preset templates",
	}

	var category string
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			templates := preset.Templates()
			if category != "" {
				templates = preset.TemplatesIn(preset.TemplateCategory(strings.ToLower(category)))
			}
			return app.emit(cmd, templates, func(w io.Writer) {
				if len(templates) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No templates."))
					return
				}
				for _, t := range templates {
					fmt.Fprintf(w, "  %s %s %s\n    %s\n",
						util.FitWidth(t.ID, 20),
						DimStyle.Render(util.FitWidth(string(t.Category), 12)),
						strings.Join(t.Models, ", "),
						InfoStyle.Render(t.Description))
				}
			})
		},
	}
	list.Flags().StringVarP(&category, "category", "c", "", "support, writing, brainstorm, analysis or development")

	use := &cobra.Command{
		Use:   "use <template-id> [name]",
		Short: "Create a preset from a template",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			p, err := store.CreateFromTemplate(args[0], name)
			if err != nil {
				return err
			}
			return app.emitPreset(cmd, p, fmt.Sprintf("Created %q from template %s", p.Name, args[0]))
		},
	}

	cmd.AddCommand(list, use)
	return cmd
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
