// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// preset_cmd.go - Preset command implementation for polychat.
//
// Command: preset [subcommand]
// Short:   Manage quick presets
// Aliases: presets, p
//
// Subcommands:
//   list                 List presets (filter, search and sort)
//   search <query>       Search names, descriptions and models
//   show <ref>           Show one preset
//   add <name>           Create a preset
//   edit <ref>           Change name, description, models or category
//   rm <ref>             Delete a preset
//   fav <ref>            Toggle favorite
//   dup <ref> [name]     Duplicate a preset
//   use <ref>            Record one use
//   reorder <from> <to>  Move a preset (1-based positions)
//   history <ref>        Show version history
//   restore <ref> <ver>  Restore a version
//   export [ref...]      Export presets as JSON or YAML
//   import <file|->      Import an export document
//   share <ref>          Print a share link
//   open <url>           Create a preset from a share link
//   recommend            Suggest presets
//   bulk <action> <ref...>  Delete, categorize, favorite or duplicate many
//   reset                Replace the collection with the built-ins
//
// A <ref> is a preset id, a unique id prefix, or a unique name
// (case-insensitive).
//
// Examples:
//   polychat preset list --sort usage --favorites
//   polychat preset add "Code review" -m gpt-4o -m claude-3-5-sonnet --category coding
//   polychat preset edit "Code review" --models gpt-4o,o1
//   polychat preset export --format yaml -o presets.yaml
//   polychat preset import presets.yaml
//   polychat preset open 'http://127.0.0.1:8686/#preset=eyJuYW1lIjo...'

package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/polychat/internal/preset"
	"github.com/jeranaias/polychat/internal/util"
)

// ImportResult is the structured output of "preset import" and "preset open".
type ImportResult struct {
	Imported int                  `json:"imported" yaml:"imported"`
	Presets  []preset.QuickPreset `json:"presets" yaml:"presets"`
}

// ExportResult is the structured output of "preset export --output".
type ExportResult struct {
	Path     string `json:"path" yaml:"path"`
	Format   string `json:"format" yaml:"format"`
	Exported int    `json:"exported" yaml:"exported"`
}

// UsageResult is the structured output of "preset use".
type UsageResult struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	UsageCount int    `json:"usageCount" yaml:"usageCount"`
}

// ShareResult is the structured output of "preset share".
type ShareResult struct {
	ID  string `json:"id" yaml:"id"`
	URL string `json:"url" yaml:"url"`
}

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func newPresetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "preset",
		Aliases: []string{"presets", "p"},
		Short:   "Manage quick presets",
	}
	cmd.AddCommand(
		newPresetListCmd(app),
		newPresetSearchCmd(app),
		newPresetShowCmd(app),
		newPresetAddCmd(app),
		newPresetEditCmd(app),
		newPresetRemoveCmd(app),
		newPresetFavoriteCmd(app),
		newPresetDuplicateCmd(app),
		newPresetUseCmd(app),
		newPresetReorderCmd(app),
		newPresetHistoryCmd(app),
		newPresetRestoreCmd(app),
		newPresetExportCmd(app),
		newPresetImportCmd(app),
		newPresetShareCmd(app),
		newPresetOpenCmd(app),
		newPresetRecommendCmd(app),
		newPresetBulkCmd(app),
		newPresetResetCmd(app),
	)
	return cmd
}

// =============================================================================
// REFERENCES
// =============================================================================

// resolvePreset finds a preset by id, unique name or unique id prefix.
func resolvePreset(store *preset.Store, ref string) (preset.QuickPreset, error) {
	if p, ok := store.Get(ref); ok {
		return p, nil
	}

	var byName, byPrefix []preset.QuickPreset
	for _, p := range store.Presets() {
		if strings.EqualFold(p.Name, ref) {
			byName = append(byName, p)
		}
		if ref != "" && strings.HasPrefix(p.ID, ref) {
			byPrefix = append(byPrefix, p)
		}
	}
	for _, matches := range [][]preset.QuickPreset{byName, byPrefix} {
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return preset.QuickPreset{}, fmt.Errorf("%w: %q matches %d presets, use the id", ErrAmbiguous, ref, len(matches))
		}
	}
	return preset.QuickPreset{}, fmt.Errorf("%w: %s", preset.ErrNotFound, ref)
}

func resolveAll(store *preset.Store, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		p, err := resolvePreset(store, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// emitPreset reports a single preset.
func (a *App) emitPreset(cmd *cobra.Command, p preset.QuickPreset, message string) error {
	return a.emit(cmd, p, func(w io.Writer) {
		if message != "" {
			printDone(w, "%s", message)
		}
		printPreset(w, p, a.Now())
	})
}

// emitPresets reports the collection after a change.
func (a *App) emitPresets(cmd *cobra.Command, presets []preset.QuickPreset, message string) error {
	return a.emit(cmd, presets, func(w io.Writer) {
		if message != "" {
			printDone(w, "%s", message)
		}
		printPresetTable(w, presets)
	})
}

// =============================================================================
// LISTING
// =============================================================================

func newPresetListCmd(app *App) *cobra.Command {
	var (
		sortBy    string
		category  string
		model     string
		query     string
		favorites bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List presets",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			opt, err := preset.ParseSortOption(sortBy)
			if err != nil {
				return err
			}

			list := store.Presets()
			if category != "" {
				list = preset.FilterCategory(list, category)
			}
			if favorites {
				list = onlyFavorites(list)
			}
			if model != "" {
				if list, err = preset.FilterModels(list, model); err != nil {
					return err
				}
			}
			if query != "" {
				list = preset.Search(list, query)
			}
			list = preset.Sort(list, opt, store.Usage())
			return app.emitPresets(cmd, list, "")
		},
	}
	cmd.Flags().StringVarP(&sortBy, "sort", "s", string(preset.SortManual), "sort order: manual, usage, name, date, favorites")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only presets in this category")
	cmd.Flags().StringVarP(&model, "model", "m", "", "only presets with a model matching this glob")
	cmd.Flags().StringVarP(&query, "search", "q", "", "only presets matching this text")
	cmd.Flags().BoolVarP(&favorites, "favorites", "f", false, "only favorites")
	return cmd
}

func onlyFavorites(list []preset.QuickPreset) []preset.QuickPreset {
	out := make([]preset.QuickPreset, 0, len(list))
	for _, p := range list {
		if p.IsFavorite {
			out = append(out, p)
		}
	}
	return out
}

func newPresetSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search names, descriptions and models",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			return app.emitPresets(cmd, preset.Search(store.Presets(), strings.Join(args, " ")), "")
		},
	}
}

func newPresetShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show one preset",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}
			return app.emitPreset(cmd, p, "")
		},
	}
}

// =============================================================================
// EDITING
// =============================================================================

func newPresetAddCmd(app *App) *cobra.Command {
	var (
		models      []string
		description string
		category    string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a preset",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			spec := preset.Spec{
				Name:        args[0],
				Description: description,
				Models:      splitModels(models),
				Category:    category,
				SourceType:  preset.SourceCustom,
			}
			if err := spec.Validate(); err != nil {
				return err
			}
			list := store.Add(spec)
			p := list[len(list)-1]
			return app.emitPreset(cmd, p, fmt.Sprintf("Created %q", p.Name))
		},
	}
	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "model id (repeat or comma-separate)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category")
	return cmd
}

func newPresetEditCmd(app *App) *cobra.Command {
	var (
		name        string
		description string
		models      []string
		category    string
	)
	cmd := &cobra.Command{
		Use:   "edit <ref>",
		Short: "Change name, description, models or category",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}

			var patch preset.Patch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("models") {
				patch.Models = splitModels(models)
				if patch.Models == nil {
					patch.Models = []string{}
				}
			}
			if flags.Changed("category") {
				patch.Category = &category
			}
			if err := patch.Validate(); err != nil {
				return err
			}
			if _, err := store.Update(p.ID, patch); err != nil {
				return err
			}
			updated, _ := store.Get(p.ID)
			return app.emitPreset(cmd, updated, fmt.Sprintf("Updated %q", updated.Name))
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringSliceVarP(&models, "models", "m", nil, "replacement model list")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category (empty clears)")
	return cmd
}

func newPresetRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <ref>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a preset",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}
			list, err := store.Remove(p.ID)
			if err != nil {
				return err
			}
			return app.emitPresets(cmd, list, fmt.Sprintf("Deleted %q", p.Name))
		},
	}
}

func newPresetFavoriteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "fav <ref>",
		Aliases: []string{"favorite"},
		Short:   "Toggle favorite",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}
			if _, err := store.ToggleFavorite(p.ID); err != nil {
				return err
			}
			updated, _ := store.Get(p.ID)
			verb := "Unfavorited"
			if updated.IsFavorite {
				verb = "Favorited"
			}
			return app.emitPreset(cmd, updated, fmt.Sprintf("%s %q", verb, updated.Name))
		},
	}
}

func newPresetDuplicateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "dup <ref> [name]",
		Aliases: []string{"duplicate", "copy"},
		Short:   "Duplicate a preset",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			list, err := store.Duplicate(p.ID, name)
			if err != nil {
				return err
			}
			return app.emitPresets(cmd, list, fmt.Sprintf("Duplicated %q", p.Name))
		},
	}
}

func newPresetUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <ref>",
		Short: "Record one use of a preset",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}
			stats := store.TrackUsage(p.ID)
			res := UsageResult{ID: p.ID, Name: p.Name, UsageCount: stats.Count(p.ID)}
			return app.emit(cmd, res, func(w io.Writer) {
				printDone(w, "%s used %d times", p.Name, res.UsageCount)
			})
		},
	}
}

func newPresetReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <from> <to>",
		Short: "Move a preset to another position (1-based)",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePosition("from", args[0])
			if err != nil {
				return err
			}
			to, err := parsePosition("to", args[1])
			if err != nil {
				return err
			}
			store, err := app.Presets()
			if err != nil {
				return err
			}
			list, err := store.Reorder(from, to)
			if err != nil {
				return err
			}
			return app.emitPresets(cmd, list, fmt.Sprintf("Moved %s to %s", args[0], args[1]))
		},
	}
}

// =============================================================================
// HISTORY
// =============================================================================

func newPresetHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history <ref>",
		Short: "Show version history, newest first",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}
			versions := store.History(p.ID)
			if versions == nil {
				versions = []preset.Version{}
			}
			return app.emit(cmd, versions, func(w io.Writer) {
				fmt.Fprintln(w, TitleStyle.Render("History of "+p.Name))
				fmt.Fprintln(w, RenderSeparator(40))
				if len(versions) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No versions."))
					return
				}
				for _, v := range versions {
					fmt.Fprintf(w, "%s %s %s %s\n",
						DimStyle.Render(util.FitWidth(v.ID, 12)),
						util.FitWidth(string(v.ChangeType), 9),
						util.FitWidth(formatAgo(v.Timestamp, app.Now()), 16),
						util.TruncateRunes(v.Name+": "+strings.Join(v.Models, ", "), 60))
				}
			})
		},
	}
}

func newPresetRestoreCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <ref> <version-id>",
		Short: "Restore a preset to an earlier version",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}
			if _, err := store.Restore(p.ID, args[1]); err != nil {
				return err
			}
			restored, _ := store.Get(p.ID)
			return app.emitPreset(cmd, restored, fmt.Sprintf("Restored %q", restored.Name))
		},
	}
}

// =============================================================================
// TRANSFER
// =============================================================================

func newPresetExportCmd(app *App) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export [ref...]",
		Short: "Export presets (all when no ref is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			ids, err := resolveAll(store, args)
			if err != nil {
				return err
			}

			var data []byte
			switch strings.ToLower(format) {
			case formatJSON:
				data, err = store.Export(ids)
			case formatYAML, "yml":
				format = formatYAML
				data, err = store.ExportYAML(ids)
			default:
				return NewValidationErrorWithExample("format", format, "must be json or yaml", "polychat preset export --format yaml")
			}
			if err != nil {
				return err
			}

			if output == "" {
				_, err = app.Out.Write(data)
				return err
			}
			if err := util.AtomicWriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			exported := len(ids)
			if exported == 0 {
				exported = store.Len()
			}
			res := ExportResult{Path: output, Format: format, Exported: exported}
			return app.emit(cmd, res, func(w io.Writer) {
				printDone(w, "Exported %d presets to %s", res.Exported, res.Path)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "F", formatJSON, "json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func newPresetImportCmd(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import presets from an export document",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(app.In, args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if format == "" {
				format = formatJSON
				if ext := strings.ToLower(filepath.Ext(args[0])); ext == ".yaml" || ext == ".yml" {
					format = formatYAML
				}
			}

			var items []preset.ImportedPreset
			switch strings.ToLower(format) {
			case formatJSON:
				items, err = preset.ParseImport(data)
			case formatYAML, "yml":
				items, err = preset.ParseImportYAML(data)
			default:
				return NewValidationError("format", format, "must be json or yaml")
			}
			if err != nil {
				return err
			}

			store, err := app.Presets()
			if err != nil {
				return err
			}
			presets, added := store.Import(items)
			res := ImportResult{Imported: added, Presets: presets}
			return app.emit(cmd, res, func(w io.Writer) {
				printDone(w, "Imported %d presets", res.Imported)
				printPresetTable(w, res.Presets)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "F", "", "json or yaml (default from the file extension)")
	return cmd
}

func newPresetShareCmd(app *App) *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "share <ref>",
		Short: "Print a share link for a preset",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			p, err := resolvePreset(store, args[0])
			if err != nil {
				return err
			}
			if base == "" {
				cfg, err := app.Config()
				if err != nil {
					return err
				}
				base = cfg.Presets.ShareBaseURL
			}
			url, err := store.ShareURL(base, p.ID)
			if err != nil {
				return err
			}
			return app.emit(cmd, ShareResult{ID: p.ID, URL: url}, func(w io.Writer) {
				fmt.Fprintln(w, url)
			})
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "base URL (default presets.share_base_url)")
	return cmd
}

func newPresetOpenCmd(app *App) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "open <url>",
		Short: "Create a preset from a share link",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shared, err := preset.ParseShareURL(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				return app.emit(cmd, shared, func(w io.Writer) {
					fmt.Fprintln(w, TitleStyle.Render(shared.Name))
					if shared.Description != "" {
						fmt.Fprintln(w, RenderField("Description", util.SingleLine(shared.Description)))
					}
					fmt.Fprintln(w, RenderField("Models", strings.Join(shared.Models, ", ")))
				})
			}

			spec := shared.Spec()
			if err := spec.Validate(); err != nil {
				return err
			}
			store, err := app.Presets()
			if err != nil {
				return err
			}
			list := store.Add(spec)
			return app.emitPreset(cmd, list[len(list)-1], fmt.Sprintf("Created %q from share link", spec.Name))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "decode the link without creating a preset")
	return cmd
}

func newPresetRecommendCmd(app *App) *cobra.Command {
	var (
		models []string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest presets from usage, similarity, recency and favorites",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.Presets()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				cfg, err := app.Config()
				if err != nil {
					return err
				}
				limit = cfg.Presets.RecommendationLimit
			}
			if limit < 1 {
				return NewValidationError("limit", fmt.Sprint(limit), "must be at least 1")
			}

			recs := store.Recommendations(splitModels(models), limit)
			if recs == nil {
				recs = []preset.Recommendation{}
			}
			return app.emit(cmd, recs, func(w io.Writer) {
				if len(recs) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No recommendations yet. Use some presets first."))
					return
				}
				for i, r := range recs {
					fmt.Fprintf(w, "%d. %s %s\n   %s\n",
						i+1,
						util.PadRight(r.Preset.Name, 24),
						DimStyle.Render(fmt.Sprintf("[%s %.2f]", r.Signal, r.Score)),
						InfoStyle.Render(r.Reason))
				}
			})
		},
	}
	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "currently selected models")
	cmd.Flags().IntVarP(&limit, "limit", "n", preset.DefaultRecommendationLimit, "maximum suggestions")
	return cmd
}

// =============================================================================
// BULK
// =============================================================================

func newPresetBulkCmd(app *App) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "bulk <delete|category|favorite|duplicate> <ref...>",
		Short: "Apply one action to many presets",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := strings.ToLower(args[0])
			switch action {
			case "delete", "rm", "category", "favorite", "fav", "duplicate", "dup":
			default:
				return NewValidationError("action", action, "must be delete, category, favorite or duplicate")
			}
			if action == "category" && !cmd.Flags().Changed("category") {
				return NewValidationErrorWithExample("category", "", "required for bulk category", "polychat preset bulk category a b --category coding")
			}

			store, err := app.Presets()
			if err != nil {
				return err
			}
			ids, err := resolveAll(store, args[1:])
			if err != nil {
				return err
			}

			var list []preset.QuickPreset
			switch action {
			case "delete", "rm":
				list = store.BulkDelete(ids)
			case "category":
				list = store.BulkSetCategory(ids, category)
			case "favorite", "fav":
				list = store.BulkToggleFavorite(ids)
			default:
				list = store.BulkDuplicate(ids)
			}
			return app.emitPresets(cmd, list, fmt.Sprintf("%s applied to %d presets", args[0], len(ids)))
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category for the category action")
	return cmd
}

func newPresetResetCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the collection with the built-in presets",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.confirm(yes, "replace every preset with the built-ins"); err != nil {
				return err
			}
			store, err := app.Presets()
			if err != nil {
				return err
			}
			return app.emitPresets(cmd, store.ResetToBuiltins(), "Reset to built-in presets")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}
