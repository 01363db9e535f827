// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Formatting and argument helpers shared by commands.

package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/polychat/internal/preset"
	"github.com/jeranaias/polychat/internal/util"
)

// =============================================================================
// ARGUMENTS
// =============================================================================

// exactArgs is cobra.ExactArgs with a usage exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == n {
			return nil
		}
		return &ValidationError{
			Field:   "arguments",
			Value:   strings.Join(args, " "),
			Reason:  fmt.Sprintf("expected %d, got %d", n, len(args)),
			Example: cmd.UseLine(),
		}
	}
}

// minArgs is cobra.MinimumNArgs with a usage exit code.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= n {
			return nil
		}
		return &ValidationError{
			Field:   "arguments",
			Reason:  fmt.Sprintf("expected at least %d, got %d", n, len(args)),
			Example: cmd.UseLine(),
		}
	}
}

// splitModels flattens repeated and comma-separated model flags.
func splitModels(values []string) []string {
	var models []string
	for _, v := range values {
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
	}
	return models
}

// parsePosition converts a 1-based position into a 0-based index.
func parsePosition(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, NewValidationErrorWithExample(field, s, "must be a positive integer", "polychat preset reorder 3 1")
	}
	return n - 1, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(in io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}

// =============================================================================
// FORMATTING
// =============================================================================

// formatAgo renders t relative to now, e.g. "3 hours ago".
func formatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func formatLastUsed(p preset.QuickPreset, now time.Time) string {
	if p.LastUsedAt == nil {
		return "never"
	}
	return formatAgo(*p.LastUsedAt, now)
}

func favoriteMark(p preset.QuickPreset) string {
	if p.IsFavorite {
		return HighlightStyle.Render("*")
	}
	return " "
}

// printPresetTable writes one row per preset, fitted to the terminal.
func printPresetTable(w io.Writer, presets []preset.QuickPreset) {
	if len(presets) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No presets."))
		return
	}

	width := GetTerminalWidth()
	const (
		posWidth  = 4
		nameWidth = 24
		catWidth  = 12
		useWidth  = 6
	)
	modelsWidth := width - posWidth - nameWidth - catWidth - useWidth - 8
	if modelsWidth < 16 {
		modelsWidth = 16
	}

	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		util.FitWidth("#", posWidth),
		util.FitWidth("NAME", nameWidth),
		util.FitWidth("CATEGORY", catWidth),
		util.FitWidth("USES", useWidth),
		"MODELS")
	for i, p := range presets {
		fmt.Fprintf(w, "%s %s %s %s %s %s\n",
			favoriteMark(p),
			util.FitWidth(strconv.Itoa(i+1), posWidth),
			util.FitWidth(util.SingleLine(p.Name), nameWidth),
			util.FitWidth(p.Category, catWidth),
			util.FitWidth(humanize.Comma(int64(p.UsageCount)), useWidth),
			util.TruncateRunes(strings.Join(p.Models, ", "), modelsWidth))
	}
}

// printPreset writes every field of one preset.
func printPreset(w io.Writer, p preset.QuickPreset, now time.Time) {
	fmt.Fprintln(w, TitleStyle.Render(p.Name))
	fmt.Fprintln(w, RenderSeparator(40))
	fmt.Fprintln(w, RenderField("ID", p.ID))
	if p.Description != "" {
		fmt.Fprintln(w, RenderField("Description", util.SingleLine(p.Description)))
	}
	fmt.Fprintln(w, RenderField("Models", strings.Join(p.Models, ", ")))
	category := p.Category
	if category == "" {
		category = "-"
	}
	fmt.Fprintln(w, RenderField("Category", category))
	source := string(p.SourceType)
	if p.SourceID != "" {
		source += " (" + p.SourceID + ")"
	}
	if p.IsModified {
		source += ", modified"
	}
	fmt.Fprintln(w, RenderField("Source", source))
	fmt.Fprintln(w, RenderField("Favorite", strconv.FormatBool(p.IsFavorite)))
	fmt.Fprintln(w, RenderField("Uses", humanize.Comma(int64(p.UsageCount))))
	fmt.Fprintln(w, RenderField("Last used", formatLastUsed(p, now)))
	fmt.Fprintln(w, RenderField("Created", formatAgo(p.CreatedAt, now)))
}

// printDone writes a one-line success message.
func printDone(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", RenderStatus("ok"), fmt.Sprintf(format, args...))
}
