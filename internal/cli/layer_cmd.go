// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// layer_cmd.go - Layer and layout commands for polychat.
//
// Command: layer [bands|run]
// Command: layout [list|save|show|rm|apply]
//
// "layer run" replays a script of stacking operations against a fresh
// coordinator and prints every change notification:
//
//   +id:category   register a surface
//   ^id            bring it to front
//   -id            unregister it
//
// Examples:
//   polychat layer bands
//   polychat layer run +chat:floating +menu:dropdown +notes:floating ^chat
//   polychat layout save coding --window chat:0,0,800,600 --window notes:820,0,400,600
//   polychat layout apply coding

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/polychat/internal/layer"
	"github.com/jeranaias/polychat/internal/layout"
	"github.com/jeranaias/polychat/internal/util"
)

// BandInfo is one row of "layer bands".
type BandInfo struct {
	Category layer.Category `json:"category" yaml:"category"`
	Base     int            `json:"base" yaml:"base"`
	Top      int            `json:"top" yaml:"top"`
}

// LayerEvent is one line of "layer run" output.
type LayerEvent struct {
	Step   int    `json:"step" yaml:"step"`
	Op     string `json:"op" yaml:"op"`
	ID     string `json:"id" yaml:"id"`
	Z      int    `json:"z" yaml:"z"`
	Notify bool   `json:"notify,omitempty" yaml:"notify,omitempty"`
}

// LayerRun is the structured output of "layer run".
type LayerRun struct {
	Events []LayerEvent  `json:"events" yaml:"events"`
	Layers []layer.Entry `json:"layers" yaml:"layers"`
}

func newLayerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "layer",
		Aliases: []string{"layers"},
		Short:   "Inspect the stacking coordinator",
	}

	bands := &cobra.Command{
		Use:   "bands",
		Short: "Show the stacking band of each category",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			coord, err := app.Layers()
			if err != nil {
				return err
			}
			table := coord.Table()
			rows := make([]BandInfo, 0, len(layer.Categories))
			for _, c := range layer.Categories {
				b := table[c]
				rows = append(rows, BandInfo{Category: c, Base: b.Base, Top: b.Base + b.Span})
			}
			return app.emit(cmd, rows, func(w io.Writer) {
				for _, r := range rows {
					name := r.Category.String()
					fmt.Fprintf(w, "  %s %d-%d\n", bandStyles[name].Render(util.FitWidth(name, 10)), r.Base, r.Top)
				}
			})
		},
	}

	run := &cobra.Command{
		Use:   "run <op>...",
		Short: "Replay stacking operations and print the resulting values",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := app.Layers()
			if err != nil {
				return err
			}
			res, err := runLayerScript(coord, args)
			if err != nil {
				return err
			}
			return app.emit(cmd, res, func(w io.Writer) {
				for _, e := range res.Events {
					line := fmt.Sprintf("%3d %-10s %-16s z=%d", e.Step, e.Op, e.ID, e.Z)
					if e.Notify {
						line = DimStyle.Render(line)
					}
					fmt.Fprintln(w, line)
				}
				fmt.Fprintln(w, RenderSeparator(40))
				for _, entry := range res.Layers {
					name := entry.Category.String()
					fmt.Fprintf(w, "  %s %s %d\n",
						util.FitWidth(entry.ID, 16),
						bandStyles[name].Render(util.FitWidth(name, 10)),
						entry.Z)
				}
			})
		},
	}

	cmd.AddCommand(bands, run)
	return cmd
}

// runLayerScript applies each op to coord. Notifications fired by an op
// are recorded right after it.
func runLayerScript(coord *layer.Coordinator, ops []string) (LayerRun, error) {
	res := LayerRun{Events: []LayerEvent{}}
	for i, op := range ops {
		step := i + 1
		if len(op) < 2 {
			return LayerRun{}, NewValidationErrorWithExample("op", op, "expected +id:category, ^id or -id", "+chat:floating")
		}
		id := op[1:]
		switch op[0] {
		case '+':
			name, category, ok := strings.Cut(id, ":")
			if !ok || name == "" {
				return LayerRun{}, NewValidationErrorWithExample("op", op, "register needs id:category", "+chat:floating")
			}
			cat, err := layer.ParseCategory(category)
			if err != nil {
				return LayerRun{}, err
			}
			notify := func(z int) {
				res.Events = append(res.Events, LayerEvent{Step: step, Op: "changed", ID: name, Z: z, Notify: true})
			}
			z := coord.RegisterWithNotify(name, cat, notify)
			res.Events = append(res.Events, LayerEvent{Step: step, Op: "register", ID: name, Z: z})
		case '^':
			if !coord.IsRegistered(id) {
				return LayerRun{}, fmt.Errorf("%w: %s", errUnknownSurface, id)
			}
			z := coord.BringToFront(id)
			res.Events = append(res.Events, LayerEvent{Step: step, Op: "front", ID: id, Z: z})
		case '-':
			coord.Unregister(id)
			res.Events = append(res.Events, LayerEvent{Step: step, Op: "unregister", ID: id})
		default:
			return LayerRun{}, NewValidationErrorWithExample("op", op, "expected +id:category, ^id or -id", "^chat")
		}
	}
	res.Layers = coord.Snapshot()
	if res.Layers == nil {
		res.Layers = []layer.Entry{}
	}
	return res, nil
}

var errUnknownSurface = &ValidationError{Field: "op", Reason: "surface is not registered"}

// =============================================================================
// LAYOUTS
// =============================================================================

func newLayoutCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "layout",
		Aliases: []string{"layouts"},
		Short:   "Save and restore window layouts",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved layouts",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.Layouts()
			if err != nil {
				return err
			}
			layouts := store.List()
			return app.emit(cmd, layouts, func(w io.Writer) {
				if len(layouts) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No layouts."))
					return
				}
				for _, l := range layouts {
					fmt.Fprintf(w, "  %s %d windows, saved %s\n",
						util.FitWidth(l.Name, 20), len(l.Windows), formatAgo(l.SavedAt, app.Now()))
				}
			})
		},
	}

	var windowSpecs []string
	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a layout; windows are listed back to front",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			windows := make([]layout.Window, 0, len(windowSpecs))
			for i, spec := range windowSpecs {
				win, err := parseWindow(spec)
				if err != nil {
					return err
				}
				win.Stack = i
				windows = append(windows, win)
			}
			store, err := app.Layouts()
			if err != nil {
				return err
			}
			l, err := store.Save(args[0], windows)
			if err != nil {
				return err
			}
			return app.emit(cmd, l, func(w io.Writer) {
				printDone(w, "Saved layout %q with %d windows", l.Name, len(l.Windows))
			})
		},
	}
	save.Flags().StringArrayVarP(&windowSpecs, "window", "w", nil, "window as id or id:x,y,width,height (repeat)")

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a layout",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Layouts()
			if err != nil {
				return err
			}
			l, err := store.Get(args[0])
			if err != nil {
				return err
			}
			return app.emit(cmd, l, func(w io.Writer) {
				fmt.Fprintln(w, TitleStyle.Render(l.Name))
				fmt.Fprintln(w, RenderSeparator(40))
				for _, win := range l.Windows {
					fmt.Fprintf(w, "  %d %s %dx%d at %d,%d\n",
						win.Stack, util.FitWidth(win.ID, 16), win.Width, win.Height, win.X, win.Y)
				}
			})
		},
	}

	remove := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a layout",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Layouts()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			return app.emit(cmd, store.List(), func(w io.Writer) {
				printDone(w, "Deleted layout %q", args[0])
			})
		},
	}

	apply := &cobra.Command{
		Use:   "apply <name>",
		Short: "Stack a layout's windows and print their values",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Layouts()
			if err != nil {
				return err
			}
			coord, err := app.Layers()
			if err != nil {
				return err
			}
			placements, err := store.Apply(args[0], coord)
			if err != nil {
				return err
			}
			return app.emit(cmd, placements, func(w io.Writer) {
				for _, p := range placements {
					fmt.Fprintf(w, "  %s z=%d\n", util.FitWidth(p.Window.ID, 16), p.Z)
				}
			})
		},
	}

	cmd.AddCommand(list, save, show, remove, apply)
	return cmd
}

// parseWindow reads "id" or "id:x,y,width,height".
func parseWindow(spec string) (layout.Window, error) {
	id, geom, hasGeom := strings.Cut(spec, ":")
	win := layout.Window{ID: strings.TrimSpace(id)}
	if !hasGeom {
		return win, nil
	}
	parts := strings.Split(geom, ",")
	if len(parts) != 4 {
		return layout.Window{}, NewValidationErrorWithExample("window", spec, "geometry needs x,y,width,height", "chat:0,0,800,600")
	}
	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return layout.Window{}, NewValidationErrorWithExample("window", spec, "geometry must be integers", "chat:0,0,800,600")
		}
		vals[i] = n
	}
	win.X, win.Y, win.Width, win.Height = vals[0], vals[1], vals[2], vals[3]
	return win, nil
}
