// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared state for one CLI invocation.
//
// App owns the output streams, the global flags and the lazily opened
// stores. Commands never touch os.Stdout or the config file directly.

package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/polychat/internal/config"
	"github.com/jeranaias/polychat/internal/kv"
	"github.com/jeranaias/polychat/internal/layer"
	"github.com/jeranaias/polychat/internal/layout"
	"github.com/jeranaias/polychat/internal/preset"
)

// App carries the streams, flags and stores of a single run.
type App struct {
	Out    io.Writer
	ErrOut io.Writer
	In     io.Reader
	Now    func() time.Time

	// Interactive allows confirmation prompts on In.
	Interactive bool

	configPath string
	dataDir    string
	jsonOut    bool
	yamlOut    bool
	verbose    bool
	ephemeral  bool

	cfg     *config.Config
	store   kv.Store
	presets *preset.Store
	layouts *layout.Store
	layers  *layer.Coordinator
	logger  *log.Logger
}

// NewApp returns an App bound to the process streams.
func NewApp() *App {
	return &App{
		Out:         os.Stdout,
		ErrOut:      os.Stderr,
		In:          os.Stdin,
		Now:         time.Now,
		Interactive: IsTTY(),
	}
}

// Logger returns the diagnostic logger. Without --verbose it discards.
func (a *App) Logger() *log.Logger {
	if a.logger == nil {
		if a.verbose {
			a.logger = log.New(a.ErrOut, "polychat ", log.LstdFlags)
		} else {
			a.logger = log.New(io.Discard, "", 0)
		}
	}
	return a.logger
}

// Config loads the configuration once and applies the global flags.
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if a.dataDir != "" {
		cfg.Storage.DataDir = a.dataDir
	}
	if a.ephemeral {
		cfg.Storage.Backend = kv.BackendMemory
	}
	a.cfg = cfg
	return cfg, nil
}

// configFile returns the file config commands read and write.
func (a *App) configFile() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPath()
}

// open opens the key-value store and builds the stores on top of it.
func (a *App) open() error {
	if a.presets != nil {
		return nil
	}
	cfg, err := a.Config()
	if err != nil {
		return err
	}

	opts, err := cfg.KVOptions()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	store, err := kv.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", opts.Backend, err)
	}
	table, err := cfg.LayerTable()
	if err != nil {
		store.Close()
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	layers, err := layer.NewWithTable(table, a.Logger())
	if err != nil {
		store.Close()
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	a.store = store
	a.layers = layers
	a.presets = preset.NewStore(preset.Options{
		KV:           store,
		Logger:       a.Logger(),
		Now:          a.Now,
		History:      cfg.HistoryPolicy(),
		SeedBuiltins: cfg.Presets.SeedBuiltins,
	})
	a.layouts = layout.NewStore(layout.Options{
		KV:     store,
		Logger: a.Logger(),
		Now:    a.Now,
	})
	a.Logger().Printf("STORAGE_OPEN | backend=%s dir=%s presets=%d", opts.Backend, opts.Dir, a.presets.Len())
	return nil
}

// Presets returns the preset store, opening storage on first use.
func (a *App) Presets() (*preset.Store, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	return a.presets, nil
}

// Layouts returns the layout store, opening storage on first use.
func (a *App) Layouts() (*layout.Store, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	return a.layouts, nil
}

// Layers returns the layer coordinator of this run.
func (a *App) Layers() (*layer.Coordinator, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	return a.layers, nil
}

// Close releases the key-value store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// structured reports whether output goes through the JSON/YAML envelope.
func (a *App) structured() bool {
	return a.jsonOut || a.yamlOut
}

// emit writes data in the selected output mode. human renders the
// terminal form and is skipped for --json and --yaml.
func (a *App) emit(cmd *cobra.Command, data any, human func(w io.Writer)) error {
	switch {
	case a.jsonOut:
		return NewJSONResponse(commandName(cmd), data).Write(a.Out)
	case a.yamlOut:
		return NewJSONResponse(commandName(cmd), data).WriteYAML(a.Out)
	}
	human(a.Out)
	return nil
}

// commandName strips the binary name: "polychat preset list" -> "preset list".
func commandName(cmd *cobra.Command) string {
	if cmd == nil {
		return ""
	}
	path := cmd.CommandPath()
	if i := strings.IndexByte(path, ' '); i >= 0 {
		return path[i+1:]
	}
	return path
}
