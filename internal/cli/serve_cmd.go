// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - Serve command implementation for polychat.
//
// Command: serve
// Short:   Run the local HTTP API
//
// With the file backend and storage.watch enabled, edits made to the data
// directory by another process are reloaded while the server runs.
//
// Examples:
//   polychat serve
//   polychat serve --addr 127.0.0.1:9000
//   polychat serve --ephemeral --no-watch

package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/polychat/internal/kv"
	"github.com/jeranaias/polychat/internal/server"
)

// shutdownTimeout bounds graceful shutdown after SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var (
		addr    string
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The server always logs to stderr.
			app.verbose = true
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := app.open(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := app.Logger()
			if cfg.Storage.Watch && !noWatch {
				if err := watchStorage(ctx, app, logger); err != nil {
					logger.Printf("WATCH_DISABLED | error=%v", err)
				}
			}

			srv := server.New(server.Options{
				Presets:             app.presets,
				Layers:              app.layers,
				Layouts:             app.layouts,
				Config:              cfg.Server,
				ShareBaseURL:        cfg.Presets.ShareBaseURL,
				RecommendationLimit: cfg.Presets.RecommendationLimit,
				Logger:              logger,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload on external changes")
	return cmd
}

// watchStorage reloads the stores when another process rewrites their keys.
// Only the file backend can be watched.
func watchStorage(ctx context.Context, app *App, logger *log.Logger) error {
	fs, ok := app.store.(*kv.FileStore)
	if !ok {
		return errors.New("storage backend does not support watching")
	}
	return fs.Watch(ctx, kv.DefaultWatchDebounce, func(key string) {
		switch key {
		case kv.KeyWindowLayoutPresets:
			app.layouts.Reload()
		case kv.KeyQuickPresets, kv.KeyPresetUsageStats, kv.KeyPresetVersionHistory, kv.KeyPresetCategories:
			app.presets.Reload()
		default:
			return
		}
		logger.Printf("STORAGE_RELOAD | key=%s", key)
	})
}
