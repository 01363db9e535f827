// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Doctor command implementation for polychat.
//
// Command: doctor
// Short:   Run health checks on config and storage
// Aliases: diag
//
// Health Checks Performed:
//   1. Config Valid      - The config file loads and validates
//   2. Storage Opens     - The configured backend opens
//   3. Storage Writable  - A probe key can be written, read back and removed
//   4. Presets Loaded    - Presets, favorites and history are readable
//   5. Layer Bands       - Every category has a band
//   6. Server Address    - server.addr is free to listen on
//   7. Storage Watch     - storage.watch is usable with the backend
//
// Exit Codes:
//   0   No check failed (warnings allowed)
//   1   One or more checks failed
//
// Examples:
//   polychat doctor
//   polychat doctor --json

package cli

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/polychat/internal/config"
	"github.com/jeranaias/polychat/internal/kv"
	"github.com/jeranaias/polychat/internal/layer"
)

var (
	checkPassStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	checkWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	checkFailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Fix suggestion style
	fixStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true).
			PaddingLeft(2)
)

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	CheckWarn
	CheckFail
)

func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its lowercase name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CheckStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pass":
		*s = CheckPass
	case "warn":
		*s = CheckWarn
	case "fail":
		*s = CheckFail
	default:
		return fmt.Errorf("unknown check status %q", text)
	}
	return nil
}

// Symbol returns the status marker used in terminal output.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return checkPassStyle.Render("[OK]")
	case CheckWarn:
		return checkWarnStyle.Render("[!!]")
	case CheckFail:
		return checkFailStyle.Render("[FAIL]")
	default:
		return "?"
	}
}

// HealthCheck is the result of one check.
type HealthCheck struct {
	Name    string      `json:"name" yaml:"name"`
	Status  CheckStatus `json:"status" yaml:"status"`
	Message string      `json:"message" yaml:"message"`
	Fix     string      `json:"fix,omitempty" yaml:"fix,omitempty"` // Suggested command or instruction
}

// Render returns the check as one or two terminal lines.
func (c HealthCheck) Render() string {
	result := fmt.Sprintf("%s %s", c.Status.Symbol(), c.Message)
	if c.Status != CheckPass && c.Fix != "" {
		result += "\n" + fixStyle.Render("-> "+c.Fix)
	}
	return result
}

// DoctorReport is the structured output of "doctor".
type DoctorReport struct {
	Checks  []HealthCheck `json:"checks" yaml:"checks"`
	Passed  int           `json:"passed" yaml:"passed"`
	Warned  int           `json:"warned" yaml:"warned"`
	Failed  int           `json:"failed" yaml:"failed"`
	Healthy bool          `json:"healthy" yaml:"healthy"`
}

// doctorProbeKey is written and removed by the storage write check.
const doctorProbeKey = "doctorProbe"

func newDoctorCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag"},
		Short:   "Run health checks on config and storage",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := newDoctorReport(runChecks(app))
			if report.Healthy {
				return app.emit(cmd, report, func(w io.Writer) {
					printDoctorReport(w, report)
				})
			}

			failure := fmt.Errorf("%d health check(s) failed", report.Failed)
			if !app.structured() {
				printDoctorReport(app.Out, report)
				return failure
			}
			// The report carries the failure; Run must not print a second envelope.
			resp := NewJSONResponse(commandName(cmd), report)
			msg := failure.Error()
			resp.Success = false
			resp.Error = &msg
			if app.jsonOut {
				err := resp.Write(app.Out)
				return errors.Join(errReported, err)
			}
			err := resp.WriteYAML(app.Out)
			return errors.Join(errReported, err)
		},
	}
}

func newDoctorReport(checks []HealthCheck) DoctorReport {
	report := DoctorReport{Checks: checks}
	for _, c := range checks {
		switch c.Status {
		case CheckPass:
			report.Passed++
		case CheckWarn:
			report.Warned++
		case CheckFail:
			report.Failed++
		}
	}
	report.Healthy = report.Failed == 0
	return report
}

func printDoctorReport(w io.Writer, report DoctorReport) {
	fmt.Fprintln(w, TitleStyle.Render("polychat Doctor"))
	fmt.Fprintln(w, RenderSeparator(41))
	for _, c := range report.Checks {
		fmt.Fprintln(w, c.Render())
	}
	fmt.Fprintln(w, RenderSeparator(41))

	parts := []string{fmt.Sprintf("%d passed", report.Passed)}
	if report.Warned > 0 {
		parts = append(parts, checkWarnStyle.Render(fmt.Sprintf("%d warning", report.Warned)))
	}
	if report.Failed > 0 {
		parts = append(parts, checkFailStyle.Render(fmt.Sprintf("%d failed", report.Failed)))
	}
	fmt.Fprintln(w, DimStyle.Render(strings.Join(parts, ", ")))
}

// =============================================================================
// HEALTH CHECK FUNCTIONS
// =============================================================================

// runChecks stops after the first check that leaves nothing to inspect.
func runChecks(app *App) []HealthCheck {
	cfg, err := app.Config()
	if err != nil {
		return []HealthCheck{{
			Name:    "config",
			Status:  CheckFail,
			Message: err.Error(),
			Fix:     "polychat config reset --yes",
		}}
	}
	checks := []HealthCheck{{Name: "config", Status: CheckPass, Message: "Configuration valid"}}

	checks = append(checks, checkStorageOpen(app, cfg))
	if app.store == nil {
		return checks
	}
	checks = append(checks,
		checkStorageWritable(app.store),
		checkPresets(app),
		checkLayerBands(app.layers.Table()),
		checkServerAddr(cfg.Server.Addr),
		checkWatch(cfg),
	)
	return checks
}

func checkStorageOpen(app *App, cfg *config.Config) HealthCheck {
	check := HealthCheck{Name: "storage"}
	if err := app.open(); err != nil {
		check.Status = CheckFail
		check.Message = err.Error()
		check.Fix = "polychat config set storage.data_dir <writable dir>"
		return check
	}
	switch cfg.Storage.Backend {
	case kv.BackendMemory:
		check.Status = CheckWarn
		check.Message = "Memory storage: changes are lost on exit"
		check.Fix = "polychat config set storage.backend file"
	default:
		opts, _ := cfg.KVOptions()
		check.Status = CheckPass
		check.Message = fmt.Sprintf("%s storage at %s", cfg.Storage.Backend, opts.Dir)
	}
	return check
}

func checkStorageWritable(store kv.Store) HealthCheck {
	check := HealthCheck{Name: "storage-write", Fix: "check permissions of the data directory"}
	fail := func(step string, err error) HealthCheck {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Storage %s failed: %v", step, err)
		return check
	}

	if err := store.Set(doctorProbeKey, "ok"); err != nil {
		return fail("write", err)
	}
	value, ok, err := store.Get(doctorProbeKey)
	if err != nil {
		return fail("read", err)
	}
	if !ok || value != "ok" {
		return fail("read", errors.New("probe value not returned"))
	}
	if err := store.Remove(doctorProbeKey); err != nil {
		return fail("remove", err)
	}
	check.Status = CheckPass
	check.Message = "Storage writable"
	check.Fix = ""
	return check
}

func checkPresets(app *App) HealthCheck {
	presets := app.presets.Presets()
	if len(presets) == 0 {
		return HealthCheck{
			Name:    "presets",
			Status:  CheckWarn,
			Message: "No presets saved",
			Fix:     "polychat preset reset --yes",
		}
	}
	return HealthCheck{
		Name:   "presets",
		Status: CheckPass,
		Message: fmt.Sprintf("%d presets, %d favorites, %d versions in history",
			len(presets), len(app.presets.Favorites()), app.presets.HistoryLen()),
	}
}

func checkLayerBands(table layer.Table) HealthCheck {
	if err := table.Validate(); err != nil {
		return HealthCheck{Name: "layers", Status: CheckFail, Message: err.Error(), Fix: "polychat config show"}
	}
	lowest := table[layer.Categories[0]]
	highest := table[layer.Categories[len(layer.Categories)-1]]
	return HealthCheck{
		Name:   "layers",
		Status: CheckPass,
		Message: fmt.Sprintf("%d layer bands, %d to %d",
			len(layer.Categories), lowest.Base, highest.Base+highest.Span),
	}
}

func checkServerAddr(addr string) HealthCheck {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return HealthCheck{
			Name:    "server",
			Status:  CheckWarn,
			Message: fmt.Sprintf("Cannot listen on %s: %v", addr, err),
			Fix:     "polychat serve --addr 127.0.0.1:<free port>",
		}
	}
	_ = ln.Close()
	return HealthCheck{Name: "server", Status: CheckPass, Message: "Server address " + addr + " available"}
}

func checkWatch(cfg *config.Config) HealthCheck {
	if cfg.Storage.Watch && cfg.Storage.Backend != kv.BackendFile {
		return HealthCheck{
			Name:    "watch",
			Status:  CheckWarn,
			Message: fmt.Sprintf("storage.watch has no effect with the %s backend", cfg.Storage.Backend),
			Fix:     "polychat config set storage.watch false",
		}
	}
	return HealthCheck{Name: "watch", Status: CheckPass, Message: fmt.Sprintf("Storage watch %s", onOff(cfg.Storage.Watch))}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
