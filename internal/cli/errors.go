// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes shared by every command.
//
// Commands always return errors; Execute prints them once and turns them
// into an exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jeranaias/polychat/internal/config"
	"github.com/jeranaias/polychat/internal/layer"
	"github.com/jeranaias/polychat/internal/layout"
	"github.com/jeranaias/polychat/internal/preset"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

var (
	// ErrConfig wraps every failure to load or save the configuration.
	ErrConfig = errors.New("configuration error")
	// ErrAmbiguous is returned when a preset reference matches several presets.
	ErrAmbiguous = errors.New("ambiguous reference")
	// ErrNotConfirmed is returned when a destructive command lacks --yes.
	ErrNotConfirmed = errors.New("not confirmed")

	// errReported marks an error whose command already wrote its own
	// structured output.
	errReported = errors.New("already reported")
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents invalid command-line input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// =============================================================================
// DISPLAY AND EXIT CODES
// =============================================================================

// DisplayError writes err in the format of the current output mode.
func DisplayError(w io.Writer, command string, err error, jsonMode, yamlMode bool) {
	if err == nil {
		return
	}
	switch {
	case jsonMode:
		_ = NewJSONErrorResponse(command, err).Write(w)
	case yamlMode:
		_ = NewJSONErrorResponse(command, err).WriteYAML(w)
	default:
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	}
}

// GetExitCode maps an error onto an exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var configErrs config.ValidationErrors
	var opErr *net.OpError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, ErrAmbiguous),
		errors.Is(err, ErrNotConfirmed),
		errors.Is(err, preset.ErrEmptyName),
		errors.Is(err, preset.ErrNoModels),
		errors.Is(err, preset.ErrIndexOutOfRange),
		errors.Is(err, preset.ErrInvalidImport),
		errors.Is(err, preset.ErrInvalidShare),
		errors.Is(err, preset.ErrUnknownSort),
		errors.Is(err, preset.ErrInvalidPattern),
		errors.Is(err, preset.ErrCategoryExists),
		errors.Is(err, preset.ErrDefaultCategory),
		errors.Is(err, layer.ErrUnknownCategory),
		errors.Is(err, layout.ErrEmptyName),
		errors.Is(err, layout.ErrNoWindows),
		errors.Is(err, layout.ErrInvalidWindow):
		return ExitUsageError
	case errors.Is(err, ErrConfig), errors.As(err, &configErrs):
		return ExitConfigError
	case errors.Is(err, preset.ErrNotFound),
		errors.Is(err, preset.ErrUnknownCategory),
		errors.Is(err, layout.ErrNotFound):
		return ExitNotFoundError
	case errors.As(err, &opErr):
		return ExitNetworkError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	}
	return ExitGeneralError
}
