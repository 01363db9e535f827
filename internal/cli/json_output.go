// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Structured output for --json and --yaml.
//
// Every command reports through the same envelope so scripts can check
// "success" without knowing the command.

package cli

import (
	"encoding/json"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// JSONResponse is the envelope of all structured output.
type JSONResponse struct {
	// Success indicates whether the command completed successfully.
	Success bool `json:"success" yaml:"success"`

	// Data contains the command-specific response data.
	Data any `json:"data" yaml:"data"`

	// Error contains the error message if Success is false, null otherwise.
	Error *string `json:"error" yaml:"error"`

	// Timestamp is the RFC 3339 time the response was generated.
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// Command is the command that was executed, e.g. "preset list".
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response as indented JSON.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// WriteYAML encodes the response as YAML.
func (r *JSONResponse) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(r); err != nil {
		return err
	}
	return encoder.Close()
}
