// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.
//
// One rule for every command that throws data away:
//   1. --yes proceeds without prompting
//   2. --json and --yaml require --yes (no prompts in structured output)
//   3. stdin that is not a terminal requires --yes
//   4. otherwise ask "[y/N]" on stderr

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// confirm returns nil when action may proceed and an ErrNotConfirmed
// error otherwise.
func (a *App) confirm(yes bool, action string) error {
	if yes {
		return nil
	}
	if a.structured() {
		return fmt.Errorf("%w: pass --yes to %s with --json or --yaml", ErrNotConfirmed, action)
	}
	if !a.Interactive {
		return fmt.Errorf("%w: stdin is not a terminal, pass --yes to %s", ErrNotConfirmed, action)
	}

	fmt.Fprintf(a.ErrOut, "Are you sure you want to %s? [y/N]: ", action)
	input, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return nil
	}
	return fmt.Errorf("%w: cancelled", ErrNotConfirmed)
}
