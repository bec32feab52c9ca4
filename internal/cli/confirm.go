// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation handling for destructive chatstore commands.
//
// The flow is the same for every destructive command:
//  1. --confirm proceeds without prompting
//  2. --json requires --confirm (no prompts in JSON mode)
//  3. a non-TTY stdin requires --confirm
//  4. otherwise the user is prompted

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrConfirmationRequired is returned when a destructive command cannot
// prompt and --confirm was not given.
var ErrConfirmationRequired = errors.New("confirmation required")

// ConfirmationOptions describes how a confirmation may be obtained.
type ConfirmationOptions struct {
	// ConfirmFlag indicates --confirm was passed.
	ConfirmFlag bool
	// JSONMode indicates --json was passed.
	JSONMode bool
	// Interactive reports whether the user can be prompted. Default: IsTTY.
	Interactive func() bool
}

// Confirmer prompts on out and reads the answer from in.
type Confirmer struct {
	in  io.Reader
	out io.Writer
}

// NewConfirmer returns a Confirmer reading from in and prompting on out.
func NewConfirmer(in io.Reader, out io.Writer) *Confirmer {
	return &Confirmer{in: in, out: out}
}

// RequireWithDetails checks that the user confirmed action, showing details
// before the prompt. It returns false, nil when the user declines.
func (c *Confirmer) RequireWithDetails(action string, details [][2]string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}
	if opts.JSONMode {
		return false, errors.WithHint(
			errors.Wrap(ErrConfirmationRequired, "JSON mode never prompts"),
			"pass --confirm",
		)
	}
	interactive := opts.Interactive
	if interactive == nil {
		interactive = IsTTY
	}
	if !interactive() {
		return false, errors.WithHint(
			errors.Wrap(ErrConfirmationRequired, "stdin is not a terminal"),
			"pass --confirm",
		)
	}

	if len(details) > 0 {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, WarningStyle.Render("WARNING: Destructive Action"))
		fmt.Fprintln(c.out, RenderSeparator(50))
		for _, d := range details {
			fmt.Fprintf(c.out, "  %s%s\n", RenderLabel(d[0]+":"), d[1])
		}
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, ErrorStyle.Render("This action cannot be undone."))
	}
	fmt.Fprintf(c.out, "Are you sure you want to %s? [y/N]: ", action)

	input, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && input == "" {
		return false, errors.Wrap(err, "read confirmation")
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}

// ShowCancellationMessage reports a declined confirmation.
func ShowCancellationMessage(out io.Writer) {
	fmt.Fprintln(out, DimStyle.Render("Cancelled."))
}
