// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error display and exit codes for chatstore commands.
//
// Commands always return errors; Execute displays them once and maps them
// to an exit code by category.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/jeranaias/chatstore/internal/config"
	"github.com/jeranaias/chatstore/internal/export"
	"github.com/jeranaias/chatstore/internal/session"
	"github.com/jeranaias/chatstore/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid arguments or input documents
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitStoreUnavailable indicates the chat store could not be opened
	ExitStoreUnavailable = 4
	// ExitPersistError indicates a write did not commit
	ExitPersistError = 5
	// ExitNotFoundError indicates the session was not found
	ExitNotFoundError = 7
)

// ErrUsage marks invalid command usage.
var ErrUsage = errors.New("invalid usage")

// usageErr marks err as a usage error.
func usageErr(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUsage)
}

// GetExitCode maps an error to its exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var verrs config.ValidateErrors
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return ExitNotFoundError
	case errors.Is(err, storage.ErrStoreUnavailable):
		return ExitStoreUnavailable
	case errors.Is(err, session.ErrPersistFailed),
		errors.Is(err, storage.ErrConstraintViolation),
		errors.Is(err, storage.ErrStore):
		return ExitPersistError
	case errors.As(err, &verrs):
		return ExitConfigError
	case errors.Is(err, ErrUsage),
		errors.Is(err, ErrConfirmationRequired),
		errors.Is(err, session.ErrInvalidTimestamp),
		errors.Is(err, session.ErrEmptyDescription),
		errors.Is(err, session.ErrMessageNotFound),
		errors.Is(err, session.ErrMissingID),
		errors.Is(err, export.ErrInvalidDocument):
		return ExitUsageError
	default:
		return ExitGeneralError
	}
}

// errorType names the category of err for JSON output.
func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitNotFoundError:
		return "not_found"
	case ExitStoreUnavailable:
		return "store_unavailable"
	case ExitPersistError:
		return "persist_failed"
	case ExitConfigError:
		return "config_error"
	case ExitUsageError:
		return "usage_error"
	default:
		return "error"
	}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, followed by any hints attached to it.
// In JSON mode the error is written as a JSON object instead.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	hints := errors.GetAllHints(err)

	if jsonMode {
		output := map[string]interface{}{
			"success":    false,
			"error":      err.Error(),
			"error_type": errorType(err),
		}
		if len(hints) > 0 {
			output["hints"] = hints
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(output)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	for _, hint := range hints {
		for _, line := range strings.Split(hint, "\n") {
			fmt.Fprintf(w, "  %s\n", DimStyle.Render("hint: "+line))
		}
	}
}
