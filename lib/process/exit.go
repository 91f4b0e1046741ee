// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for fatal preconditions. ExitLocked matches zypper's own
// ZYPPER_EXIT_ZYPP_LOCKED status so callers see the familiar code
// whether zypper or zypperoni detected the conflict.
const (
	ExitOK            = 0
	ExitGeneric       = 1
	ExitNotRoot       = 4
	ExitMissingHelper = 5
	ExitLocked        = 7
	ExitPlanFailed    = 8
)

// ExitError carries an exit code up to main() alongside the cause.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exitf wraps a formatted error with an exit code.
func Exitf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode extracts the exit code from an error chain. Errors without
// an ExitError in the chain map to ExitGeneric; nil maps to ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneric
}

// Fatal writes "error: err" to stderr and exits with the error's code.
// Use it in main() for errors from run() where the structured logger
// may not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(ExitCode(err))
}
