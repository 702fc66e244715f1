package main

import (
	"errors"
	"fmt"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitConfigError     = 2
	ExitTemplateError   = 3
	ExitValidationError = 4
	ExitDockerError     = 5
	ExitAIError         = 6
	ExitDatabaseError   = 7
)

// =============================================================================
// Command Errors
// =============================================================================

// CommandError wraps an error with the operation that failed and the process
// exit code it maps to.
type CommandError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// exitCode extracts the exit code from an error. Errors that carry no code,
// including cobra's own usage errors, map to the general failure code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return ExitGeneralError
}
