package buildx

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrBuildxUnavailable is returned when the docker buildx plugin is not
	// installed or not functional.
	ErrBuildxUnavailable = errors.New("docker buildx is not available")

	// ErrNoReferences is returned when a manifest is requested with no
	// per-platform image references.
	ErrNoReferences = errors.New("no image references for manifest")
)

// CommandError wraps a failed docker invocation with its combined output.
type CommandError struct {
	Op     string   // Operation that failed
	Args   []string // docker argv
	Output string   // trimmed combined output
	Err    error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: docker %s: %s", e.Op, strings.Join(e.Args, " "), e.Output)
	}
	return fmt.Sprintf("%s: docker %s: %v", e.Op, strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(op string, args []string, output []byte, err error) *CommandError {
	return &CommandError{
		Op:     op,
		Args:   args,
		Output: strings.TrimSpace(string(output)),
		Err:    err,
	}
}
