package docker

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrImageNotFound is returned when an image is not present locally.
	ErrImageNotFound = errors.New("image not found")

	// ErrConnectionFailed is returned when the daemon cannot be reached.
	ErrConnectionFailed = errors.New("docker connection failed")
)

// DockerError carries the failed operation and, for image operations, the
// image reference.
type DockerError struct {
	Op  string
	Ref string
	Err error
}

func (e *DockerError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DockerError) Unwrap() error {
	return e.Err
}

// NewDockerError creates a new DockerError.
func NewDockerError(op, ref string, err error) *DockerError {
	return &DockerError{Op: op, Ref: ref, Err: err}
}
