// Package buildx drives the docker CLI for multi-platform image builds.
// This is part of the Imperative Shell - the argv assembly it executes
// comes from the pure buildplan package.
package buildx

import (
	"context"
	"os/exec"
)

// =============================================================================
// Runner
// =============================================================================

// Runner abstracts docker command execution for testability.
type Runner interface {
	// Run executes the docker binary with args and returns its combined
	// output.
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner implements Runner using the real docker binary.
type ExecRunner struct {
	// Binary is the docker executable to invoke; empty means "docker".
	Binary string
}

func (r *ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = "docker"
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.CombinedOutput()
}
