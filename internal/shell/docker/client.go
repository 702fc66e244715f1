// Package docker wraps the Docker SDK surface the toolkit needs: daemon
// availability and built-image inspection for recording size metrics.
package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
)

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the Docker operations used by the test harness.
type Client interface {
	// Ping checks that the Docker daemon is reachable.
	Ping(ctx context.Context) error

	// ImageSize returns the size in bytes of a local image.
	ImageSize(ctx context.Context, ref string) (int64, error)

	// ImageExists checks if an image exists locally.
	ImageExists(ctx context.Context, ref string) (bool, error)

	// Close closes the client connection.
	Close() error
}

// =============================================================================
// Docker Client Implementation
// =============================================================================

// DockerClient implements Client using the Docker SDK.
type DockerClient struct {
	cli *client.Client
}

// NewDockerClient creates a new Docker client.
// If host is empty, it uses the default Docker host from environment.
func NewDockerClient(host string) (*DockerClient, error) {
	var opts []client.Opt
	opts = append(opts, client.FromEnv)
	opts = append(opts, client.WithAPIVersionNegotiation())

	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("create client", "", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}

	return &DockerClient{cli: cli}, nil
}

// Ping checks if the Docker daemon is reachable.
func (d *DockerClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return NewDockerError("ping daemon", "", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}
	return nil
}

// ImageSize returns the size in bytes of a local image.
func (d *DockerClient) ImageSize(ctx context.Context, ref string) (int64, error) {
	inspect, _, err := d.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if client.IsErrNotFound(err) {
			return 0, NewDockerError("inspect image", ref, ErrImageNotFound)
		}
		return 0, NewDockerError("inspect image", ref, err)
	}

	return inspect.Size, nil
}

// ImageExists checks if an image exists locally.
func (d *DockerClient) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, _, err := d.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, NewDockerError("inspect image", ref, err)
	}

	return true, nil
}

// Close closes the Docker client connection.
func (d *DockerClient) Close() error {
	return d.cli.Close()
}
