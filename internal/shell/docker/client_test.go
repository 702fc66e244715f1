package docker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func skipIfNoDocker(t *testing.T) Client {
	t.Helper()
	cli, err := NewDockerClient("")
	if err != nil {
		t.Skip("Docker not available:", err)
	}
	if err := cli.Ping(context.Background()); err != nil {
		cli.Close()
		t.Skip("Docker not reachable:", err)
	}
	return cli
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestNewDockerClient_Success(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	assert.NotNil(t, cli)
}

func TestPing_Success(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	err := cli.Ping(context.Background())
	assert.NoError(t, err)
}

// =============================================================================
// Image Tests
// =============================================================================

func TestImageExists_MissingImage(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	exists, err := cli.ImageExists(context.Background(), "stencil-test-missing:none")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestImageSize_MissingImage(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	_, err := cli.ImageSize(context.Background(), "stencil-test-missing:none")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageNotFound)
}

// =============================================================================
// Error Tests
// =============================================================================

func TestDockerError_Format(t *testing.T) {
	withRef := NewDockerError("inspect image", "web:1.0", ErrImageNotFound)
	assert.Equal(t, "inspect image web:1.0: image not found", withRef.Error())
	assert.ErrorIs(t, withRef, ErrImageNotFound)

	daemonLevel := NewDockerError("ping daemon", "", ErrConnectionFailed)
	assert.Equal(t, "ping daemon: docker connection failed", daemonLevel.Error())
	assert.ErrorIs(t, daemonLevel, ErrConnectionFailed)
}

// =============================================================================
// Mock Tests
// =============================================================================

func TestMockClient_Defaults(t *testing.T) {
	mock := &MockClient{}
	ctx := context.Background()

	assert.NoError(t, mock.Ping(ctx))

	exists, err := mock.ImageExists(ctx, "anything:latest")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = mock.ImageSize(ctx, "anything:latest")
	assert.ErrorIs(t, err, ErrImageNotFound)

	assert.NoError(t, mock.Close())
}

func TestMockClient_Overrides(t *testing.T) {
	pingErr := errors.New("daemon down")
	mock := &MockClient{
		PingFunc: func(ctx context.Context) error { return pingErr },
		ImageSizeFunc: func(ctx context.Context, ref string) (int64, error) {
			return 52428800, nil
		},
	}
	ctx := context.Background()

	assert.ErrorIs(t, mock.Ping(ctx), pingErr)

	size, err := mock.ImageSize(ctx, "python-web:latest")
	require.NoError(t, err)
	assert.Equal(t, int64(52428800), size)
}
