package docker

import "context"

// =============================================================================
// Mock Client
// =============================================================================

// MockClient is a configurable Client for tests. Unset functions fall back
// to benign defaults: a reachable daemon and no local images.
type MockClient struct {
	PingFunc        func(ctx context.Context) error
	ImageSizeFunc   func(ctx context.Context, ref string) (int64, error)
	ImageExistsFunc func(ctx context.Context, ref string) (bool, error)
	CloseFunc       func() error
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockClient) ImageSize(ctx context.Context, ref string) (int64, error) {
	if m.ImageSizeFunc != nil {
		return m.ImageSizeFunc(ctx, ref)
	}
	return 0, NewDockerError("inspect image", ref, ErrImageNotFound)
}

func (m *MockClient) ImageExists(ctx context.Context, ref string) (bool, error) {
	if m.ImageExistsFunc != nil {
		return m.ImageExistsFunc(ctx, ref)
	}
	return false, nil
}

func (m *MockClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
