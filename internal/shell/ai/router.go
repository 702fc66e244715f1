package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/artpar/stencil/internal/shell/analytics"
)

// =============================================================================
// Router
// =============================================================================

// RouterConfig holds configuration for provider routing.
type RouterConfig struct {
	// Default is the preferred provider name. Empty means the first
	// registered provider.
	Default string

	// CacheTTL is how long completions stay cached. Default: 24 hours.
	CacheTTL time.Duration
}

// DefaultRouterConfig returns the default router configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CacheTTL: 24 * time.Hour,
	}
}

// Router dispatches chat calls to the preferred available provider and
// caches completions in the analytics store. A nil cache disables caching.
type Router struct {
	providers []Provider
	config    RouterConfig
	cache     analytics.Store
	logger    *slog.Logger
}

// NewRouter creates a router over the given providers in preference order.
func NewRouter(providers []Provider, config RouterConfig, cache analytics.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultRouterConfig().CacheTTL
	}
	return &Router{
		providers: providers,
		config:    config,
		cache:     cache,
		logger:    logger,
	}
}

// Pick returns the default provider when it is available, otherwise the
// first available provider in registration order.
func (r *Router) Pick(ctx context.Context) (Provider, error) {
	var preferred Provider
	for _, p := range r.providers {
		if p.Name() == r.config.Default {
			preferred = p
			break
		}
	}
	if preferred != nil && preferred.Available(ctx) {
		return preferred, nil
	}

	for _, p := range r.providers {
		if p == preferred {
			continue
		}
		if p.Available(ctx) {
			if preferred != nil {
				r.logger.Info("falling back to provider", "provider", p.Name(), "default", r.config.Default)
			}
			return p, nil
		}
	}

	return nil, ErrNoProvider
}

// Chat routes a conversation to the picked provider, consulting the cache
// first. Cache failures never fail the call; they only cost the caching.
func (r *Router) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	provider, err := r.Pick(ctx)
	if err != nil {
		return nil, err
	}

	key := cacheKey(provider.Name(), opts.Model, messages)

	if r.cache != nil {
		if resp, ok := r.cacheGet(ctx, key); ok {
			r.logger.Debug("completion cache hit", "provider", provider.Name(), "key", key)
			return resp, nil
		}
	}

	resp, err := provider.Chat(ctx, messages, opts)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cachePut(ctx, key, resp)
	}

	return resp, nil
}

func (r *Router) cacheGet(ctx context.Context, key string) (*Response, bool) {
	raw, ok, err := r.cache.CacheGet(ctx, key)
	if err != nil {
		r.logger.Warn("completion cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		r.logger.Warn("completion cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	resp.Cached = true
	return &resp, true
}

func (r *Router) cachePut(ctx context.Context, key string, resp *Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		r.logger.Warn("completion cache encode failed", "key", key, "error", err)
		return
	}

	err = r.cache.CachePut(ctx, analytics.CacheEntry{
		Key:      key,
		Provider: resp.Provider,
		Model:    resp.Model,
		Response: string(raw),
		TTL:      r.config.CacheTTL,
	})
	if err != nil {
		r.logger.Warn("completion cache write failed", "key", key, "error", err)
	}
}

// cacheKey digests provider, model and the full conversation. NUL separators
// keep adjacent fields from aliasing.
func cacheKey(provider, model string, messages []Message) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	for _, msg := range messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte{0})
		h.Write([]byte(msg.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
