package analytics

import (
	"context"
	"time"

	"github.com/artpar/stencil/internal/core/maintenance"
)

// =============================================================================
// Records
// =============================================================================

// UsageEvent records a single template operation.
type UsageEvent struct {
	Template    string         // Template ID, e.g. "apps/python/fastapi"
	Action      string         // "generate", "validate", "build", "test"
	Success     bool
	Parameters  map[string]any // Parameter values supplied by the caller
	Duration    time.Duration
	ImageSizeMB float64        // Built image size, zero when unknown
	Error       string         // Error message for failed operations
	Timestamp   time.Time      // Zero means "now"
}

// Metric records a single measured value for a template.
type Metric struct {
	Template  string
	Type      string // e.g. "build_time", "image_size"
	Value     float64
	Metadata  map[string]any
	Timestamp time.Time // Zero means "now"
}

// StoredAlert is a maintenance alert as persisted, with resolution state.
type StoredAlert struct {
	ID         string
	Alert      maintenance.Alert
	Resolved   bool
	Notes      string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// CacheEntry is a cached AI response keyed by a content hash.
type CacheEntry struct {
	Key      string // SHA-256 hex digest of provider, model and prompt
	Provider string
	Model    string
	Response string
	TTL      time.Duration
}

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the interface for analytics persistence.
type Store interface {
	// Usage operations
	LogUsage(ctx context.Context, event UsageEvent) error
	UsageStats(ctx context.Context, template string, window time.Duration) (maintenance.UsageStats, error)
	AverageImageMB(ctx context.Context, template string, window time.Duration) (float64, error)
	DistinctTemplates(ctx context.Context, window time.Duration) ([]string, error)

	// Metric operations
	LogMetric(ctx context.Context, metric Metric) error
	MetricAverage(ctx context.Context, template, metricType string, window time.Duration) (float64, error)

	// Alert operations
	CreateAlert(ctx context.Context, alert maintenance.Alert) (string, error)
	ListOpenAlerts(ctx context.Context, template string) ([]StoredAlert, error)
	ResolveAlert(ctx context.Context, id, notes string) error

	// AI cache operations
	CacheGet(ctx context.Context, key string) (string, bool, error)
	CachePut(ctx context.Context, entry CacheEntry) error
	PurgeExpired(ctx context.Context) (int64, error)

	// WithTx runs a function within a transaction.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Close closes the store and releases resources.
	Close() error
}
