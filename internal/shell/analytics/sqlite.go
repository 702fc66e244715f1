package analytics

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/artpar/stencil/internal/core/maintenance"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	// Open database connection
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("open database", "", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("ping database", "", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}

	// Run migrations
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("run migrations", "", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// formatTime renders a timestamp so that lexicographic order matches
// chronological order across rows.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// =============================================================================
// Usage Operations
// =============================================================================

func (s *SQLiteStore) LogUsage(ctx context.Context, event UsageEvent) error {
	return logUsage(ctx, s.db, s.now(), event)
}

func (s *SQLiteStore) UsageStats(ctx context.Context, template string, window time.Duration) (maintenance.UsageStats, error) {
	return usageStats(ctx, s.db, s.now(), template, window)
}

func (s *SQLiteStore) AverageImageMB(ctx context.Context, template string, window time.Duration) (float64, error) {
	return averageImageMB(ctx, s.db, s.now(), template, window)
}

func (s *SQLiteStore) DistinctTemplates(ctx context.Context, window time.Duration) ([]string, error) {
	return distinctTemplates(ctx, s.db, s.now(), window)
}

// =============================================================================
// Metric Operations
// =============================================================================

func (s *SQLiteStore) LogMetric(ctx context.Context, metric Metric) error {
	return logMetric(ctx, s.db, s.now(), metric)
}

func (s *SQLiteStore) MetricAverage(ctx context.Context, template, metricType string, window time.Duration) (float64, error) {
	return metricAverage(ctx, s.db, s.now(), template, metricType, window)
}

// =============================================================================
// Alert Operations
// =============================================================================

// alertRow represents a maintenance alert row in the database.
type alertRow struct {
	ID              string  `db:"id"`
	TemplateName    string  `db:"template_name"`
	Severity        string  `db:"severity"`
	Category        string  `db:"category"`
	Title           string  `db:"title"`
	Description     string  `db:"description"`
	Action          string  `db:"recommended_action"`
	Confidence      float64 `db:"confidence"`
	Resolved        bool    `db:"resolved"`
	ResolutionNotes *string `db:"resolution_notes"`
	CreatedAt       string  `db:"created_at"`
	ResolvedAt      *string `db:"resolved_at"`
}

func (s *SQLiteStore) CreateAlert(ctx context.Context, alert maintenance.Alert) (string, error) {
	return createAlert(ctx, s.db, s.now(), alert)
}

func (s *SQLiteStore) ListOpenAlerts(ctx context.Context, template string) ([]StoredAlert, error) {
	return listOpenAlerts(ctx, s.db, template)
}

func (s *SQLiteStore) ResolveAlert(ctx context.Context, id, notes string) error {
	return resolveAlert(ctx, s.db, s.now(), id, notes)
}

// =============================================================================
// AI Cache Operations
// =============================================================================

func (s *SQLiteStore) CacheGet(ctx context.Context, key string) (string, bool, error) {
	return cacheGet(ctx, s.db, s.now(), key)
}

func (s *SQLiteStore) CachePut(ctx context.Context, entry CacheEntry) error {
	return cachePut(ctx, s.db, s.now(), entry)
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	return purgeExpired(ctx, s.db, s.now())
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("begin transaction", "", fmt.Errorf("%w: %v", ErrTxFailed, err))
	}

	txS := &txSQLiteStore{tx: tx, now: s.now}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("rollback transaction", "", fmt.Errorf("%w: %v (after: %v)", ErrTxFailed, rbErr, err))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("commit transaction", "", fmt.Errorf("%w: %v", ErrTxFailed, err))
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx  *sqlx.Tx
	now func() time.Time
}

func (s *txSQLiteStore) LogUsage(ctx context.Context, event UsageEvent) error {
	return logUsage(ctx, s.tx, s.now(), event)
}

func (s *txSQLiteStore) UsageStats(ctx context.Context, template string, window time.Duration) (maintenance.UsageStats, error) {
	return usageStats(ctx, s.tx, s.now(), template, window)
}

func (s *txSQLiteStore) AverageImageMB(ctx context.Context, template string, window time.Duration) (float64, error) {
	return averageImageMB(ctx, s.tx, s.now(), template, window)
}

func (s *txSQLiteStore) DistinctTemplates(ctx context.Context, window time.Duration) ([]string, error) {
	return distinctTemplates(ctx, s.tx, s.now(), window)
}

func (s *txSQLiteStore) LogMetric(ctx context.Context, metric Metric) error {
	return logMetric(ctx, s.tx, s.now(), metric)
}

func (s *txSQLiteStore) MetricAverage(ctx context.Context, template, metricType string, window time.Duration) (float64, error) {
	return metricAverage(ctx, s.tx, s.now(), template, metricType, window)
}

func (s *txSQLiteStore) CreateAlert(ctx context.Context, alert maintenance.Alert) (string, error) {
	return createAlert(ctx, s.tx, s.now(), alert)
}

func (s *txSQLiteStore) ListOpenAlerts(ctx context.Context, template string) ([]StoredAlert, error) {
	return listOpenAlerts(ctx, s.tx, template)
}

func (s *txSQLiteStore) ResolveAlert(ctx context.Context, id, notes string) error {
	return resolveAlert(ctx, s.tx, s.now(), id, notes)
}

func (s *txSQLiteStore) CacheGet(ctx context.Context, key string) (string, bool, error) {
	return cacheGet(ctx, s.tx, s.now(), key)
}

func (s *txSQLiteStore) CachePut(ctx context.Context, entry CacheEntry) error {
	return cachePut(ctx, s.tx, s.now(), entry)
}

func (s *txSQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	return purgeExpired(ctx, s.tx, s.now())
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

func logUsage(ctx context.Context, exec executor, now time.Time, event UsageEvent) error {
	var paramsJSON *string
	if event.Parameters != nil {
		encoded, err := json.Marshal(event.Parameters)
		if err != nil {
			return NewStoreError("serialize usage parameters", event.Template, fmt.Errorf("%w: %v", ErrInvalidData, err))
		}
		text := string(encoded)
		paramsJSON = &text
	}

	var errorMessage *string
	if event.Error != "" {
		errorMessage = &event.Error
	}

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}

	query := `
		INSERT INTO template_usage (
			id, template_name, action, success, parameters,
			duration_seconds, image_size_mb, error_message, created_at
		) VALUES (
			:id, :template_name, :action, :success, :parameters,
			:duration_seconds, :image_size_mb, :error_message, :created_at
		)`

	row := map[string]any{
		"id":               uuid.NewString(),
		"template_name":    event.Template,
		"action":           event.Action,
		"success":          event.Success,
		"parameters":       paramsJSON,
		"duration_seconds": event.Duration.Seconds(),
		"image_size_mb":    event.ImageSizeMB,
		"error_message":    errorMessage,
		"created_at":       formatTime(timestamp),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		return NewStoreError("insert usage", event.Template, err)
	}

	return nil
}

func usageStats(ctx context.Context, exec executor, now time.Time, template string, window time.Duration) (maintenance.UsageStats, error) {
	stats := maintenance.UsageStats{Template: template}
	since := formatTime(now.Add(-window))

	var totals struct {
		Total       int             `db:"total"`
		SuccessRate sql.NullFloat64 `db:"success_rate"`
		AvgDuration sql.NullFloat64 `db:"avg_duration"`
		LastUsed    sql.NullString  `db:"last_used"`
	}
	query := `
		SELECT
			COUNT(*) AS total,
			AVG(CASE WHEN success THEN 1.0 ELSE 0.0 END) AS success_rate,
			AVG(duration_seconds) AS avg_duration,
			MAX(created_at) AS last_used
		FROM template_usage
		WHERE template_name = ? AND created_at >= ?`
	if err := exec.GetContext(ctx, &totals, query, template, since); err != nil {
		return stats, NewStoreError("query usage totals", template, err)
	}

	stats.TotalUses = totals.Total
	stats.SuccessRate = totals.SuccessRate.Float64
	stats.AvgBuildSeconds = totals.AvgDuration.Float64
	if totals.LastUsed.Valid {
		lastUsed, err := parseTime(totals.LastUsed.String)
		if err != nil {
			return stats, NewStoreError("parse usage timestamp", template, fmt.Errorf("%w: %v", ErrInvalidData, err))
		}
		stats.LastUsed = lastUsed
	}

	var encodedParams []string
	query = `
		SELECT parameters FROM template_usage
		WHERE template_name = ? AND created_at >= ? AND parameters IS NOT NULL`
	if err := exec.SelectContext(ctx, &encodedParams, query, template, since); err != nil {
		return stats, NewStoreError("query usage parameters", template, err)
	}
	stats.CommonParams = commonParameters(encodedParams)

	query = `
		SELECT error_message FROM template_usage
		WHERE template_name = ? AND created_at >= ?
			AND success = 0 AND error_message IS NOT NULL
		ORDER BY created_at`
	if err := exec.SelectContext(ctx, &stats.ErrorSamples, query, template, since); err != nil {
		return stats, NewStoreError("query error samples", template, err)
	}

	var daily []struct {
		Day         string  `db:"day"`
		AvgDuration float64 `db:"avg_duration"`
	}
	query = `
		SELECT DATE(created_at) AS day, AVG(duration_seconds) AS avg_duration
		FROM template_usage
		WHERE template_name = ? AND created_at >= ?
		GROUP BY day
		ORDER BY day`
	if err := exec.SelectContext(ctx, &daily, query, template, since); err != nil {
		return stats, NewStoreError("query daily build times", template, err)
	}
	for _, d := range daily {
		stats.DailyBuildTimes = append(stats.DailyBuildTimes, d.AvgDuration)
	}
	stats.UsageDays = len(daily)

	query = `
		SELECT COUNT(*) FROM maintenance_alerts
		WHERE template_name = ? AND resolved = 0 AND created_at >= ?`
	if err := exec.GetContext(ctx, &stats.OpenAlerts, query, template, since); err != nil {
		return stats, NewStoreError("count open alerts", template, err)
	}

	return stats, nil
}

func averageImageMB(ctx context.Context, exec executor, now time.Time, template string, window time.Duration) (float64, error) {
	since := formatTime(now.Add(-window))

	var avg sql.NullFloat64
	query := `
		SELECT AVG(image_size_mb) FROM template_usage
		WHERE template_name = ? AND created_at >= ? AND image_size_mb > 0`
	if err := exec.GetContext(ctx, &avg, query, template, since); err != nil {
		return 0, NewStoreError("query image sizes", template, err)
	}

	return avg.Float64, nil
}

func distinctTemplates(ctx context.Context, exec executor, now time.Time, window time.Duration) ([]string, error) {
	since := formatTime(now.Add(-window))

	var names []string
	query := `
		SELECT DISTINCT template_name FROM template_usage
		WHERE created_at >= ?
		ORDER BY template_name`
	if err := exec.SelectContext(ctx, &names, query, since); err != nil {
		return nil, NewStoreError("list templates", "", err)
	}

	return names, nil
}

func logMetric(ctx context.Context, exec executor, now time.Time, metric Metric) error {
	var metadataJSON *string
	if metric.Metadata != nil {
		encoded, err := json.Marshal(metric.Metadata)
		if err != nil {
			return NewStoreError("serialize metric metadata", metric.Template, fmt.Errorf("%w: %v", ErrInvalidData, err))
		}
		text := string(encoded)
		metadataJSON = &text
	}

	timestamp := metric.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}

	query := `
		INSERT INTO performance_metrics (
			id, template_name, metric_type, metric_value, metadata, created_at
		) VALUES (
			:id, :template_name, :metric_type, :metric_value, :metadata, :created_at
		)`

	row := map[string]any{
		"id":            uuid.NewString(),
		"template_name": metric.Template,
		"metric_type":   metric.Type,
		"metric_value":  metric.Value,
		"metadata":      metadataJSON,
		"created_at":    formatTime(timestamp),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		return NewStoreError("insert metric", metric.Template, err)
	}

	return nil
}

func metricAverage(ctx context.Context, exec executor, now time.Time, template, metricType string, window time.Duration) (float64, error) {
	since := formatTime(now.Add(-window))

	var avg sql.NullFloat64
	query := `
		SELECT AVG(metric_value) FROM performance_metrics
		WHERE template_name = ? AND metric_type = ? AND created_at >= ?`
	if err := exec.GetContext(ctx, &avg, query, template, metricType, since); err != nil {
		return 0, NewStoreError("query metric average", template, err)
	}

	return avg.Float64, nil
}

func createAlert(ctx context.Context, exec executor, now time.Time, alert maintenance.Alert) (string, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO maintenance_alerts (
			id, template_name, severity, category, title, description,
			recommended_action, confidence, resolved, created_at
		) VALUES (
			:id, :template_name, :severity, :category, :title, :description,
			:recommended_action, :confidence, 0, :created_at
		)`

	row := map[string]any{
		"id":                 id,
		"template_name":      alert.Template,
		"severity":           string(alert.Severity),
		"category":           string(alert.Category),
		"title":              alert.Title,
		"description":        alert.Description,
		"recommended_action": alert.Action,
		"confidence":         alert.Confidence,
		"created_at":         formatTime(now),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		return "", NewStoreError("insert alert", alert.Template, err)
	}

	return id, nil
}

// listOpenAlerts returns unresolved alerts, newest first. An empty template
// matches every template.
func listOpenAlerts(ctx context.Context, exec executor, template string) ([]StoredAlert, error) {
	query := `
		SELECT * FROM maintenance_alerts
		WHERE resolved = 0
		ORDER BY created_at DESC, id`
	args := []any{}
	if template != "" {
		query = `
		SELECT * FROM maintenance_alerts
		WHERE resolved = 0 AND template_name = ?
		ORDER BY created_at DESC, id`
		args = append(args, template)
	}

	var rows []alertRow
	if err := exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, NewStoreError("query open alerts", template, err)
	}

	alerts := make([]StoredAlert, 0, len(rows))
	for _, row := range rows {
		alert, err := rowToAlert(&row)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}

	return alerts, nil
}

func resolveAlert(ctx context.Context, exec executor, now time.Time, id, notes string) error {
	query := `
		UPDATE maintenance_alerts SET
			resolved = 1,
			resolution_notes = :resolution_notes,
			resolved_at = :resolved_at
		WHERE id = :id`

	row := map[string]any{
		"id":               id,
		"resolution_notes": notes,
		"resolved_at":      formatTime(now),
	}

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("resolve alert", id, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("resolve alert", id, ErrNotFound)
	}

	return nil
}

func rowToAlert(row *alertRow) (*StoredAlert, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("parse alert timestamp", row.ID, fmt.Errorf("%w: %v", ErrInvalidData, err))
	}

	var resolvedAt *time.Time
	if row.ResolvedAt != nil {
		t, err := parseTime(*row.ResolvedAt)
		if err != nil {
			return nil, NewStoreError("parse alert timestamp", row.ID, fmt.Errorf("%w: %v", ErrInvalidData, err))
		}
		resolvedAt = &t
	}

	notes := ""
	if row.ResolutionNotes != nil {
		notes = *row.ResolutionNotes
	}

	return &StoredAlert{
		ID: row.ID,
		Alert: maintenance.Alert{
			Template:    row.TemplateName,
			Severity:    maintenance.Severity(row.Severity),
			Category:    maintenance.Category(row.Category),
			Title:       row.Title,
			Description: row.Description,
			Action:      row.Action,
			Confidence:  row.Confidence,
		},
		Resolved:   row.Resolved,
		Notes:      notes,
		CreatedAt:  createdAt,
		ResolvedAt: resolvedAt,
	}, nil
}

func cacheGet(ctx context.Context, exec executor, now time.Time, key string) (string, bool, error) {
	var row struct {
		Response  string `db:"response"`
		ExpiresAt string `db:"expires_at"`
	}
	query := `SELECT response, expires_at FROM ai_cache WHERE cache_key = ?`
	if err := exec.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, NewStoreError("query cache", key, err)
	}

	expiresAt, err := parseTime(row.ExpiresAt)
	if err != nil {
		return "", false, NewStoreError("parse cache expiry", key, fmt.Errorf("%w: %v", ErrInvalidData, err))
	}
	if !now.Before(expiresAt) {
		return "", false, nil
	}

	return row.Response, true, nil
}

func cachePut(ctx context.Context, exec executor, now time.Time, entry CacheEntry) error {
	query := `
		INSERT OR REPLACE INTO ai_cache (
			cache_key, provider, model, response, created_at, expires_at
		) VALUES (
			:cache_key, :provider, :model, :response, :created_at, :expires_at
		)`

	row := map[string]any{
		"cache_key":  entry.Key,
		"provider":   entry.Provider,
		"model":      entry.Model,
		"response":   entry.Response,
		"created_at": formatTime(now),
		"expires_at": formatTime(now.Add(entry.TTL)),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		return NewStoreError("upsert cache entry", entry.Key, err)
	}

	return nil
}

func purgeExpired(ctx context.Context, exec executor, now time.Time) (int64, error) {
	query := `DELETE FROM ai_cache WHERE expires_at <= ?`

	result, err := exec.ExecContext(ctx, query, formatTime(now))
	if err != nil {
		return 0, NewStoreError("purge expired cache", "", err)
	}

	purged, _ := result.RowsAffected()
	return purged, nil
}

// commonParameters finds the most frequent value per parameter key across
// the recorded invocations. Ties resolve to the smallest value so repeated
// calls agree.
func commonParameters(encoded []string) map[string]string {
	counts := map[string]map[string]int{}
	for _, raw := range encoded {
		var params map[string]any
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			continue
		}
		for key, value := range params {
			if counts[key] == nil {
				counts[key] = map[string]int{}
			}
			counts[key][fmt.Sprintf("%v", value)]++
		}
	}

	common := make(map[string]string, len(counts))
	for key, values := range counts {
		options := make([]string, 0, len(values))
		for value := range values {
			options = append(options, value)
		}
		sort.Strings(options)

		best, bestCount := "", 0
		for _, value := range options {
			if values[value] > bestCount {
				best, bestCount = value, values[value]
			}
		}
		common[key] = best
	}

	return common
}
