// Package maintenance scores template health and derives maintenance alerts
// from aggregated usage statistics.
// This is part of the Functional Core - all functions are pure with no I/O.
package maintenance

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// =============================================================================
// Severity and Category
// =============================================================================

// Severity grades how urgently an alert needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid returns true if the severity is a known value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Rank orders severities for sorting; higher means more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Category classifies what an alert is about.
type Category string

const (
	CategoryPerformance   Category = "performance"
	CategorySecurity      Category = "security"
	CategoryReliability   Category = "reliability"
	CategoryMaintenance   Category = "maintenance"
	CategoryCompatibility Category = "compatibility"
	CategoryDeprecated    Category = "deprecated"
)

// IsValid returns true if the category is a known value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryPerformance, CategorySecurity, CategoryReliability,
		CategoryMaintenance, CategoryCompatibility, CategoryDeprecated:
		return true
	}
	return false
}

// =============================================================================
// Inputs and Outputs
// =============================================================================

// UsageStats aggregates a template's recorded usage over an analysis window.
// The analytics store assembles it; everything here is already summarized.
type UsageStats struct {
	Template        string
	TotalUses       int
	SuccessRate     float64 // fraction of successful uses, 0..1
	AvgBuildSeconds float64
	LastUsed        time.Time // zero when the template was never used
	CommonParams    map[string]string
	ErrorSamples    []string  // error messages from failed uses, oldest first
	DailyBuildTimes []float64 // per-day average build seconds, oldest first
	UsageDays       int       // distinct days with at least one use
	OpenAlerts      int       // unresolved alerts in the window
}

// Metrics are the scores derived from usage statistics.
type Metrics struct {
	Template         string
	AvgBuildSeconds  float64
	AvgImageMB       float64
	SuccessRate      float64
	Efficiency       float64
	SecurityScore    float64
	MaintenanceScore float64
}

// Alert is one maintenance finding for a template.
type Alert struct {
	Template    string
	Severity    Severity
	Category    Category
	Title       string
	Description string
	Action      string
	Confidence  float64
}

// =============================================================================
// Scores
// =============================================================================

// EfficiencyScore rates resource use on [0,1], weighting image size over
// build time. The reference points are a 300 second build and a 1 GB image;
// anything past those floors at zero. With no data the score is neutral.
func EfficiencyScore(buildSeconds, imageMB float64) float64 {
	if buildSeconds <= 0 && imageMB <= 0 {
		return 0.5
	}
	buildScore := math.Max(0, 1-buildSeconds/300)
	sizeScore := math.Max(0, 1-imageMB/1000)
	return buildScore*0.4 + sizeScore*0.6
}

// securityIndicators map base-image hints in a template name to a score.
// Order matters: the first matching indicator wins, so "python-alpine"
// scores as alpine.
var securityIndicators = []struct {
	hint  string
	score float64
}{
	{"alpine", 0.9},
	{"ubuntu", 0.7},
	{"debian", 0.7},
	{"node", 0.6},
	{"python", 0.6},
	{"nginx", 0.8},
	{"postgres", 0.8},
}

// SecurityScore estimates a template's security posture from base-image
// hints in its name, defaulting to neutral. A real scanner would replace
// this heuristic.
func SecurityScore(templateName string) float64 {
	name := strings.ToLower(templateName)
	for _, ind := range securityIndicators {
		if strings.Contains(name, ind.hint) {
			return ind.score
		}
	}
	return 0.5
}

// MaintenanceScore rates how actively maintained a template looks: daily
// usage across a 30-day window raises it, unresolved alerts lower it by 0.2
// each (capped at 0.8). The floor is 0.1.
func MaintenanceScore(usageDays, openAlerts int) float64 {
	usage := math.Min(float64(usageDays)/30, 1)
	penalty := math.Min(float64(openAlerts)*0.2, 0.8)
	return math.Max(0.1, usage-penalty)
}

// TrendSlope fits a least-squares line through evenly spaced samples and
// returns its slope per step. Positive means the series is rising. Fewer
// than two samples have no trend.
func TrendSlope(samples []float64) float64 {
	n := float64(len(samples))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range samples {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// ComputeMetrics derives the score set for a template from its usage
// statistics and measured average image size.
func ComputeMetrics(stats UsageStats, avgImageMB float64) Metrics {
	return Metrics{
		Template:         stats.Template,
		AvgBuildSeconds:  stats.AvgBuildSeconds,
		AvgImageMB:       avgImageMB,
		SuccessRate:      stats.SuccessRate,
		Efficiency:       EfficiencyScore(stats.AvgBuildSeconds, avgImageMB),
		SecurityScore:    SecurityScore(stats.Template),
		MaintenanceScore: MaintenanceScore(stats.UsageDays, stats.OpenAlerts),
	}
}

// =============================================================================
// Alert Rules
// =============================================================================

// Rule thresholds.
const (
	slowBuildSeconds  = 300
	largeImageMB      = 1000
	lowSuccessRate    = 0.8
	degradationFactor = 1.5
	staleAfterDays    = 60
	errorClusterShare = 0.3
	lowSecurityScore  = 0.6
	trendWindowDays   = 7
)

// errorClasses groups failure messages by substring. Checked in order; an
// error counts toward the first class it matches.
var errorClasses = []struct {
	title  string
	hints  []string
	action string
}{
	{
		title:  "Frequent Dependency Issues",
		hints:  []string{"dependency", "package"},
		action: "Update package versions, check for breaking changes, and consider using lock files.",
	},
	{
		title:  "Frequent Network Issues",
		hints:  []string{"network", "timeout"},
		action: "Add retry logic, use reliable package mirrors, and check firewall settings.",
	},
	{
		title:  "Frequent Permission Issues",
		hints:  []string{"permission", "access"},
		action: "Review file permissions, ensure proper user configuration, and check volume mounts.",
	},
}

// Evaluate runs the full alert rule set over a template's statistics and
// derived metrics. Rules fire independently and alerts come back in a fixed
// order, so the same inputs always produce the same report. The clock is a
// parameter to keep the function pure.
func Evaluate(stats UsageStats, m Metrics, now time.Time) []Alert {
	var alerts []Alert

	alerts = append(alerts, checkPerformance(stats.Template, m)...)
	alerts = append(alerts, checkUsagePatterns(stats, now)...)
	alerts = append(alerts, checkErrorPatterns(stats)...)
	alerts = append(alerts, checkSecurity(stats.Template, m)...)

	return alerts
}

func checkPerformance(template string, m Metrics) []Alert {
	var alerts []Alert

	if m.AvgBuildSeconds > slowBuildSeconds {
		alerts = append(alerts, Alert{
			Template:    template,
			Severity:    SeverityMedium,
			Category:    CategoryPerformance,
			Title:       "Slow Build Times",
			Description: fmt.Sprintf("Average build time is %.1f seconds, which is slower than expected.", m.AvgBuildSeconds),
			Action:      "Review Dockerfile for optimization opportunities, consider multi-stage builds, and optimize dependency installation.",
			Confidence:  0.8,
		})
	}

	if m.AvgImageMB > largeImageMB {
		alerts = append(alerts, Alert{
			Template:    template,
			Severity:    SeverityMedium,
			Category:    CategoryPerformance,
			Title:       "Large Image Size",
			Description: fmt.Sprintf("Average image size is %.1f MB, which may impact deployment speed.", m.AvgImageMB),
			Action:      "Use multi-stage builds, minimize installed packages, and consider Alpine-based images.",
			Confidence:  0.9,
		})
	}

	if m.SuccessRate < lowSuccessRate {
		alerts = append(alerts, Alert{
			Template:    template,
			Severity:    SeverityHigh,
			Category:    CategoryReliability,
			Title:       "Low Success Rate",
			Description: fmt.Sprintf("Build success rate is %.1f%%, indicating reliability issues.", m.SuccessRate*100),
			Action:      "Investigate common failure patterns and improve error handling.",
			Confidence:  0.95,
		})
	}

	return alerts
}

func checkUsagePatterns(stats UsageStats, now time.Time) []Alert {
	var alerts []Alert

	// Build-time degradation: the last week's daily averages against the
	// window before it.
	if len(stats.DailyBuildTimes) > trendWindowDays {
		split := len(stats.DailyBuildTimes) - trendWindowDays
		recent := mean(stats.DailyBuildTimes[split:])
		older := mean(stats.DailyBuildTimes[:split])

		if older > 0 && recent > older*degradationFactor {
			alerts = append(alerts, Alert{
				Template:    stats.Template,
				Severity:    SeverityMedium,
				Category:    CategoryPerformance,
				Title:       "Performance Degradation",
				Description: "Build times have increased significantly over the past week.",
				Action:      "Investigate recent changes and dependency updates that may be causing slower builds.",
				Confidence:  0.7,
			})
		}
	}

	// Stale template. Templates with no recorded usage at all are skipped
	// rather than reported as stale since forever.
	if !stats.LastUsed.IsZero() {
		if days := int(now.Sub(stats.LastUsed).Hours() / 24); days > staleAfterDays {
			alerts = append(alerts, Alert{
				Template:    stats.Template,
				Severity:    SeverityLow,
				Category:    CategoryMaintenance,
				Title:       "Stale Template",
				Description: fmt.Sprintf("Template has not been used for %d days.", days),
				Action:      "Consider deprecating or updating template to modern standards.",
				Confidence:  0.6,
			})
		}
	}

	return alerts
}

func checkErrorPatterns(stats UsageStats) []Alert {
	total := len(stats.ErrorSamples)
	if total == 0 {
		return nil
	}

	counts := make([]int, len(errorClasses))
	for _, sample := range stats.ErrorSamples {
		lower := strings.ToLower(sample)
		for i, class := range errorClasses {
			if containsAny(lower, class.hints) {
				counts[i]++
				break
			}
		}
	}

	var alerts []Alert
	for i, class := range errorClasses {
		share := float64(counts[i]) / float64(total)
		if share > errorClusterShare {
			subject := strings.ToLower(strings.TrimPrefix(class.title, "Frequent "))
			alerts = append(alerts, Alert{
				Template:    stats.Template,
				Severity:    SeverityMedium,
				Category:    CategoryReliability,
				Title:       class.title,
				Description: fmt.Sprintf("%d out of %d recent errors are related to %s.", counts[i], total, subject),
				Action:      class.action,
				Confidence:  0.8,
			})
		}
	}

	return alerts
}

func checkSecurity(template string, m Metrics) []Alert {
	if m.SecurityScore >= lowSecurityScore {
		return nil
	}
	return []Alert{{
		Template:    template,
		Severity:    SeverityHigh,
		Category:    CategorySecurity,
		Title:       "Low Security Score",
		Description: fmt.Sprintf("Security score is %.1f, indicating potential security risks.", m.SecurityScore),
		Action:      "Review base image choices, update dependencies, and implement security best practices.",
		Confidence:  0.7,
	}}
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// =============================================================================
// Summary
// =============================================================================

// Summary aggregates an alert list for reporting.
type Summary struct {
	TotalAlerts  int
	BySeverity   map[Severity]int
	ByCategory   map[Category]int
	HighPriority []Alert // high and critical alerts, in evaluation order
}

// Summarize builds the report rollup for a set of alerts.
func Summarize(alerts []Alert) Summary {
	sum := Summary{
		TotalAlerts: len(alerts),
		BySeverity:  make(map[Severity]int),
		ByCategory:  make(map[Category]int),
	}

	for _, a := range alerts {
		sum.BySeverity[a.Severity]++
		sum.ByCategory[a.Category]++
		if a.Severity == SeverityHigh || a.Severity == SeverityCritical {
			sum.HighPriority = append(sum.HighPriority, a)
		}
	}

	return sum
}
