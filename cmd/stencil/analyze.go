package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/core/maintenance"
	"github.com/artpar/stencil/internal/shell/analytics"
)

var (
	analyzeDays    int
	analyzeSave    bool
	analyzeOpen    bool
	analyzeResolve string
	analyzeNotes   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [template]",
	Short: "Analyze template health from usage history",
	Long: `analyze computes health metrics from recorded usage (success rate,
build times, image sizes) and raises maintenance alerts for templates
that degrade. Without a template argument every template with recorded
usage in the window is analyzed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 30, "Usage window in days")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store raised alerts")
	analyzeCmd.Flags().BoolVar(&analyzeOpen, "open", false, "List stored open alerts instead of analyzing")
	analyzeCmd.Flags().StringVar(&analyzeResolve, "resolve", "", "Resolve the stored alert with this ID")
	analyzeCmd.Flags().StringVar(&analyzeNotes, "notes", "", "Resolution notes for --resolve")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openAnalytics()
	if err != nil {
		return &CommandError{Op: "open analytics store", Err: err, ExitCode: ExitDatabaseError}
	}
	defer db.Close()

	template := ""
	if len(args) > 0 {
		template = args[0]
	}
	out := cmd.OutOrStdout()

	if analyzeResolve != "" {
		if err := db.ResolveAlert(ctx, analyzeResolve, analyzeNotes); err != nil {
			return &CommandError{Op: "resolve alert", Err: err, ExitCode: ExitDatabaseError}
		}
		fmt.Fprintf(out, "resolved alert %s\n", analyzeResolve)
		return nil
	}

	if analyzeOpen {
		return printOpenAlerts(ctx, cmd, db, template)
	}

	window := time.Duration(analyzeDays) * 24 * time.Hour
	templates := []string{template}
	if template == "" {
		templates, err = db.DistinctTemplates(ctx, window)
		if err != nil {
			return &CommandError{Op: "list templates with usage", Err: err, ExitCode: ExitDatabaseError}
		}
		if len(templates) == 0 {
			fmt.Fprintln(out, "no usage recorded")
			return nil
		}
	}

	var all []maintenance.Alert
	for i, id := range templates {
		if i > 0 {
			fmt.Fprintln(out)
		}
		alerts, err := analyzeTemplate(ctx, out, db, id, window)
		if err != nil {
			return err
		}
		all = append(all, alerts...)
	}

	summary := maintenance.Summarize(all)
	if summary.TotalAlerts == 0 {
		fmt.Fprintln(out, "\nno alerts")
		return nil
	}
	fmt.Fprintf(out, "\n%d alert(s): %d critical, %d high, %d medium, %d low\n",
		summary.TotalAlerts,
		summary.BySeverity[maintenance.SeverityCritical],
		summary.BySeverity[maintenance.SeverityHigh],
		summary.BySeverity[maintenance.SeverityMedium],
		summary.BySeverity[maintenance.SeverityLow],
	)
	return nil
}

// analyzeTemplate prints one template's health block and returns the alerts
// it raised.
func analyzeTemplate(ctx context.Context, out io.Writer, db analytics.Store, id string, window time.Duration) ([]maintenance.Alert, error) {
	stats, err := db.UsageStats(ctx, id, window)
	if err != nil {
		return nil, &CommandError{Op: "load usage stats", Err: err, ExitCode: ExitDatabaseError}
	}

	fmt.Fprintln(out, id)
	if stats.TotalUses == 0 {
		fmt.Fprintf(out, "  no usage recorded in the last %d days\n", analyzeDays)
		return nil, nil
	}

	avgMB, err := db.AverageImageMB(ctx, id, window)
	if err != nil {
		return nil, &CommandError{Op: "load image sizes", Err: err, ExitCode: ExitDatabaseError}
	}

	m := maintenance.ComputeMetrics(stats, avgMB)
	alerts := maintenance.Evaluate(stats, m, time.Now())

	fmt.Fprintf(out, "  uses: %d, success rate: %.0f%%\n", stats.TotalUses, stats.SuccessRate*100)
	fmt.Fprintf(out, "  avg build: %.1fs, avg image: %.0f MB\n", m.AvgBuildSeconds, m.AvgImageMB)
	fmt.Fprintf(out, "  efficiency: %.2f, security: %.2f, maintenance: %.2f\n",
		m.Efficiency, m.SecurityScore, m.MaintenanceScore)

	for _, alert := range alerts {
		fmt.Fprintf(out, "  [%s] %s: %s\n", alert.Severity, alert.Title, alert.Description)
		fmt.Fprintf(out, "        action: %s\n", alert.Action)
	}

	if analyzeSave {
		for _, alert := range alerts {
			alertID, err := db.CreateAlert(ctx, alert)
			if err != nil {
				return nil, &CommandError{Op: "store alert", Err: err, ExitCode: ExitDatabaseError}
			}
			fmt.Fprintf(out, "  saved alert %s\n", alertID)
		}
	}

	return alerts, nil
}

func printOpenAlerts(ctx context.Context, cmd *cobra.Command, db analytics.Store, template string) error {
	alerts, err := db.ListOpenAlerts(ctx, template)
	if err != nil {
		return &CommandError{Op: "list alerts", Err: err, ExitCode: ExitDatabaseError}
	}

	out := cmd.OutOrStdout()
	if len(alerts) == 0 {
		fmt.Fprintln(out, "no open alerts")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEVERITY\tTEMPLATE\tTITLE\tCREATED")
	for _, stored := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			stored.ID, stored.Alert.Severity, stored.Alert.Template, stored.Alert.Title,
			stored.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
