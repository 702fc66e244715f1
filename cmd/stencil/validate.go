package main

import (
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/shell/generator"
	"github.com/artpar/stencil/internal/shell/store"
)

var validateWatch bool

var validateCmd = &cobra.Command{
	Use:   "validate [template]",
	Short: "Check templates for structural defects",
	Long: `validate runs the design-time validator: it resolves each template,
checks parameter declarations and declared source files, and test-renders
everything with default parameters. All defects are reported in one pass.

With --watch the template tree is re-validated whenever a file changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateWatch, "watch", false, "Re-validate on template changes")
}

func runValidate(cmd *cobra.Command, args []string) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}

	s := openStore()
	g := generator.New(s, logger)

	if validateWatch {
		return watchValidate(cmd, s, g, id)
	}

	failed, err := validateOnce(cmd, s, g, id)
	if err != nil {
		return err
	}
	if failed > 0 {
		return &CommandError{
			Op:       "validate",
			Err:      fmt.Errorf("%d template(s) with errors", failed),
			ExitCode: ExitValidationError,
		}
	}
	return nil
}

// validateOnce validates one template, or every template in the store when
// id is empty, and returns how many had errors.
func validateOnce(cmd *cobra.Command, s *store.FSStore, g *generator.Generator, id string) (int, error) {
	ctx := cmd.Context()

	ids := []string{id}
	if id == "" {
		var err error
		ids, err = s.IDs()
		if err != nil {
			return 0, &CommandError{Op: "validate", Err: err, ExitCode: ExitTemplateError}
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no templates found")
			return 0, nil
		}
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, tid := range ids {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		report := g.Validate(ctx, tid)
		printReport(out, report)
		if !report.Valid {
			failed++
		}
	}
	return failed, nil
}

func printReport(out io.Writer, report *generator.Report) {
	switch {
	case report.Valid && len(report.Warnings) == 0:
		fmt.Fprintf(out, "ok       %s\n", report.Template)
	case report.Valid:
		fmt.Fprintf(out, "warn     %s\n", report.Template)
	default:
		fmt.Fprintf(out, "invalid  %s\n", report.Template)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "  error: %s\n", e)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
}

// =============================================================================
// Watch Mode
// =============================================================================

// watchValidate re-runs validation whenever the template tree changes.
// Events are debounced so editors that write in bursts trigger one run.
func watchValidate(cmd *cobra.Command, s *store.FSStore, g *generator.Generator, id string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, s.Root()); err != nil {
		return fmt.Errorf("watching %s: %w", s.Root(), err)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if _, err := validateOnce(cmd, s, g, id); err != nil {
		return err
	}
	fmt.Fprintln(out, "watching for changes (Ctrl+C to stop)")

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchTree(watcher, event.Name)
				}
			}
			debounce = time.After(250 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-debounce:
			debounce = nil
			s.Reset()
			fmt.Fprintln(out)
			if _, err := validateOnce(cmd, s, g, id); err != nil {
				return err
			}
		}
	}
}

// watchTree adds dir and every subdirectory to the watcher. fsnotify does
// not recurse on its own.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
