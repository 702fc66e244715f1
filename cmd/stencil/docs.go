package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/shell/docs"
)

var (
	docsHTML   bool
	docsOutput string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate template documentation",
	Long: `docs renders README, parameter and example pages for every template,
plus an index and per-category pages. With --html each markdown page is
also converted to HTML.`,
	Args: cobra.NoArgs,
	RunE: runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.Flags().BoolVar(&docsHTML, "html", false, "Also write HTML renditions")
	docsCmd.Flags().StringVarP(&docsOutput, "output", "o", "", "Output directory (default from config)")
}

func runDocs(cmd *cobra.Command, args []string) error {
	outputDir := docsOutput
	if outputDir == "" {
		outputDir = cfg.Docs.Dir
	}

	writer := docs.NewWriter(openStore(), docs.Config{
		OutputDir: outputDir,
		HTML:      docsHTML,
	}, logger)

	summary, err := writer.Generate(cmd.Context())
	if err != nil {
		return &CommandError{Op: "generate docs", Err: err, ExitCode: ExitGeneralError}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wrote %d page(s) for %d template(s) to %s\n", summary.Pages, summary.Templates, outputDir)
	for _, id := range summary.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped %s: template does not resolve\n", id)
	}
	return nil
}
