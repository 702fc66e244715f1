package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/core/params"
	"github.com/artpar/stencil/internal/core/resolve"
	"github.com/artpar/stencil/internal/shell/generator"
	"github.com/artpar/stencil/internal/shell/store"
)

var (
	generateParams     []string
	generateParamsFile string
	generateDryRun     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <template> [output-dir]",
	Short: "Generate container artifacts from a template",
	Long: `generate resolves a template's inheritance chain, validates the
supplied parameters and renders every declared file. Files are written
to the output directory; with --dry-run they are listed instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringArrayVar(&generateParams, "param", nil, "Parameter as key=value (repeatable)")
	generateCmd.Flags().StringVar(&generateParamsFile, "params", "", "Parameters YAML/JSON file")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Render without writing anything")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	id := args[0]
	outputDir := ""
	if len(args) > 1 {
		outputDir = args[1]
	}

	values, err := collectParams(generateParamsFile, generateParams)
	if err != nil {
		return err
	}

	g := generator.New(openStore(), logger)
	res, err := g.Generate(cmd.Context(), generator.Request{
		Template:  id,
		OutputDir: outputDir,
		Params:    values,
		DryRun:    generateDryRun,
	})
	if err != nil {
		return classifyGenerate(err)
	}

	out := cmd.OutOrStdout()
	if len(res.Unknown) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: ignoring unknown parameter(s): %s\n", strings.Join(res.Unknown, ", "))
	}

	if res.DryRun {
		fmt.Fprintf(out, "would generate %d file(s) from %s@%s:\n", len(res.Files), res.Template, res.Version)
		for _, path := range sortedPaths(res.Files) {
			fmt.Fprintf(out, "  %s (%d bytes)\n", path, len(res.Files[path]))
		}
		return nil
	}

	fmt.Fprintf(out, "generated %d file(s) from %s@%s to %s\n", len(res.Files), res.Template, res.Version, res.OutputDir)
	return nil
}

// classifyGenerate maps a generation failure onto an exit code by its cause.
func classifyGenerate(err error) error {
	code := ExitGeneralError

	var validationErr *params.ValidationError
	var cycleErr *resolve.CycleError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = ExitTemplateError
	case errors.As(err, &cycleErr):
		code = ExitTemplateError
	case errors.As(err, &validationErr):
		code = ExitValidationError
	}

	return &CommandError{Op: "generate", Err: err, ExitCode: code}
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
