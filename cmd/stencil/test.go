package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/shell/buildx"
	"github.com/artpar/stencil/internal/shell/generator"
	"github.com/artpar/stencil/internal/shell/harness"
)

var (
	testParams     []string
	testParamsFile string
)

// testRunner is swapped for a mock in tests.
var testRunner buildx.Runner

var testCmd = &cobra.Command{
	Use:   "test <template>",
	Short: "Run a template's test suite",
	Long: `test validates the template, generates it into a staging directory,
builds the resulting image when docker is available and runs the
template's declared test commands. Outcomes are recorded in the
analytics store.`,
	Args: cobra.ExactArgs(1),
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().StringArrayVar(&testParams, "param", nil, "Parameter as key=value (repeatable)")
	testCmd.Flags().StringVar(&testParamsFile, "params", "", "Parameters YAML/JSON file")
}

func runTest(cmd *cobra.Command, args []string) error {
	id := args[0]

	values, err := collectParams(testParamsFile, testParams)
	if err != nil {
		return err
	}

	s := openStore()
	analyticsStore := optionalAnalytics()
	if analyticsStore != nil {
		defer analyticsStore.Close()
	}
	dockerClient := optionalDocker()
	if dockerClient != nil {
		defer dockerClient.Close()
	}

	h := harness.New(
		generator.New(s, logger),
		s,
		testRunner,
		dockerClient,
		analyticsStore,
		harness.Config{
			BuildTimeout:   cfg.Test.BuildTimeout,
			CommandTimeout: cfg.Test.CommandTimeout,
		},
		logger,
	)

	suite, err := h.RunSuite(cmd.Context(), id, values)
	if err != nil {
		return &CommandError{Op: "run test suite", Err: err, ExitCode: ExitGeneralError}
	}

	printSuite(cmd, suite)

	if suite.Failed > 0 {
		return &CommandError{
			Op:       "test",
			Err:      fmt.Errorf("%d of %d case(s) failed", suite.Failed, suite.Total),
			ExitCode: ExitGeneralError,
		}
	}
	return nil
}

func printSuite(cmd *cobra.Command, suite *harness.Suite) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "test suite for %s\n\n", suite.Template)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CASE\tSTATUS\tDURATION")
	for _, result := range suite.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", result.Name, result.Status, result.Duration.Round(time.Millisecond))
	}
	w.Flush()

	for _, result := range suite.Results {
		if result.Status != harness.StatusFailed {
			continue
		}
		fmt.Fprintf(out, "\n%s failed: %s\n", result.Name, result.Error)
		if result.Output != "" {
			fmt.Fprintln(out, result.Output)
		}
	}

	fmt.Fprintf(out, "\n%d case(s): %d passed, %d failed, %d skipped (%s)\n",
		suite.Total, suite.Passed, suite.Failed, suite.Skipped, suite.Duration.Round(time.Millisecond))
}
