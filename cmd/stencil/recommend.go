package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/shell/ai"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <description>...",
	Short: "Get an AI template recommendation",
	Long: `recommend sends your project description and the template catalog to
the configured AI provider and prints the best-matching template with
suggested parameters and alternatives.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	description := strings.Join(args, " ")

	infos, err := openStore().List(ctx)
	if err != nil {
		return &CommandError{Op: "list templates", Err: err, ExitCode: ExitTemplateError}
	}
	if len(infos) == 0 {
		return errors.New("no templates available to recommend from")
	}

	catalog := make([]ai.TemplateInfo, 0, len(infos))
	for _, info := range infos {
		catalog = append(catalog, ai.TemplateInfo{
			ID:          info.ID,
			Name:        info.Definition.Name,
			Description: info.Definition.Description,
			Category:    string(info.Definition.Category),
		})
	}

	cache := optionalAnalytics()
	if cache != nil {
		defer cache.Close()
	}

	assistant := ai.NewAssistant(newRouter(cache), logger)
	rec, err := assistant.Recommend(ctx, description, catalog)
	if err != nil {
		return &CommandError{Op: "recommend template", Err: err, ExitCode: ExitAIError}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "recommended: %s (confidence %.2f)\n", rec.Template, rec.Confidence)
	if rec.Reasoning != "" {
		fmt.Fprintf(out, "reasoning: %s\n", rec.Reasoning)
	}
	if len(rec.Parameters) > 0 {
		names := make([]string, 0, len(rec.Parameters))
		for name := range rec.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(out, "parameters:")
		for _, name := range names {
			fmt.Fprintf(out, "  %s: %v\n", name, rec.Parameters[name])
		}
	}
	if len(rec.Alternatives) > 0 {
		fmt.Fprintf(out, "alternatives: %s\n", strings.Join(rec.Alternatives, ", "))
	}
	return nil
}
