package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/core/imagetags"
	"github.com/artpar/stencil/internal/core/resolve"
)

var tagsJSON bool

var tagsCmd = &cobra.Command{
	Use:   "tags [template]",
	Short: "Show image tags for templates",
	Long: `tags resolves each template and prints the image tags derived from
its version and registry metadata: the semver expansion of the version
plus any declared registry tags.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "Output as JSON")
}

// tagSet is the per-template tag listing, also used as the JSON shape.
type tagSet struct {
	Repository string   `json:"repository"`
	Tags       []string `json:"tags"`
	References []string `json:"references"`
}

func runTags(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s := openStore()
	resolver := resolve.NewResolver(s)

	ids := args
	if len(ids) == 0 {
		var err error
		ids, err = s.IDs()
		if err != nil {
			return &CommandError{Op: "list templates", Err: err, ExitCode: ExitTemplateError}
		}
	}

	sets := make(map[string]tagSet, len(ids))
	for _, id := range ids {
		resolved, err := resolver.Resolve(ctx, id)
		if err != nil {
			if len(args) > 0 {
				return &CommandError{Op: "resolve template", Err: err, ExitCode: ExitTemplateError}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping %s: %v\n", id, err)
			continue
		}
		def := resolved.Definition
		sets[id] = tagSet{
			Repository: imagetags.Repository(def),
			Tags:       imagetags.Tags(def),
			References: imagetags.References(def),
		}
	}

	out := cmd.OutOrStdout()
	if tagsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sets)
	}

	printed := 0
	for _, id := range ids {
		set, ok := sets[id]
		if !ok {
			continue
		}
		if printed > 0 {
			fmt.Fprintln(out)
		}
		printed++
		fmt.Fprintln(out, id)
		fmt.Fprintf(out, "  repository: %s\n", set.Repository)
		fmt.Fprintf(out, "  tags: %s\n", strings.Join(set.Tags, ", "))
		fmt.Fprintln(out, "  references:")
		for _, ref := range set.References {
			fmt.Fprintf(out, "    %s\n", ref)
		}
	}
	return nil
}
