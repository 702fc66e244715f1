package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/core/domain"
	"github.com/artpar/stencil/internal/shell/store"
)

var (
	listCategory string
	listSearch   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category (app|database|infrastructure|microservice|base)")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Filter by name or description substring")
}

func runList(cmd *cobra.Command, args []string) error {
	if listCategory != "" && !domain.Category(listCategory).IsValid() {
		return fmt.Errorf("unknown category %q", listCategory)
	}

	infos, err := openStore().List(cmd.Context())
	if err != nil {
		return &CommandError{Op: "list templates", Err: err, ExitCode: ExitTemplateError}
	}
	infos = filterTemplates(infos, listCategory, listSearch)

	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no templates found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEMPLATE\tVERSION\tCATEGORY\tDESCRIPTION")
	fmt.Fprintln(w, "--------\t-------\t--------\t-----------")
	for _, info := range infos {
		def := info.Definition
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.ID, def.Version, def.Category, def.Description)
	}
	return w.Flush()
}

// filterTemplates narrows the listing by category and a case-insensitive
// search over ID, name and description.
func filterTemplates(infos []store.Info, category, search string) []store.Info {
	if category == "" && search == "" {
		return infos
	}

	needle := strings.ToLower(search)
	out := make([]store.Info, 0, len(infos))
	for _, info := range infos {
		if category != "" && info.Definition.Category != domain.Category(category) {
			continue
		}
		if needle != "" {
			haystack := strings.ToLower(info.ID + " " + info.Definition.Name + " " + info.Definition.Description)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		out = append(out, info)
	}
	return out
}
