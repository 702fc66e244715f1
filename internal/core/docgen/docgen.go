// Package docgen renders markdown documentation pages from resolved template
// definitions.
// This is part of the Functional Core - all functions are pure with no I/O.
package docgen

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/artpar/stencil/internal/core/domain"
)

//go:embed templates/*.tmpl
var pagesFS embed.FS

var pages = template.Must(template.New("docgen").Funcs(template.FuncMap{
	"title": titleCase,
	"join":  strings.Join,
}).ParseFS(pagesFS, "templates/*.tmpl"))

// timeFormat is the footer timestamp layout on every generated page.
const timeFormat = "2006-01-02 15:04:05"

// =============================================================================
// Pages
// =============================================================================

// Page is one rendered documentation file, addressed relative to the docs
// root.
type Page struct {
	Path    string
	Content string
}

// Entry is one template's row in index and category listings.
type Entry struct {
	ID          string
	Name        string
	Version     string
	Description string
	Category    domain.Category
}

// TemplatePages renders the per-template documentation set: README.md,
// PARAMETERS.md and EXAMPLES.md under the template's directory.
func TemplatePages(id string, def *domain.Definition, now time.Time) ([]Page, error) {
	view := buildTemplateView(id, def, now)

	out := make([]Page, 0, 3)
	for _, p := range []struct{ file, tmpl string }{
		{"README.md", "readme.md.tmpl"},
		{"PARAMETERS.md", "parameters.md.tmpl"},
		{"EXAMPLES.md", "examples.md.tmpl"},
	} {
		content, err := renderPage(p.tmpl, view)
		if err != nil {
			return nil, err
		}
		out = append(out, Page{Path: path.Join(id, p.file), Content: content})
	}

	return out, nil
}

// IndexPage renders the top-level README listing every template grouped by
// category.
func IndexPage(entries []Entry, now time.Time) (Page, error) {
	view := indexView{
		Categories: groupByCategory(entries),
		Templates:  sortedEntries(entries),
		Total:      len(entries),
		Generated:  now.UTC().Format(timeFormat),
	}

	content, err := renderPage("index.md.tmpl", view)
	if err != nil {
		return Page{}, err
	}
	return Page{Path: "README.md", Content: content}, nil
}

// CategoryPage renders one category's listing under <category>/README.md.
func CategoryPage(category domain.Category, entries []Entry, now time.Time) (Page, error) {
	var own []Entry
	for _, e := range entries {
		if e.Category == category {
			own = append(own, e)
		}
	}

	view := categoryView{
		Category:  string(category),
		Templates: sortedEntries(own),
		Generated: now.UTC().Format(timeFormat),
	}

	content, err := renderPage("category.md.tmpl", view)
	if err != nil {
		return Page{}, err
	}
	return Page{Path: path.Join(string(category), "README.md"), Content: content}, nil
}

func renderPage(name string, data any) (string, error) {
	var buf strings.Builder
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// =============================================================================
// View Models
// =============================================================================

type paramView struct {
	Name        string
	Type        string
	Description string
	Required    bool
	HasDefault  bool
	Default     string
	Enum        []string
	Pattern     string
	Min         string
	Max         string
}

type fileGroupView struct {
	Group string
	Paths []string
}

type depGroupView struct {
	Kind string
	Deps []string
}

type testingView struct {
	HealthCheck      string
	TestCommands     []string
	IntegrationTests []string
}

type templateView struct {
	ID          string
	Name        string
	Description string
	Version     string
	Author      string
	License     string
	Category    string
	Tags        []string
	Slug        string

	// RootRel climbs from the template's doc directory back to the docs
	// root, e.g. "../../../" for apps/python/fastapi.
	RootRel string

	Parameters []paramView
	Required   []paramView
	Optional   []paramView

	FileGroups []fileGroupView
	DepGroups  []depGroupView
	Platforms  []string
	Testing    *testingView

	// ExampleParams are up to three defaulted parameters shown in the CLI
	// examples, as ready-made --param arguments.
	ExampleParams []string

	Generated string
}

type indexView struct {
	Categories []categoryGroup
	Templates  []Entry
	Total      int
	Generated  string
}

type categoryGroup struct {
	Category  string
	Templates []Entry
}

type categoryView struct {
	Category  string
	Templates []Entry
	Generated string
}

func buildTemplateView(id string, def *domain.Definition, now time.Time) templateView {
	view := templateView{
		ID:          id,
		Name:        def.Name,
		Description: def.Description,
		Version:     def.Version,
		Author:      def.Author,
		License:     def.License,
		Category:    string(def.Category),
		Tags:        def.Tags,
		Slug:        domain.Slugify(def.Name),
		RootRel:     strings.Repeat("../", strings.Count(id, "/")+1),
		Platforms:   def.Platforms,
		Generated:   now.UTC().Format(timeFormat),
	}
	if view.Name == "" {
		view.Name = id
	}
	if view.Author == "" {
		view.Author = "Unknown"
	}
	if view.License == "" {
		view.License = "MIT"
	}

	for _, name := range def.ParameterNames() {
		pv := buildParamView(name, def.Parameters[name])
		view.Parameters = append(view.Parameters, pv)
		if pv.Required {
			view.Required = append(view.Required, pv)
		} else {
			view.Optional = append(view.Optional, pv)
		}
		if pv.HasDefault && len(view.ExampleParams) < 3 {
			view.ExampleParams = append(view.ExampleParams,
				fmt.Sprintf("--param %s=%s", pv.Name, pv.Default))
		}
	}

	for _, group := range def.FileGroups() {
		view.FileGroups = append(view.FileGroups, fileGroupView{
			Group: group,
			Paths: def.Files[group],
		})
	}

	for _, dg := range []depGroupView{
		{Kind: "Build", Deps: def.Dependencies.Build},
		{Kind: "Runtime", Deps: def.Dependencies.Runtime},
		{Kind: "Test", Deps: def.Dependencies.Test},
	} {
		if len(dg.Deps) > 0 {
			view.DepGroups = append(view.DepGroups, dg)
		}
	}

	if !def.Testing.IsZero() {
		view.Testing = &testingView{
			HealthCheck:      def.Testing.HealthCheck,
			TestCommands:     def.Testing.TestCommands,
			IntegrationTests: def.Testing.IntegrationTests,
		}
	}

	return view
}

func buildParamView(name string, spec domain.ParameterSpec) paramView {
	pv := paramView{
		Name:        name,
		Type:        string(spec.Type),
		Description: spec.Description,
		Required:    spec.IsRequired(),
		HasDefault:  spec.HasDefault(),
		Pattern:     spec.Pattern,
	}
	if pv.Type == "" {
		pv.Type = "string"
	}
	if pv.Description == "" {
		pv.Description = "No description"
	}
	if spec.Default != nil {
		pv.Default = spec.Default.String()
	}
	for _, e := range spec.Enum {
		pv.Enum = append(pv.Enum, e.String())
	}
	if spec.Min != nil {
		pv.Min = strconv.FormatFloat(*spec.Min, 'g', -1, 64)
	}
	if spec.Max != nil {
		pv.Max = strconv.FormatFloat(*spec.Max, 'g', -1, 64)
	}
	return pv
}

func groupByCategory(entries []Entry) []categoryGroup {
	byCat := make(map[string][]Entry)
	for _, e := range entries {
		byCat[string(e.Category)] = append(byCat[string(e.Category)], e)
	}

	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	groups := make([]categoryGroup, 0, len(cats))
	for _, c := range cats {
		own := byCat[c]
		sort.Slice(own, func(i, j int) bool { return own[i].Name < own[j].Name })
		groups = append(groups, categoryGroup{Category: c, Templates: own})
	}
	return groups
}

// sortedEntries orders by category then name without mutating the input.
func sortedEntries(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// titleCase upper-cases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
