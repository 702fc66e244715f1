// Package generator renders resolved templates into project files.
// This is part of the Imperative Shell - it reads template sources and
// writes generated output; resolution, parameter checking and rendering
// come from the pure core.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/artpar/stencil/internal/core/compose"
	"github.com/artpar/stencil/internal/core/domain"
	"github.com/artpar/stencil/internal/core/params"
	"github.com/artpar/stencil/internal/core/render"
	"github.com/artpar/stencil/internal/core/resolve"
	"github.com/artpar/stencil/internal/shell/store"
)

// generatedBy is the engine name injected into the render context.
const generatedBy = "stencil"

// composeGroup is the file group whose rendered output is checked as a
// compose document during validation.
const composeGroup = "compose"

// =============================================================================
// Service Errors
// =============================================================================

var (
	// ErrNoOutputDir is returned when a non-dry-run generate request names
	// no output directory.
	ErrNoOutputDir = errors.New("output directory not specified")
)

// =============================================================================
// Generator
// =============================================================================

// Generator turns template declarations into generated projects.
type Generator struct {
	store    *store.FSStore
	resolver *resolve.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a generator backed by the given template store.
func New(s *store.FSStore, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		store:    s,
		resolver: resolve.NewResolver(s),
		logger:   logger,
		now:      time.Now,
	}
}

// =============================================================================
// Generate Request/Result
// =============================================================================

// Request contains the input for one generation call.
type Request struct {
	// Template is the template ID to generate from.
	Template string

	// OutputDir is the directory to write generated files into. It may be
	// empty for dry runs.
	OutputDir string

	// Params are the caller-supplied parameter values.
	Params map[string]domain.Value

	// DryRun renders everything but writes nothing.
	DryRun bool
}

// Result describes a completed generation.
type Result struct {
	// Template is the generated template ID.
	Template string

	// Version is the resolved template version.
	Version string

	// OutputDir is where files were written; empty for dry runs without one.
	OutputDir string

	// Files maps relative output paths to their rendered content.
	Files map[string]string

	// Unknown lists provided parameter names the template does not declare,
	// sorted. They are ignored by rendering.
	Unknown []string

	// DryRun reports whether anything was written.
	DryRun bool
}

// =============================================================================
// Generate
// =============================================================================

// Generate resolves the template, validates parameters, renders every
// declared file and writes the output.
//
// The algorithm:
// 1. Resolve the inheritance chain to one effective definition
// 2. Validate and complete the parameter set against the declared specs
// 3. Render every declared file into memory, failing fast on the first error
// 4. On dry runs return the buffered files; otherwise write them all
//
// Nothing is written until every file has rendered, so a failing file never
// leaves a partial project behind.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	g.logger.Debug("generating project",
		"template", req.Template,
		"output_dir", req.OutputDir,
		"dry_run", req.DryRun,
	)

	if !req.DryRun && req.OutputDir == "" {
		return nil, ErrNoOutputDir
	}

	resolved, err := g.resolver.Resolve(ctx, req.Template)
	if err != nil {
		return nil, err
	}
	def := resolved.Definition

	final, err := params.Prepare(def, req.Params)
	if err != nil {
		return nil, err
	}

	unknown := params.Unknown(def, req.Params)
	if len(unknown) > 0 {
		g.logger.Warn("ignoring unknown parameters",
			"template", req.Template,
			"parameters", unknown,
		)
	}

	renderCtx := params.RenderContext(final, params.Meta{
		TemplateName:    def.Name,
		TemplateVersion: def.Version,
		GeneratedAt:     g.now(),
		GeneratedBy:     generatedBy,
	})

	files, err := g.renderAll(req.Template, def, renderCtx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Template:  req.Template,
		Version:   def.Version,
		OutputDir: req.OutputDir,
		Files:     files,
		Unknown:   unknown,
		DryRun:    req.DryRun,
	}

	if req.DryRun {
		return result, nil
	}

	if err := writeAll(req.OutputDir, files); err != nil {
		return nil, err
	}

	g.logger.Info("project generated",
		"template", req.Template,
		"files", len(files),
		"output_dir", req.OutputDir,
	)

	return result, nil
}

// renderAll renders every declared file against the context. A file listed
// in more than one group renders once.
func (g *Generator) renderAll(id string, def *domain.Definition, renderCtx map[string]any) (map[string]string, error) {
	files := make(map[string]string)
	for _, group := range def.FileGroups() {
		for _, rel := range def.Files[group] {
			if _, ok := files[rel]; ok {
				continue
			}

			src, err := g.store.ReadSource(id, rel)
			if err != nil {
				return nil, err
			}

			rendered, err := render.Render(id, rel, src, renderCtx)
			if err != nil {
				return nil, err
			}
			files[rel] = rendered
		}
	}
	return files, nil
}

// writeAll writes the buffered files under dir, creating parent directories
// as needed.
func writeAll(dir string, files map[string]string) error {
	paths := make([]string, 0, len(files))
	for rel := range files {
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(target, []byte(files[rel]), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}

	return nil
}

// =============================================================================
// Design-Time Validation
// =============================================================================

// Report is the outcome of validating a template declaration and its
// sources without generating anything.
type Report struct {
	// Template is the validated template ID.
	Template string

	// Valid is true when no errors were found. Warnings do not affect it.
	Valid bool

	// Errors are defects that would break generation.
	Errors []string

	// Warnings are findings worth fixing that do not block generation.
	Warnings []string
}

// Validate checks a template the way an author wants it checked: it
// resolves the chain, renders every declared file with a defaults-only
// context and collects every defect instead of stopping at the first.
// Rendered compose files are additionally checked structurally; their
// findings are warnings because a generated compose document may still
// depend on values the defaults cannot supply.
func (g *Generator) Validate(ctx context.Context, id string) *Report {
	report := &Report{Template: id}

	resolved, err := g.resolver.Resolve(ctx, id)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	def := resolved.Definition

	for _, name := range params.ReservedCollisions(def) {
		report.Errors = append(report.Errors,
			fmt.Sprintf("parameter %q collides with an engine-injected context key", name))
	}

	renderCtx := params.RenderContext(params.DefaultContext(def), params.Meta{
		TemplateName:    def.Name,
		TemplateVersion: def.Version,
		GeneratedAt:     g.now(),
		GeneratedBy:     generatedBy,
	})

	rendered := make(map[string]string)
	failed := make(map[string]bool)
	for _, group := range def.FileGroups() {
		for _, rel := range def.Files[group] {
			if _, ok := rendered[rel]; ok || failed[rel] {
				continue
			}

			src, err := g.store.ReadSource(id, rel)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("group %s: %v", group, err))
				failed[rel] = true
				continue
			}

			out, err := render.Render(id, rel, src, renderCtx)
			if err != nil {
				report.Errors = append(report.Errors, err.Error())
				failed[rel] = true
				continue
			}
			rendered[rel] = out
		}
	}

	for _, name := range params.MissingDefaults(def) {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("required parameter %q has no default; design-time rendering omits it", name))
	}

	for _, rel := range def.Files[composeGroup] {
		content, ok := rendered[rel]
		if !ok {
			continue
		}
		if _, err := compose.Check(content); err != nil {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("file %s: compose check: %v", rel, err))
		}
	}

	if def.Testing.IsZero() {
		report.Warnings = append(report.Warnings, "no testing configuration declared")
	}

	report.Valid = len(report.Errors) == 0

	g.logger.Debug("template validated",
		"template", id,
		"valid", report.Valid,
		"errors", len(report.Errors),
		"warnings", len(report.Warnings),
	)

	return report
}
