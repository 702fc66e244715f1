// Package docs writes template documentation trees to disk.
// This is part of the Imperative Shell - page content comes from the pure
// docgen package; this package walks the store, resolves every template and
// writes the rendered pages under the documentation root.
package docs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/artpar/stencil/internal/core/docgen"
	"github.com/artpar/stencil/internal/core/domain"
	"github.com/artpar/stencil/internal/core/resolve"
	"github.com/artpar/stencil/internal/shell/store"
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures documentation generation.
type Config struct {
	// OutputDir is the documentation root. Pages are written under
	// <OutputDir>/templates. Default: "docs".
	OutputDir string

	// HTML additionally writes an .html rendition next to every markdown
	// page.
	HTML bool

	// MaxConcurrent is the maximum number of templates documented
	// concurrently. Default: 4.
	MaxConcurrent int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		OutputDir:     "docs",
		MaxConcurrent: 4,
	}
}

// =============================================================================
// Writer
// =============================================================================

// Writer renders documentation for every template in a store.
type Writer struct {
	store    *store.FSStore
	resolver *resolve.Resolver
	config   Config
	logger   *slog.Logger
	md       goldmark.Markdown
	now      func() time.Time
}

// NewWriter creates a documentation writer over the given store.
func NewWriter(s *store.FSStore, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.OutputDir == "" {
		config.OutputDir = "docs"
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}
	return &Writer{
		store:    s,
		resolver: resolve.NewResolver(s),
		config:   config,
		logger:   logger,
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:      time.Now,
	}
}

// Summary reports one documentation run. Pages counts written markdown
// pages; HTML renditions sit next to their page and are not counted
// separately.
type Summary struct {
	Templates int
	Pages     int
	Failed    []string
}

// Generate documents every template in the store: a page set per template,
// a top-level index and one listing per category, all under
// <OutputDir>/templates. Templates that fail to resolve are skipped and
// reported in the summary instead of aborting the run.
func (w *Writer) Generate(ctx context.Context) (*Summary, error) {
	ids, err := w.store.IDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	now := w.now()

	// Resolve everything up front: page rendering needs effective
	// definitions, and a broken template must not take the run down.
	type resolvedTemplate struct {
		id  string
		def *domain.Definition
	}
	var (
		templates []resolvedTemplate
		entries   []docgen.Entry
		failed    []string
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := w.resolver.Resolve(ctx, id)
		if err != nil {
			w.logger.Warn("skipping template", "template", id, "error", err)
			failed = append(failed, id)
			continue
		}
		templates = append(templates, resolvedTemplate{id: id, def: res.Definition})
		entries = append(entries, docgen.Entry{
			ID:          id,
			Name:        res.Definition.Name,
			Version:     res.Definition.Version,
			Description: res.Definition.Description,
			Category:    res.Definition.Category,
		})
	}

	w.logger.Debug("starting documentation run",
		"templates", len(templates),
		"max_concurrent", w.config.MaxConcurrent,
	)

	// Use a semaphore to limit concurrent page writes
	sem := make(chan struct{}, w.config.MaxConcurrent)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		pages int
		errs  []error
	)

	for _, tpl := range templates {
		wg.Add(1)
		go func(id string, def *domain.Definition) {
			defer wg.Done()

			// Acquire semaphore
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
			}

			n, err := w.writeTemplatePages(id, def, now)

			mu.Lock()
			defer mu.Unlock()
			pages += n
			if err != nil {
				errs = append(errs, err)
			}
		}(tpl.id, tpl.def)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	index, err := docgen.IndexPage(entries, now)
	if err != nil {
		return nil, fmt.Errorf("failed to render index: %w", err)
	}
	if err := w.writePage(index); err != nil {
		return nil, err
	}
	pages++

	for _, category := range categoriesOf(entries) {
		page, err := docgen.CategoryPage(category, entries, now)
		if err != nil {
			return nil, fmt.Errorf("failed to render category %s: %w", category, err)
		}
		if err := w.writePage(page); err != nil {
			return nil, err
		}
		pages++
	}

	sort.Strings(failed)

	w.logger.Info("documentation generated",
		"templates", len(templates),
		"pages", pages,
		"failed", len(failed),
		"output", w.config.OutputDir,
	)

	return &Summary{Templates: len(templates), Pages: pages, Failed: failed}, nil
}

// writeTemplatePages renders and writes one template's page set, returning
// the number of pages written.
func (w *Writer) writeTemplatePages(id string, def *domain.Definition, now time.Time) (int, error) {
	pages, err := docgen.TemplatePages(id, def, now)
	if err != nil {
		return 0, fmt.Errorf("failed to render pages for %s: %w", id, err)
	}
	for _, page := range pages {
		if err := w.writePage(page); err != nil {
			return 0, err
		}
	}
	return len(pages), nil
}

// writePage writes one page under <OutputDir>/templates, plus an .html
// rendition when enabled. Page paths come from docgen and are always
// forward-slash relative paths.
func (w *Writer) writePage(page docgen.Page) error {
	target := filepath.Join(w.config.OutputDir, "templates", filepath.FromSlash(page.Path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, []byte(page.Content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	if !w.config.HTML {
		return nil
	}

	var buf bytes.Buffer
	if err := w.md.Convert([]byte(page.Content), &buf); err != nil {
		return fmt.Errorf("failed to convert %s to HTML: %w", page.Path, err)
	}
	htmlTarget := strings.TrimSuffix(target, ".md") + ".html"
	if err := os.WriteFile(htmlTarget, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", htmlTarget, err)
	}
	return nil
}

// categoriesOf returns the distinct categories among entries, sorted.
func categoriesOf(entries []docgen.Entry) []domain.Category {
	seen := make(map[domain.Category]bool)
	var out []domain.Category
	for _, e := range entries {
		if e.Category == "" || seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		out = append(out, e.Category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
