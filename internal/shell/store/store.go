package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/artpar/stencil/internal/core/domain"
)

// DeclarationFile is the per-template declaration filename.
const DeclarationFile = "template.yaml"

// =============================================================================
// FSStore
// =============================================================================

// Info pairs a template identifier with its loaded declaration.
type Info struct {
	ID         string
	Definition *domain.Definition
}

// FSStore reads template declarations from a directory tree. Every template
// lives in its own directory as <root>/<id>/template.yaml with its source
// files next to it; identifiers use forward slashes on every platform.
//
// Parsed declarations are cached. The cache is populated at most once per
// identifier and entries are read-only afterwards, so concurrent loads at
// worst duplicate parse work.
type FSStore struct {
	root   string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*domain.Definition
}

// NewFSStore creates a store rooted at the given templates directory.
func NewFSStore(root string, logger *slog.Logger) *FSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSStore{
		root:   root,
		logger: logger,
		cache:  make(map[string]*domain.Definition),
	}
}

// Root returns the templates root directory.
func (s *FSStore) Root() string {
	return s.root
}

// Dir returns the directory holding a template's declaration and sources.
func (s *FSStore) Dir(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(id))
}

// Load reads and validates the declaration for id, serving repeat loads
// from the cache. The returned definition is shared: callers must treat it
// as read-only. Resolution clones before merging.
func (s *FSStore) Load(ctx context.Context, id string) (*domain.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	def, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return def, nil
	}

	def, err := s.read(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cached, ok := s.cache[id]; ok {
		// Another goroutine finished the first load; keep its entry.
		def = cached
	} else {
		s.cache[id] = def
	}
	s.mu.Unlock()

	return def, nil
}

func (s *FSStore) read(id string) (*domain.Definition, error) {
	path := filepath.Join(s.Dir(id), DeclarationFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewNotFoundError(id, path, ErrNotFound)
		}
		return nil, fmt.Errorf("read declaration %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def domain.Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewSchemaError(id, "", "declaration is empty", nil)
		}
		return nil, domain.NewSchemaError(id, "", "cannot parse declaration", err)
	}

	if errs := domain.ValidateDefinition(id, &def); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &def, nil
}

// Invalidate drops one cached declaration, forcing a re-read on next load.
func (s *FSStore) Invalidate(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

// Reset clears the whole declaration cache.
func (s *FSStore) Reset() {
	s.mu.Lock()
	s.cache = make(map[string]*domain.Definition)
	s.mu.Unlock()
}

// =============================================================================
// Source Files
// =============================================================================

// SourcePath returns the on-disk path of a declared file inside the
// template directory. Paths that climb out of the directory are rejected.
func (s *FSStore) SourcePath(id, rel string) (string, error) {
	clean := filepath.FromSlash(rel)
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("template %s: %w: %s", id, ErrUnsafePath, rel)
	}
	return filepath.Join(s.Dir(id), clean), nil
}

// ReadSource reads a declared source file for a template. A missing file is
// reported as a NotFoundError wrapping ErrSourceNotFound.
func (s *FSStore) ReadSource(id, rel string) (string, error) {
	path, err := s.SourcePath(id, rel)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewNotFoundError(id, rel, ErrSourceNotFound)
		}
		return "", fmt.Errorf("read source %s: %w", path, err)
	}
	return string(data), nil
}

// SourceExists reports whether a declared file is present without reading
// it. Unsafe paths count as absent.
func (s *FSStore) SourceExists(id, rel string) bool {
	path, err := s.SourcePath(id, rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// =============================================================================
// Listing
// =============================================================================

// IDs returns the identifier of every directory under the root that holds a
// declaration file, sorted lexically. Hidden directories are skipped.
func (s *FSStore) IDs() ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("templates root %s: %w", s.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates root %s: %w", s.root, ErrNotDirectory)
	}

	var ids []string
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}

		if _, statErr := os.Stat(filepath.Join(path, DeclarationFile)); statErr == nil {
			rel, relErr := filepath.Rel(s.root, path)
			if relErr != nil {
				return relErr
			}
			if rel != "." {
				ids = append(ids, filepath.ToSlash(rel))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(ids)
	return ids, nil
}

// List loads every discoverable template and returns them sorted by
// category, then name. Declarations that fail to load are logged and
// skipped so one broken template does not hide the rest.
func (s *FSStore) List(ctx context.Context) ([]Info, error) {
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		def, err := s.Load(ctx, id)
		if err != nil {
			s.logger.Warn("skipping unloadable template", "template", id, "error", err)
			continue
		}
		infos = append(infos, Info{ID: id, Definition: def})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Definition.Category != infos[j].Definition.Category {
			return infos[i].Definition.Category < infos[j].Definition.Category
		}
		return infos[i].Definition.Name < infos[j].Definition.Name
	})
	return infos, nil
}
