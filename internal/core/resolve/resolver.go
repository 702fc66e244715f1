// Package resolve combines a template's declaration with its full ancestor
// chain into one effective definition. The merge itself is pure; declaration
// reads go through the Loader interface supplied by the caller.
package resolve

import (
	"context"
	"errors"
	"strings"

	"github.com/artpar/stencil/internal/core/domain"
)

// =============================================================================
// Errors
// =============================================================================

// CycleError reports a cyclic inheritance chain.
type CycleError struct {
	// Chain lists the identifiers along the loop, ending with the repeated
	// template, e.g. ["a", "b", "a"].
	Chain []string
}

func (e *CycleError) Error() string {
	return "inheritance cycle: " + strings.Join(e.Chain, " -> ")
}

// NewCycleError creates a new CycleError.
func NewCycleError(chain []string) *CycleError {
	return &CycleError{Chain: chain}
}

// =============================================================================
// Resolver
// =============================================================================

// Loader supplies template declarations by identifier.
type Loader interface {
	Load(ctx context.Context, id string) (*domain.Definition, error)
}

// Resolved is an effective definition with its ancestor chain merged in.
// It carries no parent reference.
type Resolved struct {
	Definition *domain.Definition

	// Chain lists the inheritance chain root-first, ending with the
	// resolved template itself.
	Chain []string
}

// Resolver walks inheritance chains through a Loader.
type Resolver struct {
	loader Loader
}

// NewResolver creates a resolver backed by the given loader.
func NewResolver(loader Loader) *Resolver {
	return &Resolver{loader: loader}
}

// Resolve loads the definition for id and merges its full ancestor chain into
// one effective definition. A definition without a parent resolves to a copy
// of itself. Cyclic chains fail with a CycleError instead of recursing.
func (r *Resolver) Resolve(ctx context.Context, id string) (*Resolved, error) {
	return r.resolve(ctx, id, nil)
}

func (r *Resolver) resolve(ctx context.Context, id string, visiting []string) (*Resolved, error) {
	for _, seen := range visiting {
		if seen == id {
			chain := append(append([]string(nil), visiting...), id)
			return nil, NewCycleError(chain)
		}
	}

	def, err := r.loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if def.Inherits == "" {
		return &Resolved{Definition: def.Clone(), Chain: []string{id}}, nil
	}

	parent, err := r.resolve(ctx, def.Inherits, append(visiting, id))
	if err != nil {
		return nil, err
	}

	merged := Merge(parent.Definition, def)
	merged.Inherits = ""

	// A merge can combine two individually valid declarations into an
	// invalid one, e.g. a child retyping a parameter while the parent's
	// pattern survives. Surface that here rather than at render time.
	if errs := domain.ValidateDefinition(id, merged); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Resolved{Definition: merged, Chain: append(parent.Chain, id)}, nil
}
