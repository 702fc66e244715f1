package resolve

import (
	"github.com/artpar/stencil/internal/core/domain"
)

// =============================================================================
// Merge
// =============================================================================

// Merge combines a resolved parent definition with a child declaration and
// returns a new definition. Neither input is mutated.
//
// The rule per field is explicit:
//
//	name, version, description, category,
//	author, license                        child wins when set
//	tags, platforms                        replace wholesale (nil = inherit,
//	                                       empty list = explicit clear)
//	parameters                             merged key-by-key; within a key,
//	                                       field-by-field (see mergeParameter)
//	files                                  merged key-by-key; path lists replace
//	dependencies                           per list (build/runtime/test): replace
//	testing                                field-by-field; build_args and
//	                                       env_vars merge key-by-key
//	registry                               field-by-field; tags replace
//	inherits                               untouched here; cleared by the resolver
func Merge(parent, child *domain.Definition) *domain.Definition {
	out := parent.Clone()
	c := child.Clone()

	if c.Name != "" {
		out.Name = c.Name
	}
	if c.Version != "" {
		out.Version = c.Version
	}
	if c.Description != "" {
		out.Description = c.Description
	}
	if c.Category != "" {
		out.Category = c.Category
	}
	if c.Author != "" {
		out.Author = c.Author
	}
	if c.License != "" {
		out.License = c.License
	}

	if c.Tags != nil {
		out.Tags = c.Tags
	}
	if c.Platforms != nil {
		out.Platforms = c.Platforms
	}

	if len(c.Parameters) > 0 {
		if out.Parameters == nil {
			out.Parameters = make(map[string]domain.ParameterSpec, len(c.Parameters))
		}
		for name, spec := range c.Parameters {
			base, ok := out.Parameters[name]
			if !ok {
				out.Parameters[name] = spec
				continue
			}
			out.Parameters[name] = mergeParameter(base, spec)
		}
	}

	if len(c.Files) > 0 {
		if out.Files == nil {
			out.Files = make(map[string]domain.FileList, len(c.Files))
		}
		for group, list := range c.Files {
			out.Files[group] = list
		}
	}

	if c.Dependencies.Build != nil {
		out.Dependencies.Build = c.Dependencies.Build
	}
	if c.Dependencies.Runtime != nil {
		out.Dependencies.Runtime = c.Dependencies.Runtime
	}
	if c.Dependencies.Test != nil {
		out.Dependencies.Test = c.Dependencies.Test
	}

	if c.Testing.HealthCheck != "" {
		out.Testing.HealthCheck = c.Testing.HealthCheck
	}
	if c.Testing.TestCommands != nil {
		out.Testing.TestCommands = c.Testing.TestCommands
	}
	if c.Testing.IntegrationTests != nil {
		out.Testing.IntegrationTests = c.Testing.IntegrationTests
	}
	out.Testing.BuildArgs = mergeStringMap(out.Testing.BuildArgs, c.Testing.BuildArgs)
	out.Testing.EnvVars = mergeStringMap(out.Testing.EnvVars, c.Testing.EnvVars)

	if c.Registry.Namespace != "" {
		out.Registry.Namespace = c.Registry.Namespace
	}
	if c.Registry.Repository != "" {
		out.Registry.Repository = c.Registry.Repository
	}
	if c.Registry.Tags != nil {
		out.Registry.Tags = c.Registry.Tags
	}

	return out
}

// mergeParameter overlays a child's parameter spec on the parent's. A child
// that declares only, say, a new default keeps the parent's type,
// description, required flag, enum, pattern, and bounds.
func mergeParameter(base, override domain.ParameterSpec) domain.ParameterSpec {
	out := base
	if override.Type != "" {
		out.Type = override.Type
	}
	if override.Description != "" {
		out.Description = override.Description
	}
	if override.Default != nil {
		out.Default = override.Default
	}
	if override.Required != nil {
		out.Required = override.Required
	}
	if override.Enum != nil {
		out.Enum = override.Enum
	}
	if override.Pattern != "" {
		out.Pattern = override.Pattern
	}
	if override.Min != nil {
		out.Min = override.Min
	}
	if override.Max != nil {
		out.Max = override.Max
	}
	return out
}

func mergeStringMap(base, override map[string]string) map[string]string {
	if len(override) == 0 {
		return base
	}
	out := base
	if out == nil {
		out = make(map[string]string, len(override))
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
