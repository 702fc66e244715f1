// Package domain contains the core template model and validation logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Category
// =============================================================================

type Category string

const (
	CategoryApp            Category = "app"
	CategoryDatabase       Category = "database"
	CategoryInfrastructure Category = "infrastructure"
	CategoryMicroservice   Category = "microservice"
	CategoryBase           Category = "base"
)

// IsValid checks if the category is one of the fixed set.
func (c Category) IsValid() bool {
	switch c {
	case CategoryApp, CategoryDatabase, CategoryInfrastructure, CategoryMicroservice, CategoryBase:
		return true
	default:
		return false
	}
}

// Categories returns all valid categories in display order.
func Categories() []Category {
	return []Category{
		CategoryApp,
		CategoryDatabase,
		CategoryInfrastructure,
		CategoryMicroservice,
		CategoryBase,
	}
}

// =============================================================================
// Parameter Types
// =============================================================================

type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// IsValid checks if the parameter type is valid.
func (t ParamType) IsValid() bool {
	switch t {
	case TypeString, TypeInteger, TypeBoolean, TypeArray, TypeObject:
		return true
	default:
		return false
	}
}

// =============================================================================
// ParameterSpec
// =============================================================================

// ParameterSpec is the typed, constrained contract for one named input a
// template accepts. Pointer fields distinguish "not declared" (nil) from a
// declared zero value, which matters during inheritance merging.
type ParameterSpec struct {
	Type        ParamType `yaml:"type"`
	Description string    `yaml:"description"`
	Default     *Value    `yaml:"default,omitempty"`
	Required    *bool     `yaml:"required,omitempty"`
	Enum        []Value   `yaml:"enum,omitempty"`
	Pattern     string    `yaml:"pattern,omitempty"`
	Min         *float64  `yaml:"min,omitempty"`
	Max         *float64  `yaml:"max,omitempty"`
}

// IsRequired reports whether the parameter is declared required.
func (p ParameterSpec) IsRequired() bool {
	return p.Required != nil && *p.Required
}

// HasDefault reports whether the parameter declares a default value.
func (p ParameterSpec) HasDefault() bool {
	return p.Default != nil
}

// Clone returns a deep copy of the parameter spec.
func (p ParameterSpec) Clone() ParameterSpec {
	out := p
	if p.Default != nil {
		d := *p.Default
		out.Default = &d
	}
	if p.Required != nil {
		r := *p.Required
		out.Required = &r
	}
	if p.Min != nil {
		m := *p.Min
		out.Min = &m
	}
	if p.Max != nil {
		m := *p.Max
		out.Max = &m
	}
	if p.Enum != nil {
		out.Enum = append([]Value(nil), p.Enum...)
	}
	return out
}

// =============================================================================
// FileList
// =============================================================================

// FileList is a list of relative file paths belonging to one file group.
// A declaration may give a single string or a list of strings; both forms
// decode to a FileList.
type FileList []string

func (f *FileList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, ErrFileEntryInvalid)
		}
		*f = FileList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, ErrFileEntryInvalid)
		}
		*f = FileList(items)
		return nil
	default:
		return fmt.Errorf("line %d: %w", node.Line, ErrFileEntryInvalid)
	}
}

func (f FileList) MarshalYAML() (any, error) {
	if len(f) == 1 {
		return f[0], nil
	}
	return []string(f), nil
}

// =============================================================================
// Dependencies / Testing / Registry
// =============================================================================

// Dependencies lists packages needed at build, run, and test time.
type Dependencies struct {
	Build   []string `yaml:"build,omitempty"`
	Runtime []string `yaml:"runtime,omitempty"`
	Test    []string `yaml:"test,omitempty"`
}

func (d Dependencies) IsZero() bool {
	return d.Build == nil && d.Runtime == nil && d.Test == nil
}

func (d Dependencies) clone() Dependencies {
	return Dependencies{
		Build:   cloneStrings(d.Build),
		Runtime: cloneStrings(d.Runtime),
		Test:    cloneStrings(d.Test),
	}
}

// Testing describes how a generated image is exercised by the test harness.
type Testing struct {
	HealthCheck      string            `yaml:"health_check,omitempty"`
	TestCommands     []string          `yaml:"test_commands,omitempty"`
	IntegrationTests []string          `yaml:"integration_tests,omitempty"`
	BuildArgs        map[string]string `yaml:"build_args,omitempty"`
	EnvVars          map[string]string `yaml:"env_vars,omitempty"`
}

func (t Testing) IsZero() bool {
	return t.HealthCheck == "" && t.TestCommands == nil && t.IntegrationTests == nil &&
		t.BuildArgs == nil && t.EnvVars == nil
}

func (t Testing) clone() Testing {
	return Testing{
		HealthCheck:      t.HealthCheck,
		TestCommands:     cloneStrings(t.TestCommands),
		IntegrationTests: cloneStrings(t.IntegrationTests),
		BuildArgs:        cloneStringMap(t.BuildArgs),
		EnvVars:          cloneStringMap(t.EnvVars),
	}
}

// Registry carries image-registry metadata used for tag generation.
type Registry struct {
	Namespace  string   `yaml:"namespace,omitempty"`
	Repository string   `yaml:"repository,omitempty"`
	Tags       []string `yaml:"tags,omitempty"`
}

func (r Registry) IsZero() bool {
	return r.Namespace == "" && r.Repository == "" && r.Tags == nil
}

func (r Registry) clone() Registry {
	return Registry{
		Namespace:  r.Namespace,
		Repository: r.Repository,
		Tags:       cloneStrings(r.Tags),
	}
}

// =============================================================================
// Definition
// =============================================================================

// Definition is one template's declaration as parsed from its template.yaml.
// It is immutable once loaded; inheritance resolution works on clones.
type Definition struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description"`
	Category    Category `yaml:"category"`
	Author      string   `yaml:"author,omitempty"`
	License     string   `yaml:"license,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`

	// Inherits names the parent template by identifier (e.g. "base/alpine").
	Inherits string `yaml:"inherits,omitempty"`

	Parameters   map[string]ParameterSpec `yaml:"parameters,omitempty"`
	Files        map[string]FileList      `yaml:"files,omitempty"`
	Dependencies Dependencies             `yaml:"dependencies,omitempty"`
	Testing      Testing                  `yaml:"testing,omitempty"`
	Platforms    []string                 `yaml:"platforms,omitempty"`
	Registry     Registry                 `yaml:"registry,omitempty"`
}

// Clone returns a deep copy of the definition.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	out := *d
	out.Tags = cloneStrings(d.Tags)
	out.Platforms = cloneStrings(d.Platforms)
	if d.Parameters != nil {
		out.Parameters = make(map[string]ParameterSpec, len(d.Parameters))
		for k, v := range d.Parameters {
			out.Parameters[k] = v.Clone()
		}
	}
	if d.Files != nil {
		out.Files = make(map[string]FileList, len(d.Files))
		for k, v := range d.Files {
			out.Files[k] = append(FileList(nil), v...)
		}
	}
	out.Dependencies = d.Dependencies.clone()
	out.Testing = d.Testing.clone()
	out.Registry = d.Registry.clone()
	return &out
}

// FileGroups returns the file group names in sorted order.
func (d *Definition) FileGroups() []string {
	groups := make([]string, 0, len(d.Files))
	for g := range d.Files {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// ParameterNames returns the declared parameter names in sorted order.
func (d *Definition) ParameterNames() []string {
	names := make([]string, 0, len(d.Parameters))
	for n := range d.Parameters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// Reserved Render Keys
// =============================================================================

// Render-context keys injected by the engine. A template may not declare a
// parameter under any of these names.
const (
	KeyTemplateName    = "template_name"
	KeyTemplateVersion = "template_version"
	KeyGeneratedAt     = "generated_at"
	KeyGeneratedBy     = "generated_by"
)

// IsReservedKey reports whether name is an engine-injected context key.
func IsReservedKey(name string) bool {
	switch name {
	case KeyTemplateName, KeyTemplateVersion, KeyGeneratedAt, KeyGeneratedBy:
		return true
	default:
		return false
	}
}

// ReservedKeys returns all engine-injected context keys.
func ReservedKeys() []string {
	return []string{KeyTemplateName, KeyTemplateVersion, KeyGeneratedAt, KeyGeneratedBy}
}

// =============================================================================
// Validation Functions (Pure)
// =============================================================================

// ValidateDefinition checks a parsed declaration against the structural
// schema and returns all defects found. template is the identifier used in
// error messages; it may differ from the declared name.
func ValidateDefinition(template string, d *Definition) []error {
	var errs []error

	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, NewSchemaError(template, "name", "name is required", ErrFieldRequired))
	}
	if strings.TrimSpace(d.Version) == "" {
		errs = append(errs, NewSchemaError(template, "version", "version is required", ErrFieldRequired))
	}
	if strings.TrimSpace(d.Description) == "" {
		errs = append(errs, NewSchemaError(template, "description", "description is required", ErrFieldRequired))
	}
	if d.Category == "" {
		errs = append(errs, NewSchemaError(template, "category", "category is required", ErrFieldRequired))
	} else if !d.Category.IsValid() {
		errs = append(errs, NewSchemaError(template, "category",
			fmt.Sprintf("%q is not one of %v", d.Category, Categories()), ErrInvalidCategory))
	}

	for _, name := range d.ParameterNames() {
		errs = append(errs, validateParameterSpec(template, name, d.Parameters[name])...)
	}

	for _, group := range d.FileGroups() {
		for i, path := range d.Files[group] {
			if strings.TrimSpace(path) == "" {
				errs = append(errs, NewSchemaError(template,
					fmt.Sprintf("files.%s[%d]", group, i), "file path must not be empty", ErrFileEntryEmpty))
			}
		}
	}

	return errs
}

func validateParameterSpec(template, name string, spec ParameterSpec) []error {
	var errs []error
	field := "parameters." + name

	if spec.Type == "" {
		errs = append(errs, NewSchemaError(template, field+".type", "type is required", ErrFieldRequired))
	} else if !spec.Type.IsValid() {
		errs = append(errs, NewSchemaError(template, field+".type",
			fmt.Sprintf("%q is not one of string, integer, boolean, array, object", spec.Type), ErrInvalidParamType))
	}
	if strings.TrimSpace(spec.Description) == "" {
		errs = append(errs, NewSchemaError(template, field+".description", "description is required", ErrFieldRequired))
	}

	// Constraint checks only make sense against a usable declared type.
	if !spec.Type.IsValid() {
		return errs
	}

	if spec.Default != nil && !spec.Default.Matches(spec.Type) {
		errs = append(errs, NewSchemaError(template, field+".default",
			fmt.Sprintf("default %s is %s, declared type is %s", spec.Default, spec.Default.Kind(), spec.Type),
			ErrDefaultTypeMismatch))
	}
	for i, ev := range spec.Enum {
		if !ev.Matches(spec.Type) {
			errs = append(errs, NewSchemaError(template, fmt.Sprintf("%s.enum[%d]", field, i),
				fmt.Sprintf("enum value %s is %s, declared type is %s", ev, ev.Kind(), spec.Type),
				ErrEnumTypeMismatch))
		}
	}
	if spec.Pattern != "" {
		if spec.Type != TypeString {
			errs = append(errs, NewSchemaError(template, field+".pattern",
				"pattern applies only to string parameters", ErrPatternNotString))
		} else if _, err := regexp.Compile(spec.Pattern); err != nil {
			errs = append(errs, NewSchemaError(template, field+".pattern", err.Error(), ErrInvalidPattern))
		}
	}
	if (spec.Min != nil || spec.Max != nil) && spec.Type != TypeInteger {
		errs = append(errs, NewSchemaError(template, field+".min",
			"min/max apply only to integer parameters", ErrRangeNotInteger))
	}
	if spec.Min != nil && spec.Max != nil && *spec.Min > *spec.Max {
		errs = append(errs, NewSchemaError(template, field+".min",
			fmt.Sprintf("min %v is greater than max %v", *spec.Min, *spec.Max), ErrRangeInverted))
	}

	return errs
}

// =============================================================================
// Helpers
// =============================================================================

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
