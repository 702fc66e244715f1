// Package params applies the parameter contract of a resolved template:
// provided value, else declared default, else required failure, else omit,
// followed by type, enum, pattern, and range checks. Values are never
// coerced. This is part of the Functional Core - all functions are pure.
package params

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/artpar/stencil/internal/core/domain"
)

// =============================================================================
// Errors
// =============================================================================

// Rule identifies which part of the parameter contract a value violated.
type Rule string

const (
	RuleRequired Rule = "required"
	RuleType     Rule = "type"
	RuleEnum     Rule = "enum"
	RulePattern  Rule = "pattern"
	RuleRange    Rule = "range"
	RuleReserved Rule = "reserved"
)

// ValidationError reports a parameter contract violation.
type ValidationError struct {
	Param   string
	Rule    Rule
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(param string, rule Rule, message string) *ValidationError {
	return &ValidationError{
		Param:   param,
		Rule:    rule,
		Message: message,
	}
}

// =============================================================================
// Preparation
// =============================================================================

// Prepare produces the final validated parameter set for a generation call.
// It fails fast on the first violation, walking parameters in sorted order
// so the reported error is deterministic. Provided keys the definition does
// not declare are dropped; Unknown lists them for the caller to report.
func Prepare(def *domain.Definition, provided map[string]domain.Value) (map[string]domain.Value, error) {
	if collisions := ReservedCollisions(def); len(collisions) > 0 {
		name := collisions[0]
		return nil, NewValidationError(name, RuleReserved,
			fmt.Sprintf("declared parameter %q collides with an engine-injected context key", name))
	}

	final := make(map[string]domain.Value, len(def.Parameters))
	for _, name := range def.ParameterNames() {
		spec := def.Parameters[name]

		value, ok := provided[name]
		if !ok {
			switch {
			case spec.HasDefault():
				value = *spec.Default
			case spec.IsRequired():
				return nil, NewValidationError(name, RuleRequired, "required parameter is missing")
			default:
				continue
			}
		}

		if err := checkValue(name, spec, value); err != nil {
			return nil, err
		}
		final[name] = value
	}

	return final, nil
}

// checkValue validates one included value against its spec, in contract
// order: type, enum, pattern, range.
func checkValue(name string, spec domain.ParameterSpec, value domain.Value) error {
	if !value.Matches(spec.Type) {
		return NewValidationError(name, RuleType,
			fmt.Sprintf("expected %s, got %s (%s)", spec.Type, value.Kind(), value))
	}

	if len(spec.Enum) > 0 {
		member := false
		for _, allowed := range spec.Enum {
			if value.Equal(allowed) {
				member = true
				break
			}
		}
		if !member {
			allowed := make([]string, len(spec.Enum))
			for i, v := range spec.Enum {
				allowed[i] = v.String()
			}
			return NewValidationError(name, RuleEnum,
				fmt.Sprintf("value %s is not one of [%s]", value, strings.Join(allowed, ", ")))
		}
	}

	if spec.Pattern != "" && spec.Type == domain.TypeString {
		re, err := regexp.Compile(`\A(?:` + spec.Pattern + `)\z`)
		if err != nil {
			return NewValidationError(name, RulePattern,
				fmt.Sprintf("pattern %q does not compile: %v", spec.Pattern, err))
		}
		if !re.MatchString(value.Str()) {
			return NewValidationError(name, RulePattern,
				fmt.Sprintf("value %q does not match pattern %q", value.Str(), spec.Pattern))
		}
	}

	if spec.Type == domain.TypeInteger {
		n := value.Float()
		if spec.Min != nil && n < *spec.Min {
			return NewValidationError(name, RuleRange,
				fmt.Sprintf("value %s is below min %v", value, *spec.Min))
		}
		if spec.Max != nil && n > *spec.Max {
			return NewValidationError(name, RuleRange,
				fmt.Sprintf("value %s exceeds max %v", value, *spec.Max))
		}
	}

	return nil
}

// =============================================================================
// Context Building
// =============================================================================

// Meta carries the engine-injected values for the reserved context keys.
type Meta struct {
	TemplateName    string
	TemplateVersion string
	GeneratedAt     time.Time
	GeneratedBy     string
}

// RenderContext converts a final parameter set to plain Go values and
// injects the reserved keys.
func RenderContext(final map[string]domain.Value, meta Meta) map[string]any {
	ctx := make(map[string]any, len(final)+4)
	for name, value := range final {
		ctx[name] = value.Interface()
	}
	ctx[domain.KeyTemplateName] = meta.TemplateName
	ctx[domain.KeyTemplateVersion] = meta.TemplateVersion
	ctx[domain.KeyGeneratedAt] = meta.GeneratedAt.UTC().Format(time.RFC3339)
	ctx[domain.KeyGeneratedBy] = meta.GeneratedBy
	return ctx
}

// DefaultContext returns the defaults-only parameter set used by design-time
// validation. Parameters without defaults are omitted and nothing is
// validated; a defective default surfaces as a render error instead.
func DefaultContext(def *domain.Definition) map[string]domain.Value {
	out := make(map[string]domain.Value)
	for name, spec := range def.Parameters {
		if spec.HasDefault() {
			out[name] = *spec.Default
		}
	}
	return out
}

// =============================================================================
// Inspection
// =============================================================================

// Unknown returns the provided keys the definition does not declare, sorted.
func Unknown(def *domain.Definition, provided map[string]domain.Value) []string {
	var out []string
	for name := range provided {
		if _, ok := def.Parameters[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ReservedCollisions returns declared parameter names that collide with
// engine-injected context keys, sorted.
func ReservedCollisions(def *domain.Definition) []string {
	var out []string
	for name := range def.Parameters {
		if domain.IsReservedKey(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// MissingDefaults returns required parameter names that declare no default,
// sorted. Design-time validation reports these as warnings since they are
// omitted from the defaults-only render context.
func MissingDefaults(def *domain.Definition) []string {
	var out []string
	for name, spec := range def.Parameters {
		if spec.IsRequired() && !spec.HasDefault() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
