package params

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stencil/internal/core/domain"
)

// =============================================================================
// Preparation Tests
// =============================================================================

func TestPrepare_ProvidedWinsOverDefault(t *testing.T) {
	def := portDefinition(3000, 1, 65535)

	final, err := Prepare(def, map[string]domain.Value{"port": domain.NewInt(80)})
	require.NoError(t, err)
	assert.True(t, final["port"].Equal(domain.NewInt(80)))
}

func TestPrepare_DefaultApplied(t *testing.T) {
	def := portDefinition(3000, 1, 65535)

	final, err := Prepare(def, nil)
	require.NoError(t, err)
	assert.True(t, final["port"].Equal(domain.NewInt(3000)))
}

func TestPrepare_RequiredMissing(t *testing.T) {
	required := true
	def := &domain.Definition{
		Parameters: map[string]domain.ParameterSpec{
			"api_key": {Type: domain.TypeString, Description: "api key", Required: &required},
		},
	}

	_, err := Prepare(def, nil)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "api_key", verr.Param)
	assert.Equal(t, RuleRequired, verr.Rule)
}

func TestPrepare_OptionalWithoutDefaultOmitted(t *testing.T) {
	def := &domain.Definition{
		Parameters: map[string]domain.ParameterSpec{
			"extra": {Type: domain.TypeString, Description: "optional extra"},
		},
	}

	final, err := Prepare(def, nil)
	require.NoError(t, err)
	assert.NotContains(t, final, "extra")
}

func TestPrepare_UnknownProvidedDropped(t *testing.T) {
	def := portDefinition(3000, 1, 65535)
	provided := map[string]domain.Value{
		"port":    domain.NewInt(80),
		"unknown": domain.NewString("x"),
	}

	final, err := Prepare(def, provided)
	require.NoError(t, err)
	assert.NotContains(t, final, "unknown")
	assert.Equal(t, []string{"unknown"}, Unknown(def, provided))
}

func TestPrepare_ReservedCollision(t *testing.T) {
	def := &domain.Definition{
		Parameters: map[string]domain.ParameterSpec{
			"template_name": {Type: domain.TypeString, Description: "shadows injected key"},
		},
	}

	_, err := Prepare(def, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleReserved, verr.Rule)
	assert.Equal(t, "template_name", verr.Param)
}

// =============================================================================
// Type Check Tests
// =============================================================================

func TestPrepare_TypeMismatch(t *testing.T) {
	def := portDefinition(3000, 1, 65535)

	_, err := Prepare(def, map[string]domain.Value{"port": domain.NewString("eighty")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleType, verr.Rule)
	assert.Contains(t, verr.Message, "expected integer")
}

func TestPrepare_NoCoercion(t *testing.T) {
	def := portDefinition(3000, 1, 65535)

	// A numeric string stays a string and fails the integer check.
	_, err := Prepare(def, map[string]domain.Value{"port": domain.NewString("80")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleType, verr.Rule)

	// A float is not an integer.
	_, err = Prepare(def, map[string]domain.Value{"port": domain.NewFloat(80)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleType, verr.Rule)
}

// =============================================================================
// Enum Tests
// =============================================================================

func TestPrepare_Enum(t *testing.T) {
	def := &domain.Definition{
		Parameters: map[string]domain.ParameterSpec{
			"level": {
				Type:        domain.TypeString,
				Description: "level",
				Enum:        []domain.Value{domain.NewString("a"), domain.NewString("b")},
			},
		},
	}

	for _, ok := range []string{"a", "b"} {
		final, err := Prepare(def, map[string]domain.Value{"level": domain.NewString(ok)})
		require.NoError(t, err, ok)
		assert.True(t, final["level"].Equal(domain.NewString(ok)))
	}

	_, err := Prepare(def, map[string]domain.Value{"level": domain.NewString("c")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleEnum, verr.Rule)
	assert.Contains(t, verr.Message, "[a, b]")
}

// =============================================================================
// Pattern Tests
// =============================================================================

func TestPrepare_Pattern(t *testing.T) {
	def := &domain.Definition{
		Parameters: map[string]domain.ParameterSpec{
			"name": {Type: domain.TypeString, Description: "name", Pattern: "^[a-z]+$"},
		},
	}

	_, err := Prepare(def, map[string]domain.Value{"name": domain.NewString("abc")})
	assert.NoError(t, err)

	_, err = Prepare(def, map[string]domain.Value{"name": domain.NewString("ABC")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RulePattern, verr.Rule)
}

func TestPrepare_PatternMatchesInFull(t *testing.T) {
	def := &domain.Definition{
		Parameters: map[string]domain.ParameterSpec{
			"name": {Type: domain.TypeString, Description: "name", Pattern: "[a-z]+"},
		},
	}

	// A partial interior match is not enough.
	_, err := Prepare(def, map[string]domain.Value{"name": domain.NewString("abc123")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RulePattern, verr.Rule)
}

// =============================================================================
// Range Tests
// =============================================================================

func TestPrepare_Range(t *testing.T) {
	def := portDefinition(3000, 1, 65535)

	_, err := Prepare(def, map[string]domain.Value{"port": domain.NewInt(100000)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleRange, verr.Rule)
	assert.Contains(t, verr.Message, "exceeds max 65535")

	_, err = Prepare(def, map[string]domain.Value{"port": domain.NewInt(0)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleRange, verr.Rule)
	assert.Contains(t, verr.Message, "below min 1")

	_, err = Prepare(def, map[string]domain.Value{"port": domain.NewInt(65535)})
	assert.NoError(t, err, "bounds are inclusive")
}

// =============================================================================
// Context Tests
// =============================================================================

func TestRenderContext_InjectsReservedKeys(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := RenderContext(
		map[string]domain.Value{"port": domain.NewInt(8080)},
		Meta{TemplateName: "apps/web", TemplateVersion: "1.2.0", GeneratedAt: at, GeneratedBy: "stencil"},
	)

	assert.Equal(t, int64(8080), ctx["port"])
	assert.Equal(t, "apps/web", ctx[domain.KeyTemplateName])
	assert.Equal(t, "1.2.0", ctx[domain.KeyTemplateVersion])
	assert.Equal(t, "2025-06-01T12:00:00Z", ctx[domain.KeyGeneratedAt])
	assert.Equal(t, "stencil", ctx[domain.KeyGeneratedBy])
}

func TestDefaultContext_OmitsParamsWithoutDefaults(t *testing.T) {
	required := true
	def := &domain.Definition{
		Parameters: map[string]domain.ParameterSpec{
			"port":    {Type: domain.TypeInteger, Description: "port", Default: valuePtr(domain.NewInt(3000))},
			"api_key": {Type: domain.TypeString, Description: "api key", Required: &required},
		},
	}

	ctx := DefaultContext(def)
	assert.Len(t, ctx, 1)
	assert.True(t, ctx["port"].Equal(domain.NewInt(3000)))

	assert.Equal(t, []string{"api_key"}, MissingDefaults(def))
}

// =============================================================================
// Test Fixtures
// =============================================================================

func valuePtr(v domain.Value) *domain.Value { return &v }

func portDefinition(def int64, min, max float64) *domain.Definition {
	return &domain.Definition{
		Name: "web", Version: "1.0.0", Description: "web image", Category: domain.CategoryApp,
		Parameters: map[string]domain.ParameterSpec{
			"port": {
				Type:        domain.TypeInteger,
				Description: "listen port",
				Default:     valuePtr(domain.NewInt(def)),
				Min:         &min,
				Max:         &max,
			},
		},
	}
}
