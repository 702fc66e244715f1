package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Declaration Decoding Tests
// =============================================================================

func TestDefinition_DecodeFull(t *testing.T) {
	var def Definition
	err := yaml.Unmarshal([]byte(fullDeclaration), &def)
	require.NoError(t, err)

	assert.Equal(t, "python-fastapi", def.Name)
	assert.Equal(t, "1.2.0", def.Version)
	assert.Equal(t, CategoryApp, def.Category)
	assert.Equal(t, "base/python", def.Inherits)
	assert.Equal(t, []string{"python", "api"}, def.Tags)
	assert.Equal(t, []string{"linux/amd64", "linux/arm64"}, def.Platforms)

	port, ok := def.Parameters["port"]
	require.True(t, ok)
	assert.Equal(t, TypeInteger, port.Type)
	require.NotNil(t, port.Default)
	assert.True(t, port.Default.Equal(NewInt(8000)))
	require.NotNil(t, port.Min)
	assert.Equal(t, float64(1), *port.Min)
	require.NotNil(t, port.Max)
	assert.Equal(t, float64(65535), *port.Max)

	level, ok := def.Parameters["log_level"]
	require.True(t, ok)
	assert.Equal(t, TypeString, level.Type)
	require.Len(t, level.Enum, 3)
	assert.True(t, level.Enum[0].Equal(NewString("debug")))

	assert.Equal(t, FileList{"Dockerfile"}, def.Files["dockerfile"])
	assert.Equal(t, FileList{"config/app.conf", "config/logging.conf"}, def.Files["config"])

	assert.Equal(t, []string{"gcc"}, def.Dependencies.Build)
	assert.Equal(t, "curl -f http://localhost:8000/health", def.Testing.HealthCheck)
	assert.Equal(t, "myorg", def.Registry.Namespace)
}

func TestDefinition_DecodeRejectsInvalidFileEntry(t *testing.T) {
	doc := `
name: broken
version: 1.0.0
description: broken files block
category: app
files:
  dockerfile:
    nested: map
`
	var def Definition
	err := yaml.Unmarshal([]byte(doc), &def)
	assert.ErrorIs(t, err, ErrFileEntryInvalid)
}

func TestFileList_ScalarAndSequenceForms(t *testing.T) {
	doc := `
scalar: Dockerfile
sequence:
  - a.conf
  - b.conf
`
	var groups map[string]FileList
	err := yaml.Unmarshal([]byte(doc), &groups)
	require.NoError(t, err)
	assert.Equal(t, FileList{"Dockerfile"}, groups["scalar"])
	assert.Equal(t, FileList{"a.conf", "b.conf"}, groups["sequence"])
}

// =============================================================================
// Definition Validation Tests
// =============================================================================

func TestValidateDefinition_Valid(t *testing.T) {
	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(fullDeclaration), &def))

	errs := ValidateDefinition("apps/python/fastapi", &def)
	assert.Empty(t, errs)
}

func TestValidateDefinition_MissingRequiredFields(t *testing.T) {
	def := Definition{}
	errs := ValidateDefinition("broken", &def)
	require.Len(t, errs, 4)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrFieldRequired)
	}

	fields := make([]string, 0, len(errs))
	for _, err := range errs {
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "broken", se.Template)
		fields = append(fields, se.Field)
	}
	assert.Equal(t, []string{"name", "version", "description", "category"}, fields)
}

func TestValidateDefinition_InvalidCategory(t *testing.T) {
	def := Definition{Name: "x", Version: "1.0.0", Description: "d", Category: "webapp"}
	errs := ValidateDefinition("x", &def)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrInvalidCategory)
}

func TestValidateDefinition_ParameterSpecDefects(t *testing.T) {
	min := 10.0
	max := 5.0
	def := Definition{
		Name: "x", Version: "1.0.0", Description: "d", Category: CategoryApp,
		Parameters: map[string]ParameterSpec{
			"no_type":      {Description: "missing type"},
			"bad_type":     {Type: "float", Description: "bad type"},
			"no_desc":      {Type: TypeString},
			"bad_default":  {Type: TypeInteger, Description: "d", Default: ptrValue(NewString("eighty"))},
			"bad_enum":     {Type: TypeString, Description: "d", Enum: []Value{NewInt(1)}},
			"bad_pattern":  {Type: TypeString, Description: "d", Pattern: "["},
			"int_pattern":  {Type: TypeInteger, Description: "d", Pattern: "^a$"},
			"string_range": {Type: TypeString, Description: "d", Min: &min},
			"inverted":     {Type: TypeInteger, Description: "d", Min: &min, Max: &max},
		},
	}

	errs := ValidateDefinition("x", &def)

	assert.True(t, hasSchemaErr(errs, "parameters.no_type.type", ErrFieldRequired))
	assert.True(t, hasSchemaErr(errs, "parameters.bad_type.type", ErrInvalidParamType))
	assert.True(t, hasSchemaErr(errs, "parameters.no_desc.description", ErrFieldRequired))
	assert.True(t, hasSchemaErr(errs, "parameters.bad_default.default", ErrDefaultTypeMismatch))
	assert.True(t, hasSchemaErr(errs, "parameters.bad_enum.enum[0]", ErrEnumTypeMismatch))
	assert.True(t, hasSchemaErr(errs, "parameters.bad_pattern.pattern", ErrInvalidPattern))
	assert.True(t, hasSchemaErr(errs, "parameters.int_pattern.pattern", ErrPatternNotString))
	assert.True(t, hasSchemaErr(errs, "parameters.string_range.min", ErrRangeNotInteger))
	assert.True(t, hasSchemaErr(errs, "parameters.inverted.min", ErrRangeInverted))
}

func TestValidateDefinition_EmptyFilePath(t *testing.T) {
	def := Definition{
		Name: "x", Version: "1.0.0", Description: "d", Category: CategoryApp,
		Files: map[string]FileList{"config": {"ok.conf", "  "}},
	}
	errs := ValidateDefinition("x", &def)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrFileEntryEmpty)

	var se *SchemaError
	require.ErrorAs(t, errs[0], &se)
	assert.Equal(t, "files.config[1]", se.Field)
}

// =============================================================================
// Clone Tests
// =============================================================================

func TestDefinition_CloneIsDeep(t *testing.T) {
	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(fullDeclaration), &def))

	clone := def.Clone()
	clone.Tags[0] = "mutated"
	clone.Platforms[0] = "mutated"
	spec := clone.Parameters["port"]
	*spec.Min = 99
	clone.Parameters["port"] = spec
	clone.Files["config"][0] = "mutated"
	clone.Dependencies.Build[0] = "mutated"
	clone.Testing.BuildArgs["PYTHON_VERSION"] = "mutated"
	clone.Registry.Tags[0] = "mutated"

	assert.Equal(t, "python", def.Tags[0])
	assert.Equal(t, "linux/amd64", def.Platforms[0])
	assert.Equal(t, float64(1), *def.Parameters["port"].Min)
	assert.Equal(t, "config/app.conf", def.Files["config"][0])
	assert.Equal(t, "gcc", def.Dependencies.Build[0])
	assert.Equal(t, "3.12", def.Testing.BuildArgs["PYTHON_VERSION"])
	assert.Equal(t, "latest", def.Registry.Tags[0])
}

// =============================================================================
// Reserved Key Tests
// =============================================================================

func TestIsReservedKey(t *testing.T) {
	for _, key := range ReservedKeys() {
		assert.True(t, IsReservedKey(key), key)
	}
	assert.False(t, IsReservedKey("port"))
	assert.False(t, IsReservedKey("template"))
}

// =============================================================================
// Test Fixtures
// =============================================================================

func ptrValue(v Value) *Value { return &v }

func hasSchemaErr(errs []error, field string, sentinel error) bool {
	for _, err := range errs {
		var se *SchemaError
		if errors.As(err, &se) && se.Field == field {
			return errors.Is(err, sentinel)
		}
	}
	return false
}

const fullDeclaration = `
name: python-fastapi
version: 1.2.0
description: FastAPI application image
category: app
author: platform team
license: MIT
tags: [python, api]
inherits: base/python
parameters:
  port:
    type: integer
    description: Port the application listens on
    default: 8000
    min: 1
    max: 65535
  log_level:
    type: string
    description: Application log level
    default: info
    enum: [debug, info, warning]
  workers:
    type: integer
    description: Number of worker processes
    required: true
files:
  dockerfile: Dockerfile
  compose: docker-compose.yml
  config:
    - config/app.conf
    - config/logging.conf
dependencies:
  build: [gcc]
  runtime: [python3]
  test: [pytest]
testing:
  health_check: curl -f http://localhost:8000/health
  test_commands:
    - pytest -q
  build_args:
    PYTHON_VERSION: "3.12"
  env_vars:
    ENV: test
platforms: [linux/amd64, linux/arm64]
registry:
  namespace: myorg
  repository: fastapi
  tags: [latest]
`
