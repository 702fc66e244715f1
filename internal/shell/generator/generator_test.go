package generator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/stencil/internal/core/domain"
	"github.com/artpar/stencil/internal/core/params"
	"github.com/artpar/stencil/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func genTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func setupGenerator(t *testing.T) (*Generator, string) {
	t.Helper()
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := New(store.NewFSStore(root, logger), logger)
	gen.now = genTime
	return gen, root
}

func writeDecl(t *testing.T, root, id, decl string) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(id))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "template.yaml"), []byte(decl), 0o644))
}

func writeSource(t *testing.T, root, id, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(id), filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// webFixture writes a base template and an inheriting web template with an
// app group, a compose group and a testing block.
func webFixture(t *testing.T, root string) {
	t.Helper()
	writeDecl(t, root, "base/alpine", `name: base-alpine
version: 1.0.0
description: Alpine base layer
category: base
parameters:
  log_level:
    type: string
    description: Log verbosity
    default: info
    enum: [debug, info, warn]
`)
	writeDecl(t, root, "apps/web", `name: python-web
version: 2.1.0
description: Python web service
category: app
inherits: base/alpine
parameters:
  port:
    type: integer
    description: Listen port
    default: 3000
    min: 1
    max: 65535
files:
  app:
    - Dockerfile
    - src/config.py
  compose:
    - docker-compose.yml
testing:
  health_check: curl -f http://localhost:3000/health
`)
	writeSource(t, root, "apps/web", "Dockerfile",
		"FROM python:3.12-alpine\nEXPOSE {{.port}}\nENV LOG_LEVEL={{.log_level}}\n")
	writeSource(t, root, "apps/web", "src/config.py",
		"PORT = {{.port}}\nSTAMP = \"{{.generated_at}}\"\nENGINE = \"{{.generated_by}}\"\n")
	writeSource(t, root, "apps/web", "docker-compose.yml",
		"services:\n  web:\n    image: python-web:latest\n    ports:\n      - \"{{.port}}:{{.port}}\"\n")
}

// =============================================================================
// Generate Tests
// =============================================================================

func TestGenerate_RendersWithDefaults(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)

	result, err := gen.Generate(context.Background(), Request{
		Template: "apps/web",
		DryRun:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "apps/web", result.Template)
	assert.Equal(t, "2.1.0", result.Version)
	assert.Equal(t,
		"FROM python:3.12-alpine\nEXPOSE 3000\nENV LOG_LEVEL=info\n",
		result.Files["Dockerfile"])
	assert.Equal(t,
		"PORT = 3000\nSTAMP = \"2025-06-01T12:00:00Z\"\nENGINE = \"stencil\"\n",
		result.Files["src/config.py"])
}

func TestGenerate_OverridesDefault(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)

	result, err := gen.Generate(context.Background(), Request{
		Template: "apps/web",
		Params:   map[string]domain.Value{"port": domain.NewInt(80)},
		DryRun:   true,
	})
	require.NoError(t, err)

	assert.Contains(t, result.Files["Dockerfile"], "EXPOSE 80\n")
	assert.Contains(t, result.Files["docker-compose.yml"], `"80:80"`)
}

func TestGenerate_InheritedParameterRenders(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)

	result, err := gen.Generate(context.Background(), Request{
		Template: "apps/web",
		Params:   map[string]domain.Value{"log_level": domain.NewString("debug")},
		DryRun:   true,
	})
	require.NoError(t, err)

	assert.Contains(t, result.Files["Dockerfile"], "ENV LOG_LEVEL=debug\n")
}

func TestGenerate_RejectsOutOfRangeValue(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)

	_, err := gen.Generate(context.Background(), Request{
		Template: "apps/web",
		Params:   map[string]domain.Value{"port": domain.NewInt(100000)},
		DryRun:   true,
	})
	require.Error(t, err)

	var vErr *params.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "port", vErr.Param)
	assert.Equal(t, params.RuleRange, vErr.Rule)
}

func TestGenerate_MissingRequiredParameter(t *testing.T) {
	gen, root := setupGenerator(t)
	writeDecl(t, root, "apps/cli", `name: cli-tool
version: 1.0.0
description: CLI tool
category: app
parameters:
  binary_name:
    type: string
    description: Name of the built binary
    required: true
`)

	_, err := gen.Generate(context.Background(), Request{
		Template: "apps/cli",
		DryRun:   true,
	})
	require.Error(t, err)

	var vErr *params.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "binary_name", vErr.Param)
	assert.Equal(t, params.RuleRequired, vErr.Rule)
}

func TestGenerate_WritesFilesToOutputDir(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)
	out := t.TempDir()

	result, err := gen.Generate(context.Background(), Request{
		Template:  "apps/web",
		OutputDir: out,
	})
	require.NoError(t, err)
	assert.False(t, result.DryRun)

	for rel, want := range result.Files {
		got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, want, string(got), "content mismatch for %s", rel)
	}
}

func TestGenerate_DryRunMatchesRealRun(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)
	out := t.TempDir()

	dry, err := gen.Generate(context.Background(), Request{
		Template: "apps/web",
		DryRun:   true,
	})
	require.NoError(t, err)

	written, err := gen.Generate(context.Background(), Request{
		Template:  "apps/web",
		OutputDir: out,
	})
	require.NoError(t, err)

	assert.Equal(t, written.Files, dry.Files)
}

func TestGenerate_DryRunWritesNothing(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)
	out := t.TempDir()

	_, err := gen.Generate(context.Background(), Request{
		Template:  "apps/web",
		OutputDir: out,
		DryRun:    true,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerate_MissingSourceFileFailsWithoutWrites(t *testing.T) {
	gen, root := setupGenerator(t)
	writeDecl(t, root, "apps/partial", `name: partial
version: 1.0.0
description: Template with a missing source
category: app
files:
  app:
    - present.txt
    - absent.txt
`)
	writeSource(t, root, "apps/partial", "present.txt", "ok\n")
	out := t.TempDir()

	_, err := gen.Generate(context.Background(), Request{
		Template:  "apps/partial",
		OutputDir: out,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrSourceNotFound)
	assert.Contains(t, err.Error(), "absent.txt")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed generation must not leave partial output")
}

func TestGenerate_UnknownParametersReported(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)

	result, err := gen.Generate(context.Background(), Request{
		Template: "apps/web",
		Params: map[string]domain.Value{
			"colour": domain.NewString("green"),
			"port":   domain.NewInt(8080),
		},
		DryRun: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"colour"}, result.Unknown)
	assert.Contains(t, result.Files["Dockerfile"], "EXPOSE 8080\n")
}

func TestGenerate_Deterministic(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)

	first, err := gen.Generate(context.Background(), Request{Template: "apps/web", DryRun: true})
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), Request{Template: "apps/web", DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, first.Files, second.Files)
}

func TestGenerate_RequiresOutputDir(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)

	_, err := gen.Generate(context.Background(), Request{Template: "apps/web"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoOutputDir)
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestValidate_CleanTemplate(t *testing.T) {
	gen, root := setupGenerator(t)
	webFixture(t, root)

	report := gen.Validate(context.Background(), "apps/web")

	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestValidate_CollectsAllMissingFiles(t *testing.T) {
	gen, root := setupGenerator(t)
	writeDecl(t, root, "apps/bare", `name: bare
version: 1.0.0
description: Declares files it does not ship
category: app
files:
  app:
    - one.txt
    - two.txt
`)

	report := gen.Validate(context.Background(), "apps/bare")

	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 2)
	assert.Contains(t, report.Errors[0], "one.txt")
	assert.Contains(t, report.Errors[1], "two.txt")
}

func TestValidate_RenderErrorReported(t *testing.T) {
	gen, root := setupGenerator(t)
	writeDecl(t, root, "apps/broken", `name: broken
version: 1.0.0
description: Has a syntax error in a source file
category: app
files:
  app:
    - Dockerfile
`)
	writeSource(t, root, "apps/broken", "Dockerfile", "EXPOSE {{.port\n")

	report := gen.Validate(context.Background(), "apps/broken")

	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "Dockerfile")
}

func TestValidate_RequiredWithoutDefaultWarns(t *testing.T) {
	gen, root := setupGenerator(t)
	writeDecl(t, root, "apps/cli", `name: cli-tool
version: 1.0.0
description: CLI tool
category: app
parameters:
  binary_name:
    type: string
    description: Name of the built binary
    required: true
testing:
  test_commands:
    - --version
`)

	report := gen.Validate(context.Background(), "apps/cli")

	assert.True(t, report.Valid)
	assert.Contains(t, report.Warnings,
		`required parameter "binary_name" has no default; design-time rendering omits it`)
}

func TestValidate_ComposeFindingsAreWarnings(t *testing.T) {
	gen, root := setupGenerator(t)
	writeDecl(t, root, "apps/svc", `name: svc
version: 1.0.0
description: Service with a defective compose file
category: app
files:
  compose:
    - docker-compose.yml
testing:
  health_check: curl -f http://localhost/health
`)
	writeSource(t, root, "apps/svc", "docker-compose.yml",
		"services:\n  web:\n    restart: always\n")

	report := gen.Validate(context.Background(), "apps/svc")

	assert.True(t, report.Valid)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "compose check:")
	assert.Contains(t, report.Warnings[0], "docker-compose.yml")
}

func TestValidate_NoTestingConfigWarns(t *testing.T) {
	gen, root := setupGenerator(t)
	writeDecl(t, root, "apps/untested", `name: untested
version: 1.0.0
description: No testing block
category: app
`)

	report := gen.Validate(context.Background(), "apps/untested")

	assert.True(t, report.Valid)
	assert.Contains(t, report.Warnings, "no testing configuration declared")
}

func TestValidate_ReservedParameterIsError(t *testing.T) {
	gen, root := setupGenerator(t)
	writeDecl(t, root, "apps/reserved", `name: reserved
version: 1.0.0
description: Shadows an injected key
category: app
parameters:
  generated_at:
    type: string
    description: Collides with the injected timestamp
`)

	report := gen.Validate(context.Background(), "apps/reserved")

	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "generated_at")
}

func TestValidate_UnknownTemplateReported(t *testing.T) {
	gen, _ := setupGenerator(t)

	report := gen.Validate(context.Background(), "apps/ghost")

	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "apps/ghost")
}
