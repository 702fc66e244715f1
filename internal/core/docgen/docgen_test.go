package docgen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stencil/internal/core/domain"
)

// =============================================================================
// Template Page Tests
// =============================================================================

func TestTemplatePages_PathsAndCount(t *testing.T) {
	pages, err := TemplatePages("apps/python/fastapi", docFixture(), docTime())

	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "apps/python/fastapi/README.md", pages[0].Path)
	assert.Equal(t, "apps/python/fastapi/PARAMETERS.md", pages[1].Path)
	assert.Equal(t, "apps/python/fastapi/EXAMPLES.md", pages[2].Path)
}

func TestTemplatePages_ReadmeContent(t *testing.T) {
	pages, err := TemplatePages("apps/python/fastapi", docFixture(), docTime())
	require.NoError(t, err)

	readme := pages[0].Content

	assert.Contains(t, readme, "# python-fastapi")
	assert.Contains(t, readme, "FastAPI application container")
	assert.Contains(t, readme, "- **Category**: App")
	assert.Contains(t, readme, "- **Version**: 1.2.0")
	assert.Contains(t, readme, "- **Tags**: python, fastapi")
	assert.Contains(t, readme, "stencil generate apps/python/fastapi ./my-python-fastapi")

	// Required and optional parameters are listed separately.
	assert.Contains(t, readme, "- `workers` (integer): Worker process count")
	assert.Contains(t, readme, "- `port` (integer): Service port (default: `8000`)")

	// File groups.
	assert.Contains(t, readme, "### Dockerfile")
	assert.Contains(t, readme, "- `Dockerfile`")
	assert.Contains(t, readme, "### Compose")
	assert.Contains(t, readme, "- `docker-compose.yml`")

	// Testing section.
	assert.Contains(t, readme, "### Test Commands")
	assert.Contains(t, readme, "- `pytest -q`")

	// Category link climbs back to the docs root.
	assert.Contains(t, readme, "(../../../app/README.md)")

	assert.Contains(t, readme, "*Last updated: 2025-06-15 12:00:00*")
}

func TestTemplatePages_ParameterReference(t *testing.T) {
	pages, err := TemplatePages("apps/python/fastapi", docFixture(), docTime())
	require.NoError(t, err)

	params := pages[1].Content

	assert.Contains(t, params, "# python-fastapi - Parameter Reference")
	assert.Contains(t, params, "| `log_level` | string | no | `info` | Log verbosity |")
	assert.Contains(t, params, "| `workers` | integer | yes | - | Worker process count |")

	assert.Contains(t, params, "- **Allowed Values**: `debug`, `info`, `warning`")
	assert.Contains(t, params, "- **Minimum**: 1")
	assert.Contains(t, params, "- **Maximum**: 65535")

	// CLI example uses defaulted parameters.
	assert.Contains(t, params, "--param log_level=info")

	// Parameter file example.
	assert.Contains(t, params, "port: 8000")
}

func TestTemplatePages_ExamplesContent(t *testing.T) {
	pages, err := TemplatePages("apps/python/fastapi", docFixture(), docTime())
	require.NoError(t, err)

	examples := pages[2].Content

	assert.Contains(t, examples, "# python-fastapi - Usage Examples")
	assert.Contains(t, examples, "stencil validate apps/python/fastapi")
	assert.Contains(t, examples, "## Application-Specific Examples")
	assert.NotContains(t, examples, "## Database-Specific Examples")
}

func TestTemplatePages_DatabaseCategoryExamples(t *testing.T) {
	def := docFixture()
	def.Category = domain.CategoryDatabase

	pages, err := TemplatePages("database/postgres", def, docTime())
	require.NoError(t, err)

	examples := pages[2].Content

	assert.Contains(t, examples, "## Database-Specific Examples")
	assert.NotContains(t, examples, "## Application-Specific Examples")
}

func TestTemplatePages_Deterministic(t *testing.T) {
	first, err := TemplatePages("apps/python/fastapi", docFixture(), docTime())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := TemplatePages("apps/python/fastapi", docFixture(), docTime())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTemplatePages_MinimalDefinition(t *testing.T) {
	def := &domain.Definition{
		Name:     "base-alpine",
		Version:  "1.0.0",
		Category: domain.CategoryBase,
	}

	pages, err := TemplatePages("base/alpine", def, docTime())
	require.NoError(t, err)

	readme := pages[0].Content
	assert.Contains(t, readme, "- **Author**: Unknown")
	assert.Contains(t, readme, "- **License**: MIT")
	assert.Contains(t, readme, "- **Tags**: None")
	assert.Contains(t, readme, "None")
}

// =============================================================================
// Index and Category Page Tests
// =============================================================================

func TestIndexPage(t *testing.T) {
	page, err := IndexPage(entryFixtures(), docTime())

	require.NoError(t, err)
	assert.Equal(t, "README.md", page.Path)

	assert.Contains(t, page.Content, "**3 templates** across **2 categories**")
	assert.Contains(t, page.Content, "### App Templates")
	assert.Contains(t, page.Content, "### Base Templates")
	assert.Contains(t, page.Content, "[python-fastapi](apps/python/fastapi/README.md)")

	// The library table orders by category, then name.
	appIdx := strings.Index(page.Content, "| [node-express]")
	baseIdx := strings.Index(page.Content, "| [base-alpine]")
	require.Positive(t, appIdx)
	require.Positive(t, baseIdx)
	assert.Less(t, appIdx, baseIdx)
}

func TestCategoryPage(t *testing.T) {
	page, err := CategoryPage(domain.CategoryApp, entryFixtures(), docTime())

	require.NoError(t, err)
	assert.Equal(t, "app/README.md", page.Path)

	assert.Contains(t, page.Content, "# App Templates")
	assert.Contains(t, page.Content, "[python-fastapi](../apps/python/fastapi/README.md)")
	assert.NotContains(t, page.Content, "base-alpine")
}

func TestCategoryPage_Empty(t *testing.T) {
	page, err := CategoryPage(domain.CategoryInfrastructure, entryFixtures(), docTime())

	require.NoError(t, err)
	assert.Contains(t, page.Content, "No templates in this category yet.")
}

// =============================================================================
// Test Fixtures
// =============================================================================

func docTime() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func docFixture() *domain.Definition {
	requiredTrue := true
	minPort := 1.0
	maxPort := 65535.0
	defaultPort := domain.NewInt(8000)
	defaultLevel := domain.NewString("info")

	return &domain.Definition{
		Name:        "python-fastapi",
		Version:     "1.2.0",
		Description: "FastAPI application container",
		Category:    domain.CategoryApp,
		Author:      "Platform Team",
		License:     "Apache-2.0",
		Tags:        []string{"python", "fastapi"},
		Parameters: map[string]domain.ParameterSpec{
			"port": {
				Type:        domain.TypeInteger,
				Description: "Service port",
				Default:     &defaultPort,
				Min:         &minPort,
				Max:         &maxPort,
			},
			"log_level": {
				Type:        domain.TypeString,
				Description: "Log verbosity",
				Default:     &defaultLevel,
				Enum: []domain.Value{
					domain.NewString("debug"),
					domain.NewString("info"),
					domain.NewString("warning"),
				},
			},
			"workers": {
				Type:        domain.TypeInteger,
				Description: "Worker process count",
				Required:    &requiredTrue,
			},
		},
		Files: map[string]domain.FileList{
			"dockerfile": {"Dockerfile"},
			"compose":    {"docker-compose.yml"},
		},
		Dependencies: domain.Dependencies{
			Runtime: []string{"fastapi", "uvicorn"},
		},
		Testing: domain.Testing{
			HealthCheck:  "curl -f http://localhost:8000/health",
			TestCommands: []string{"pytest -q"},
		},
		Platforms: []string{"linux/amd64", "linux/arm64"},
	}
}

func entryFixtures() []Entry {
	return []Entry{
		{
			ID:          "base/alpine",
			Name:        "base-alpine",
			Version:     "1.0.0",
			Description: "Alpine base image",
			Category:    domain.CategoryBase,
		},
		{
			ID:          "apps/python/fastapi",
			Name:        "python-fastapi",
			Version:     "1.2.0",
			Description: "FastAPI application container",
			Category:    domain.CategoryApp,
		},
		{
			ID:          "apps/node/express",
			Name:        "node-express",
			Version:     "2.0.0",
			Description: "Express application container",
			Category:    domain.CategoryApp,
		},
	}
}
