package buildplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Platform Tests
// =============================================================================

func TestSupportedPlatforms_Count(t *testing.T) {
	assert.Len(t, SupportedPlatforms(), 8)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("linux/amd64"))
	assert.True(t, IsSupported("linux/arm/v7"))
	assert.True(t, IsSupported("linux/riscv64"))
	assert.False(t, IsSupported("windows/amd64"))
	assert.False(t, IsSupported("linux/mips64"))
}

func TestNormalizePlatforms_FiltersUnsupported(t *testing.T) {
	valid, unsupported := NormalizePlatforms([]string{"linux/amd64", "windows/amd64", "linux/arm64"})

	assert.Equal(t, []string{"linux/amd64", "linux/arm64"}, valid)
	assert.Equal(t, []string{"windows/amd64"}, unsupported)
}

func TestNormalizePlatforms_TrimsAndDeduplicates(t *testing.T) {
	valid, unsupported := NormalizePlatforms([]string{" linux/amd64 ", "linux/amd64", "", "linux/386"})

	assert.Equal(t, []string{"linux/amd64", "linux/386"}, valid)
	assert.Empty(t, unsupported)
}

func TestNormalizePlatforms_FallsBackToDefaults(t *testing.T) {
	valid, unsupported := NormalizePlatforms([]string{"windows/amd64"})

	assert.Equal(t, DefaultPlatforms(), valid)
	assert.Equal(t, []string{"windows/amd64"}, unsupported)
}

func TestNormalizePlatforms_EmptyRequest(t *testing.T) {
	valid, unsupported := NormalizePlatforms(nil)

	assert.Equal(t, []string{"linux/amd64", "linux/arm64"}, valid)
	assert.Empty(t, unsupported)
}

// =============================================================================
// Plan Validation Tests
// =============================================================================

func TestPlanValidate_Complete(t *testing.T) {
	plan := planFixture()

	assert.NoError(t, plan.Validate())
}

func TestPlanValidate_MissingFields(t *testing.T) {
	plan := &Plan{}

	err := plan.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoImage)
	assert.ErrorIs(t, err, ErrNoDockerfile)
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestPlanValidate_UnsupportedPlatform(t *testing.T) {
	plan := planFixture()
	plan.Platforms = append(plan.Platforms, "windows/amd64")

	err := plan.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.Contains(t, err.Error(), "windows/amd64")
}

// =============================================================================
// Argv Assembly Tests
// =============================================================================

func TestBuildxArgs_FullPlan(t *testing.T) {
	plan := planFixture()
	plan.BuildArgs = map[string]string{"PYTHON_VERSION": "3.12", "APP_PORT": "8000"}
	plan.Labels = map[string]string{"version": "1.2.0"}
	plan.CacheFrom = []string{"type=registry,ref=acme/fastapi:cache"}
	plan.CacheTo = "type=inline"
	plan.Push = true

	args := plan.BuildxArgs()

	assert.Equal(t, []string{
		"buildx", "build",
		"--platform", "linux/amd64,linux/arm64",
		"--file", "Dockerfile",
		"--tag", "acme/fastapi:1.2.0",
		"--build-arg", "APP_PORT=8000",
		"--build-arg", "PYTHON_VERSION=3.12",
		"--label", "version=1.2.0",
		"--cache-from", "type=registry,ref=acme/fastapi:cache",
		"--cache-to", "type=inline",
		"--push",
		".",
	}, args)
}

func TestBuildxArgs_LoadWhenNotPushing(t *testing.T) {
	plan := planFixture()

	args := plan.BuildxArgs()

	assert.Contains(t, args, "--load")
	assert.NotContains(t, args, "--push")
	assert.Equal(t, ".", args[len(args)-1])
}

func TestBuildxArgs_DefaultPlatformsWhenEmpty(t *testing.T) {
	plan := planFixture()
	plan.Platforms = nil

	args := plan.BuildxArgs()

	assert.Contains(t, args, "linux/amd64,linux/arm64")
}

func TestBuildxArgs_Deterministic(t *testing.T) {
	plan := planFixture()
	plan.BuildArgs = map[string]string{"C": "3", "A": "1", "B": "2"}

	first := plan.BuildxArgs()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, plan.BuildxArgs())
	}
}

// =============================================================================
// Builder Command Tests
// =============================================================================

func TestCreateBuilderArgs(t *testing.T) {
	args := CreateBuilderArgs("multiarch-builder")

	assert.Equal(t, []string{
		"buildx", "create",
		"--name", "multiarch-builder",
		"--driver", "docker-container",
		"--use",
		"--bootstrap",
	}, args)
}

func TestInspectAndUseBuilderArgs(t *testing.T) {
	assert.Equal(t, []string{"buildx", "inspect", "b1"}, InspectBuilderArgs("b1"))
	assert.Equal(t, []string{"buildx", "use", "b1"}, UseBuilderArgs("b1"))
	assert.Equal(t, []string{"buildx", "inspect", "--bootstrap"}, BootstrapBuilderArgs())
	assert.Equal(t, []string{"buildx", "version"}, VersionArgs())
}

func TestManifestCreateArgs(t *testing.T) {
	refs := []string{"acme/app:1.0-amd64", "acme/app:1.0-arm64"}

	pushed := ManifestCreateArgs("acme/app:1.0", refs, true)
	assert.Equal(t, []string{
		"buildx", "imagetools", "create",
		"--tag", "acme/app:1.0",
		"acme/app:1.0-amd64", "acme/app:1.0-arm64",
	}, pushed)

	dry := ManifestCreateArgs("acme/app:1.0", refs, false)
	assert.Contains(t, dry, "--dry-run")
}

func TestManifestInspectArgs(t *testing.T) {
	args := ManifestInspectArgs("acme/app:1.0")

	assert.Equal(t, []string{"buildx", "imagetools", "inspect", "acme/app:1.0", "--format", "{{json .}}"}, args)
}

// =============================================================================
// Test Fixtures
// =============================================================================

func planFixture() *Plan {
	return &Plan{
		Image:      "acme/fastapi:1.2.0",
		Dockerfile: "Dockerfile",
		Context:    ".",
		Platforms:  []string{"linux/amd64", "linux/arm64"},
	}
}
