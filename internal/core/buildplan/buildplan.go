// Package buildplan assembles deterministic docker buildx invocations for
// multi-architecture image builds.
// This is part of the Functional Core - all functions are pure with no I/O.
package buildplan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultBuilder is the buildx builder name used when none is configured.
const DefaultBuilder = "multiarch-builder"

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoImage is returned when a plan has no image reference.
	ErrNoImage = errors.New("build plan has no image reference")

	// ErrNoDockerfile is returned when a plan has no Dockerfile path.
	ErrNoDockerfile = errors.New("build plan has no dockerfile path")

	// ErrNoContext is returned when a plan has no build context path.
	ErrNoContext = errors.New("build plan has no context path")

	// ErrUnsupportedPlatform is returned when a plan names a platform outside
	// the supported set.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// =============================================================================
// Platforms
// =============================================================================

var defaultPlatforms = []string{
	"linux/amd64",
	"linux/arm64",
}

var supportedPlatforms = []string{
	"linux/amd64",
	"linux/arm64",
	"linux/arm/v7",
	"linux/arm/v6",
	"linux/386",
	"linux/ppc64le",
	"linux/s390x",
	"linux/riscv64",
}

// DefaultPlatforms returns the platforms used when a template declares none.
func DefaultPlatforms() []string {
	return append([]string(nil), defaultPlatforms...)
}

// SupportedPlatforms returns every platform the build pipeline can target.
func SupportedPlatforms() []string {
	return append([]string(nil), supportedPlatforms...)
}

// IsSupported reports whether a platform is in the supported set.
func IsSupported(platform string) bool {
	for _, p := range supportedPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}

// NormalizePlatforms filters a requested platform list down to the supported
// set, trimming whitespace and dropping duplicates while preserving request
// order. Unsupported entries are returned separately so the caller can warn
// about them. When nothing valid remains the defaults are used.
func NormalizePlatforms(requested []string) (valid, unsupported []string) {
	seen := make(map[string]struct{})

	for _, raw := range requested {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		if IsSupported(p) {
			valid = append(valid, p)
		} else {
			unsupported = append(unsupported, p)
		}
	}

	if len(valid) == 0 {
		valid = DefaultPlatforms()
	}
	return valid, unsupported
}

// =============================================================================
// Plan
// =============================================================================

// Plan describes one multi-architecture image build. Its zero value is not
// usable; fill Image, Dockerfile, Context and Platforms at minimum.
type Plan struct {
	Image      string
	Dockerfile string
	Context    string
	Platforms  []string
	BuildArgs  map[string]string
	Labels     map[string]string
	CacheFrom  []string
	CacheTo    string

	// Push publishes the result to the registry. When false the image is
	// loaded into the local daemon instead, which buildx only supports for
	// single-platform builds.
	Push bool
}

// Validate checks that the plan is complete and targets only supported
// platforms. All problems are reported, joined into one error.
func (p *Plan) Validate() error {
	var errs []error

	if p.Image == "" {
		errs = append(errs, ErrNoImage)
	}
	if p.Dockerfile == "" {
		errs = append(errs, ErrNoDockerfile)
	}
	if p.Context == "" {
		errs = append(errs, ErrNoContext)
	}
	for _, platform := range p.Platforms {
		if !IsSupported(platform) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform))
		}
	}

	return errors.Join(errs...)
}

// BuildxArgs assembles the argv passed to the docker binary for this plan.
// Map-backed flags are emitted in sorted key order so the same plan always
// produces the same command line.
func (p *Plan) BuildxArgs() []string {
	platforms := p.Platforms
	if len(platforms) == 0 {
		platforms = defaultPlatforms
	}

	args := []string{
		"buildx", "build",
		"--platform", strings.Join(platforms, ","),
		"--file", p.Dockerfile,
		"--tag", p.Image,
	}

	for _, k := range sortedKeys(p.BuildArgs) {
		args = append(args, "--build-arg", k+"="+p.BuildArgs[k])
	}
	for _, k := range sortedKeys(p.Labels) {
		args = append(args, "--label", k+"="+p.Labels[k])
	}
	for _, c := range p.CacheFrom {
		args = append(args, "--cache-from", c)
	}
	if p.CacheTo != "" {
		args = append(args, "--cache-to", p.CacheTo)
	}

	if p.Push {
		args = append(args, "--push")
	} else {
		args = append(args, "--load")
	}

	return append(args, p.Context)
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// Builder and Manifest Commands
// =============================================================================

// VersionArgs is the argv for the buildx availability check.
func VersionArgs() []string {
	return []string{"buildx", "version"}
}

// CreateBuilderArgs is the argv that creates and bootstraps a
// docker-container builder.
func CreateBuilderArgs(name string) []string {
	return []string{
		"buildx", "create",
		"--name", name,
		"--driver", "docker-container",
		"--use",
		"--bootstrap",
	}
}

// UseBuilderArgs is the argv that selects an existing builder.
func UseBuilderArgs(name string) []string {
	return []string{"buildx", "use", name}
}

// InspectBuilderArgs is the argv that inspects a builder by name.
func InspectBuilderArgs(name string) []string {
	return []string{"buildx", "inspect", name}
}

// BootstrapBuilderArgs is the argv that bootstraps the selected builder.
func BootstrapBuilderArgs() []string {
	return []string{"buildx", "inspect", "--bootstrap"}
}

// ManifestCreateArgs is the argv that assembles a multi-arch manifest from
// per-platform image references. Without push the manifest is only dry-run
// assembled.
func ManifestCreateArgs(manifest string, refs []string, push bool) []string {
	args := []string{"buildx", "imagetools", "create"}
	if !push {
		args = append(args, "--dry-run")
	}
	args = append(args, "--tag", manifest)
	return append(args, refs...)
}

// ManifestInspectArgs is the argv that inspects a published image's manifest
// as JSON.
func ManifestInspectArgs(image string) []string {
	return []string{"buildx", "imagetools", "inspect", image, "--format", "{{json .}}"}
}
