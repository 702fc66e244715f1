package buildx

import (
	"context"
	"log/slog"

	"github.com/artpar/stencil/internal/core/buildplan"
)

// =============================================================================
// Builder
// =============================================================================

// Builder runs multi-platform image builds through a Runner.
type Builder struct {
	runner Runner
	logger *slog.Logger
}

// NewBuilder creates a builder. A nil runner executes the real docker
// binary.
func NewBuilder(runner Runner, logger *slog.Logger) *Builder {
	if runner == nil {
		runner = &ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		runner: runner,
		logger: logger,
	}
}

// Available reports whether the buildx plugin responds.
func (b *Builder) Available(ctx context.Context) bool {
	_, err := b.run(ctx, buildplan.VersionArgs())
	return err == nil
}

// =============================================================================
// Builder Lifecycle
// =============================================================================

// EnsureBuilder makes sure a docker-container builder exists and is
// selected and bootstrapped. An empty name selects the default builder.
//
// The flow:
// 1. Inspect the builder by name
// 2. If it does not exist, create it (create selects and bootstraps too)
// 3. Otherwise select it and bootstrap it
func (b *Builder) EnsureBuilder(ctx context.Context, name string) error {
	if name == "" {
		name = buildplan.DefaultBuilder
	}

	if _, err := b.run(ctx, buildplan.InspectBuilderArgs(name)); err != nil {
		b.logger.Info("creating buildx builder", "builder", name)
		args := buildplan.CreateBuilderArgs(name)
		if out, err := b.run(ctx, args); err != nil {
			return NewCommandError("EnsureBuilder", args, out, err)
		}
		return nil
	}

	args := buildplan.UseBuilderArgs(name)
	if out, err := b.run(ctx, args); err != nil {
		return NewCommandError("EnsureBuilder", args, out, err)
	}

	args = buildplan.BootstrapBuilderArgs()
	if out, err := b.run(ctx, args); err != nil {
		return NewCommandError("EnsureBuilder", args, out, err)
	}

	return nil
}

// =============================================================================
// Build
// =============================================================================

// Build validates the plan and runs its buildx invocation, returning the
// combined docker output.
func (b *Builder) Build(ctx context.Context, plan *buildplan.Plan) (string, error) {
	if err := plan.Validate(); err != nil {
		return "", err
	}

	b.logger.Info("building image",
		"image", plan.Image,
		"platforms", plan.Platforms,
		"push", plan.Push,
	)

	args := plan.BuildxArgs()
	out, err := b.run(ctx, args)
	if err != nil {
		return string(out), NewCommandError("Build", args, out, err)
	}

	return string(out), nil
}

// =============================================================================
// Manifests
// =============================================================================

// CreateManifest assembles a multi-arch manifest from per-platform image
// references. Without push the manifest is dry-run assembled only.
func (b *Builder) CreateManifest(ctx context.Context, manifest string, refs []string, push bool) (string, error) {
	if len(refs) == 0 {
		return "", ErrNoReferences
	}

	args := buildplan.ManifestCreateArgs(manifest, refs, push)
	out, err := b.run(ctx, args)
	if err != nil {
		return string(out), NewCommandError("CreateManifest", args, out, err)
	}

	return string(out), nil
}

// InspectManifest returns a published image's manifest as JSON.
func (b *Builder) InspectManifest(ctx context.Context, image string) (string, error) {
	args := buildplan.ManifestInspectArgs(image)
	out, err := b.run(ctx, args)
	if err != nil {
		return "", NewCommandError("InspectManifest", args, out, err)
	}

	return string(out), nil
}

// run executes one docker invocation with verbose logging.
func (b *Builder) run(ctx context.Context, args []string) ([]byte, error) {
	b.logger.Debug("running docker", "args", args)
	return b.runner.Run(ctx, args...)
}
