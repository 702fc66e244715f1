package main

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/stencil/internal/core/buildplan"
	"github.com/artpar/stencil/internal/core/imagetags"
	"github.com/artpar/stencil/internal/core/resolve"
	"github.com/artpar/stencil/internal/shell/buildx"
	"github.com/artpar/stencil/internal/shell/generator"
)

var (
	buildParams     []string
	buildParamsFile string
	buildImage      string
	buildPlatforms  string
	buildPush       bool
	buildArgs       []string
	buildLabels     []string
	buildBuilder    string
)

// buildRunner is swapped for a mock in tests.
var buildRunner buildx.Runner

var buildCmd = &cobra.Command{
	Use:   "build <template>",
	Short: "Build a multi-arch image from a template",
	Long: `build generates the template into a staging directory and runs a
multi-platform docker buildx build on the rendered Dockerfile. The
image reference defaults to the template's registry metadata; target
platforms default to the template's declared platforms.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringArrayVar(&buildParams, "param", nil, "Parameter as key=value (repeatable)")
	buildCmd.Flags().StringVar(&buildParamsFile, "params", "", "Parameters YAML/JSON file")
	buildCmd.Flags().StringVar(&buildImage, "image", "", "Image reference (overrides registry metadata)")
	buildCmd.Flags().StringVar(&buildPlatforms, "platforms", "", "Comma-separated target platforms")
	buildCmd.Flags().BoolVar(&buildPush, "push", false, "Push to registry instead of loading locally")
	buildCmd.Flags().StringArrayVar(&buildArgs, "build-arg", nil, "Build argument as KEY=value (repeatable)")
	buildCmd.Flags().StringArrayVar(&buildLabels, "label", nil, "Image label as KEY=value (repeatable)")
	buildCmd.Flags().StringVar(&buildBuilder, "builder", "", "Buildx builder name (default from config)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	s := openStore()
	resolved, err := resolve.NewResolver(s).Resolve(ctx, id)
	if err != nil {
		return &CommandError{Op: "resolve template", Err: err, ExitCode: ExitTemplateError}
	}

	values, err := collectParams(buildParamsFile, buildParams)
	if err != nil {
		return err
	}
	extraArgs, err := parseKeyValues(buildArgs)
	if err != nil {
		return err
	}
	labels, err := parseKeyValues(buildLabels)
	if err != nil {
		return err
	}

	// Stage the rendered template in a throwaway build context.
	dir, err := os.MkdirTemp("", "stencil-build-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(dir)

	res, err := generator.New(s, logger).Generate(ctx, generator.Request{
		Template:  id,
		OutputDir: dir,
		Params:    values,
	})
	if err != nil {
		return classifyGenerate(err)
	}

	dockerfile := findDockerfile(res.Files)
	if dockerfile == "" {
		return &CommandError{
			Op:       "build image",
			Err:      errors.New("template generates no Dockerfile"),
			ExitCode: ExitTemplateError,
		}
	}

	image := buildImage
	if image == "" {
		image = imagetags.References(resolved.Definition)[0]
	}

	platforms := resolved.Definition.Platforms
	if buildPlatforms != "" {
		platforms = strings.Split(buildPlatforms, ",")
	}
	if len(platforms) == 0 {
		platforms = cfg.Build.Platforms
	}
	valid, unsupported := buildplan.NormalizePlatforms(platforms)
	for _, p := range unsupported {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping unsupported platform %s\n", p)
	}

	plan := &buildplan.Plan{
		Image:      image,
		Dockerfile: filepath.Join(dir, filepath.FromSlash(dockerfile)),
		Context:    dir,
		Platforms:  valid,
		BuildArgs:  extraArgs,
		Labels:     labels,
		Push:       buildPush,
	}

	builder := buildx.NewBuilder(buildRunner, logger)
	if !builder.Available(ctx) {
		return &CommandError{Op: "build image", Err: buildx.ErrBuildxUnavailable, ExitCode: ExitDockerError}
	}

	builderName := buildBuilder
	if builderName == "" {
		builderName = cfg.Build.Builder
	}
	if err := builder.EnsureBuilder(ctx, builderName); err != nil {
		return &CommandError{Op: "prepare builder", Err: err, ExitCode: ExitDockerError}
	}

	output, err := builder.Build(ctx, plan)
	if err != nil {
		if output != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), strings.TrimSpace(output))
		}
		return &CommandError{Op: "build image", Err: err, ExitCode: ExitDockerError}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "built %s for %s\n", image, strings.Join(valid, ", "))

	if buildPush {
		manifest, err := builder.InspectManifest(ctx, image)
		if err != nil {
			logger.Warn("manifest inspect failed", "image", image, "error", err)
			return nil
		}
		fmt.Fprintln(out, manifest)
	}
	return nil
}

// findDockerfile returns the first generated file named Dockerfile, in
// path order.
func findDockerfile(files map[string]string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if path.Base(p) == "Dockerfile" {
			return p
		}
	}
	return ""
}
