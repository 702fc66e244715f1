// Package harness runs a template's declared test suite.
// This is part of the Imperative Shell - it generates into a staging
// directory, drives docker through the buildx runner, executes declared
// test commands and records outcomes in the analytics store.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/artpar/stencil/internal/core/domain"
	"github.com/artpar/stencil/internal/core/resolve"
	"github.com/artpar/stencil/internal/shell/analytics"
	"github.com/artpar/stencil/internal/shell/buildx"
	"github.com/artpar/stencil/internal/shell/docker"
	"github.com/artpar/stencil/internal/shell/generator"
	"github.com/artpar/stencil/internal/shell/store"
)

// =============================================================================
// Results
// =============================================================================

// Status classifies one test case outcome.
type Status string

// Test case outcomes.
const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// CaseResult is the outcome of one test case.
type CaseResult struct {
	Name     string
	Status   Status
	Duration time.Duration
	Output   string
	Error    string
}

// Suite aggregates one template test run.
type Suite struct {
	Template string
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
	Results  []CaseResult
}

// =============================================================================
// Shell Runner
// =============================================================================

// ShellRunner executes declared test commands in the generated project.
type ShellRunner interface {
	RunShell(ctx context.Context, dir, command string) ([]byte, error)
}

// execShellRunner runs commands through sh -c.
type execShellRunner struct{}

func (execShellRunner) RunShell(ctx context.Context, dir, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// =============================================================================
// Harness
// =============================================================================

// Config configures the test harness.
type Config struct {
	// BuildTimeout bounds one docker build. Default: 5 minutes.
	BuildTimeout time.Duration

	// CommandTimeout bounds one declared test command. Default: 60 seconds.
	CommandTimeout time.Duration
}

// DefaultConfig returns the default harness configuration.
func DefaultConfig() Config {
	return Config{
		BuildTimeout:   5 * time.Minute,
		CommandTimeout: 60 * time.Second,
	}
}

// Harness runs template test suites. The docker client and analytics store
// are optional; without them image sizes are not measured and runs are not
// recorded.
type Harness struct {
	gen       *generator.Generator
	resolver  *resolve.Resolver
	runner    buildx.Runner
	shell     ShellRunner
	docker    docker.Client
	analytics analytics.Store
	config    Config
	logger    *slog.Logger
}

// New creates a test harness over the given generator and store.
func New(gen *generator.Generator, s *store.FSStore, runner buildx.Runner, dockerClient docker.Client, analyticsStore analytics.Store, config Config, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = &buildx.ExecRunner{}
	}
	defaults := DefaultConfig()
	if config.BuildTimeout == 0 {
		config.BuildTimeout = defaults.BuildTimeout
	}
	if config.CommandTimeout == 0 {
		config.CommandTimeout = defaults.CommandTimeout
	}
	return &Harness{
		gen:       gen,
		resolver:  resolve.NewResolver(s),
		runner:    runner,
		shell:     execShellRunner{},
		docker:    dockerClient,
		analytics: analyticsStore,
		config:    config,
		logger:    logger,
	}
}

// RunSuite tests one template end to end: design-time validation, generation
// into a staging directory, a docker image build, the declared test commands
// and the health check declaration. Cases that cannot run are skipped with a
// reason instead of failing the suite.
func (h *Harness) RunSuite(ctx context.Context, id string, params map[string]domain.Value) (*Suite, error) {
	start := time.Now()
	h.logger.Info("testing template", "template", id)

	var results []CaseResult
	results = append(results, h.validationCase(ctx, id))

	// Validation already reported any resolution failure; an unresolved
	// template simply declares no test cases.
	var testing domain.Testing
	if res, err := h.resolver.Resolve(ctx, id); err == nil {
		testing = res.Definition.Testing
	}

	outDir, err := os.MkdirTemp("", "stencil-test-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	genCase, genResult := h.generationCase(ctx, id, params, outDir)
	results = append(results, genCase)

	buildCase, sizeMB := h.buildCase(ctx, id, genResult, outDir)
	results = append(results, buildCase)

	for i, command := range testing.TestCommands {
		results = append(results, h.commandCase(ctx, i+1, command, genResult != nil, outDir))
	}

	results = append(results, healthCase(testing))

	suite := summarize(id, results, time.Since(start))

	h.logger.Info("template test suite finished",
		"template", id,
		"passed", suite.Passed,
		"failed", suite.Failed,
		"skipped", suite.Skipped,
	)

	h.record(ctx, suite, params, buildCase, sizeMB)

	return suite, nil
}

// =============================================================================
// Test Cases
// =============================================================================

func (h *Harness) validationCase(ctx context.Context, id string) CaseResult {
	start := time.Now()
	report := h.gen.Validate(ctx, id)
	elapsed := time.Since(start)

	if !report.Valid {
		return CaseResult{
			Name:     "validation",
			Status:   StatusFailed,
			Duration: elapsed,
			Error:    strings.Join(report.Errors, "; "),
		}
	}

	output := "template is valid"
	if n := len(report.Warnings); n > 0 {
		output = fmt.Sprintf("template is valid with %d warning(s)", n)
	}
	return CaseResult{Name: "validation", Status: StatusPassed, Duration: elapsed, Output: output}
}

func (h *Harness) generationCase(ctx context.Context, id string, params map[string]domain.Value, outDir string) (CaseResult, *generator.Result) {
	start := time.Now()
	result, err := h.gen.Generate(ctx, generator.Request{
		Template:  id,
		OutputDir: outDir,
		Params:    params,
	})
	elapsed := time.Since(start)

	if err != nil {
		return CaseResult{Name: "generation", Status: StatusFailed, Duration: elapsed, Error: err.Error()}, nil
	}
	return CaseResult{
		Name:     "generation",
		Status:   StatusPassed,
		Duration: elapsed,
		Output:   fmt.Sprintf("generated %d files", len(result.Files)),
	}, result
}

// buildCase builds the generated Dockerfile and returns the measured image
// size in MB, when a docker client is wired.
func (h *Harness) buildCase(ctx context.Context, id string, gen *generator.Result, dir string) (CaseResult, float64) {
	if !h.dockerAvailable(ctx) {
		return CaseResult{Name: "build", Status: StatusSkipped, Error: "docker not available"}, 0
	}
	if gen == nil {
		return CaseResult{Name: "build", Status: StatusSkipped, Error: "generation failed"}, 0
	}

	dockerfile := findDockerfile(gen.Files)
	if dockerfile == "" {
		return CaseResult{Name: "build", Status: StatusSkipped, Error: "no Dockerfile generated"}, 0
	}

	bctx, cancel := context.WithTimeout(ctx, h.config.BuildTimeout)
	defer cancel()

	image := testImageName(id)
	start := time.Now()
	out, err := h.runner.Run(bctx, "build", "-t", image, "-f", filepath.Join(dir, filepath.FromSlash(dockerfile)), dir)
	elapsed := time.Since(start)

	if err != nil {
		return CaseResult{
			Name:     "build",
			Status:   StatusFailed,
			Duration: elapsed,
			Output:   strings.TrimSpace(string(out)),
			Error:    err.Error(),
		}, 0
	}

	sizeMB := h.imageSizeMB(ctx, image)
	h.removeImage(ctx, image)

	return CaseResult{Name: "build", Status: StatusPassed, Duration: elapsed, Output: "docker build succeeded"}, sizeMB
}

func (h *Harness) commandCase(ctx context.Context, n int, command string, generated bool, dir string) CaseResult {
	name := fmt.Sprintf("test_command_%d", n)
	if !generated {
		return CaseResult{Name: name, Status: StatusSkipped, Error: "generation failed"}
	}

	cctx, cancel := context.WithTimeout(ctx, h.config.CommandTimeout)
	defer cancel()

	start := time.Now()
	out, err := h.shell.RunShell(cctx, dir, command)
	elapsed := time.Since(start)

	if err != nil {
		return CaseResult{
			Name:     name,
			Status:   StatusFailed,
			Duration: elapsed,
			Output:   strings.TrimSpace(string(out)),
			Error:    err.Error(),
		}
	}
	return CaseResult{Name: name, Status: StatusPassed, Duration: elapsed, Output: strings.TrimSpace(string(out))}
}

// healthCase checks the health check declaration. Running it needs a live
// container, which the harness does not orchestrate.
func healthCase(testing domain.Testing) CaseResult {
	if testing.HealthCheck == "" {
		return CaseResult{Name: "health_check", Status: StatusSkipped, Error: "no health check defined"}
	}
	return CaseResult{
		Name:   "health_check",
		Status: StatusPassed,
		Output: "health check defined: " + testing.HealthCheck,
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Harness) dockerAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := h.runner.Run(ctx, "--version")
	return err == nil
}

func (h *Harness) imageSizeMB(ctx context.Context, image string) float64 {
	if h.docker == nil {
		return 0
	}
	size, err := h.docker.ImageSize(ctx, image)
	if err != nil {
		h.logger.Warn("failed to measure image size", "image", image, "error", err)
		return 0
	}
	return float64(size) / (1024 * 1024)
}

func (h *Harness) removeImage(ctx context.Context, image string) {
	if _, err := h.runner.Run(ctx, "rmi", image); err != nil {
		h.logger.Debug("failed to remove test image", "image", image, "error", err)
	}
}

// record stores the run in analytics; usage and build metric commit
// together or not at all.
func (h *Harness) record(ctx context.Context, suite *Suite, params map[string]domain.Value, buildCase CaseResult, sizeMB float64) {
	if h.analytics == nil {
		return
	}

	recorded := make(map[string]any, len(params))
	for name, value := range params {
		recorded[name] = value.Interface()
	}

	err := h.analytics.WithTx(ctx, func(s analytics.Store) error {
		if err := s.LogUsage(ctx, analytics.UsageEvent{
			Template:    suite.Template,
			Action:      "test",
			Success:     suite.Failed == 0,
			Parameters:  recorded,
			Duration:    suite.Duration,
			ImageSizeMB: sizeMB,
			Error:       firstFailure(suite),
		}); err != nil {
			return err
		}

		if buildCase.Status == StatusPassed {
			return s.LogMetric(ctx, analytics.Metric{
				Template: suite.Template,
				Type:     "build_seconds",
				Value:    buildCase.Duration.Seconds(),
			})
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("failed to record test run", "template", suite.Template, "error", err)
	}
}

func firstFailure(suite *Suite) string {
	for _, r := range suite.Results {
		if r.Status == StatusFailed {
			return r.Name + ": " + r.Error
		}
	}
	return ""
}

func summarize(id string, results []CaseResult, duration time.Duration) *Suite {
	suite := &Suite{
		Template: id,
		Total:    len(results),
		Duration: duration,
		Results:  results,
	}
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			suite.Passed++
		case StatusFailed:
			suite.Failed++
		case StatusSkipped:
			suite.Skipped++
		}
	}
	return suite
}

// findDockerfile returns the first generated file named Dockerfile, in path
// order.
func findDockerfile(files map[string]string) string {
	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	for _, rel := range rels {
		if path.Base(rel) == "Dockerfile" {
			return rel
		}
	}
	return ""
}

func testImageName(id string) string {
	return "stencil-test-" + strings.ReplaceAll(id, "/", "-")
}
