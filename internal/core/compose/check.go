package compose

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Summary
// =============================================================================

// Summary describes the shape of a checked compose document.
type Summary struct {
	Services []string
	Networks []string
	Volumes  []string
}

// =============================================================================
// Checking
// =============================================================================

// Check parses a rendered compose document and reports structural defects.
// The input must already be fully rendered: only compose-level ${VAR}
// interpolation may remain, which is resolved against an empty environment.
func Check(content string) (*Summary, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyInput
	}

	var dict map[string]any
	if err := yaml.Unmarshal([]byte(content), &dict); err != nil {
		return nil, NewCheckError("", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	if dict == nil {
		return nil, NewCheckError("", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(content),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("stencil-check", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// The document lives in memory; there are no paths to resolve and
		// no external files to extend from.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		if strings.Contains(err.Error(), "dependency cycle detected") {
			return nil, NewCheckError("", ErrCircularDependency)
		}
		return nil, NewCheckError("", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	summary := &Summary{}
	for name, svc := range project.Services {
		if svc.Image == "" && svc.Build == nil {
			return nil, NewCheckError("services."+name, ErrServiceNoImage)
		}
		summary.Services = append(summary.Services, name)
	}
	for name := range project.Networks {
		summary.Networks = append(summary.Networks, name)
	}
	for name := range project.Volumes {
		summary.Volumes = append(summary.Volumes, name)
	}
	sort.Strings(summary.Services)
	sort.Strings(summary.Networks)
	sort.Strings(summary.Volumes)

	return summary, nil
}
