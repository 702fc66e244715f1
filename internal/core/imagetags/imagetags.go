// Package imagetags derives container image tags from Dockerfile metadata
// and from resolved template definitions.
// This is part of the Functional Core - all functions are pure with no I/O.
package imagetags

import (
	"strconv"
	"strings"

	"github.com/artpar/stencil/internal/core/domain"
)

// maxTagLength is the registry limit for a single tag.
const maxTagLength = 128

// =============================================================================
// Dockerfile Metadata
// =============================================================================

// Metadata holds the Dockerfile fields that drive tag generation.
type Metadata struct {
	// BaseImage is the image of the final FROM instruction. In a multi-stage
	// Dockerfile that is the stage the shipped image is built from.
	BaseImage string

	// Labels collects LABEL key=value pairs across all stages.
	Labels map[string]string
}

// Version returns the "version" label, or "" when the Dockerfile does not
// declare one.
func (m Metadata) Version() string {
	return m.Labels["version"]
}

// ExtractMetadata parses Dockerfile content and returns the base image and
// labels. Backslash continuations are joined, comment lines are skipped, and
// FROM flags such as --platform are ignored.
func ExtractMetadata(content string) Metadata {
	meta := Metadata{Labels: make(map[string]string)}

	for _, line := range logicalLines(content) {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "FROM":
			for _, f := range fields[1:] {
				if strings.HasPrefix(f, "--") {
					continue
				}
				meta.BaseImage = f
				break
			}
		case "LABEL":
			rest := strings.TrimSpace(line[len(fields[0]):])
			for k, v := range parseLabels(rest) {
				meta.Labels[k] = v
			}
		}
	}

	return meta
}

// logicalLines splits Dockerfile content into instruction lines, joining
// backslash continuations and dropping blanks and comments. Comment lines
// inside a continuation do not terminate it, matching Dockerfile syntax.
func logicalLines(content string) []string {
	var (
		out []string
		cur strings.Builder
	)

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" && cur.Len() == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			cur.WriteString(strings.TrimSuffix(line, "\\"))
			cur.WriteString(" ")
			continue
		}

		cur.WriteString(line)
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}

	return out
}

// parseLabels splits the argument of a LABEL instruction into key=value
// pairs. Values may be wrapped in double quotes; quoted values keep their
// embedded spaces.
func parseLabels(rest string) map[string]string {
	labels := make(map[string]string)
	for _, tok := range splitQuoted(rest) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok || k == "" {
			continue
		}
		labels[unquote(k)] = unquote(v)
	}
	return labels
}

// splitQuoted splits on whitespace, treating double-quoted runs (with
// backslash escapes) as single tokens.
func splitQuoted(s string) []string {
	var (
		toks    []string
		cur     strings.Builder
		inQuote bool
		escaped bool
	)

	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			cur.WriteRune(r)
			escaped = true
		case r == '"':
			cur.WriteRune(r)
			inQuote = !inQuote
		case (r == ' ' || r == '\t') && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return toks
}

// unquote strips a surrounding double-quote pair and resolves escapes.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		if uq, err := strconv.Unquote(s); err == nil {
			return uq
		}
		return s[1 : len(s)-1]
	}
	return s
}

// =============================================================================
// Tag Strategies
// =============================================================================

// BaseImageTag builds the "<base-image>-<version>" tag from Dockerfile
// metadata. The base image defaults to "unknown" and the version label to
// "latest", so the result is always a usable tag.
func BaseImageTag(meta Metadata) string {
	base := meta.BaseImage
	if base == "" {
		base = "unknown"
	}
	version := meta.Version()
	if version == "" {
		version = "latest"
	}
	return SanitizeTag(base + "-" + version)
}

// ExpandSemver returns the floating tags implied by a version string.
// "1.2.3" expands to ["1.2.3", "1.2", "1", "latest"] and a leading "v" is
// stripped. Versions carrying a prerelease or build suffix, or that are not
// dotted integers, produce only themselves: floating tags never point at a
// prerelease.
func ExpandSemver(version string) []string {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ".")
	if len(parts) > 3 {
		return []string{v}
	}
	for _, p := range parts {
		if !isDigits(p) {
			return []string{v}
		}
	}

	out := make([]string, 0, len(parts)+1)
	for i := len(parts); i >= 1; i-- {
		out = append(out, strings.Join(parts[:i], "."))
	}
	return append(out, "latest")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Tags returns the de-duplicated tag list for a resolved definition: the
// semver expansion of its version followed by any tags declared under
// registry.tags. Order is deterministic (first occurrence wins).
func Tags(def *domain.Definition) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(raw string) {
		t := SanitizeTag(raw)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range ExpandSemver(def.Version) {
		add(t)
	}
	for _, t := range def.Registry.Tags {
		add(t)
	}
	if len(out) == 0 {
		add("latest")
	}

	return out
}

// Repository returns the registry repository for a definition:
// "namespace/repository" when declared, falling back to the slug of the
// template name. Repository names are lowercased as registries require.
func Repository(def *domain.Definition) string {
	repo := def.Registry.Repository
	if repo == "" {
		repo = domain.Slugify(def.Name)
	}
	repo = strings.ToLower(strings.Trim(repo, "/"))

	ns := strings.ToLower(strings.Trim(def.Registry.Namespace, "/"))
	if ns == "" {
		return repo
	}
	return ns + "/" + repo
}

// References returns the full image references ("repo:tag") for a resolved
// definition, one per tag from Tags.
func References(def *domain.Definition) []string {
	repo := Repository(def)
	tags := Tags(def)

	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, repo+":"+t)
	}
	return out
}

// SanitizeTag maps an arbitrary string onto the registry tag grammar:
// runes outside [A-Za-z0-9_.-] become hyphens, leading and trailing
// separators are trimmed, and the result is capped at 128 characters.
// Returns "" when nothing survives.
func SanitizeTag(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	out := strings.Trim(b.String(), "-.")
	if len(out) > maxTagLength {
		out = strings.Trim(out[:maxTagLength], "-.")
	}
	return out
}
