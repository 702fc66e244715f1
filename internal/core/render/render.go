// Package render substitutes a prepared parameter context into template
// source text. This is part of the Functional Core - rendering is
// deterministic for a fixed source and context.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// =============================================================================
// Errors
// =============================================================================

// Error reports a template parse or execution failure, naming the template
// and the source file inside it.
type Error struct {
	Template string // template identifier
	File     string // relative source path
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template %s: file %s: %v", e.Template, e.File, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new render Error.
func NewError(templateID, file string, err error) *Error {
	return &Error{
		Template: templateID,
		File:     file,
		Err:      err,
	}
}

// =============================================================================
// Rendering
// =============================================================================

// Render parses and executes one template source against ctx. A reference to
// a key absent from ctx is an execution error, not silent empty output, so
// authoring defects surface instead of producing broken artifacts. Output is
// normalized to end with exactly one trailing newline; empty output stays
// empty.
func Render(templateID, file, src string, ctx map[string]any) (string, error) {
	tmpl, err := template.New(file).Option("missingkey=error").Funcs(funcMap()).Parse(src)
	if err != nil {
		return "", NewError(templateID, file, err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", NewError(templateID, file, err)
	}

	return normalize(buf.String()), nil
}

func normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimRight(s, "\n") + "\n"
}

// =============================================================================
// Template Functions
// =============================================================================

// funcMap is the function set available inside template sources. It is kept
// deliberately small: substitution helpers only, not a scripting surface.
func funcMap() template.FuncMap {
	return template.FuncMap{
		"default": defaultFn,
		"upper":   strings.ToUpper,
		"lower":   strings.ToLower,
		"replace": replaceFn,
		"join":    joinFn,
		"quote":   quoteFn,
		"indent":  indentFn,
		"has":     hasFn,
		"get":     getFn,
	}
}

// defaultFn returns def when the piped value is nil or an empty string.
// Usage: {{ get . "port" | default 8000 }}
func defaultFn(def any, v ...any) any {
	if len(v) == 0 || v[0] == nil {
		return def
	}
	if s, ok := v[0].(string); ok && s == "" {
		return def
	}
	return v[0]
}

// replaceFn substitutes all occurrences. Usage: {{ .name | replace "_" "-" }}
func replaceFn(old, new, s string) string {
	return strings.ReplaceAll(s, old, new)
}

// joinFn concatenates array items. Usage: {{ .tags | join ", " }}
func joinFn(sep string, items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprint(item)
	}
	return strings.Join(parts, sep)
}

func quoteFn(v any) string {
	return strconv.Quote(fmt.Sprint(v))
}

// indentFn prefixes every line with n spaces. Usage: {{ .block | indent 4 }}
func indentFn(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// hasFn reports whether the context carries a key, for guarding references
// to optional parameters. Usage: {{ if has . "port" }}
func hasFn(ctx map[string]any, key string) bool {
	_, ok := ctx[key]
	return ok
}

// getFn looks up a key without triggering the missing-key error, returning
// nil when absent. Usage: {{ get . "port" | default 8000 }}
func getFn(ctx map[string]any, key string) any {
	return ctx[key]
}
