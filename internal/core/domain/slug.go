package domain

// =============================================================================
// Slug Generation
// =============================================================================

// Slugify converts a template identifier or name to an image-name-safe slug.
//
// The transformation rules are:
//   - Lowercase letters (a-z) are kept as-is
//   - Digits (0-9) are kept as-is
//   - Hyphens (-) are kept as-is
//   - Uppercase letters (A-Z) are converted to lowercase
//   - Spaces, slashes, underscores, and dots are converted to hyphens
//   - All other characters are removed
//   - Runs of hyphens collapse to one; leading/trailing hyphens are trimmed
//
// This is a pure function with no side effects.
//
// Example:
//
//	Slugify("apps/python/fastapi")  // returns "apps-python-fastapi"
//	Slugify("My App 2.0!")          // returns "my-app-2-0"
func Slugify(name string) string {
	slug := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			slug = append(slug, r)
		case r >= 'A' && r <= 'Z':
			slug = append(slug, r+32) // convert to lowercase
		case r == ' ' || r == '/' || r == '_' || r == '.' || r == '-':
			if n := len(slug); n > 0 && slug[n-1] != '-' {
				slug = append(slug, '-')
			}
			// All other characters are dropped
		}
	}
	for len(slug) > 0 && slug[len(slug)-1] == '-' {
		slug = slug[:len(slug)-1]
	}
	return string(slug)
}
