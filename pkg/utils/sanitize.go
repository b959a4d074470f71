package utils

import (
	"regexp"
	"strings"
)

// --- Filename Sanitization ---
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`) // Characters invalid in Windows/Unix filenames
var consecutiveUnderscores = regexp.MustCompile(`_+`)                  // Pattern to replace multiple underscores with one
const maxFilenameLength = 100                                          // Max length for sanitized filenames

// SanitizeFilename cleans a string to be safe for use as a filename component
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")       // Replace invalid chars with underscore
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_") // Collapse multiple underscores
	sanitized = strings.Trim(sanitized, "_ ")                           // Remove leading/trailing underscores or spaces

	// Limit filename length (considering multi-byte characters)
	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
		// Trim again in case truncation created leading/trailing underscores
		sanitized = strings.Trim(sanitized, "_ ")
	}

	if sanitized == "" { // Handle cases where sanitization results in an empty string
		sanitized = "untitled" // Provide a default name
	}
	return sanitized
}

// --- Display-Name Slugification ---
var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`) // Runs of anything outside [a-z0-9] collapse to a hyphen

// Slugify converts a content unit display name into a URL/path-safe slug.
// Unit directory names are derived from slugs at tree-construction time and
// are part of the archive's on-disk layout, so the mapping must be stable.
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxFilenameLength {
		slug = strings.Trim(slug[:maxFilenameLength], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
