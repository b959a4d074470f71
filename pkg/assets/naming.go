package assets

import (
	"net/url"
	"path"
	"strings"

	"course-archiver/pkg/utils"
)

// ExtOf returns the lowercased extension of a URL's path, without the dot,
// or "" when the path has none.
func ExtOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(parsed.Path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NameFor derives the deterministic local filename for a source URL. URLs
// whose path carries an extension keep their sanitized basename, with the
// extension swapped for forcedExt when given. Extension-less URLs are named
// by a digest of the full URL so the same source always maps to the same
// file; fallbackExt supplies their extension.
func NameFor(rawURL, forcedExt, fallbackExt string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		parsed = &url.URL{}
	}

	ext := path.Ext(parsed.Path)
	if ext == "" {
		finalExt := fallbackExt
		if forcedExt != "" {
			finalExt = forcedExt
		}
		if finalExt == "" {
			return ""
		}
		return utils.URLDigest(rawURL) + "." + finalExt
	}

	base := path.Base(parsed.Path)
	if forcedExt != "" {
		base = strings.TrimSuffix(base, ext) + "." + forcedExt
	}
	return utils.SanitizeFilename(base)
}
