package cache

import (
	"net/url"
	"strings"
)

// Meta describes a cached optimized object: the freshness token the source
// carried when it was downloaded, and the version of the optimizer that
// produced it. A nil OptimizerVersion means any optimized copy is acceptable.
type Meta struct {
	FreshnessToken   string  `json:"version"`
	OptimizerVersion *string `json:"optimizer_version"`
}

// Matches reports whether stored metadata satisfies the wanted metadata.
// The freshness token must match exactly; the optimizer version must match
// unless the wanted version is nil.
func (m *Meta) Matches(want *Meta) bool {
	if m == nil || want == nil {
		return false
	}
	if m.FreshnessToken != want.FreshnessToken {
		return false
	}
	if want.OptimizerVersion == nil {
		return true
	}
	if m.OptimizerVersion == nil {
		return false
	}
	return *m.OptimizerVersion == *want.OptimizerVersion
}

// ObjectStore is an optimization cache keyed by source URL. Implementations
// hold optimized copies of downloaded media so repeat runs skip the
// download-and-optimize work.
type ObjectStore interface {
	// HasObject reports whether an object exists under key with metadata
	// satisfying want.
	HasObject(key string, want *Meta) (bool, error)

	// DownloadFile copies the cached object for key to destPath.
	DownloadFile(key, destPath string) error

	// UploadFile stores the file at srcPath under key with the given metadata,
	// replacing any previous object.
	UploadFile(srcPath, key string, meta *Meta) error

	// Close releases the store's resources.
	Close() error
}

// Quality names the variant of an object stored under a key. Video objects
// come in low and high variants; everything else has a single default.
func Quality(isVideo, lowQuality bool) string {
	if !isVideo {
		return "default"
	}
	if lowQuality {
		return "low"
	}
	return "high"
}

// Key derives the cache key for a source URL: the object's file type, the
// source host, the escaped scheme-stripped URL, and the quality variant.
func Key(fileType, rawURL, quality string) string {
	stripped := strings.TrimPrefix(rawURL, "https://")
	stripped = strings.TrimPrefix(stripped, "http://")
	host := stripped
	if idx := strings.IndexByte(stripped, '/'); idx >= 0 {
		host = stripped[:idx]
	}
	return fileType + "/" + host + "/" + url.QueryEscape(stripped) + "/" + quality
}
