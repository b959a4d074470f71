package media

// optimizerVersions maps a file type to the version of the optimization
// pipeline that handles it. Bumping a version invalidates cached optimized
// copies of that type on the next run.
var optimizerVersions = map[string]string{
	"jpeg": "1",
	"png":  "1",
	"gif":  "1",
	"webp": "1",
	"mp4":  "1",
	"webm": "1",
}

// OptimizerVersion returns the current pipeline version for a file type, or
// nil when the type has no optimizer (such objects are stored as-is) or when
// anyVersion is set, which makes cache lookups accept any optimized copy.
func OptimizerVersion(fileType string, anyVersion bool) *string {
	if anyVersion {
		return nil
	}
	v, ok := optimizerVersions[fileType]
	if !ok {
		return nil
	}
	return &v
}

// IsOptimizable reports whether a file type has an optimization pipeline.
func IsOptimizable(fileType string) bool {
	_, ok := optimizerVersions[fileType]
	return ok
}
