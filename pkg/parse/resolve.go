package parse

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"course-archiver/pkg/utils"
)

// Classification describes how a reference found in markup relates to the
// instance being archived.
type Classification int

const (
	// ClassInternal references are subject to localization.
	ClassInternal Classification = iota
	// ClassExternal references point at a different host and are left untouched.
	ClassExternal
	// ClassOpaque references (data URIs, fragments, empty scheme-relative)
	// carry no fetchable resource and are left untouched.
	ClassOpaque
)

// IsOpaqueRef reports whether a raw reference is a data URI, an in-page
// fragment, or a degenerate scheme-relative reference - none of which are
// fetchable.
func IsOpaqueRef(raw string) bool {
	return strings.HasPrefix(raw, "data:") ||
		strings.HasPrefix(raw, "#") ||
		strings.HasPrefix(raw, "://")
}

// Classify determines whether a raw reference is internal to the archived
// host, external, or opaque. archiveHost is the bare host being archived.
func Classify(raw, archiveHost string) Classification {
	if IsOpaqueRef(raw) {
		return ClassOpaque
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ClassOpaque
	}
	if parsed.Host != "" && parsed.Host != archiveHost {
		return ClassExternal
	}
	return ClassInternal
}

// Resolve turns a possibly relative reference into an absolute fetchable
// URL. netloc is the current document's scheme://host; serverPath is the
// directory path on the server the document came from. A reference that
// already carries a network location is used as-is (a missing scheme is
// inherited from netloc); a host-rooted reference ignores serverPath.
func Resolve(raw, netloc, serverPath string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: URL %q: %w", utils.ErrParsing, raw, err)
	}

	if parsed.Host != "" {
		if parsed.Scheme == "" {
			base, baseErr := url.Parse(netloc)
			if baseErr != nil || base.Scheme == "" {
				parsed.Scheme = "https"
			} else {
				parsed.Scheme = base.Scheme
			}
		}
		return parsed.String(), nil
	}

	if strings.HasPrefix(parsed.Path, "/") {
		return strings.TrimSuffix(netloc, "/") + parsed.String(), nil
	}

	base, err := url.Parse(strings.TrimSuffix(netloc, "/") + dirWithSlash(serverPath))
	if err != nil {
		return "", fmt.Errorf("%w: URL base %q: %w", utils.ErrParsing, netloc+serverPath, err)
	}
	return base.ResolveReference(parsed).String(), nil
}

// dirWithSlash normalizes a server path into a base directory ("/a/b/").
func dirWithSlash(serverPath string) string {
	if serverPath == "" {
		return "/"
	}
	if !strings.HasPrefix(serverPath, "/") {
		serverPath = "/" + serverPath
	}
	if !strings.HasSuffix(serverPath, "/") {
		serverPath += "/"
	}
	return serverPath
}

// SplitLocation derives the (netloc, serverPath) pair that relative
// references inside a fetched asset resolve against, given the location
// context the asset itself was referenced from. Assets addressed by a file
// path contribute their parent directory; extension-less paths are treated
// as directories themselves.
func SplitLocation(netloc, serverPath, assetURL string) (string, string) {
	parsed, err := url.Parse(assetURL)
	if err != nil {
		return netloc, serverPath
	}

	newPath := serverPath
	if parsed.Path != "" {
		newPath = parsed.Path
		if path.Ext(newPath) != "" {
			newPath = path.Dir(newPath)
		}
	}

	newNetloc := netloc
	if parsed.Host != "" {
		scheme := parsed.Scheme
		if scheme == "" {
			scheme = "https"
		}
		newNetloc = scheme + "://" + parsed.Host
	}
	return newNetloc, newPath
}
