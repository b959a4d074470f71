// Package paths implements the pure path algebra of the archive layout:
// "../" back-jump chains between a document, its asset directory and the
// archive root. No I/O happens here.
package paths

import "strings"

const backJump = "../"

// BackJumps returns a relative path climbing n directory levels.
func BackJumps(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(backJump, n)
}

// CountBackJumps counts the leading-level climbs encoded in a relative path.
func CountBackJumps(path string) int {
	return strings.Count(path, backJump)
}

// segments counts the real path components of a relative path, ignoring
// empty segments and ".".
func segments(path string) int {
	n := 0
	for _, part := range strings.Split(path, "/") {
		if part != "" && part != "." {
			n++
		}
	}
	return n
}

// RootFromAsset computes the archive-root path as seen from an asset (or
// generated file) that lives at assetFromDoc relative to a document whose
// own root path is rootFromDoc. With an empty assetFromDoc the asset sits
// beside the document and inherits its root path unchanged.
func RootFromAsset(assetFromDoc, rootFromDoc string) string {
	if assetFromDoc == "" {
		return rootFromDoc
	}

	rootJumps := CountBackJumps(rootFromDoc)
	assetJumps := CountBackJumps(assetFromDoc)

	// The descent below the common ancestor: the asset path minus its
	// leading back jumps.
	descent := assetFromDoc[assetJumps*len(backJump):]

	return BackJumps(rootJumps - assetJumps + segments(descent))
}

// Context carries the relative-path state threaded through every recursive
// localization call: where the current document's assets live relative to
// it, where the archive root is relative to it, and the network location
// (scheme+host) and server path that relative references inside it resolve
// against. The four travel together; deriving a child context through the
// methods below keeps them consistent.
type Context struct {
	AssetsFromDoc string // path from the document to its asset directory; "" = assets beside the document
	RootFromDoc   string // "../" chain from the document to the archive root
	Netloc        string // scheme://host of the document's origin
	ServerPath    string // directory path on the server the document was fetched from
}

// NewContext builds a localization context for a document.
func NewContext(assetsFromDoc, rootFromDoc, netloc, serverPath string) Context {
	return Context{
		AssetsFromDoc: assetsFromDoc,
		RootFromDoc:   rootFromDoc,
		Netloc:        netloc,
		ServerPath:    serverPath,
	}
}

// RootFromAssets is the archive-root path as seen from this context's asset
// directory, where generated wrapper pages and sub-documents are written.
func (c Context) RootFromAssets() string {
	return RootFromAsset(c.AssetsFromDoc, c.RootFromDoc)
}

// ForSubdocument derives the context for an embedded document (iframe page)
// that is saved into the asset directory: its own assets sit beside it, its
// root path gains the extra nesting, and its references resolve against the
// location it was fetched from.
func (c Context) ForSubdocument(netloc, serverPath string) Context {
	return Context{
		AssetsFromDoc: "",
		RootFromDoc:   c.RootFromAssets(),
		Netloc:        netloc,
		ServerPath:    serverPath,
	}
}

// WithLocation returns a copy resolving against a different origin, keeping
// the on-disk geometry untouched. Used for stylesheets hosted elsewhere.
func (c Context) WithLocation(netloc, serverPath string) Context {
	c.Netloc = netloc
	c.ServerPath = serverPath
	return c
}

// Rewrite prefixes a localized filename with the document-to-assets path.
func (c Context) Rewrite(filename string) string {
	if c.AssetsFromDoc == "" {
		return filename
	}
	return c.AssetsFromDoc + "/" + filename
}
