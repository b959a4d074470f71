package localize

import (
	"context"

	"github.com/sirupsen/logrus"

	"course-archiver/pkg/assets"
	"course-archiver/pkg/paths"
)

// Extensions of documents linked from <a> tags worth pulling into the
// archive. Anything else linked from an anchor stays a remote reference.
var downloadableExtensions = []string{
	"doc", "docx", "pdf", "txt", "ppt", "pptx", "xls", "xlsx", "odt", "odp",
	"ods", "zip", "mp3", "wav", "ogg", "mp4", "webm",
}

// Audio formats that get a small player page generated around them, so the
// anchor opens a playable page instead of a raw file download.
var audioFormats = []string{"mp3", "wav", "ogg"}

// AssetFetcher materializes remote URLs as local files.
type AssetFetcher interface {
	Materialize(ctx context.Context, srcURL, targetDir string, opts assets.Options) (*assets.LocalAsset, error)
}

// PageFetcher retrieves HTML pages through the authenticated session.
type PageFetcher interface {
	GetPage(ctx context.Context, url string) (string, error)
}

// PageRenderer produces the wrapper markup the localizer embeds: video
// players replacing iframes and standalone audio player pages.
type PageRenderer interface {
	VideoSnippet(videoPath, pathToRoot string) (string, error)
	WriteAudioPage(outputFile, audioFile, audioFormat, pathToRoot string) error
}

// JumpResolver maps an in-course jump_to link target onto the archive path
// of the page holding that block.
type JumpResolver interface {
	ResolveJumpTo(targetPath string) (string, bool)
}

// TabResolver maps a course tab href onto its local page path.
type TabResolver interface {
	TabPath(href string) (string, bool)
}

// Localizer rewrites fetched HTML so it works offline: static dependencies
// are materialized next to the page and references are repointed at them,
// in-course links are repointed at archive pages, and everything else is
// made absolute.
type Localizer struct {
	assetFetcher AssetFetcher
	pages        PageFetcher
	render       PageRenderer
	jump         JumpResolver
	tabs         TabResolver

	instanceNetloc   string // scheme://host of the instance
	instanceHost     string
	coursePathPrefix string // /courses/<course-id>
	videoFormat      string
	log              *logrus.Entry
}

// Deps bundles the collaborators a Localizer needs.
type Deps struct {
	Assets AssetFetcher
	Pages  PageFetcher
	Render PageRenderer
	Jump   JumpResolver
	Tabs   TabResolver
}

// New creates a Localizer for one course on one instance.
// instanceNetloc is the instance's scheme://host; coursePathPrefix is the
// server path prefix course-internal links start with.
func New(deps Deps, instanceNetloc, instanceHost, coursePathPrefix, videoFormat string, logger *logrus.Entry) *Localizer {
	return &Localizer{
		assetFetcher:     deps.Assets,
		pages:            deps.Pages,
		render:           deps.Render,
		jump:             deps.Jump,
		tabs:             deps.Tabs,
		instanceNetloc:   instanceNetloc,
		instanceHost:     instanceHost,
		coursePathPrefix: coursePathPrefix,
		videoFormat:      videoFormat,
		log:              logger,
	}
}

// SetCoursePathPrefix narrows the course-internal link prefix once the
// course identifier is known.
func (l *Localizer) SetCoursePathPrefix(prefix string) {
	l.coursePathPrefix = prefix
}

// ProcessContent localizes an HTML snippet: every static dependency is
// downloaded into outputDir, references are rewritten relative to the
// document described by pctx, and internal links are repointed. The content
// is re-serialized only when something was rewritten.
func (l *Localizer) ProcessContent(ctx context.Context, content, outputDir string, pctx paths.Context) (string, error) {
	frag, err := ParseFragment(content)
	if err != nil {
		return content, err
	}

	imgs := l.localizeImages(ctx, frag, outputDir, pctx)
	docs := l.localizeDocuments(ctx, frag, outputDir, pctx)
	css := l.localizeStylesheets(ctx, frag, outputDir, pctx)
	js := l.localizeScripts(ctx, frag, outputDir, pctx)
	sources := l.localizeSources(ctx, frag, outputDir, pctx)
	iframes := l.localizeIframes(ctx, frag, outputDir, pctx)
	links := l.rewriteInternalLinks(frag, pctx)

	if imgs || docs || css || js || sources || iframes || links {
		return frag.Render()
	}
	return content, nil
}
