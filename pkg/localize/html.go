package localize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"course-archiver/pkg/assets"
	"course-archiver/pkg/parse"
	"course-archiver/pkg/paths"
	"course-archiver/pkg/utils"
)

// materializeRef resolves a raw reference against the document's location
// and materializes it into outputDir. Opaque references and filtered
// extensions return ok=false without error noise.
func (l *Localizer) materializeRef(ctx context.Context, raw, outputDir string, pctx paths.Context, opts assets.Options) (*assets.LocalAsset, bool) {
	if raw == "" || parse.IsOpaqueRef(raw) {
		return nil, false
	}
	resolved, err := parse.Resolve(raw, pctx.Netloc, pctx.ServerPath)
	if err != nil {
		l.log.Warnf("Cannot resolve reference %q: %v", raw, err)
		return nil, false
	}
	asset, err := l.assetFetcher.Materialize(ctx, resolved, outputDir, opts)
	if err != nil {
		if !errors.Is(err, utils.ErrExtensionFiltered) {
			l.log.WithField("asset_url", resolved).Warnf("Leaving reference untouched: %v", err)
		}
		return nil, false
	}
	return asset, true
}

// localizeImages materializes <img> sources and caps their display width so
// oversized originals stay inside the page.
func (l *Localizer) localizeImages(ctx context.Context, frag *Fragment, outputDir string, pctx paths.Context) bool {
	changed := false
	frag.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			return
		}
		asset, ok := l.materializeRef(ctx, src, outputDir, pctx, assets.Options{})
		if !ok {
			return
		}
		img.SetAttr("src", pctx.Rewrite(asset.Filename))
		if style, hasStyle := img.Attr("style"); hasStyle {
			img.SetAttr("style", style+" max-width:100%")
		} else {
			img.SetAttr("style", " max-width:100%")
		}
		changed = true
	})
	return changed
}

// localizeDocuments materializes downloadable files behind <a> tags. Audio
// files additionally get a player page, and the anchor points at that page.
func (l *Localizer) localizeDocuments(ctx context.Context, frag *Fragment, outputDir string, pctx paths.Context) bool {
	changed := false
	frag.Find("a").Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		asset, ok := l.materializeRef(ctx, href, outputDir, pctx, assets.Options{FilterExt: downloadableExtensions})
		if !ok {
			return
		}
		filename := asset.Filename
		ext := strings.TrimPrefix(filepath.Ext(filename), ".")
		if isAudioFormat(ext) {
			pageName := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".html"
			pagePath := filepath.Join(outputDir, pageName)
			if _, statErr := os.Stat(pagePath); statErr != nil {
				if renderErr := l.render.WriteAudioPage(pagePath, filename, ext, pctx.RootFromAssets()); renderErr != nil {
					l.log.Warnf("Cannot write audio player page for %s: %v", filename, renderErr)
					return
				}
			}
			filename = pageName
		}
		anchor.SetAttr("href", pctx.Rewrite(filename))
		changed = true
	})
	return changed
}

// localizeStylesheets materializes <link> targets. Freshly downloaded CSS
// has its own url() dependencies pulled in recursively, resolved against
// the stylesheet's location rather than the page's.
func (l *Localizer) localizeStylesheets(ctx context.Context, frag *Fragment, outputDir string, pctx paths.Context) bool {
	changed := false
	frag.Find("link").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		asset, ok := l.materializeRef(ctx, href, outputDir, pctx, assets.Options{})
		if !ok {
			return
		}
		if asset.Fresh {
			resolved, err := parse.Resolve(href, pctx.Netloc, pctx.ServerPath)
			if err == nil {
				netloc, serverPath := parse.SplitLocation(pctx.Netloc, pctx.ServerPath, resolved)
				cssPath := filepath.Join(outputDir, asset.Filename)
				if cssErr := l.processStylesheet(ctx, cssPath, pctx.WithLocation(netloc, serverPath)); cssErr != nil {
					l.log.Warnf("Processing stylesheet %s failed: %v", asset.Filename, cssErr)
				}
			}
		}
		link.SetAttr("href", pctx.Rewrite(asset.Filename))
		changed = true
	})
	return changed
}

func (l *Localizer) localizeScripts(ctx context.Context, frag *Fragment, outputDir string, pctx paths.Context) bool {
	changed := false
	frag.Find("script").Each(func(_ int, script *goquery.Selection) {
		src, ok := script.Attr("src")
		if !ok {
			return
		}
		asset, ok := l.materializeRef(ctx, src, outputDir, pctx, assets.Options{})
		if !ok {
			return
		}
		script.SetAttr("src", pctx.Rewrite(asset.Filename))
		changed = true
	})
	return changed
}

func (l *Localizer) localizeSources(ctx context.Context, frag *Fragment, outputDir string, pctx paths.Context) bool {
	changed := false
	frag.Find("source").Each(func(_ int, source *goquery.Selection) {
		src, ok := source.Attr("src")
		if !ok {
			return
		}
		asset, ok := l.materializeRef(ctx, src, outputDir, pctx, assets.Options{})
		if !ok {
			return
		}
		source.SetAttr("src", pctx.Rewrite(asset.Filename))
		changed = true
	})
	return changed
}

// localizeIframes handles the three iframe shapes that appear in course
// content: YouTube embeds become local video players, PDF viewers become
// local files, and anything else is archived as a nested page.
func (l *Localizer) localizeIframes(ctx context.Context, frag *Fragment, outputDir string, pctx paths.Context) bool {
	changed := false
	frag.Find("iframe").Each(func(_ int, iframe *goquery.Selection) {
		src, ok := iframe.Attr("src")
		if !ok || src == "" || parse.IsOpaqueRef(src) {
			return
		}
		switch {
		case strings.Contains(src, "youtube"):
			asset, ok := l.materializeRef(ctx, src, outputDir, pctx, assets.Options{IsVideo: true})
			if !ok {
				return
			}
			snippet, err := l.render.VideoSnippet(pctx.Rewrite(asset.Filename), pctx.RootFromDoc)
			if err != nil {
				l.log.Warnf("Cannot render video player for %s: %v", src, err)
				return
			}
			iframe.ReplaceWithHtml(snippet)
			changed = true
		case strings.Contains(src, ".pdf"):
			asset, ok := l.materializeRef(ctx, src, outputDir, pctx, assets.Options{})
			if !ok {
				return
			}
			iframe.SetAttr("src", pctx.Rewrite(asset.Filename))
			changed = true
		default:
			if l.localizeSubdocument(ctx, iframe, src, outputDir, pctx) {
				changed = true
			}
		}
	})
	return changed
}

// localizeSubdocument archives an embedded page: fetches it, localizes it
// with the embedded page's own location as context, and points the iframe
// at the saved copy.
func (l *Localizer) localizeSubdocument(ctx context.Context, iframe *goquery.Selection, src, outputDir string, pctx paths.Context) bool {
	resolved, err := parse.Resolve(src, pctx.Netloc, "")
	if err != nil {
		l.log.Warnf("Cannot resolve iframe source %q: %v", src, err)
		return false
	}
	content, err := l.pages.GetPage(ctx, resolved)
	if err != nil || content == "" {
		if err != nil {
			l.log.WithField("iframe_url", resolved).Warnf("Cannot fetch embedded page: %v", err)
		}
		return false
	}

	subCtx := pctx.ForSubdocument(parse.SplitLocation(pctx.Netloc, pctx.ServerPath, resolved))
	processed, err := l.ProcessContent(ctx, content, outputDir, subCtx)
	if err != nil {
		l.log.WithField("iframe_url", resolved).Warnf("Cannot localize embedded page: %v", err)
		return false
	}

	filename := utils.URLDigest(src) + ".html"
	if writeErr := os.WriteFile(filepath.Join(outputDir, filename), []byte(processed), 0644); writeErr != nil {
		l.log.Warnf("Cannot save embedded page %s: %v", filename, writeErr)
		return false
	}
	iframe.SetAttr("src", pctx.Rewrite(filename))
	return true
}

func isAudioFormat(ext string) bool {
	for _, f := range audioFormats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}
