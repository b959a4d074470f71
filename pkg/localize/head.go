package localize

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"course-archiver/pkg/paths"
	"course-archiver/pkg/utils"
)

// ExtractHeadAssets pulls the CSS and JS elements out of a full page's
// <head>, localizes each, and returns them as HTML strings ready to embed
// in generated pages.
func (l *Localizer) ExtractHeadAssets(ctx context.Context, pageHTML, outputDir string, pctx paths.Context) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing page head: %w", utils.ErrParsing, err)
	}
	selection := doc.Find("head > script, head > link[rel=stylesheet], head > style")
	return l.localizeElements(ctx, selection, outputDir, pctx)
}

// ExtractBodyEndScripts pulls the top-level <script> elements out of a full
// page's <body>, localized the same way.
func (l *Localizer) ExtractBodyEndScripts(ctx context.Context, pageHTML, outputDir string, pctx paths.Context) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing page body: %w", utils.ErrParsing, err)
	}
	return l.localizeElements(ctx, doc.Find("body > script"), outputDir, pctx)
}

func (l *Localizer) localizeElements(ctx context.Context, selection *goquery.Selection, outputDir string, pctx paths.Context) ([]string, error) {
	var out []string
	var firstErr error
	selection.Each(func(_ int, el *goquery.Selection) {
		raw, err := goquery.OuterHtml(el)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: serializing head element: %w", utils.ErrParsing, err)
			}
			return
		}
		processed, err := l.ProcessContent(ctx, raw, outputDir, pctx)
		if err != nil {
			l.log.Warnf("Cannot localize page element: %v", err)
			processed = raw
		}
		out = append(out, processed)
	})
	return out, firstErr
}
