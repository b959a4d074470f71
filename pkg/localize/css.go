package localize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"course-archiver/pkg/assets"
	"course-archiver/pkg/parse"
	"course-archiver/pkg/paths"
	"course-archiver/pkg/utils"
)

var cssURLPattern = regexp.MustCompile(`url\((.+?)\)`)

// processStylesheet rewrites every url() reference in the CSS file at
// cssPath to a localized file and downloads those files next to it.
// @import-ed stylesheets are processed recursively with their own location
// as the resolution context. pctx must locate the stylesheet itself on the
// server so its relative references resolve correctly.
func (l *Localizer) processStylesheet(ctx context.Context, cssPath string, pctx paths.Context) error {
	raw, err := os.ReadFile(cssPath)
	if err != nil {
		return fmt.Errorf("%w: reading stylesheet %s: %w", utils.ErrFilesystem, cssPath, err)
	}
	content := string(raw)
	outputDir := filepath.Dir(cssPath)

	// Split into alternating literal / url()-target segments so rewriting
	// one reference cannot disturb surrounding CSS text.
	var sb strings.Builder
	last := 0
	changed := false
	for _, loc := range cssURLPattern.FindAllStringSubmatchIndex(content, -1) {
		literal := content[last:loc[0]]
		sb.WriteString(literal)
		last = loc[1]

		ref := trimCSSQuotes(content[loc[2]:loc[3]])
		if parse.IsOpaqueRef(ref) {
			sb.WriteString("url(" + ref + ")")
			continue
		}

		resolved, resolveErr := parse.Resolve(ref, pctx.Netloc, pctx.ServerPath)
		if resolveErr != nil {
			l.log.Warnf("Cannot resolve CSS reference %q in %s: %v", ref, cssPath, resolveErr)
			sb.WriteString("url(" + ref + ")")
			continue
		}

		var asset *assets.LocalAsset
		var ok bool
		if strings.HasSuffix(literal, "@import ") {
			asset, ok = l.materializeImport(ctx, resolved, outputDir, pctx)
		} else {
			asset, ok = l.materializeRef(ctx, ref, outputDir, pctx, assets.Options{})
		}
		if !ok {
			sb.WriteString("url(" + ref + ")")
			continue
		}
		sb.WriteString("url(" + asset.Filename + ")")
		changed = true
	}
	sb.WriteString(content[last:])

	if !changed {
		return nil
	}
	if err := os.WriteFile(cssPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("%w: writing stylesheet %s: %w", utils.ErrFilesystem, cssPath, err)
	}
	return nil
}

// materializeImport downloads an @import-ed stylesheet and recurses into it.
func (l *Localizer) materializeImport(ctx context.Context, resolved, outputDir string, pctx paths.Context) (*assets.LocalAsset, bool) {
	asset, err := l.assetFetcher.Materialize(ctx, resolved, outputDir, assets.Options{ForceExt: "css"})
	if err != nil {
		l.log.WithField("asset_url", resolved).Warnf("Cannot download imported stylesheet: %v", err)
		return nil, false
	}
	netloc, serverPath := parse.SplitLocation("", "", resolved)
	if cssErr := l.processStylesheet(ctx, filepath.Join(outputDir, asset.Filename), pctx.WithLocation(netloc, serverPath)); cssErr != nil {
		l.log.Warnf("Processing imported stylesheet %s failed: %v", asset.Filename, cssErr)
	}
	return asset, true
}

// trimCSSQuotes strips one matching pair of single or double quotes.
func trimCSSQuotes(ref string) string {
	ref = strings.TrimSpace(ref)
	if len(ref) >= 2 {
		if (ref[0] == '\'' && ref[len(ref)-1] == '\'') || (ref[0] == '"' && ref[len(ref)-1] == '"') {
			return ref[1 : len(ref)-1]
		}
	}
	return ref
}
