package localize

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"course-archiver/pkg/paths"
	"course-archiver/pkg/utils"
)

// DeferScripts marks every JavaScript <script> in content as deferred so
// page rendering is not blocked. Inline scripts cannot carry defer, so
// their bodies are moved into generated .js files first.
func (l *Localizer) DeferScripts(content, outputDir string, pctx paths.Context) (string, error) {
	frag, err := ParseFragment(content)
	if err != nil {
		return content, err
	}

	frag.Find("script").Each(func(_ int, script *goquery.Selection) {
		if typ, hasType := script.Attr("type"); hasType &&
			typ != "text/javascript" && typ != "application/javascript" {
			return
		}
		if _, deferred := script.Attr("defer"); deferred {
			return
		}
		if _, hasSrc := script.Attr("src"); hasSrc {
			script.SetAttr("defer", "defer")
			return
		}

		body := strings.TrimSpace(script.Text())
		if body == "" {
			return
		}
		// Inline script bodies are named by a digest of their head so the
		// same snippet maps to the same file across pages.
		sample := body
		if len(sample) > 200 {
			sample = sample[:200]
		}
		filename := utils.URLDigest(sample) + ".js"
		if writeErr := os.WriteFile(filepath.Join(outputDir, filename), []byte(body), 0644); writeErr != nil {
			l.log.Warnf("Cannot externalize inline script %s: %v", filename, writeErr)
			return
		}
		script.SetText("")
		script.SetAttr("src", pctx.Rewrite(filename))
		script.SetAttr("defer", "defer")
	})

	return frag.Render()
}
