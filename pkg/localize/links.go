package localize

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"course-archiver/pkg/parse"
	"course-archiver/pkg/paths"
)

// rewriteInternalLinks repoints <a> hrefs so no root-relative link is left
// behind. Course-internal jump_to and tab links become relative archive
// paths; unarchived root-relative links get the instance host prepended so
// they still work online.
func (l *Localizer) rewriteInternalLinks(frag *Fragment, pctx paths.Context) bool {
	changed := false
	frag.Find("a").Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			return
		}
		newHref, rewritten := l.rewriteHref(href, pctx)
		if rewritten {
			anchor.SetAttr("href", newHref)
			changed = true
		}
	})
	return changed
}

func (l *Localizer) rewriteHref(href string, pctx paths.Context) (string, bool) {
	// Links to other hosts, fragments and data URIs are out of scope.
	if parse.Classify(href, l.instanceHost) != parse.ClassInternal {
		return "", false
	}
	src, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	if strings.HasPrefix(src.Path, l.coursePathPrefix) {
		if strings.Contains(src.Path, "jump_to") {
			fixed, found := l.resolveJumpTo(src.Path)
			if !found {
				return l.instanceNetloc + href, true
			}
			return pctx.RootFromDoc + fixed, true
		}
		if tabPath, found := l.tabs.TabPath(src.Path); found {
			return pctx.RootFromDoc + tabPath, true
		}
		return l.instanceNetloc + href, true
	}

	if strings.HasPrefix(src.Path, "/") {
		return l.instanceNetloc + href, true
	}
	return "", false
}

// resolveJumpTo maps a jump_to path to the archive page of the block it
// targets. A miss retries the parent path once: content blocks below a
// vertical are addressed through the page of that vertical.
func (l *Localizer) resolveJumpTo(targetPath string) (string, bool) {
	if fixed, found := l.jump.ResolveJumpTo(targetPath); found {
		return fixed, true
	}
	return l.jump.ResolveJumpTo(path.Dir(targetPath))
}
