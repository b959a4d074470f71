package archive

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"course-archiver/pkg/paths"
	"course-archiver/pkg/tree"
	"course-archiver/pkg/utils"
)

// bookList is a tab page holding a sidebar of linked documents instead of
// regular content. The documents are pulled in during render.
type bookList struct {
	Sidebar *goquery.Selection
	OrgPath string
	Entries []bookEntry
	fetched bool
}

type bookEntry struct {
	Name string
	File string
}

// collectTabs reads the tab bar off the course page and registers every tab,
// archiving extra pages through the annex callback as they are first seen.
func (a *Archiver) collectTabs(ctx context.Context) error {
	a.log.Info("Getting course tabs ...")
	content, err := a.sess.GetPage(ctx, a.cfg.CourseURL)
	if err != nil {
		return fmt.Errorf("%w: course page for tab listing: %w", utils.ErrRequiredResource, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("%w: HTML of course page: %w", utils.ErrParsing, err)
	}

	a.tabs = tree.NewTabRegistry(a.tree.Root.FolderName, a.annexExtraPage(ctx))

	bar := doc.Find("ol.course-material, ul.course-material, ul.navbar-nav, ol.course-tabs").First()
	bar.Find("li").Each(func(_ int, item *goquery.Selection) {
		anchor := item.Find("a").First()
		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			return
		}
		a.tabs.Register(item.Text(), href)
	})
	return nil
}

// annexExtraPage returns the callback archiving a tab's page the first time
// a link reaches it. Content pages are stored for later localization; book
// sidebar pages are stored for later document download. Anything else is
// unsupported and keeps its online link. The registry serializes annex
// calls, so the appends here need no locking of their own.
func (a *Archiver) annexExtraPage(ctx context.Context) tree.AnnexFunc {
	return func(tabHref, tabOrgPath string) (string, bool) {
		pageLog := a.log.WithField("tab", tabOrgPath)
		content, err := a.sess.GetPage(ctx, a.instanceURL(tabHref))
		if err != nil {
			pageLog.Warnf("Failed to get tab page: %v", err)
			return "", false
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
		if err != nil {
			pageLog.Warnf("Failed to parse tab page: %v", err)
			return "", false
		}

		if section := doc.Find("section.container").First(); section.Length() > 0 {
			html, err := goquery.OuterHtml(section)
			if err != nil {
				pageLog.Warnf("Failed to serialize tab page: %v", err)
				return "", false
			}
			a.annexedPages = append(a.annexedPages, annexedPage{
				Title:   strings.TrimSpace(doc.Find("title").Text()),
				Content: html,
				OrgPath: tabOrgPath,
			})
			return tabOrgPath + "/index.html", true
		}

		if sidebar := doc.Find("section.book-sidebar").First(); sidebar.Length() > 0 {
			a.bookLists = append(a.bookLists, &bookList{Sidebar: sidebar, OrgPath: tabOrgPath})
			return tabOrgPath + "/index.html", true
		}

		pageLog.Warn("Unsupported extra tab page type, keeping online link")
		return "", false
	}
}

// annexPages localizes the extra pages collected during tab registration and
// pulls in the documents of any book sidebars. Unit content can annex
// further tabs through its links, so the pipeline runs this again after the
// unit downloads; already localized pages are skipped.
func (a *Archiver) annexPages(ctx context.Context) error {
	a.log.Info("Downloading content for extra pages ...")
	for i := range a.annexedPages {
		page := &a.annexedPages[i]
		if page.localized {
			continue
		}
		page.localized = true
		outputDir := a.buildDir + "/" + page.OrgPath
		pctx := paths.NewContext("", "../", a.instance.InstanceURL, "")
		processed, err := a.loc.ProcessContent(ctx, page.Content, outputDir, pctx)
		if err != nil {
			a.log.WithField("tab", page.OrgPath).Warnf("Failed to localize extra page: %v", err)
			continue
		}
		if deferred, err := a.loc.DeferScripts(processed, outputDir, pctx); err == nil {
			processed = deferred
		}
		page.Content = processed
	}
	a.downloadBookLists(ctx)
	return nil
}

// downloadBookLists pulls every document linked from collected book sidebars
// into the tab's directory.
func (a *Archiver) downloadBookLists(ctx context.Context) {
	for _, book := range a.bookLists {
		if book.fetched {
			continue
		}
		book.fetched = true
		outputDir := a.buildDir + "/" + book.OrgPath
		book.Sidebar.Find("a").Each(func(_ int, anchor *goquery.Selection) {
			rel, ok := anchor.Attr("rel")
			if !ok || rel == "" {
				return
			}
			src := strings.Fields(rel)[0]
			parsed, err := url.Parse(src)
			if err != nil {
				return
			}
			filename := path.Base(parsed.Path)
			if err := a.sess.Fetcher().DownloadToFile(ctx, a.instanceURL(src), outputDir+"/"+filename); err != nil {
				a.log.WithField("tab", book.OrgPath).Warnf("Failed to download book document %s: %v", src, err)
				return
			}
			book.Entries = append(book.Entries, bookEntry{Name: strings.TrimSpace(anchor.Text()), File: filename})
		})
	}
}
