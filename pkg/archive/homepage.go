package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"course-archiver/pkg/paths"
	"course-archiver/pkg/utils"
)

// faviconFallbackURL serves when the instance has no configured favicon.
const faviconFallbackURL = "https://github.com/edx/edx-platform/raw/master/lms/static/images/favicon.ico"

// getHomepage extracts the welcome message(s) from the course page and
// localizes them into the home asset directory. Some instances show one
// welcome container, others a list of update articles; a course may have
// neither, in which case the archive front page becomes the course outline.
func (a *Archiver) getHomepage(ctx context.Context) error {
	a.log.Info("Getting homepage ...")
	content, err := a.sess.GetPage(ctx, a.cfg.CourseURL)
	if err != nil {
		return fmt.Errorf("%w: course homepage: %w", utils.ErrRequiredResource, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("%w: HTML of course homepage: %w", utils.ErrParsing, err)
	}

	homeDir := a.buildDir + "/home"
	pctx := paths.NewContext("home", "", a.instance.InstanceURL, "")

	// The landing page reuses the instance's own styling and scripts so the
	// archived homepage looks like the online one.
	if headAssets, err := a.loc.ExtractHeadAssets(ctx, content, homeDir, pctx); err != nil {
		a.log.Warnf("Failed to localize homepage head assets: %v", err)
	} else {
		a.headAssets = headAssets
	}
	if endScripts, err := a.loc.ExtractBodyEndScripts(ctx, content, homeDir, pctx); err != nil {
		a.log.Warnf("Failed to localize homepage scripts: %v", err)
	} else {
		a.endScripts = endScripts
	}

	welcomeClass := a.instance.HomepageClass
	if welcomeClass == "" {
		welcomeClass = "welcome-message"
	}
	if welcome := doc.Find("div." + welcomeClass).First(); welcome.Length() > 0 {
		cleanHomepageContent(welcome)
		if err := a.appendHomepageMessage(ctx, welcome, homeDir, pctx); err != nil {
			return err
		}
		a.hasHomepage = true
		return nil
	}

	articles := doc.Find("div[class*=info-wrapper]")
	if articles.Length() == 0 {
		a.log.Warn("Course has no homepage content, outline becomes the front page")
		a.hasHomepage = false
		return nil
	}
	var appendErr error
	articles.Each(func(_ int, article *goquery.Selection) {
		cleanHomepageContent(article)
		article.SetAttr("class", "toggle-visibility-element article-content")
		if err := a.appendHomepageMessage(ctx, article, homeDir, pctx); err != nil && appendErr == nil {
			appendErr = err
		}
	})
	if appendErr != nil {
		return appendErr
	}
	a.hasHomepage = true
	return nil
}

func (a *Archiver) appendHomepageMessage(ctx context.Context, selection *goquery.Selection, homeDir string, pctx paths.Context) error {
	html, err := goquery.OuterHtml(selection)
	if err != nil {
		return fmt.Errorf("%w: serializing homepage HTML: %w", utils.ErrParsing, err)
	}
	processed, err := a.loc.ProcessContent(ctx, html, homeDir, pctx)
	if err != nil {
		return err
	}
	if deferred, err := a.loc.DeferScripts(processed, homeDir, pctx); err == nil {
		processed = deferred
	}
	a.homepageHTML = append(a.homepageHTML, processed)
	return nil
}

// cleanHomepageContent drops interactive elements that make no sense offline.
func cleanHomepageContent(selection *goquery.Selection) {
	selection.Find("div.dismiss-message, a.action-show-bookmarks, button.toggle-visibility-button").Remove()
}

// getFavicon saves the instance favicon (or the platform fallback) at the
// build root.
func (a *Archiver) getFavicon(ctx context.Context) error {
	destPath := a.buildDir + "/favicon.png"
	candidates := []string{}
	if a.instance.FaviconURL != "" {
		candidates = append(candidates, a.instance.FaviconURL)
	}
	candidates = append(candidates, faviconFallbackURL)

	var lastErr error
	for _, faviconURL := range candidates {
		if err := a.sess.Fetcher().DownloadToFile(ctx, faviconURL, destPath); err != nil {
			lastErr = err
			continue
		}
		a.log.Debugf("Favicon downloaded from %s", faviconURL)
		return nil
	}
	return lastErr
}
