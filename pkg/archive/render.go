package archive

import (
	"fmt"
	"os"
	"strings"

	"course-archiver/pkg/render"
	"course-archiver/pkg/tree"
	"course-archiver/pkg/utils"
)

// renderAll generates every archive page: unit and navigation pages for the
// course tree, annexed tab pages, book lists, and the landing page.
func (a *Archiver) renderAll() error {
	if err := a.renderCourseUnits(); err != nil {
		return err
	}
	if err := a.renderAnnexedPages(); err != nil {
		return err
	}
	if err := a.renderBookLists(); err != nil {
		return err
	}
	return a.renderHomepage()
}

// renderCourseUnits writes an index.html for every unit directory: player
// and text content collected on verticals, navigation listings on the
// container levels above them.
func (a *Archiver) renderCourseUnits() error {
	verticals := make([]*tree.Unit, 0)
	for _, unit := range a.tree.All {
		if unit.Kind == tree.KindVertical {
			verticals = append(verticals, unit)
		}
	}

	for _, unit := range a.tree.All {
		var err error
		switch unit.Kind {
		case tree.KindVertical:
			err = a.renderVertical(unit, verticals)
		case tree.KindCourse, tree.KindChapter, tree.KindSequential:
			err = a.renderNav(unit)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Archiver) renderVertical(unit *tree.Unit, verticals []*tree.Unit) error {
	blocks := make([]string, 0, len(unit.Descendants))
	for _, child := range unit.Descendants {
		if child.Content != "" {
			blocks = append(blocks, child.Content)
		}
	}

	prev, next := neighborVerticals(unit, verticals)
	data := render.UnitPageData{
		Title:      unit.Data.DisplayName,
		CourseName: a.courseInfo.Name,
		PathToRoot: unit.RootURL,
		Tabs:       a.tabEntries(),
		Blocks:     render.AsHTML(blocks),
		PrevHref:   a.verticalHref(unit, prev),
		NextHref:   a.verticalHref(unit, next),
	}
	return a.engine.RenderToFile(a.buildDir+"/"+unit.RelativePath+"/index.html", "unit.html", data)
}

// neighborVerticals finds the verticals before and after unit in course
// order.
func neighborVerticals(unit *tree.Unit, verticals []*tree.Unit) (prev, next *tree.Unit) {
	for i, v := range verticals {
		if v != unit {
			continue
		}
		if i > 0 {
			prev = verticals[i-1]
		}
		if i < len(verticals)-1 {
			next = verticals[i+1]
		}
		return prev, next
	}
	return nil, nil
}

// verticalHref links from one vertical's page to another's, through the
// archive root.
func (a *Archiver) verticalHref(from, to *tree.Unit) string {
	if to == nil {
		return ""
	}
	return from.RootURL + to.RelativePath + "/index.html"
}

// renderNav writes the outline page of a container unit, linking each child
// to the page of its first vertical.
func (a *Archiver) renderNav(unit *tree.Unit) error {
	entries := make([]render.NavEntry, 0, len(unit.Descendants))
	for _, child := range unit.Descendants {
		entry := render.NavEntry{Title: child.Data.DisplayName}
		if target := firstVertical(child); target != nil {
			entry.Href = a.relativeHref(unit, target)
		}
		for _, grandchild := range child.Descendants {
			if grandchild.Kind != tree.KindSequential && grandchild.Kind != tree.KindVertical {
				continue
			}
			sub := render.NavEntry{Title: grandchild.Data.DisplayName}
			if target := firstVertical(grandchild); target != nil {
				sub.Href = a.relativeHref(unit, target)
			}
			entry.Entries = append(entry.Entries, sub)
		}
		entries = append(entries, entry)
	}

	data := render.NavPageData{
		Title:      unit.Data.DisplayName,
		CourseName: a.courseInfo.Name,
		PathToRoot: unit.RootURL,
		Tabs:       a.tabEntries(),
		Entries:    entries,
	}
	return a.engine.RenderToFile(a.buildDir+"/"+unit.RelativePath+"/index.html", "nav.html", data)
}

// firstVertical descends first children until it reaches a page-bearing
// vertical.
func firstVertical(unit *tree.Unit) *tree.Unit {
	if unit.Kind == tree.KindVertical {
		return unit
	}
	if len(unit.Descendants) == 0 {
		return nil
	}
	return firstVertical(unit.Descendants[0])
}

// relativeHref links from a container unit's page down to a target unit's
// page.
func (a *Archiver) relativeHref(from, to *tree.Unit) string {
	return strings.TrimPrefix(to.RelativePath, from.RelativePath+"/") + "/index.html"
}

func (a *Archiver) renderAnnexedPages() error {
	for _, page := range a.annexedPages {
		data := render.SpecificPageData{
			Title:      page.Title,
			CourseName: a.courseInfo.Name,
			Content:    render.AsHTML([]string{page.Content})[0],
			PathToRoot: "../",
			Tabs:       a.tabEntries(),
		}
		if err := a.engine.RenderToFile(a.buildDir+"/"+page.OrgPath+"/index.html", "specific_page.html", data); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archiver) renderBookLists() error {
	for _, book := range a.bookLists {
		books := make([]render.BookLink, 0, len(book.Entries))
		for _, entry := range book.Entries {
			books = append(books, render.BookLink{Name: entry.Name, Href: entry.File})
		}
		data := render.BookNavData{
			Title:      book.OrgPath,
			CourseName: a.courseInfo.Name,
			PathToRoot: "../",
			Tabs:       a.tabEntries(),
			Books:      books,
		}
		if err := a.engine.RenderToFile(a.buildDir+"/"+book.OrgPath+"/index.html", "booknav.html", data); err != nil {
			return err
		}
	}
	return nil
}

// renderHomepage writes the archive landing page. Without homepage content
// the landing page is a redirect to the course outline.
func (a *Archiver) renderHomepage() error {
	if !a.hasHomepage {
		target := a.tree.Root.RelativePath + "/index.html"
		redirect := fmt.Sprintf(
			`<!DOCTYPE html><html><head><meta charset="utf-8"><meta http-equiv="refresh" content="0; url=%s"></head><body><a href="%s">Course</a></body></html>`,
			target, target)
		if err := os.WriteFile(a.buildDir+"/index.html", []byte(redirect), 0644); err != nil {
			return fmt.Errorf("%w: writing landing redirect: %w", utils.ErrFilesystem, err)
		}
		return nil
	}

	data := render.HomePageData{
		CourseName:  a.courseInfo.Name,
		Org:         a.courseInfo.Org,
		Description: render.AsHTML([]string{a.courseInfo.ShortDescription})[0],
		Messages:    render.AsHTML(a.homepageHTML),
		Tabs:        a.tabEntries(),
		CourseHref:  a.tree.Root.RelativePath + "/index.html",
		HeadAssets:  render.AsHTML(a.headAssets),
		EndScripts:  render.AsHTML(a.endScripts),
	}
	return a.engine.RenderToFile(a.buildDir+"/index.html", "home.html", data)
}

// tabEntries converts the registered tabs to navigation entries with
// root-relative hrefs.
func (a *Archiver) tabEntries() []render.NavEntry {
	if a.tabs == nil {
		return nil
	}
	names := a.tabs.Names()
	entries := make([]render.NavEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, render.NavEntry{
			Title: name,
			Href:  strings.TrimPrefix(a.tabs.Path(name), "/"),
		})
	}
	return entries
}
