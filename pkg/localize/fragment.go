package localize

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"course-archiver/pkg/utils"
)

// Fragment is a parsed HTML snippet. Unlike a full document parse, the
// snippet's structure is preserved: no html/head/body scaffolding is added
// around it on render, and tags like <link> or <style> stay where they were.
type Fragment struct {
	doc  *goquery.Document
	body *html.Node
}

// ParseFragment parses an HTML snippet in body context.
func ParseFragment(content string) (*Fragment, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML fragment: %w", utils.ErrParsing, err)
	}

	root := &html.Node{Type: html.DocumentNode}
	htmlNode := &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
	root.AppendChild(htmlNode)
	htmlNode.AppendChild(body)
	for _, n := range nodes {
		body.AppendChild(n)
	}

	return &Fragment{doc: goquery.NewDocumentFromNode(root), body: body}, nil
}

// Find runs a selector over the fragment.
func (f *Fragment) Find(selector string) *goquery.Selection {
	return f.doc.Find("body").Find(selector)
}

// Render serializes the fragment back to HTML, without the synthetic
// wrapper elements used during parsing.
func (f *Fragment) Render() (string, error) {
	var sb strings.Builder
	for c := f.body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", fmt.Errorf("%w: rendering HTML fragment: %w", utils.ErrParsing, err)
		}
	}
	return sb.String(), nil
}
