package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"course-archiver/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Engine renders the archive's generated pages from embedded templates.
// Construct it once; it is read-only afterwards and safe for concurrent use.
type Engine struct {
	tmpl        *template.Template
	markdown    goldmark.Markdown
	videoFormat string
	autoplay    bool
	log         *logrus.Entry
}

// New parses the embedded templates.
func New(videoFormat string, autoplay bool, logger *logrus.Entry) (*Engine, error) {
	e := &Engine{
		markdown:    goldmark.New(),
		videoFormat: videoFormat,
		autoplay:    autoplay,
		log:         logger,
	}

	funcs := template.FuncMap{
		"slugify":  utils.Slugify,
		"markdown": e.markdownHTML,
		"safe": func(s string) template.HTML {
			return template.HTML(s)
		},
		"firstWords": func(s string) string {
			words := strings.Fields(s)
			if len(words) > 5 {
				words = words[:5]
			}
			return strings.Join(words, " ")
		},
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%w: parsing templates: %w", utils.ErrParsing, err)
	}
	e.tmpl = tmpl
	return e, nil
}

// markdownHTML renders a markdown snippet, with newlines surfacing as line
// breaks the way course descriptions expect.
func (e *Engine) markdownHTML(text string) template.HTML {
	var buf bytes.Buffer
	if err := e.markdown.Convert([]byte(text), &buf); err != nil {
		e.log.Warnf("Cannot render markdown: %v", err)
		return template.HTML(template.HTMLEscapeString(text))
	}
	out := strings.TrimSpace(buf.String())
	out = strings.TrimPrefix(out, "<p>")
	out = strings.TrimSuffix(out, "</p>")
	return template.HTML(strings.ReplaceAll(out, "\n", "<br>"))
}

// Render executes a template to a string.
func (e *Engine) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("%w: rendering template %s: %w", utils.ErrParsing, name, err)
	}
	return buf.String(), nil
}

// RenderToFile executes a template straight into a file, creating parent
// directories as needed.
func (e *Engine) RenderToFile(outputFile, name string, data any) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", utils.ErrFilesystem, filepath.Dir(outputFile), err)
	}
	page, err := e.Render(name, data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, []byte(page), 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %w", utils.ErrFilesystem, outputFile, err)
	}
	return nil
}
