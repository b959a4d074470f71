package localize

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-archiver/pkg/assets"
	"course-archiver/pkg/paths"
	"course-archiver/pkg/utils"
)

const (
	testNetloc = "https://lms.example.com"
	testHost   = "lms.example.com"
	testPrefix = "/courses/course-v1:Org+C1+2026"
)

type fakeAssets struct {
	contents map[string]string // resolved URL -> file body to write, "" writes nothing
	calls    []string
	seen     map[string]bool
}

func (f *fakeAssets) Materialize(_ context.Context, srcURL, targetDir string, opts assets.Options) (*assets.LocalAsset, error) {
	ext := assets.ExtOf(srcURL)
	if len(opts.FilterExt) > 0 {
		match := false
		for _, e := range opts.FilterExt {
			if strings.EqualFold(e, ext) {
				match = true
			}
		}
		if !match {
			return nil, utils.ErrExtensionFiltered
		}
	}
	f.calls = append(f.calls, srcURL)

	forced := opts.ForceExt
	if opts.IsVideo && forced == "" {
		forced = "mp4"
	}
	name := assets.NameFor(srcURL, forced, "bin")
	target := filepath.Join(targetDir, name)
	if body, ok := f.contents[srcURL]; ok && body != "" {
		if err := os.WriteFile(target, []byte(body), 0644); err != nil {
			return nil, err
		}
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	fresh := !f.seen[target]
	f.seen[target] = true
	return &assets.LocalAsset{Filename: name, Fresh: fresh}, nil
}

type fakePages struct{ pages map[string]string }

func (f *fakePages) GetPage(_ context.Context, url string) (string, error) {
	body, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return body, nil
}

type fakeRender struct{}

func (fakeRender) VideoSnippet(videoPath, pathToRoot string) (string, error) {
	return fmt.Sprintf(`<video src="%s" data-root="%s"></video>`, videoPath, pathToRoot), nil
}

func (fakeRender) WriteAudioPage(outputFile, audioFile, audioFormat, pathToRoot string) error {
	return os.WriteFile(outputFile, []byte("<audio src=\""+audioFile+"\"></audio>"), 0644)
}

type fakeJump struct{ table map[string]string }

func (f *fakeJump) ResolveJumpTo(targetPath string) (string, bool) {
	fixed, ok := f.table[targetPath]
	return fixed, ok
}

type fakeTabs struct{ table map[string]string }

func (f *fakeTabs) TabPath(href string) (string, bool) {
	fixed, ok := f.table[href]
	return fixed, ok
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestLocalizer(fa *fakeAssets, fp *fakePages, fj *fakeJump, ft *fakeTabs) *Localizer {
	if fa == nil {
		fa = &fakeAssets{}
	}
	if fp == nil {
		fp = &fakePages{}
	}
	if fj == nil {
		fj = &fakeJump{}
	}
	if ft == nil {
		ft = &fakeTabs{}
	}
	return New(Deps{Assets: fa, Pages: fp, Render: fakeRender{}, Jump: fj, Tabs: ft},
		testNetloc, testHost, testPrefix, "mp4", testLogger())
}

func TestFragmentRoundTrip(t *testing.T) {
	in := `<link rel="stylesheet" href="a.css"/><p>hi</p><script src="b.js"></script>`
	frag, err := ParseFragment(in)
	require.NoError(t, err)
	out, err := frag.Render()
	require.NoError(t, err)
	assert.Equal(t, in, out, "parsing must not hoist or reorder elements")
}

func TestProcessContentImages(t *testing.T) {
	l := newTestLocalizer(nil, nil, nil, nil)
	pctx := paths.NewContext("", "../../", testNetloc, "")

	out, err := l.ProcessContent(context.Background(), `<img src="/static/a.png"/>`, t.TempDir(), pctx)
	require.NoError(t, err)
	assert.Contains(t, out, `src="a.png"`)
	assert.Contains(t, out, `style=" max-width:100%"`)
}

func TestProcessContentImageStyleAppended(t *testing.T) {
	l := newTestLocalizer(nil, nil, nil, nil)
	pctx := paths.NewContext("", "../../", testNetloc, "")

	out, err := l.ProcessContent(context.Background(), `<img src="/static/a.png" style="border:0"/>`, t.TempDir(), pctx)
	require.NoError(t, err)
	assert.Contains(t, out, `style="border:0 max-width:100%"`)
}

func TestProcessContentUnchangedWithoutWork(t *testing.T) {
	l := newTestLocalizer(nil, nil, nil, nil)
	in := "<p>nothing  to localize</p>"
	out, err := l.ProcessContent(context.Background(), in, t.TempDir(), paths.NewContext("", "", testNetloc, ""))
	require.NoError(t, err)
	assert.Equal(t, in, out, "untouched content must be returned verbatim")
}

func TestProcessContentAudioDocument(t *testing.T) {
	l := newTestLocalizer(nil, nil, nil, nil)
	dir := t.TempDir()
	pctx := paths.NewContext("attachments", "../", testNetloc, "")

	out, err := l.ProcessContent(context.Background(), `<a href="/media/talk.mp3">listen</a>`, dir, pctx)
	require.NoError(t, err)
	assert.Contains(t, out, `href="attachments/talk.html"`)
	_, statErr := os.Stat(filepath.Join(dir, "talk.html"))
	assert.NoError(t, statErr, "audio player page must be generated")
}

func TestProcessContentAnchorFilter(t *testing.T) {
	fa := &fakeAssets{}
	l := newTestLocalizer(fa, nil, nil, nil)

	out, err := l.ProcessContent(context.Background(), `<a href="/pages/about.aspx">about</a>`, t.TempDir(), paths.NewContext("", "", testNetloc, ""))
	require.NoError(t, err)
	assert.Contains(t, out, `href="https://lms.example.com/pages/about.aspx"`, "non-downloadable root-relative links get the host prepended")
	assert.Empty(t, fa.calls, "filtered anchors must not be fetched")
}

func TestProcessContentYoutubeIframe(t *testing.T) {
	l := newTestLocalizer(nil, nil, nil, nil)
	pctx := paths.NewContext("", "../../", testNetloc, "")

	out, err := l.ProcessContent(context.Background(), `<iframe src="https://www.youtube.com/embed/abc123"></iframe>`, t.TempDir(), pctx)
	require.NoError(t, err)
	assert.NotContains(t, out, "<iframe")
	assert.Contains(t, out, `<video src="`)
	assert.Contains(t, out, `.mp4`)
	assert.Contains(t, out, `data-root="../../"`)
}

func TestProcessContentEmbeddedPage(t *testing.T) {
	embedURL := testNetloc + "/embed/widget"
	fp := &fakePages{pages: map[string]string{embedURL: `<p>widget</p>`}}
	l := newTestLocalizer(nil, fp, nil, nil)
	dir := t.TempDir()

	out, err := l.ProcessContent(context.Background(), `<iframe src="/embed/widget"></iframe>`, dir, paths.NewContext("", "", testNetloc, ""))
	require.NoError(t, err)

	wantName := utils.URLDigest("/embed/widget") + ".html"
	assert.Contains(t, out, `src="`+wantName+`"`)
	body, readErr := os.ReadFile(filepath.Join(dir, wantName))
	require.NoError(t, readErr)
	assert.Equal(t, "<p>widget</p>", string(body))
}

func TestRewriteInternalLinks(t *testing.T) {
	jump := &fakeJump{table: map[string]string{
		testPrefix + "/jump_to/block-v1:Org+C1+2026+type@vertical+block@abc123": "chapter-1/seq-1/vertical-1/index.html",
	}}
	tabs := &fakeTabs{table: map[string]string{
		testPrefix + "/progress": "progress/index.html",
	}}
	l := newTestLocalizer(nil, nil, jump, tabs)
	pctx := paths.NewContext("", "../../", testNetloc, "")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"external link untouched",
			`<a href="https://other.example.org/x">x</a>`,
			`href="https://other.example.org/x"`,
		},
		{
			"relative link untouched",
			`<a href="notes.html">x</a>`,
			`href="notes.html"`,
		},
		{
			"jump_to resolved",
			`<a href="` + testPrefix + `/jump_to/block-v1:Org+C1+2026+type@vertical+block@abc123">x</a>`,
			`href="../../chapter-1/seq-1/vertical-1/index.html"`,
		},
		{
			"jump_to child falls back to parent page",
			`<a href="` + testPrefix + `/jump_to/block-v1:Org+C1+2026+type@vertical+block@abc123/child">x</a>`,
			`href="../../chapter-1/seq-1/vertical-1/index.html"`,
		},
		{
			"tab link resolved",
			`<a href="` + testPrefix + `/progress">x</a>`,
			`href="../../progress/index.html"`,
		},
		{
			"unknown course link made absolute",
			`<a href="` + testPrefix + `/discussion">x</a>`,
			`href="` + testNetloc + testPrefix + `/discussion"`,
		},
		{
			"root relative made absolute",
			`<a href="/dashboard">x</a>`,
			`href="` + testNetloc + `/dashboard"`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := l.ProcessContent(context.Background(), tc.in, t.TempDir(), pctx)
			require.NoError(t, err)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestProcessStylesheet(t *testing.T) {
	fontURL := "https://cdn.example.org/assets/fonts/a.woff"
	importURL := "https://cdn.example.org/assets/css/base.css"
	fa := &fakeAssets{contents: map[string]string{
		importURL: `div{background:url(/assets/img/bg.png)}`,
	}}
	l := newTestLocalizer(fa, nil, nil, nil)

	dir := t.TempDir()
	cssPath := filepath.Join(dir, "site.css")
	css := `@import url("base.css");
body{src:url('../fonts/a.woff');cursor:url(data:image/png;base64,AA==)}`
	require.NoError(t, os.WriteFile(cssPath, []byte(css), 0644))

	pctx := paths.Context{Netloc: "https://cdn.example.org", ServerPath: "/assets/css"}
	require.NoError(t, l.processStylesheet(context.Background(), cssPath, pctx))

	got, err := os.ReadFile(cssPath)
	require.NoError(t, err)
	content := string(got)
	assert.Contains(t, content, `@import url(base.css)`)
	assert.Contains(t, content, `url(a.woff)`)
	assert.Contains(t, content, `url(data:image/png;base64,AA==)`, "data URIs stay inline")

	assert.Contains(t, fa.calls, fontURL)
	assert.Contains(t, fa.calls, importURL)
	assert.Contains(t, fa.calls, "https://cdn.example.org/assets/img/bg.png", "imported stylesheets are processed recursively")

	imported, err := os.ReadFile(filepath.Join(dir, "base.css"))
	require.NoError(t, err)
	assert.Contains(t, string(imported), "url(bg.png)")
}

func TestDeferScripts(t *testing.T) {
	l := newTestLocalizer(nil, nil, nil, nil)
	dir := t.TempDir()
	pctx := paths.NewContext("", "", testNetloc, "")

	in := `<script src="a.js"></script><script>console.log(1)</script><script type="text/template">tmpl</script>`
	out, err := l.DeferScripts(in, dir, pctx)
	require.NoError(t, err)

	assert.Contains(t, out, `<script src="a.js" defer="defer"></script>`)
	assert.Contains(t, out, `type="text/template"`)
	assert.NotContains(t, out, "console.log(1)", "inline script body must move to a file")

	wantName := utils.URLDigest("console.log(1)") + ".js"
	assert.Contains(t, out, `src="`+wantName+`"`)
	body, readErr := os.ReadFile(filepath.Join(dir, wantName))
	require.NoError(t, readErr)
	assert.Equal(t, "console.log(1)", string(body))
}
