package tree

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-archiver/pkg/utils"
)

func sampleBlocks() *BlocksResponse {
	return &BlocksResponse{
		Root: "block-course",
		Blocks: map[string]BlockData{
			"block-course": {
				ID: "block-course", BlockID: "course", Type: "course",
				DisplayName: "Demo Course",
				LMSWebURL:   "https://lms.example.com/courses/course-v1:Org+C1+2026/course/",
				Descendants: []string{"block-ch1"},
			},
			"block-ch1": {
				ID: "block-ch1", BlockID: "ch1", Type: "chapter",
				DisplayName: "Week 1",
				Descendants: []string{"block-seq1"},
			},
			"block-seq1": {
				ID: "block-seq1", BlockID: "seq1", Type: "sequential",
				DisplayName: "Lesson 1",
				Descendants: []string{"block-v1"},
			},
			"block-v1": {
				ID: "block-v1", BlockID: "abc123", Type: "vertical",
				DisplayName: "Introduction",
				LMSWebURL:   "https://lms.example.com/courses/course-v1:Org+C1+2026/jump_to/block-v1",
				Descendants: []string{"block-h1"},
			},
			"block-h1": {
				ID: "block-h1", BlockID: "def456", Type: "html",
				DisplayName: "Welcome Text",
			},
		},
	}
}

func TestBuild(t *testing.T) {
	tr, err := Build(sampleBlocks(), false)
	require.NoError(t, err)
	require.NotNil(t, tr.Root)

	assert.Equal(t, KindCourse, tr.Root.Kind)
	assert.Equal(t, "course/demo-course", tr.Root.RelativePath)
	assert.Equal(t, "../../", tr.Root.RootURL)
	assert.Len(t, tr.All, 5)

	require.Len(t, tr.Root.Descendants, 1)
	chapter := tr.Root.Descendants[0]
	assert.Equal(t, "course/demo-course/week-1", chapter.RelativePath)
	assert.Equal(t, "../../../", chapter.RootURL)

	vertical := chapter.Descendants[0].Descendants[0]
	assert.Equal(t, KindVertical, vertical.Kind)
	assert.Equal(t, "course/demo-course/week-1/lesson-1/introduction", vertical.RelativePath)
	assert.Equal(t, "../../../../../", vertical.RootURL)
	assert.NotEmpty(t, vertical.Token)
}

func TestBuildUnsupportedBlock(t *testing.T) {
	resp := sampleBlocks()
	b := resp.Blocks["block-h1"]
	b.Type = "drag-and-drop-v2"
	resp.Blocks["block-h1"] = b

	_, err := Build(resp, false)
	assert.ErrorIs(t, err, utils.ErrUnsupportedUnit)

	tr, err := Build(resp, true)
	require.NoError(t, err)
	leaf := tr.Root.Descendants[0].Descendants[0].Descendants[0].Descendants[0]
	assert.Equal(t, KindUnavailable, leaf.Kind, "ignored unsupported blocks become placeholders")
}

func TestResolveJumpTo(t *testing.T) {
	tr, err := Build(sampleBlocks(), false)
	require.NoError(t, err)

	t.Run("vertical by block id", func(t *testing.T) {
		got, ok := tr.ResolveJumpTo("/courses/course-v1:Org+C1+2026/jump_to/abc123")
		require.True(t, ok)
		assert.Equal(t, "course/demo-course/week-1/lesson-1/introduction/index.html", got)
	})

	t.Run("content block redirects to enclosing vertical via descendants", func(t *testing.T) {
		got, ok := tr.ResolveJumpTo("/courses/course-v1:Org+C1+2026/jump_to/seq1")
		require.True(t, ok)
		assert.Equal(t, "course/demo-course/week-1/lesson-1/introduction/index.html", got, "sequential has no page, first vertical below it does")
	})

	t.Run("by lms web url path", func(t *testing.T) {
		got, ok := tr.ResolveJumpTo("/courses/course-v1:Org+C1+2026/jump_to/block-v1")
		require.True(t, ok)
		assert.Equal(t, "course/demo-course/week-1/lesson-1/introduction/index.html", got)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, ok := tr.ResolveJumpTo("/courses/course-v1:Org+C1+2026/jump_to/zzz")
		assert.False(t, ok)
	})
}

func TestTabRegistry(t *testing.T) {
	annexed := map[string]string{"/courses/c1/progress": "progress/index.html"}
	var annexCalls int
	reg := NewTabRegistry("demo-course", func(href, orgPath string) (string, bool) {
		annexCalls++
		p, ok := annexed[href]
		return p, ok
	})

	t.Run("courseware tab points at course root", func(t *testing.T) {
		name, tabPath, ok := reg.Register("Course, current location", "/courses/c1/courseware")
		require.True(t, ok)
		assert.Equal(t, "Course", name)
		assert.Equal(t, "course/demo-course/index.html", tabPath)
	})

	t.Run("info tab points at homepage", func(t *testing.T) {
		_, tabPath, ok := reg.Register("Home", "/courses/c1/info")
		require.True(t, ok)
		assert.Equal(t, "/index.html", tabPath)
	})

	t.Run("wiki tab skipped", func(t *testing.T) {
		_, _, ok := reg.Register("Wiki", "/courses/c1/wiki/")
		assert.False(t, ok)
	})

	t.Run("extra tab goes through annex once", func(t *testing.T) {
		_, tabPath, ok := reg.Register("Progress", "/courses/c1/progress")
		require.True(t, ok)
		assert.Equal(t, "progress/index.html", tabPath)

		got, ok := reg.TabPath("/courses/c1/progress")
		require.True(t, ok)
		assert.Equal(t, "progress/index.html", got)
		assert.Equal(t, 1, annexCalls, "already archived tab must not be annexed again")
	})

	t.Run("unsupported extra tab", func(t *testing.T) {
		_, _, ok := reg.Register("Other", "/courses/c1/other")
		assert.False(t, ok)
	})

	assert.Equal(t, []string{"Course", "Home", "Progress"}, reg.Names())
}

func TestTabRegistryConcurrentResolution(t *testing.T) {
	// The annex callback relies on the registry lock for serialization, so
	// the plain counter here doubles as a race check.
	var annexCalls int
	reg := NewTabRegistry("demo-course", func(href, orgPath string) (string, bool) {
		annexCalls++
		return orgPath + "/index.html", true
	})

	const workers = 8
	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tabPath, ok := reg.TabPath("/courses/c1/glossary")
			if assert.True(t, ok) {
				results[i] = tabPath
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, annexCalls, "concurrent links to one tab must annex it once")
	for _, got := range results {
		assert.Equal(t, "glossary/index.html", got)
	}
}
