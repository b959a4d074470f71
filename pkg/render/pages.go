package render

import "html/template"

// Subtitle is one caption track of a video player.
type Subtitle struct {
	File string
	Code string
}

// VideoData fills the video player template and snippet.
type VideoData struct {
	Format     string
	VideoPath  string
	Title      string
	Subs       []Subtitle
	Autoplay   bool
	PathToRoot string
}

// AudioData fills the audio player page.
type AudioData struct {
	AudioPath   string
	AudioFormat string
	PathToRoot  string
}

// NavEntry is one link in a generated navigation listing.
type NavEntry struct {
	Title   string
	Href    string
	Entries []NavEntry
}

// UnitPageData fills a content unit's index.html.
type UnitPageData struct {
	Title      string
	PathToRoot string
	Tabs       []NavEntry
	Blocks     []template.HTML
	PrevHref   string
	NextHref   string
	HeadAssets []template.HTML
	EndScripts []template.HTML
	CourseName string
}

// NavPageData fills a navigation index.html for course, chapter, and
// sequential levels.
type NavPageData struct {
	Title      string
	CourseName string
	PathToRoot string
	Tabs       []NavEntry
	Entries    []NavEntry
}

// HomePageData fills the archive's landing page.
type HomePageData struct {
	CourseName  string
	Org         string
	Description template.HTML
	Messages    []template.HTML
	Tabs        []NavEntry
	CourseHref  string
	HeadAssets  []template.HTML
	EndScripts  []template.HTML
}

// BookLink is one downloaded document of a book list page.
type BookLink struct {
	Name string
	Href string
}

// BookNavData fills a book list tab page.
type BookNavData struct {
	Title      string
	PathToRoot string
	Tabs       []NavEntry
	Books      []BookLink
	CourseName string
}

// SpecificPageData fills an annexed extra page.
type SpecificPageData struct {
	Title      string
	Content    template.HTML
	PathToRoot string
	Tabs       []NavEntry
	CourseName string
}

// VideoSnippet renders the inline player markup replacing a video embed.
func (e *Engine) VideoSnippet(videoPath, pathToRoot string) (string, error) {
	return e.Render("video.html", VideoData{
		Format:     e.videoFormat,
		VideoPath:  videoPath,
		Autoplay:   e.autoplay,
		PathToRoot: pathToRoot,
	})
}

// VideoPlayer renders the player markup for a video unit.
func (e *Engine) VideoPlayer(data VideoData) (string, error) {
	if data.Format == "" {
		data.Format = e.videoFormat
	}
	data.Autoplay = e.autoplay
	return e.Render("video.html", data)
}

// WriteAudioPage generates the standalone player page wrapping an audio
// file, so links to audio open a playable page.
func (e *Engine) WriteAudioPage(outputFile, audioFile, audioFormat, pathToRoot string) error {
	return e.RenderToFile(outputFile, "audio_player.html", AudioData{
		AudioPath:   audioFile,
		AudioFormat: audioFormat,
		PathToRoot:  pathToRoot,
	})
}

// AsHTML marks already-localized strings as safe template content.
func AsHTML(items []string) []template.HTML {
	out := make([]template.HTML, 0, len(items))
	for _, item := range items {
		out = append(out, template.HTML(item))
	}
	return out
}
