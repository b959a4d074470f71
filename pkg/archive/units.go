package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"course-archiver/pkg/assets"
	"course-archiver/pkg/paths"
	"course-archiver/pkg/render"
	"course-archiver/pkg/tree"
	"course-archiver/pkg/utils"
)

// unavailableNotice replaces content units that could not be archived.
const unavailableNotice = `<p class="unit-unavailable">This content is not available offline.</p>`

// downloadUnits fills every content unit of the tree with localized HTML.
// Units download concurrently under the configured request bound; a failed
// unit degrades to a placeholder instead of failing the run.
func (a *Archiver) downloadUnits(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrentRequests)
	for _, unit := range a.tree.All {
		unit := unit
		switch unit.Kind {
		case tree.KindHTML:
			g.Go(func() error { return a.downloadHTMLUnit(gctx, unit) })
		case tree.KindVideo:
			g.Go(func() error { return a.downloadVideoUnit(gctx, unit) })
		case tree.KindUnavailable:
			unit.Content = unavailableNotice
		}
	}
	return g.Wait()
}

// embeddingRoot is the archive-root path from the page a content unit is
// embedded in: one level above the unit's own asset directory.
func embeddingRoot(unit *tree.Unit) string {
	return paths.BackJumps(paths.CountBackJumps(unit.RootURL) - 1)
}

// downloadHTMLUnit fetches a text unit's student view and localizes the
// content container into the unit's directory.
func (a *Archiver) downloadHTMLUnit(ctx context.Context, unit *tree.Unit) error {
	unitLog := a.log.WithField("unit", unit.RelativePath)
	page, err := a.sess.GetPage(ctx, unit.Data.StudentViewURL)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		unitLog.WithField("category", utils.CategorizeError(err)).Warnf("Failed to get student view: %v", err)
		unit.Content = unavailableNotice
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		unitLog.Warnf("Failed to parse student view: %v", err)
		unit.Content = unavailableNotice
		return nil
	}

	container := doc.Find("div.edx-notes-wrapper").First()
	if container.Length() == 0 {
		container = doc.Find("div.course-wrapper").First()
	}
	if container.Length() == 0 {
		unitLog.Warn("Student view has no recognizable content container")
		unit.Content = unavailableNotice
		return nil
	}
	html, err := goquery.OuterHtml(container)
	if err != nil {
		return fmt.Errorf("%w: serializing unit HTML: %w", utils.ErrParsing, err)
	}

	outputDir := a.buildDir + "/" + unit.RelativePath
	pctx := paths.NewContext(unit.FolderName, embeddingRoot(unit), a.instance.InstanceURL, "")
	processed, err := a.loc.ProcessContent(ctx, html, outputDir, pctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		unitLog.Warnf("Failed to localize unit content: %v", err)
		processed = html
	}
	if deferred, err := a.loc.DeferScripts(processed, outputDir, pctx); err == nil {
		processed = deferred
	}
	unit.Content = processed
	return nil
}

type encodedVideo struct {
	URL string `json:"url"`
}

// videoViewData is the video part of the blocks API student view payload.
type videoViewData struct {
	EncodedVideos map[string]encodedVideo `json:"encoded_videos"`
	Transcripts   map[string]string       `json:"transcripts"`
}

// downloadVideoUnit pulls a video unit's media and caption tracks into the
// unit's directory and renders the player markup.
func (a *Archiver) downloadVideoUnit(ctx context.Context, unit *tree.Unit) error {
	unitLog := a.log.WithField("unit", unit.RelativePath)

	videoURL, transcripts := a.videoSource(ctx, unit)
	if videoURL == "" {
		unitLog.Warn("Video unit has no usable source")
		unit.Content = unavailableNotice
		return nil
	}

	unitDir := a.buildDir + "/" + unit.RelativePath
	filename := "video." + a.cfg.VideoFormat
	if _, err := a.mat.MaterializeAs(ctx, videoURL, unitDir, filename, assets.Options{IsVideo: true}); err != nil {
		if ctx.Err() != nil {
			return err
		}
		unitLog.WithField("category", utils.CategorizeError(err)).Warnf("Failed to materialize video: %v", err)
		unit.Content = unavailableNotice
		return nil
	}

	subs := a.downloadSubtitles(ctx, unitDir, unit.FolderName, transcripts)
	content, err := a.engine.VideoPlayer(render.VideoData{
		VideoPath: unit.FolderName + "/" + filename,
		Title:     unit.Data.DisplayName,
		Subs:      subs,
	})
	if err != nil {
		return err
	}
	unit.Content = content
	return nil
}

// videoSource picks the unit's video URL and caption tracks: the blocks API
// student view data when present, the student view page's video tag
// otherwise.
func (a *Archiver) videoSource(ctx context.Context, unit *tree.Unit) (string, map[string]string) {
	unitLog := a.log.WithField("unit", unit.RelativePath)

	if len(unit.Data.StudentViewData) > 0 {
		var view videoViewData
		if err := json.Unmarshal(unit.Data.StudentViewData, &view); err != nil {
			unitLog.Warnf("Unreadable student view data: %v", err)
		} else if src := pickEncodedVideo(view.EncodedVideos); src != "" {
			return a.instanceURL(src), view.Transcripts
		}
	}

	page, err := a.sess.GetPage(ctx, unit.Data.StudentViewURL)
	if err != nil {
		unitLog.Warnf("Failed to get student view: %v", err)
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		unitLog.Warnf("Failed to parse student view: %v", err)
		return "", nil
	}
	src, ok := doc.Find("video source").First().Attr("src")
	if !ok || src == "" {
		return "", nil
	}

	tracks := make(map[string]string)
	doc.Find("video track").Each(func(_ int, track *goquery.Selection) {
		lang, _ := track.Attr("srclang")
		trackSrc, _ := track.Attr("src")
		if lang != "" && trackSrc != "" {
			tracks[lang] = trackSrc
		}
	})
	return a.instanceURL(src), tracks
}

// pickEncodedVideo chooses a source from the API's encoded video variants,
// preferring the universal fallback profile.
func pickEncodedVideo(videos map[string]encodedVideo) string {
	if v, ok := videos["fallback"]; ok && v.URL != "" {
		return v.URL
	}
	profiles := make([]string, 0, len(videos))
	for profile := range videos {
		profiles = append(profiles, profile)
	}
	sort.Strings(profiles)
	for _, profile := range profiles {
		if videos[profile].URL != "" {
			return videos[profile].URL
		}
	}
	return ""
}
