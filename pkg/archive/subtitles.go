package archive

import (
	"context"
	"html"
	"os"
	"regexp"
	"sort"
	"strings"

	"course-archiver/pkg/render"
)

var srtTimestamp = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}),(\d{3})`)

// downloadSubtitles saves a unit's caption tracks as WebVTT files named by
// language, converting SubRip tracks on the way. Failed tracks are skipped.
func (a *Archiver) downloadSubtitles(ctx context.Context, unitDir, folderName string, tracks map[string]string) []render.Subtitle {
	langs := make([]string, 0, len(tracks))
	for lang := range tracks {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	var subs []render.Subtitle
	for _, lang := range langs {
		trackLog := a.log.WithField("subtitle", lang)
		raw, err := a.sess.Fetcher().FetchString(ctx, a.instanceURL(tracks[lang]))
		if err != nil {
			trackLog.Warnf("Failed to get subtitle track: %v", err)
			continue
		}
		if err := os.MkdirAll(unitDir, 0755); err != nil {
			trackLog.Warnf("Cannot create unit directory: %v", err)
			continue
		}
		if err := os.WriteFile(unitDir+"/"+lang+".vtt", []byte(ensureWebVTT(raw)), 0644); err != nil {
			trackLog.Warnf("Cannot write subtitle file: %v", err)
			continue
		}
		subs = append(subs, render.Subtitle{File: folderName + "/" + lang + ".vtt", Code: lang})
	}
	return subs
}

// ensureWebVTT passes WebVTT tracks through unchanged and converts SubRip
// tracks: comma timestamp separators become dots under a WEBVTT header.
func ensureWebVTT(track string) string {
	track = html.UnescapeString(track)
	trimmed := strings.TrimLeft(track, "\uFEFF \t\r\n")
	if strings.HasPrefix(strings.ToLower(trimmed), "webvtt") {
		return track
	}
	return "WEBVTT\n\n" + srtTimestamp.ReplaceAllString(trimmed, "$1.$2")
}
