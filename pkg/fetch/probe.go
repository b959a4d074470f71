package fetch

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Meta holds the upstream freshness metadata for a resource, obtained from a
// HEAD probe. FreshnessToken is the first available of ETag, Last-Modified
// and Content-Length, in that preference order; it keys optimization-cache
// validity. FileType is the bare extension guessed from Content-Type
// ("jpeg", "mp4", ...), empty when the type is unknown.
type Meta struct {
	FreshnessToken string
	FileType       string
}

// ProbeMeta performs a HEAD request against url and extracts freshness
// metadata. Timeouts are retried up to attempts times; exhaustion (or any
// other failure) returns a nil Meta and the last error. Callers degrade a
// probe failure to "no cache key available" - it is never fatal for the
// surrounding fetch.
func (f *Fetcher) ProbeMeta(ctx context.Context, url string, attempts int) (*Meta, error) {
	if attempts <= 0 {
		attempts = 1
	}
	probeLog := f.log.WithField("url", url)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			probeLog.WithField("attempt", attempt).Warnf("HEAD probe failed: %v", err)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Non-2xx HEAD yields no usable metadata; not worth retrying
			probeLog.WithFields(logrus.Fields{"status": resp.StatusCode}).Debug("HEAD probe returned non-2xx")
			return nil, nil
		}
		return metaFromHeaders(resp.Header), nil
	}
	return nil, lastErr
}

// metaFromHeaders extracts the freshness token and filetype from response
// headers, applying the ETag > Last-Modified > Content-Length preference.
func metaFromHeaders(h http.Header) *Meta {
	meta := &Meta{FileType: fileTypeFromContentType(h.Get("Content-Type"))}
	switch {
	case h.Get("Etag") != "":
		meta.FreshnessToken = h.Get("Etag")
	case h.Get("Last-Modified") != "":
		meta.FreshnessToken = h.Get("Last-Modified")
	case h.Get("Content-Length") != "":
		meta.FreshnessToken = h.Get("Content-Length")
	}
	return meta
}

// fileTypeFromContentType guesses a bare file extension from a Content-Type
// header value. Returns "" when nothing sensible can be derived.
func fileTypeFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	// Prefer canonical extensions for the types the optimizer cares about
	switch mediaType {
	case "image/jpeg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	case "application/pdf":
		return "pdf"
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}
