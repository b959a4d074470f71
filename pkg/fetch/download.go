package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"course-archiver/pkg/utils"
)

// DownloadToFile fetches url with retries and streams the body into
// destPath, creating parent directories as needed. A partial file is removed
// on error.
func (f *Fetcher) DownloadToFile(ctx context.Context, url, destPath string) error {
	req, reqErr := http.NewRequestWithContext(ctx, "GET", url, nil)
	if reqErr != nil {
		return fmt.Errorf("%w: creating request for '%s': %w", utils.ErrRequestCreation, url, reqErr)
	}
	req.Header.Set("User-Agent", f.cfg.DefaultUserAgent)

	resp, fetchErr := f.FetchWithRetry(req, ctx)
	if fetchErr != nil {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return fmt.Errorf("fetch failed for '%s': %w", url, fetchErr)
	}
	defer resp.Body.Close()

	if mkDirErr := os.MkdirAll(filepath.Dir(destPath), 0755); mkDirErr != nil {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: ensuring directory for '%s' exists: %w", utils.ErrFilesystem, destPath, mkDirErr)
	}

	outFile, createErr := os.Create(destPath)
	if createErr != nil {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: creating file '%s': %w", utils.ErrFilesystem, destPath, createErr)
	}

	if _, copyErr := io.Copy(outFile, resp.Body); copyErr != nil {
		outFile.Close()
		os.Remove(destPath)
		return fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, destPath, copyErr)
	}
	if closeErr := outFile.Close(); closeErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("%w: closing '%s': %w", utils.ErrFilesystem, destPath, closeErr)
	}
	return nil
}

// FetchString fetches url with retries and returns the response body as a
// string.
func (f *Fetcher) FetchString(ctx context.Context, url string) (string, error) {
	req, reqErr := http.NewRequestWithContext(ctx, "GET", url, nil)
	if reqErr != nil {
		return "", fmt.Errorf("%w: creating request for '%s': %w", utils.ErrRequestCreation, url, reqErr)
	}
	req.Header.Set("User-Agent", f.cfg.DefaultUserAgent)

	resp, fetchErr := f.FetchWithRetry(req, ctx)
	if fetchErr != nil {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return "", fmt.Errorf("fetch failed for '%s': %w", url, fetchErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("%w: reading body of '%s': %w", utils.ErrResponseBodyRead, url, readErr)
	}
	return string(body), nil
}
