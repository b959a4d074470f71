package assets

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"course-archiver/pkg/cache"
	"course-archiver/pkg/config"
	"course-archiver/pkg/fetch"
	"course-archiver/pkg/media"
	"course-archiver/pkg/utils"
)

// Options modify how a single source URL is materialized.
type Options struct {
	// IsVideo forces the configured video format as the local extension and
	// selects the video quality variant in the cache.
	IsVideo bool
	// ForceExt, when set, overrides the local file's extension (no dot).
	ForceExt string
	// FilterExt, when non-empty, restricts materialization to URLs carrying
	// one of these extensions. Others are rejected before any network use.
	FilterExt []string
}

// LocalAsset describes a successfully materialized file.
type LocalAsset struct {
	// Filename is the asset's name inside the target directory.
	Filename string
	// Fresh is true when the file was written during this call rather than
	// found already on disk.
	Fresh bool
}

// Materializer turns remote asset URLs into local files. Each distinct
// target path is fetched at most once per run; concurrent requests for the
// same path wait for the first to finish.
type Materializer struct {
	fetcher   *fetch.Fetcher
	store     cache.ObjectStore
	optimizer *media.Optimizer
	cfg       *config.AppConfig
	log       *logrus.Entry

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMaterializer creates a Materializer. store may be nil to run without an
// optimization cache.
func NewMaterializer(fetcher *fetch.Fetcher, store cache.ObjectStore, optimizer *media.Optimizer, cfg *config.AppConfig, logger *logrus.Entry) *Materializer {
	return &Materializer{
		fetcher:   fetcher,
		store:     store,
		optimizer: optimizer,
		cfg:       cfg,
		log:       logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Materialize downloads, optimizes, and stores the resource at srcURL under
// targetDir, returning its local name. A URL rejected by Options.FilterExt
// returns ErrExtensionFiltered without touching the network. An existing
// file at the derived path is reused as-is.
func (m *Materializer) Materialize(ctx context.Context, srcURL, targetDir string, opts Options) (*LocalAsset, error) {
	urlExt := ExtOf(srcURL)
	if len(opts.FilterExt) > 0 && !containsExt(opts.FilterExt, urlExt) {
		return nil, utils.ErrExtensionFiltered
	}

	assetLog := m.log.WithField("asset_url", srcURL)

	// The probe supplies the freshness token for cache lookups and, for
	// extension-less URLs, the file type used in naming. A failed probe
	// degrades to cache-less operation.
	meta, probeErr := m.fetcher.ProbeMeta(ctx, srcURL, m.cfg.MetadataProbeAttempts)
	if probeErr != nil {
		if ctx.Err() != nil {
			return nil, probeErr
		}
		assetLog.Warnf("Metadata probe failed, continuing without cache: %v", probeErr)
		meta = nil
	}

	forcedExt := opts.ForceExt
	if opts.IsVideo && forcedExt == "" {
		forcedExt = m.cfg.VideoFormat
	}
	fallbackExt := ""
	if meta != nil {
		fallbackExt = meta.FileType
	}
	filename := NameFor(srcURL, forcedExt, fallbackExt)
	if filename == "" {
		assetLog.Warn("Cannot derive a local name (no extension and no probed type), skipping")
		return nil, utils.ErrParsing
	}
	return m.materializeNamed(ctx, srcURL, targetDir, filename, meta, opts, assetLog)
}

// MaterializeAs is Materialize with an explicit local filename, for media
// whose archive name is fixed by the page layout rather than derived from
// the source URL.
func (m *Materializer) MaterializeAs(ctx context.Context, srcURL, targetDir, filename string, opts Options) (*LocalAsset, error) {
	assetLog := m.log.WithField("asset_url", srcURL)

	meta, probeErr := m.fetcher.ProbeMeta(ctx, srcURL, m.cfg.MetadataProbeAttempts)
	if probeErr != nil {
		if ctx.Err() != nil {
			return nil, probeErr
		}
		assetLog.Warnf("Metadata probe failed, continuing without cache: %v", probeErr)
		meta = nil
	}
	return m.materializeNamed(ctx, srcURL, targetDir, filename, meta, opts, assetLog)
}

func (m *Materializer) materializeNamed(ctx context.Context, srcURL, targetDir, filename string, meta *fetch.Meta, opts Options, assetLog *logrus.Entry) (*LocalAsset, error) {
	targetPath := filepath.Join(targetDir, filename)

	lock := m.pathLock(targetPath)
	lock.Lock()
	defer lock.Unlock()

	if _, statErr := os.Stat(targetPath); statErr == nil {
		assetLog.Debugf("Asset already materialized at %s", targetPath)
		return &LocalAsset{Filename: filename}, nil
	}

	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if fileType == "jpg" {
		fileType = "jpeg"
	}

	key := cache.Key(fileType, srcURL, cache.Quality(opts.IsVideo, m.cfg.LowQuality))
	want := m.cacheMeta(meta, fileType)

	if m.store != nil && want != nil {
		if hit, cacheErr := m.store.HasObject(key, want); cacheErr != nil {
			assetLog.Warnf("Cache lookup failed, treating as miss: %v", cacheErr)
		} else if hit {
			if dlErr := m.store.DownloadFile(key, targetPath); dlErr == nil {
				assetLog.Debug("Asset served from optimization cache")
				return &LocalAsset{Filename: filename, Fresh: true}, nil
			} else {
				assetLog.Warnf("Cache download failed, falling back to source: %v", dlErr)
			}
		}
	}

	if dlErr := m.download(ctx, srcURL, targetPath, opts.IsVideo); dlErr != nil {
		return nil, dlErr
	}

	optimized := false
	if m.optimizer != nil && media.IsOptimizable(fileType) {
		var optErr error
		optimized, optErr = m.optimizer.Optimize(ctx, targetPath, fileType)
		if optErr != nil {
			if ctx.Err() != nil {
				return nil, optErr
			}
			assetLog.Warnf("Optimization failed, keeping original file: %v", optErr)
			optimized = false
		}
	}

	// Only optimized output goes into the cache, and only when a freshness
	// token exists to validate it later.
	if optimized && m.store != nil && want != nil {
		if upErr := m.store.UploadFile(targetPath, key, want); upErr != nil {
			assetLog.Warnf("Cache upload failed: %v", upErr)
		}
	}

	return &LocalAsset{Filename: filename, Fresh: true}, nil
}

// cacheMeta builds the wanted cache metadata, or nil when no freshness
// token is available and caching must be skipped.
func (m *Materializer) cacheMeta(meta *fetch.Meta, fileType string) *cache.Meta {
	if meta == nil || meta.FreshnessToken == "" {
		return nil
	}
	return &cache.Meta{
		FreshnessToken:   meta.FreshnessToken,
		OptimizerVersion: media.OptimizerVersion(fileType, m.cfg.Cache.UseAnyOptimizedVersion),
	}
}

func (m *Materializer) download(ctx context.Context, srcURL, targetPath string, isVideo bool) error {
	if isVideo && IsYoutubeURL(srcURL) && m.optimizer != nil {
		return m.optimizer.DownloadYoutube(ctx, srcURL, targetPath)
	}
	return m.fetcher.DownloadToFile(ctx, srcURL, targetPath)
}

func (m *Materializer) pathLock(targetPath string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[targetPath]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[targetPath] = lock
	}
	return lock
}

// IsYoutubeURL reports whether a URL points at YouTube and needs the
// dedicated downloader instead of a plain HTTP fetch.
func IsYoutubeURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	return host == "youtube.com" || host == "youtu.be" || host == "youtube-nocookie.com"
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
