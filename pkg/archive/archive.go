package archive

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/sirupsen/logrus"

	"course-archiver/pkg/assets"
	"course-archiver/pkg/cache"
	"course-archiver/pkg/config"
	"course-archiver/pkg/localize"
	"course-archiver/pkg/media"
	"course-archiver/pkg/render"
	"course-archiver/pkg/session"
	"course-archiver/pkg/tree"
	"course-archiver/pkg/utils"
)

// Archiver drives a full course archive run: login, course discovery,
// content download and localization, and page generation into the build
// directory.
type Archiver struct {
	cfg      *config.AppConfig
	instance config.InstanceConfig
	log      *logrus.Entry

	sess      *session.Session
	store     cache.ObjectStore
	optimizer *media.Optimizer
	mat       *assets.Materializer
	loc       *localize.Localizer
	engine    *render.Engine

	courseID   string
	courseInfo CourseInfo
	tree       *tree.Tree
	tabs       *tree.TabRegistry

	buildDir     string
	hasHomepage  bool
	homepageHTML []string
	headAssets   []string
	endScripts   []string
	annexedPages []annexedPage
	bookLists    []*bookList
}

type annexedPage struct {
	Title     string
	Content   string
	OrgPath   string
	localized bool
}

// New wires an Archiver from configuration. The optimization cache is
// optional; without a cache directory every asset is fetched from source.
func New(cfg *config.AppConfig, logger *logrus.Entry) (*Archiver, error) {
	parsed, err := url.Parse(cfg.CourseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: course URL %q: %w", utils.ErrParsing, cfg.CourseURL, err)
	}
	instance := cfg.InstanceForHost(parsed.Host)

	sess, err := session.New(cfg, instance, logger.WithField("component", "session"))
	if err != nil {
		return nil, err
	}

	var store cache.ObjectStore
	if cfg.Cache.Dir != "" {
		badgerStore, err := cache.NewBadgerStore(cfg.Cache.Dir, logger.WithField("component", "cache"))
		if err != nil {
			return nil, err
		}
		store = badgerStore
	}

	optimizer := media.NewOptimizer(cfg.VideoFormat, cfg.LowQuality, logger.WithField("component", "media"))
	mat := assets.NewMaterializer(sess.Fetcher(), store, optimizer, cfg, logger.WithField("component", "assets"))

	engine, err := render.New(cfg.VideoFormat, cfg.Autoplay, logger.WithField("component", "render"))
	if err != nil {
		return nil, err
	}

	a := &Archiver{
		cfg:       cfg,
		instance:  instance,
		log:       logger,
		sess:      sess,
		store:     store,
		optimizer: optimizer,
		mat:       mat,
		engine:    engine,
		buildDir:  cfg.BuildDir,
	}
	// The localizer resolves jump_to and tab links through the archiver so
	// it can be built before the course tree exists. The course path prefix
	// is only known once the course id has been extracted.
	a.loc = localize.New(localize.Deps{
		Assets: mat,
		Pages:  sess,
		Render: engine,
		Jump:   a,
		Tabs:   a,
	}, instance.InstanceURL, parsed.Host, instance.CoursePrefix, cfg.VideoFormat, logger.WithField("component", "localize"))
	return a, nil
}

// ResolveJumpTo implements localize.JumpResolver against the course tree.
func (a *Archiver) ResolveJumpTo(targetPath string) (string, bool) {
	if a.tree == nil {
		return "", false
	}
	return a.tree.ResolveJumpTo(targetPath)
}

// TabPath implements localize.TabResolver against the tab registry.
func (a *Archiver) TabPath(href string) (string, bool) {
	if a.tabs == nil {
		return "", false
	}
	return a.tabs.TabPath(href)
}

// Run executes the whole archive pipeline. The account password is taken
// at call time so it never sits in the configuration file.
func (a *Archiver) Run(ctx context.Context, password string) error {
	defer a.close()

	if missing := a.optimizer.CheckBinaries(); len(missing) > 0 {
		a.log.Warnf("Missing optimization binaries %v, affected media is stored unoptimized", missing)
	}

	a.log.Info("Logging in ...")
	if err := a.sess.Login(ctx, a.cfg.Email, password); err != nil {
		return err
	}

	if err := a.prepareCourseData(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(a.buildDir, 0755); err != nil {
		return fmt.Errorf("%w: creating build directory %s: %w", utils.ErrFilesystem, a.buildDir, err)
	}

	if err := a.collectTabs(ctx); err != nil {
		return err
	}
	if err := a.annexPages(ctx); err != nil {
		return err
	}
	if err := a.getFavicon(ctx); err != nil {
		a.log.Warnf("Favicon unavailable: %v", err)
	}
	if err := a.getHomepage(ctx); err != nil {
		return err
	}

	a.log.Info("Getting content for course units ...")
	if err := a.downloadUnits(ctx); err != nil {
		return err
	}

	// Unit links can annex tabs the course page never listed.
	if err := a.annexPages(ctx); err != nil {
		return err
	}

	a.log.Info("Rendering pages ...")
	if err := a.renderAll(); err != nil {
		return err
	}

	if err := a.writeMetadata(); err != nil {
		return err
	}
	a.log.Info("Archive complete")
	return nil
}

func (a *Archiver) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warnf("Closing cache: %v", err)
		}
	}
}
