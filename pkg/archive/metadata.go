package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"course-archiver/pkg/tree"
	"course-archiver/pkg/utils"
)

// archiveMetadata is the run summary written beside the build, so consumers
// can index the archive without parsing its pages.
type archiveMetadata struct {
	Name        string    `yaml:"name"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Creator     string    `yaml:"creator"`
	Homepage    string    `yaml:"homepage"`
	CourseURL   string    `yaml:"course_url"`
	Units       int       `yaml:"units"`
	Videos      int       `yaml:"videos"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// writeMetadata summarizes the finished archive into the output directory.
func (a *Archiver) writeMetadata() error {
	homepage := "index.html"
	if !a.hasHomepage {
		homepage = a.tree.Root.RelativePath + "/index.html"
	}
	description := a.courseInfo.ShortDescription
	if description == "" {
		description = fmt.Sprintf("%s from %s", a.courseInfo.Name, a.courseInfo.Org)
	}

	videos := 0
	for _, unit := range a.tree.All {
		if unit.Kind == tree.KindVideo {
			videos++
		}
	}

	meta := archiveMetadata{
		Name:        utils.Slugify(a.courseInfo.Name),
		Title:       a.courseInfo.Name,
		Description: description,
		Creator:     a.courseInfo.Org,
		Homepage:    homepage,
		CourseURL:   a.cfg.CourseURL,
		Units:       len(a.tree.All),
		Videos:      videos,
		CreatedAt:   time.Now().UTC(),
	}

	out, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("%w: encoding archive metadata: %w", utils.ErrParsing, err)
	}
	destPath := filepath.Join(a.cfg.OutputDir, a.cfg.MetadataFilename)
	if err := os.MkdirAll(a.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("%w: creating output directory: %w", utils.ErrFilesystem, err)
	}
	if err := os.WriteFile(destPath, out, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %w", utils.ErrFilesystem, destPath, err)
	}
	a.log.WithField("path", destPath).Info("Archive metadata written")
	return nil
}
