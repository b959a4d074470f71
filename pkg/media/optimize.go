package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"course-archiver/pkg/utils"
)

// Optimizer shrinks downloaded media in place using external tools. Files
// whose type has no pipeline pass through untouched.
type Optimizer struct {
	VideoFormat string
	LowQuality  bool
	log         *logrus.Entry
}

// NewOptimizer returns an Optimizer for the given output video format.
func NewOptimizer(videoFormat string, lowQuality bool, logger *logrus.Entry) *Optimizer {
	return &Optimizer{
		VideoFormat: videoFormat,
		LowQuality:  lowQuality,
		log:         logger,
	}
}

// CheckBinaries returns the external tools needed by the configured
// pipelines that are not installed.
func (o *Optimizer) CheckBinaries() []string {
	names := []string{"jpegoptim", "pngquant", "advdef", "gifsicle", "ffmpeg", "yt-dlp"}
	return lookupBinaries(names)
}

// Optimize runs the pipeline for fileType against the file at path,
// rewriting it in place. It reports whether the file was actually optimized;
// unknown types return (false, nil).
func (o *Optimizer) Optimize(ctx context.Context, path, fileType string) (bool, error) {
	switch fileType {
	case "jpeg":
		return true, runCommand(ctx, "jpegoptim", "--strip-all", "-m85", path)
	case "png":
		if err := runCommand(ctx, "pngquant", "--skip-if-larger", "--force", "--output", path, "--", path); err != nil {
			return false, err
		}
		return true, runCommand(ctx, "advdef", "-z", "-4", "-q", path)
	case "gif":
		return true, runCommand(ctx, "gifsicle", "-O3", path, "-o", path)
	case "webp":
		tmp := path + ".opt.webp"
		if err := runCommand(ctx, "ffmpeg", "-y", "-i", path, "-quality", "60", tmp); err != nil {
			return false, err
		}
		return true, replaceFile(tmp, path)
	case "mp4", "webm":
		return o.optimizeVideo(ctx, path)
	default:
		return false, nil
	}
}

// optimizeVideo re-encodes the file at path into the configured output
// format, replacing the original.
func (o *Optimizer) optimizeVideo(ctx context.Context, path string) (bool, error) {
	tmp := path + ".reencode." + o.VideoFormat

	args := []string{"-y", "-i", path}
	if o.VideoFormat == "webm" {
		args = append(args, "-codec:v", "libvpx", "-codec:a", "libvorbis")
	} else {
		args = append(args, "-codec:v", "libx264", "-codec:a", "aac", "-movflags", "+faststart")
	}
	if o.LowQuality {
		args = append(args, "-vf", "scale='min(480,iw)':-2", "-b:v", "300k", "-b:a", "48k")
	}
	args = append(args, tmp)

	if err := runCommand(ctx, "ffmpeg", args...); err != nil {
		os.Remove(tmp)
		return false, err
	}
	return true, replaceFile(tmp, path)
}

// DownloadYoutube fetches a YouTube video into destPath using yt-dlp, in the
// configured format and quality.
func (o *Optimizer) DownloadYoutube(ctx context.Context, videoURL, destPath string) error {
	format := "best[ext=mp4]/best"
	if o.VideoFormat == "webm" {
		format = "best[ext=webm]/best"
	}
	if o.LowQuality {
		format = "worst[ext=" + o.VideoFormat + "]/worst"
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", utils.ErrFilesystem, filepath.Dir(destPath), err)
	}
	return runCommand(ctx, "yt-dlp", "--no-playlist", "-f", format, "-o", destPath, videoURL)
}

func replaceFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		os.Remove(src)
		return fmt.Errorf("%w: replacing %s: %w", utils.ErrFilesystem, dst, err)
	}
	return nil
}
