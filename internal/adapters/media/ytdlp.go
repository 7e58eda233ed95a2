package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/internal/domain/moment"
	"github.com/okian/viralclip/internal/domain/pipeline"
)

// Defaults for the downloader.
const (
	DefaultYtDlpBinary = "yt-dlp"
	DefaultFormat      = "best[height<=720]"
	rawMediaName       = "raw.mp4"
)

// permanentMarkers are stderr fragments meaning the source cannot be fetched
// no matter how often we retry.
var permanentMarkers = []string{
	"Video unavailable",
	"Private video",
	"has been removed",
	"members-only",
	"not available",
}

// YtDlp downloads clip sections and reads engagement heatmaps.
type YtDlp struct {
	runner *Runner
	binary string
	format string
}

// NewYtDlp creates a downloader. Empty binary or format use the defaults.
func NewYtDlp(r *Runner, binary, format string) *YtDlp {
	if binary == "" {
		binary = DefaultYtDlpBinary
	}
	if format == "" {
		format = DefaultFormat
	}
	return &YtDlp{runner: r, binary: binary, format: format}
}

// Acquire downloads the clip's section of the source video into dir.
func (y *YtDlp) Acquire(ctx context.Context, clip model.ClipSpec, dir string) (string, error) {
	out := filepath.Join(dir, rawMediaName)
	err := y.runner.Run(ctx, y.binary,
		"--no-playlist",
		"-f", y.format,
		"--download-sections", Section(clip),
		"--merge-output-format", "mp4",
		"-o", out,
		model.WatchURL(clip.VideoID),
	)
	if err != nil {
		return "", classifyDownload(err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("yt-dlp produced no file: %w", err)
	}
	return out, nil
}

// Signal reads the video's engagement heatmap without downloading media.
func (y *YtDlp) Signal(ctx context.Context, videoID string) (model.EngagementSignal, error) {
	data, err := y.runner.Output(ctx, y.binary,
		"--no-playlist",
		"--dump-single-json",
		"--skip-download",
		model.WatchURL(videoID),
	)
	if err != nil {
		return nil, classifyDownload(err)
	}
	return moment.ParseHeatmap(data)
}

// Section renders the clip window as a --download-sections argument.
func Section(clip model.ClipSpec) string {
	return "*" + clock(clip.Start()) + "-" + clock(clip.End())
}

func clock(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// classifyDownload marks failures caused by the source itself as permanent.
func classifyDownload(err error) error {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		for _, marker := range permanentMarkers {
			if strings.Contains(execErr.Stderr, marker) {
				return pipeline.Permanent(err)
			}
		}
	}
	return err
}
