package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Thumbnailer captures single frames and renders low-bitrate previews.
type Thumbnailer struct {
	outputDir string
	run       *runner
	log       *slog.Logger
}

// NewThumbnailer creates a Thumbnailer. Thumbnails are written under
// outputDir/thumbnails/<videoID>/<clipID>.jpg and previews directly under
// outputDir.
func NewThumbnailer(outputDir string, log *slog.Logger) *Thumbnailer {
	return &Thumbnailer{
		outputDir: outputDir,
		run:       &runner{log: log},
		log:       log,
	}
}

// Thumbnail captures a single frame at timestamp seconds, scaled to 320px
// wide, and returns the written file path.
func (t *Thumbnailer) Thumbnail(ctx context.Context, videoPath string, timestamp float64, videoID, clipID string) (string, error) {
	dir := filepath.Join(t.outputDir, "thumbnails", videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	outputPath := filepath.Join(dir, clipID+".jpg")

	err := t.run.run(ctx, "thumbnail",
		"-y",
		"-ss", formatSeconds(timestamp),
		"-i", videoPath,
		"-vf", "scale=320:-1",
		"-vframes", "1",
		outputPath,
	)
	if err != nil {
		return "", err
	}

	t.log.Info("Thumbnail generated", "path", outputPath)
	return outputPath, nil
}

// DefaultPreviewDuration is the preview length used when the caller does not
// specify one.
const DefaultPreviewDuration = 10.0

// Preview renders a low-bitrate rendition of [start, start+duration) for
// quick playback.
func (t *Thumbnailer) Preview(ctx context.Context, videoPath string, start, duration float64) (string, error) {
	if duration <= 0 {
		duration = DefaultPreviewDuration
	}

	outputPath := filepath.Join(t.outputDir, fmt.Sprintf("preview_%s.mp4", randomHex()))

	err := t.run.run(ctx, "preview",
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", videoPath,
		"-vf", "scale=640:-1",
		"-c:v", "libx264",
		"-crf", "28",
		"-preset", "ultrafast",
		outputPath,
	)
	if err != nil {
		return "", err
	}

	return outputPath, nil
}
