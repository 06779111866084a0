package media

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Cutter extracts time sub-ranges from a source file using stream copy.
// Cut boundaries snap to the nearest keyframe at or before the requested
// start; this precision loss is accepted in exchange for avoiding a
// re-encode.
type Cutter struct {
	outputDir string
	run       *runner
	log       *slog.Logger
}

// NewCutter creates a Cutter writing clip files into outputDir when no
// explicit output path is given.
func NewCutter(outputDir string, log *slog.Logger) *Cutter {
	return &Cutter{
		outputDir: outputDir,
		run:       &runner{log: log},
		log:       log,
	}
}

// Cut extracts [start, end) seconds of sourcePath into outputPath. Timestamps
// in the output are zero-based so the new file's own timeline starts at 0.
// An empty outputPath generates a file under the cutter's output directory.
func (c *Cutter) Cut(ctx context.Context, sourcePath string, start, end float64, outputPath string) (string, error) {
	if end <= start {
		return "", fmt.Errorf("invalid clip range [%v, %v)", start, end)
	}

	if outputPath == "" {
		outputPath = filepath.Join(c.outputDir, fmt.Sprintf("clip_%s.mp4", randomHex()))
	}

	err := c.run.run(ctx, "cut",
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end-start),
		"-i", sourcePath,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		outputPath,
	)
	if err != nil {
		return "", err
	}

	c.log.Info("Clip cut", "source", sourcePath, "start", start, "end", end, "output", outputPath)
	return outputPath, nil
}

func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
