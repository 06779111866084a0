package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Merger concatenates same-codec files with stream copy.
type Merger struct {
	outputDir string
	run       *runner
	log       *slog.Logger
}

// NewMerger creates a Merger writing outputs into outputDir when no explicit
// output path is given.
func NewMerger(outputDir string, log *slog.Logger) *Merger {
	return &Merger{
		outputDir: outputDir,
		run:       &runner{log: log},
		log:       log,
	}
}

// Merge concatenates the given files, in order, into a single output. All
// inputs must share a compatible codec and container. The concat list file is
// removed whether or not the merge succeeds.
func (m *Merger) Merge(ctx context.Context, paths []string, outputPath string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no input files to merge")
	}

	if outputPath == "" {
		outputPath = filepath.Join(m.outputDir, fmt.Sprintf("merged_%s.mp4", randomHex()))
	}

	listPath := filepath.Join(m.outputDir, fmt.Sprintf("concat_%s.txt", randomHex()))
	if err := writeConcatList(listPath, paths); err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(listPath); err != nil && !os.IsNotExist(err) {
			m.log.Warn("Failed to remove concat list", "path", listPath, "error", err)
		}
	}()

	err := m.run.run(ctx, "merge",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	)
	if err != nil {
		return "", err
	}

	m.log.Info("Clips merged", "inputs", len(paths), "output", outputPath)
	return outputPath, nil
}

// writeConcatList writes the ffmpeg concat demuxer manifest, one file per
// line, preserving input order.
func writeConcatList(listPath string, paths []string) error {
	var builder strings.Builder
	for _, p := range paths {
		// Single quotes inside a path are escaped for the concat demuxer.
		escaped := strings.ReplaceAll(p, "'", `'\''`)
		fmt.Fprintf(&builder, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(listPath, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	return nil
}
