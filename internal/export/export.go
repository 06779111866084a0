// Package export produces deliverable files from selected highlight ranges.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clipforge/highlight-pipeline/internal/metrics"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

var tracer = otel.Tracer("highlight-export")

// Range is one time window to extract, in seconds from the start of the
// source.
type Range struct {
	Start float64
	End   float64
}

// Cutter extracts a sub-range of a video into a new file.
type Cutter interface {
	Cut(ctx context.Context, sourcePath string, start, end float64, outputPath string) (string, error)
}

// Merger concatenates same-codec video files into one.
type Merger interface {
	Merge(ctx context.Context, paths []string, outputPath string) (string, error)
}

// Publisher uploads a deliverable to shared storage and returns a
// downloadable URL.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// PublishAll uploads every output file in order and returns the download
// URLs. The first failure aborts; URLs already obtained are discarded since
// the export as a whole did not publish.
func PublishAll(ctx context.Context, pub Publisher, paths []string) ([]string, error) {
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		url, err := pub.Publish(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to publish %s: %w", filepath.Base(p), err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Resolution describes a named output size. Cuts are stream copies, so the
// dimensions are advisory metadata on the export record rather than a
// transcode target.
type Resolution struct {
	Width  int
	Height int
}

// DefaultResolution is used when the caller names no resolution.
const DefaultResolution = "1080p"

var resolutions = map[string]Resolution{
	"480p":  {Width: 854, Height: 480},
	"720p":  {Width: 1280, Height: 720},
	"1080p": {Width: 1920, Height: 1080},
	"4k":    {Width: 3840, Height: 2160},
}

// LookupResolution resolves a resolution name, falling back to the default
// for unknown names.
func LookupResolution(name string) (string, Resolution) {
	if r, ok := resolutions[strings.ToLower(name)]; ok {
		return strings.ToLower(name), r
	}
	return DefaultResolution, resolutions[DefaultResolution]
}

// Exporter cuts selected ranges out of a source video and optionally merges
// them into a single deliverable.
type Exporter struct {
	cutter Cutter
	merger Merger
	outDir string
	log    *slog.Logger
}

// NewExporter creates an Exporter writing into outDir.
func NewExporter(cutter Cutter, merger Merger, outDir string, log *slog.Logger) *Exporter {
	return &Exporter{cutter: cutter, merger: merger, outDir: outDir, log: log}
}

// Export cuts every range from sourcePath in order. With merge set and more
// than one range, the cuts are concatenated into one file and the per-range
// intermediates are removed. An empty range list is rejected.
func (e *Exporter) Export(ctx context.Context, sourcePath string, ranges []Range, merge bool) ([]string, error) {
	ctx, span := tracer.Start(ctx, "export.run",
		trace.WithAttributes(
			attribute.Int("export.ranges", len(ranges)),
			attribute.Bool("export.merge", merge),
		))
	defer span.End()

	if len(ranges) == 0 {
		metrics.ExportsProduced.WithLabelValues("rejected").Inc()
		return nil, models.ErrNoClipsSelected
	}

	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = ".mp4"
	}

	paths := make([]string, 0, len(ranges))
	for i, r := range ranges {
		name := fmt.Sprintf("temp_clip_%d_%s%s", i, randomHex(), ext)
		out, err := e.cutter.Cut(ctx, sourcePath, r.Start, r.End, filepath.Join(e.outDir, name))
		if err != nil {
			metrics.ExportsProduced.WithLabelValues("failure").Inc()
			e.cleanup(paths)
			return nil, fmt.Errorf("failed to cut range %d: %w", i, err)
		}
		paths = append(paths, out)
	}

	if !merge || len(paths) == 1 {
		metrics.ExportsProduced.WithLabelValues("success").Inc()
		return paths, nil
	}

	mergedName := fmt.Sprintf("export_%s%s", randomHex(), ext)
	merged, err := e.merger.Merge(ctx, paths, filepath.Join(e.outDir, mergedName))
	if err != nil {
		metrics.ExportsProduced.WithLabelValues("failure").Inc()
		e.cleanup(paths)
		return nil, fmt.Errorf("failed to merge clips: %w", err)
	}
	e.cleanup(paths)

	metrics.ExportsProduced.WithLabelValues("success").Inc()
	return []string{merged}, nil
}

// cleanup removes intermediate cut files. Removal failures are logged and
// otherwise ignored.
func (e *Exporter) cleanup(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			e.log.Warn("Failed to remove intermediate clip", "path", p, "error", err)
		}
	}
}

func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
