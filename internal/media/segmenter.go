package media

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clipforge/highlight-pipeline/internal/metrics"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

// Segmenter splits a source video into bounded-duration segment files using
// stream copy.
type Segmenter struct {
	probe     *Probe
	outputDir string
	run       *runner
	log       *slog.Logger
}

// NewSegmenter creates a Segmenter writing segment files into outputDir.
func NewSegmenter(probe *Probe, outputDir string, log *slog.Logger) *Segmenter {
	return &Segmenter{
		probe:     probe,
		outputDir: outputDir,
		run:       &runner{log: log},
		log:       log,
	}
}

// PlanSegments computes the segment ranges for a video of totalDuration
// seconds, stepped by segmentDuration. The ranges are contiguous,
// non-overlapping, and exactly tile [0, totalDuration); the last segment may
// be shorter.
func PlanSegments(totalDuration, segmentDuration float64) (models.SegmentPlan, error) {
	if segmentDuration <= 0 {
		return nil, models.ErrInvalidSegmentSize
	}

	var plan models.SegmentPlan
	index := 0
	for current := 0.0; current < totalDuration; index++ {
		end := math.Min(current+segmentDuration, totalDuration)
		plan = append(plan, models.Segment{
			Index: index,
			Start: current,
			End:   end,
		})
		current = end
	}

	return plan, nil
}

// Split cuts sourcePath into segments of at most segmentDuration seconds.
// Segment files are named segment_<index>_<shortID><ext> so the ordinal index
// is recoverable from the name alone. If the source duration cannot be
// determined, an empty plan and a probe error are returned.
func (s *Segmenter) Split(ctx context.Context, sourcePath string, segmentDuration float64) (models.SegmentPlan, error) {
	ctx, span := tracer.Start(ctx, "split-video")
	defer span.End()

	info := s.probe.Probe(ctx, sourcePath)
	if info.Duration <= 0 {
		return nil, fmt.Errorf("%w: cannot determine duration of %s", models.ErrProbeFailed, sourcePath)
	}

	plan, err := PlanSegments(info.Duration, segmentDuration)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext == "" {
		ext = ".mp4"
	}

	for i := range plan {
		seg := &plan[i]
		shortID := uuid.NewString()[:8]
		seg.FilePath = filepath.Join(s.outputDir, fmt.Sprintf("segment_%d_%s%s", seg.Index, shortID, ext))

		err := s.run.run(ctx, "segment",
			"-y",
			"-ss", formatSeconds(seg.Start),
			"-t", formatSeconds(seg.Duration()),
			"-i", sourcePath,
			"-c", "copy",
			"-avoid_negative_ts", "make_zero",
			seg.FilePath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create segment %d: %w", seg.Index, err)
		}

		metrics.SegmentsCreated.Inc()
		s.log.Info("Segment created",
			"index", seg.Index,
			"path", seg.FilePath,
			"start", seg.Start,
			"end", seg.End,
		)
	}

	span.SetAttributes(
		attribute.Int("segments.count", len(plan)),
		attribute.Float64("video.duration", info.Duration),
	)

	return plan, nil
}

// ParseSegmentFilename recovers the ordinal index and short id encoded in a
// segment filename of the form segment_<index>_<shortID><ext>. It is the
// best-effort fallback for artifacts created before the segment manifest
// existed.
func ParseSegmentFilename(name string) (index int, shortID string, ok bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 || parts[0] != "segment" {
		return 0, "", false
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return 0, "", false
	}
	return index, parts[2], true
}
