package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clipforge/highlight-pipeline/internal/manifest"
	"github.com/clipforge/highlight-pipeline/internal/media"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

// Prober extracts media properties from a file.
type Prober interface {
	Probe(ctx context.Context, path string) models.MediaInfo
}

// Recovery reconstructs registry records from on-disk artifacts after a
// restart. Raw uploads are keyed by filename stem; segments come from the
// persisted segment manifest, with filename parsing kept only as a
// best-effort fallback for artifacts created before the manifest existed.
type Recovery struct {
	registry        *Registry
	probe           Prober
	segmentDuration float64
	log             *slog.Logger
}

// NewRecovery creates a Recovery over the given registry.
func NewRecovery(reg *Registry, probe Prober, segmentDuration float64, log *slog.Logger) *Recovery {
	return &Recovery{
		registry:        reg,
		probe:           probe,
		segmentDuration: segmentDuration,
		log:             log,
	}
}

// Run scans the raw-upload and segment directories and inserts records for
// any artifact not already known. Re-running against fully represented
// directories inserts nothing.
func (r *Recovery) Run(ctx context.Context, uploadDir, segmentsDir string) (int, error) {
	restored := 0

	n, err := r.recoverUploads(ctx, uploadDir)
	if err != nil {
		return restored, err
	}
	restored += n

	n, err = r.recoverSegments(ctx, segmentsDir)
	if err != nil {
		return restored, err
	}
	restored += n

	r.log.Info("Recovery complete", "restored", restored, "total", r.registry.Len())
	return restored, nil
}

func (r *Recovery) recoverUploads(ctx context.Context, uploadDir string) (int, error) {
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	restored := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !models.AllowedExtensions[ext] {
			continue
		}

		id := strings.TrimSuffix(name, filepath.Ext(name))
		if r.registry.Has(id) {
			continue
		}

		path := filepath.Join(uploadDir, name)
		info := r.probe.Probe(ctx, path)

		rec := models.VideoRecord{
			ID:       id,
			Filename: name,
			FilePath: path,
			Status:   models.StatusUploaded,
			Duration: info.Duration,
			Width:    info.Width,
			Height:   info.Height,
			FPS:      info.FPS,
		}
		if err := r.registry.Insert(rec); err != nil {
			r.log.Warn("Failed to restore video", "path", path, "error", err)
			continue
		}

		restored++
		r.log.Info("Restored video", "videoId", id)
	}

	return restored, nil
}

func (r *Recovery) recoverSegments(ctx context.Context, segmentsDir string) (int, error) {
	if _, err := os.Stat(segmentsDir); os.IsNotExist(err) {
		return 0, nil
	}

	entries, err := manifest.Load(segmentsDir)
	if err != nil {
		r.log.Warn("Segment manifest unreadable, falling back to filenames", "error", err)
	}

	restored := 0
	covered := make(map[string]bool)

	// Manifest entries are authoritative for segments created by this
	// pipeline.
	for _, e := range entries {
		covered[filepath.Base(e.Path)] = true

		if r.registry.Has(e.SegmentID) {
			continue
		}
		path := e.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(segmentsDir, filepath.Base(path))
		}
		if _, err := os.Stat(path); err != nil {
			r.log.Warn("Manifest entry has no backing file", "segmentId", e.SegmentID, "path", path)
			continue
		}

		info := r.probe.Probe(ctx, path)
		rec := segmentRecord(e.SegmentID, path, e.Index, e.Start, e.End, e.ParentVideoID, info)
		if err := r.registry.Insert(rec); err != nil {
			r.log.Warn("Failed to restore segment", "segmentId", e.SegmentID, "error", err)
			continue
		}

		restored++
		r.log.Info("Restored segment", "segmentId", e.SegmentID, "index", e.Index)
	}

	n, err := r.recoverSegmentsByFilename(ctx, segmentsDir, covered)
	if err != nil {
		return restored, err
	}

	return restored + n, nil
}

// recoverSegmentsByFilename handles segment files not present in the
// manifest. Segment timing is reconstructed from the ordinal index encoded in
// the filename, and the parent is heuristically the first non-segment record
// known; this is only reliable in a single-active-video scenario.
func (r *Recovery) recoverSegmentsByFilename(ctx context.Context, segmentsDir string, covered map[string]bool) (int, error) {
	dirEntries, err := os.ReadDir(segmentsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read segment directory: %w", err)
	}

	type orphan struct {
		name    string
		index   int
		shortID string
	}
	var orphans []orphan

	for _, entry := range dirEntries {
		if entry.IsDir() || covered[entry.Name()] {
			continue
		}
		if !models.AllowedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		index, shortID, ok := media.ParseSegmentFilename(entry.Name())
		if !ok {
			continue
		}
		orphans = append(orphans, orphan{name: entry.Name(), index: index, shortID: shortID})
	}

	// Ascending index order so earlier segments are inserted first.
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].index < orphans[j].index })

	restored := 0
	for _, o := range orphans {
		if r.registry.Has(o.shortID) {
			continue
		}

		path := filepath.Join(segmentsDir, o.name)
		info := r.probe.Probe(ctx, path)

		// A failed probe leaves a zero duration; assume a full-length
		// segment so the window stays non-empty.
		dur := info.Duration
		if dur <= 0 {
			dur = r.segmentDuration
		}

		start := float64(o.index) * r.segmentDuration
		end := start + dur

		parentID, _ := r.registry.FirstNonSegment()

		rec := segmentRecord(o.shortID, path, o.index, start, end, parentID, info)
		if err := r.registry.Insert(rec); err != nil {
			r.log.Warn("Failed to restore segment", "path", path, "error", err)
			continue
		}

		restored++
		r.log.Info("Restored segment from filename", "segmentId", o.shortID, "index", o.index)
	}

	return restored, nil
}

func segmentRecord(id, path string, index int, start, end float64, parentID string, info models.MediaInfo) models.VideoRecord {
	return models.VideoRecord{
		ID:            id,
		Filename:      filepath.Base(path),
		FilePath:      path,
		Status:        models.StatusUploaded,
		Duration:      info.Duration,
		Width:         info.Width,
		Height:        info.Height,
		FPS:           info.FPS,
		ParentVideoID: parentID,
		SegmentIndex:  index,
		SegmentStart:  start,
		SegmentEnd:    end,
		IsSegment:     true,
	}
}
