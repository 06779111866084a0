package analysis

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/clipforge/highlight-pipeline/internal/inference"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

const (
	defaultStartTime     = "00:00:00"
	defaultEndTime       = "00:00:10"
	defaultHighlightType = "highlight"
	defaultScore         = 0.5
)

// BuildClips validates and normalizes inference candidates into clip records.
// Missing fields are filled with defaults and scores are clamped to [0, 1];
// candidates whose window is empty or inverted are dropped.
func BuildClips(videoID string, candidates []inference.Candidate, log *slog.Logger) []models.ClipRecord {
	clips := make([]models.ClipRecord, 0, len(candidates))

	for i, cand := range candidates {
		startTime := strings.TrimSpace(cand.StartTime)
		if startTime == "" {
			startTime = defaultStartTime
		}
		endTime := strings.TrimSpace(cand.EndTime)
		if endTime == "" {
			endTime = defaultEndTime
		}

		startSec, err := ParseTimecode(startTime)
		if err != nil {
			log.Warn("Dropping candidate with bad start time", "videoId", videoID, "startTime", startTime)
			continue
		}
		endSec, err := ParseTimecode(endTime)
		if err != nil {
			log.Warn("Dropping candidate with bad end time", "videoId", videoID, "endTime", endTime)
			continue
		}
		if endSec <= startSec {
			log.Warn("Dropping candidate with empty window",
				"videoId", videoID, "start", startSec, "end", endSec)
			continue
		}

		highlightType := strings.TrimSpace(cand.HighlightType)
		if highlightType == "" {
			highlightType = defaultHighlightType
		}

		score := defaultScore
		if cand.Score != nil {
			score = clampScore(*cand.Score)
		}

		clips = append(clips, models.ClipRecord{
			ID:            clipID(videoID, i),
			StartTime:     startTime,
			EndTime:       endTime,
			StartSeconds:  startSec,
			EndSeconds:    endSec,
			Description:   cand.Description,
			HighlightType: highlightType,
			Score:         score,
		})
	}

	return clips
}

func clipID(videoID string, ordinal int) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", videoID, ordinal, short)
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
