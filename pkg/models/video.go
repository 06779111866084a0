package models

import "time"

// VideoStatus represents the analysis status of a video or segment.
type VideoStatus string

const (
	StatusUploaded  VideoStatus = "uploaded"
	StatusAnalyzing VideoStatus = "analyzing"
	StatusAnalyzed  VideoStatus = "analyzed"
	StatusError     VideoStatus = "error"
)

// IsValid returns true if the status is a valid VideoStatus.
func (s VideoStatus) IsValid() bool {
	switch s {
	case StatusUploaded, StatusAnalyzing, StatusAnalyzed, StatusError:
		return true
	}
	return false
}

// Terminal returns true once a video has left the ANALYZING state.
// A new analysis may be started from a terminal state.
func (s VideoStatus) Terminal() bool {
	return s == StatusAnalyzed || s == StatusError
}

// MediaInfo holds the probed properties of a media file. All fields are
// best-effort: a failed probe leaves the zero value in place.
type MediaInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	Codec    string  `json:"codec"`
	Bitrate  int64   `json:"bitrate"`
}

// ClipRecord is a highlight sub-range identified inside a video.
type ClipRecord struct {
	ID            string  `json:"id"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	StartSeconds  float64 `json:"startSeconds"`
	EndSeconds    float64 `json:"endSeconds"`
	Description   string  `json:"description"`
	HighlightType string  `json:"highlightType"`
	Score         float64 `json:"score"`
	ThumbnailURL  string  `json:"thumbnailUrl,omitempty"`
	Selected      bool    `json:"selected"`
}

// VideoRecord is the registry entry for an uploaded video or one of its
// segments.
type VideoRecord struct {
	ID           string       `json:"videoId"`
	Filename     string       `json:"filename"`
	FilePath     string       `json:"filePath"`
	Status       VideoStatus  `json:"status"`
	PublishedURL string       `json:"publishedUrl,omitempty"`
	Duration     float64      `json:"duration,omitempty"`
	Width        int          `json:"width,omitempty"`
	Height       int          `json:"height,omitempty"`
	FPS          float64      `json:"fps,omitempty"`
	Clips        []ClipRecord `json:"clips,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`

	// Segmentation linkage. All four fields are set iff IsSegment is true.
	ParentVideoID string  `json:"parentVideoId,omitempty"`
	SegmentIndex  int     `json:"segmentIndex,omitempty"`
	SegmentStart  float64 `json:"segmentStart,omitempty"`
	SegmentEnd    float64 `json:"segmentEnd,omitempty"`
	IsSegment     bool    `json:"isSegment"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Segment is one planned slice of a source video.
type Segment struct {
	Index    int     `json:"index"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	FilePath string  `json:"path"`
}

// Duration returns the length of the segment in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// SegmentPlan is an ordered sequence of segments tiling [0, total) with no
// gaps and no overlaps.
type SegmentPlan []Segment

// ExportRecord tracks one produced deliverable.
type ExportRecord struct {
	ID          string    `json:"exportId"`
	VideoID     string    `json:"videoId"`
	OutputPaths []string  `json:"outputPaths"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	Resolution  string    `json:"resolution"`
	Merged      bool      `json:"merged"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AllowedExtensions is the accepted input media extension allow-list
// (lowercase, with leading dot).
var AllowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}
