package models

import "errors"

// Sentinel errors for pipeline operations.
var (
	// Media tool errors
	ErrProbeFailed  = errors.New("media probe failed")
	ErrFFmpegFailed = errors.New("ffmpeg execution failed")

	// Analysis workflow errors
	ErrPublishFailed   = errors.New("failed to publish file to object storage")
	ErrInferenceFailed = errors.New("inference call failed")

	// Lookup errors
	ErrVideoNotFound  = errors.New("video not found")
	ErrClipNotFound   = errors.New("clip not found")
	ErrExportNotFound = errors.New("export not found")

	// Caller errors
	ErrNoClipsSelected    = errors.New("no clips selected")
	ErrUnsupportedFormat  = errors.New("unsupported media format")
	ErrInvalidSegmentSize = errors.New("segment duration must be positive")

	ErrContextCanceled = errors.New("context canceled")
)
