package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/clipforge/highlight-pipeline/internal/metrics"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

// Probe extracts media properties via ffprobe. Failures degrade to an empty
// MediaInfo; callers must treat every field as optional.
type Probe struct {
	log *slog.Logger
}

// NewProbe creates a new Probe.
func NewProbe(log *slog.Logger) *Probe {
	return &Probe{log: log}
}

// ffprobe JSON output, restricted to the fields the pipeline reads.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

// Probe returns the media properties of the file at path. On any failure it
// logs a warning and returns the zero MediaInfo.
func (p *Probe) Probe(ctx context.Context, path string) models.MediaInfo {
	ctx, span := tracer.Start(ctx, "ffprobe")
	defer span.End()

	start := time.Now()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	metrics.FFmpegDuration.WithLabelValues("probe").Observe(time.Since(start).Seconds())
	if err != nil {
		p.log.Warn("ffprobe failed", "path", path, "error", err, "stderr", stderr.String())
		return models.MediaInfo{}
	}

	info, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		p.log.Warn("failed to parse ffprobe output", "path", path, "error", err)
		return models.MediaInfo{}
	}

	return info
}

// parseProbeOutput decodes ffprobe JSON and extracts the first video stream.
func parseProbeOutput(data []byte) (models.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return models.MediaInfo{}, fmt.Errorf("%w: %v", models.ErrProbeFailed, err)
	}

	var info models.MediaInfo

	if out.Format.Duration != "" {
		if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	if out.Format.BitRate != "" {
		if b, err := strconv.ParseInt(out.Format.BitRate, 10, 64); err == nil {
			info.Bitrate = b
		}
	}

	for _, stream := range out.Streams {
		if stream.CodecType != "video" {
			continue
		}
		info.Width = stream.Width
		info.Height = stream.Height
		info.Codec = stream.CodecName
		if fps, err := parseFrameRate(stream.RFrameRate); err == nil {
			info.FPS = fps
		}
		break
	}

	return info, nil
}

// parseFrameRate parses an ffprobe rational frame-rate expression. Only the
// forms "num/den" and a bare integer are accepted.
func parseFrameRate(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty frame rate")
	}

	num, den, found := strings.Cut(expr, "/")
	if !found {
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid frame rate %q: %v", expr, err)
		}
		return float64(n), nil
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate numerator %q: %v", expr, err)
	}
	d, err := strconv.ParseInt(den, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate denominator %q: %v", expr, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("zero frame rate denominator in %q", expr)
	}

	return float64(n) / float64(d), nil
}
