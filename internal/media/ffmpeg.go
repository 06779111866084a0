package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/clipforge/highlight-pipeline/internal/metrics"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

var tracer = otel.Tracer("highlight-media")

// runner executes ffmpeg commands and monitors their output.
type runner struct {
	log *slog.Logger
}

// run executes ffmpeg with the given arguments. The operation label is used
// for spans and metrics.
func (r *runner) run(ctx context.Context, operation string, args ...string) error {
	ctx, span := tracer.Start(ctx, "ffmpeg-"+operation)
	defer span.End()

	start := time.Now()

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Monitor stderr for progress and errors
	go func() {
		defer wg.Done()
		r.monitorOutput(ctx, stderrPipe)
	}()

	// Drain stdout
	go func() {
		defer wg.Done()
		_, _ = io.Copy(io.Discard, stdoutPipe)
	}()

	cmdErr := cmd.Wait()
	wg.Wait()

	metrics.FFmpegDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if cmdErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", models.ErrContextCanceled, cmdErr)
		}
		return fmt.Errorf("%w: %v", models.ErrFFmpegFailed, cmdErr)
	}

	return nil
}

// monitorOutput reads and logs FFmpeg output.
func (r *runner) monitorOutput(ctx context.Context, reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
			line := scanner.Text()
			if strings.Contains(line, "frame=") || strings.Contains(line, "time=") {
				r.log.Debug("FFmpeg progress", "output", line)
			} else if strings.Contains(line, "error") || strings.Contains(line, "Error") {
				r.log.Warn("FFmpeg warning", "output", line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		r.log.Warn("FFmpeg output scanner error", "error", err)
	}
}

// formatSeconds renders a seconds value as an ffmpeg argument.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
