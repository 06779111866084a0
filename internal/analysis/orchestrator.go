package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clipforge/highlight-pipeline/internal/inference"
	"github.com/clipforge/highlight-pipeline/internal/metrics"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

var tracer = otel.Tracer("highlight-analysis")

// Store is the registry surface the orchestrator needs.
type Store interface {
	Get(id string) (models.VideoRecord, error)
	BeginAnalysis(id string) (models.VideoStatus, bool, error)
	SetPublishedURL(id, url string) error
	CompleteAnalysis(id string, clips []models.ClipRecord) error
	FailAnalysis(id, message string) error
}

// ObjectStore publishes local files to shared storage and returns a URL the
// inference service can fetch.
type ObjectStore interface {
	Publish(ctx context.Context, localPath string) (string, error)
	PublishThumbnail(ctx context.Context, localPath, videoID, clipID string) (string, error)
}

// InferenceClient sends a published video for highlight detection.
type InferenceClient interface {
	Analyze(ctx context.Context, publicVideoURL, prompt string) (string, error)
}

// Thumbnailer captures a still frame from a video.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, videoPath string, timestamp float64, videoID, clipID string) (string, error)
}

// Task is a handle on one in-flight analysis. Done is closed when the
// analysis finishes, after which Err may be read.
type Task struct {
	VideoID string
	Done    chan struct{}

	err error
}

// Err returns the terminal error of the task. It must not be called before
// Done is closed.
func (t *Task) Err() error {
	return t.err
}

// Orchestrator runs the analysis workflow: publish the video, request
// highlight detection, build clip records and capture thumbnails. Failed
// analyses stay in the error state until a caller explicitly starts a new
// one; there is no automatic retry.
type Orchestrator struct {
	store      Store
	objects    ObjectStore
	inference  InferenceClient
	thumbnails Thumbnailer
	log        *slog.Logger

	mu       sync.Mutex
	inFlight map[string]*Task
	wg       sync.WaitGroup
}

// NewOrchestrator wires the analysis workflow together.
func NewOrchestrator(store Store, objects ObjectStore, infer InferenceClient, thumbnails Thumbnailer, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		objects:    objects,
		inference:  infer,
		thumbnails: thumbnails,
		log:        log,
		inFlight:   make(map[string]*Task),
	}
}

// Start launches an analysis for the video unless one is already running, in
// which case the existing task is returned with started=false. The status
// transition to ANALYZING happens before this method returns, so a caller
// observing started=true knows no concurrent analysis can begin.
func (o *Orchestrator) Start(ctx context.Context, videoID, prompt string) (*Task, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if task, ok := o.inFlight[videoID]; ok {
		return task, false, nil
	}

	_, started, err := o.store.BeginAnalysis(videoID)
	if err != nil {
		return nil, false, err
	}
	if !started {
		// The record says analyzing but we hold no task for it. This
		// happens after a crash mid-analysis; take it over.
		o.log.Warn("Adopting stale analyzing state", "videoId", videoID)
	}

	task := &Task{VideoID: videoID, Done: make(chan struct{})}
	o.inFlight[videoID] = task

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		task.err = o.analyze(context.WithoutCancel(ctx), videoID, prompt)

		o.mu.Lock()
		delete(o.inFlight, videoID)
		o.mu.Unlock()
		close(task.Done)
	}()

	return task, true, nil
}

// Wait blocks until every in-flight analysis has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) analyze(ctx context.Context, videoID, prompt string) error {
	ctx, span := tracer.Start(ctx, "analysis.run",
		trace.WithAttributes(attribute.String("video.id", videoID)))
	defer span.End()

	start := time.Now()
	metrics.ActiveAnalyses.Inc()
	defer metrics.ActiveAnalyses.Dec()
	defer func() {
		metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}()

	o.log.Info("Starting analysis", "videoId", videoID)

	rec, err := o.store.Get(videoID)
	if err != nil {
		return o.fail(videoID, err)
	}

	videoURL := rec.PublishedURL
	if videoURL == "" {
		videoURL, err = o.objects.Publish(ctx, rec.FilePath)
		if err != nil {
			return o.fail(videoID, fmt.Errorf("%w: %v", models.ErrPublishFailed, err))
		}
		if err := o.store.SetPublishedURL(videoID, videoURL); err != nil {
			return o.fail(videoID, err)
		}
	}

	content, err := o.inference.Analyze(ctx, videoURL, prompt)
	if err != nil {
		return o.fail(videoID, err)
	}

	// Unparseable model output is not a failure: the analysis completes
	// with zero clips.
	candidates := inference.ParseHighlights(content)
	if len(candidates) == 0 {
		o.log.Warn("No highlight candidates in model output", "videoId", videoID)
	}

	clips := BuildClips(videoID, candidates, o.log)
	o.captureThumbnails(ctx, rec.FilePath, videoID, clips)

	if err := o.store.CompleteAnalysis(videoID, clips); err != nil {
		return o.fail(videoID, err)
	}

	metrics.ClipsExtracted.Observe(float64(len(clips)))
	metrics.RecordSuccess()
	o.log.Info("Analysis complete", "videoId", videoID, "clips", len(clips))
	return nil
}

// captureThumbnails grabs and publishes one still per clip. A thumbnail
// failure only loses the image, never the clip.
func (o *Orchestrator) captureThumbnails(ctx context.Context, videoPath, videoID string, clips []models.ClipRecord) {
	for i := range clips {
		clip := &clips[i]

		localPath, err := o.thumbnails.Thumbnail(ctx, videoPath, clip.StartSeconds, videoID, clip.ID)
		if err != nil {
			o.log.Warn("Thumbnail capture failed", "videoId", videoID, "clipId", clip.ID, "error", err)
			continue
		}

		url, err := o.objects.PublishThumbnail(ctx, localPath, videoID, clip.ID)
		if err != nil {
			o.log.Warn("Thumbnail publish failed", "videoId", videoID, "clipId", clip.ID, "error", err)
			continue
		}
		clip.ThumbnailURL = url
	}
}

func (o *Orchestrator) fail(videoID string, cause error) error {
	metrics.RecordFailure()
	o.log.Error("Analysis failed", "videoId", videoID, "error", cause)

	if err := o.store.FailAnalysis(videoID, cause.Error()); err != nil {
		o.log.Error("Failed to record analysis failure", "videoId", videoID, "error", err)
	}
	return cause
}
