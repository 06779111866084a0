package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/clipforge/highlight-pipeline/internal/registry"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

type fakeObjects struct {
	mu         sync.Mutex
	publishErr error
	published  []string
	thumbErr   error
	thumbnails []string
	publishURL string
}

func (f *fakeObjects) Publish(_ context.Context, localPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.published = append(f.published, localPath)
	url := f.publishURL
	if url == "" {
		url = "https://bucket.example/videos/abc.mp4?sig=x"
	}
	return url, nil
}

func (f *fakeObjects) PublishThumbnail(_ context.Context, localPath, videoID, clipID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.thumbErr != nil {
		return "", f.thumbErr
	}
	f.thumbnails = append(f.thumbnails, clipID)
	return "https://bucket.example/thumbnails/" + videoID + "/" + clipID + ".jpg", nil
}

type fakeInference struct {
	mu      sync.Mutex
	content string
	err     error
	calls   int
	release chan struct{}
}

func (f *fakeInference) Analyze(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

type fakeThumbnailer struct {
	err error
}

func (f *fakeThumbnailer) Thumbnail(_ context.Context, _ string, _ float64, videoID, clipID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "/tmp/thumbnails/" + videoID + "/" + clipID + ".jpg", nil
}

const highlightPayload = `{"clips": [
	{"start_time": "00:00:05", "end_time": "00:00:15", "description": "big play", "highlight_type": "action", "score": 0.9},
	{"start_time": "00:01:00", "end_time": "00:01:20", "description": "celebration", "highlight_type": "reaction", "score": 0.7}
]}`

func setup(t *testing.T, infer *fakeInference, objects *fakeObjects, thumbs *fakeThumbnailer) (*Orchestrator, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	if err := reg.Insert(models.VideoRecord{
		ID:       "vid-1",
		Filename: "vid-1.mp4",
		FilePath: "/tmp/vid-1.mp4",
		Status:   models.StatusUploaded,
	}); err != nil {
		t.Fatal(err)
	}

	orch := NewOrchestrator(reg, objects, infer, thumbs, discardLogger())
	return orch, reg
}

func awaitTask(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("analysis did not finish")
	}
}

func TestAnalysisHappyPath(t *testing.T) {
	objects := &fakeObjects{}
	orch, reg := setup(t, &fakeInference{content: highlightPayload}, objects, &fakeThumbnailer{})

	task, started, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !started {
		t.Fatal("Start did not launch a task")
	}
	awaitTask(t, task)
	if task.Err() != nil {
		t.Fatalf("task finished with error: %v", task.Err())
	}

	rec, err := reg.Get("vid-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != models.StatusAnalyzed {
		t.Errorf("status = %q, want analyzed", rec.Status)
	}
	if len(rec.Clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(rec.Clips))
	}
	if rec.PublishedURL == "" {
		t.Error("published URL was not recorded")
	}
	for _, clip := range rec.Clips {
		if clip.ThumbnailURL == "" {
			t.Errorf("clip %s missing thumbnail URL", clip.ID)
		}
	}
	if len(objects.published) != 1 {
		t.Errorf("video published %d times, want 1", len(objects.published))
	}
}

func TestAnalysisSkipsRepublish(t *testing.T) {
	objects := &fakeObjects{}
	orch, reg := setup(t, &fakeInference{content: highlightPayload}, objects, &fakeThumbnailer{})

	if err := reg.SetPublishedURL("vid-1", "https://bucket.example/videos/existing.mp4"); err != nil {
		t.Fatal(err)
	}

	task, _, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil {
		t.Fatal(err)
	}
	awaitTask(t, task)

	if len(objects.published) != 0 {
		t.Errorf("already-published video was republished %d times", len(objects.published))
	}
}

func TestDoubleStartYieldsOneJob(t *testing.T) {
	infer := &fakeInference{content: highlightPayload, release: make(chan struct{})}
	orch, _ := setup(t, infer, &fakeObjects{}, &fakeThumbnailer{})

	first, started, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil || !started {
		t.Fatalf("first Start: started=%v err=%v", started, err)
	}

	second, started, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if started {
		t.Error("second Start launched a second job")
	}
	if second != first {
		t.Error("second Start returned a different task")
	}

	close(infer.release)
	awaitTask(t, first)

	infer.mu.Lock()
	calls := infer.calls
	infer.mu.Unlock()
	if calls != 1 {
		t.Errorf("inference called %d times, want 1", calls)
	}
}

func TestMalformedOutputCompletesEmpty(t *testing.T) {
	orch, reg := setup(t, &fakeInference{content: "I could not find any JSON here"}, &fakeObjects{}, &fakeThumbnailer{})

	task, _, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil {
		t.Fatal(err)
	}
	awaitTask(t, task)
	if task.Err() != nil {
		t.Fatalf("malformed output should not fail the analysis: %v", task.Err())
	}

	rec, _ := reg.Get("vid-1")
	if rec.Status != models.StatusAnalyzed {
		t.Errorf("status = %q, want analyzed", rec.Status)
	}
	if len(rec.Clips) != 0 {
		t.Errorf("clips = %d, want 0", len(rec.Clips))
	}
}

func TestPublishFailureMarksError(t *testing.T) {
	objects := &fakeObjects{publishErr: errors.New("no such bucket")}
	orch, reg := setup(t, &fakeInference{content: highlightPayload}, objects, &fakeThumbnailer{})

	task, _, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil {
		t.Fatal(err)
	}
	awaitTask(t, task)

	if !errors.Is(task.Err(), models.ErrPublishFailed) {
		t.Errorf("task error = %v, want ErrPublishFailed", task.Err())
	}

	rec, _ := reg.Get("vid-1")
	if rec.Status != models.StatusError {
		t.Errorf("status = %q, want error", rec.Status)
	}
	if rec.ErrorMessage == "" {
		t.Error("error message was not recorded")
	}
}

func TestInferenceFailureMarksError(t *testing.T) {
	infer := &fakeInference{err: fmt.Errorf("%w: status 503", models.ErrInferenceFailed)}
	orch, reg := setup(t, infer, &fakeObjects{}, &fakeThumbnailer{})

	task, _, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil {
		t.Fatal(err)
	}
	awaitTask(t, task)

	if !errors.Is(task.Err(), models.ErrInferenceFailed) {
		t.Errorf("task error = %v, want ErrInferenceFailed", task.Err())
	}
	rec, _ := reg.Get("vid-1")
	if rec.Status != models.StatusError {
		t.Errorf("status = %q, want error", rec.Status)
	}
}

func TestRetryAfterFailure(t *testing.T) {
	infer := &fakeInference{err: fmt.Errorf("%w: status 503", models.ErrInferenceFailed)}
	orch, reg := setup(t, infer, &fakeObjects{}, &fakeThumbnailer{})

	task, _, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil {
		t.Fatal(err)
	}
	awaitTask(t, task)

	// A failed analysis stays failed until a caller starts a new one.
	rec, _ := reg.Get("vid-1")
	if rec.Status != models.StatusError {
		t.Fatalf("status = %q, want error", rec.Status)
	}

	infer.mu.Lock()
	infer.err = nil
	infer.content = highlightPayload
	infer.mu.Unlock()

	task, started, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil || !started {
		t.Fatalf("restart: started=%v err=%v", started, err)
	}
	awaitTask(t, task)
	if task.Err() != nil {
		t.Fatalf("restart failed: %v", task.Err())
	}

	rec, _ = reg.Get("vid-1")
	if rec.Status != models.StatusAnalyzed || len(rec.Clips) != 2 {
		t.Errorf("after restart: status=%q clips=%d", rec.Status, len(rec.Clips))
	}
}

func TestThumbnailFailureKeepsClips(t *testing.T) {
	orch, reg := setup(t, &fakeInference{content: highlightPayload}, &fakeObjects{}, &fakeThumbnailer{err: errors.New("ffmpeg exited 1")})

	task, _, err := orch.Start(context.Background(), "vid-1", "")
	if err != nil {
		t.Fatal(err)
	}
	awaitTask(t, task)
	if task.Err() != nil {
		t.Fatalf("thumbnail failure aborted the analysis: %v", task.Err())
	}

	rec, _ := reg.Get("vid-1")
	if rec.Status != models.StatusAnalyzed || len(rec.Clips) != 2 {
		t.Fatalf("status=%q clips=%d", rec.Status, len(rec.Clips))
	}
	for _, clip := range rec.Clips {
		if clip.ThumbnailURL != "" {
			t.Errorf("clip %s has thumbnail URL despite capture failure", clip.ID)
		}
	}
}
