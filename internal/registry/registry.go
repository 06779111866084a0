// Package registry holds the in-memory video store and its startup recovery.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clipforge/highlight-pipeline/pkg/models"
)

// Registry is the in-memory video repository. All mutations are performed
// under the registry lock, which makes the analysis status transitions atomic
// with respect to the already-analyzing guard.
type Registry struct {
	mu     sync.RWMutex
	videos map[string]*models.VideoRecord
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		videos: make(map[string]*models.VideoRecord),
	}
}

// Insert adds a new record. Inserting an id that already exists is an error.
func (r *Registry) Insert(rec models.VideoRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.videos[rec.ID]; exists {
		return fmt.Errorf("video already exists: %s", rec.ID)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	r.videos[rec.ID] = &rec
	return nil
}

// Has reports whether a record with the given id exists.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.videos[id]
	return ok
}

// Get returns a copy of the record with the given id.
func (r *Registry) Get(id string) (models.VideoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.videos[id]
	if !ok {
		return models.VideoRecord{}, models.ErrVideoNotFound
	}
	return snapshot(rec), nil
}

// List returns copies of all records ordered by creation time, with segment
// index as tie-breaker.
func (r *Registry) List() []models.VideoRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.VideoRecord, 0, len(r.videos))
	for _, rec := range r.videos {
		out = append(out, snapshot(rec))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].SegmentIndex != out[j].SegmentIndex {
			return out[i].SegmentIndex < out[j].SegmentIndex
		}
		return out[i].ID < out[j].ID
	})

	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.videos)
}

// FirstNonSegment returns the id of the earliest-created record that is not a
// segment. Used as the best-effort parent during recovery.
func (r *Registry) FirstNonSegment() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		bestID string
		bestAt time.Time
		found  bool
	)
	for id, rec := range r.videos {
		if rec.IsSegment {
			continue
		}
		if !found || rec.CreatedAt.Before(bestAt) || (rec.CreatedAt.Equal(bestAt) && id < bestID) {
			bestID, bestAt, found = id, rec.CreatedAt, true
		}
	}
	return bestID, found
}

// BeginAnalysis transitions the video into ANALYZING. If it is already
// analyzing, the current status is returned with started=false and no second
// job may run. The check and the transition happen under one lock, so two
// concurrent callers cannot both observe started=true.
func (r *Registry) BeginAnalysis(id string) (status models.VideoStatus, started bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.videos[id]
	if !ok {
		return "", false, models.ErrVideoNotFound
	}

	if rec.Status == models.StatusAnalyzing {
		return rec.Status, false, nil
	}

	rec.Status = models.StatusAnalyzing
	rec.ErrorMessage = ""
	rec.UpdatedAt = time.Now().UTC()
	return rec.Status, true, nil
}

// SetPublishedURL records the object-storage location of the raw file.
func (r *Registry) SetPublishedURL(id, url string) error {
	return r.update(id, func(rec *models.VideoRecord) {
		rec.PublishedURL = url
	})
}

// CompleteAnalysis attaches the clip list and transitions to ANALYZED.
func (r *Registry) CompleteAnalysis(id string, clips []models.ClipRecord) error {
	return r.update(id, func(rec *models.VideoRecord) {
		rec.Clips = append([]models.ClipRecord(nil), clips...)
		rec.Status = models.StatusAnalyzed
		rec.ErrorMessage = ""
	})
}

// FailAnalysis transitions to ERROR and records the failure message.
func (r *Registry) FailAnalysis(id, message string) error {
	return r.update(id, func(rec *models.VideoRecord) {
		rec.Status = models.StatusError
		rec.ErrorMessage = message
	})
}

// SetClipSelection toggles the selected flag of one clip.
func (r *Registry) SetClipSelection(videoID, clipID string, selected bool) error {
	return r.updateClip(videoID, clipID, func(clip *models.ClipRecord) {
		clip.Selected = selected
	})
}

// RemoveClip removes a clip record from its video. The underlying file is
// left alone.
func (r *Registry) RemoveClip(videoID, clipID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.videos[videoID]
	if !ok {
		return models.ErrVideoNotFound
	}

	for i := range rec.Clips {
		if rec.Clips[i].ID == clipID {
			rec.Clips = append(rec.Clips[:i], rec.Clips[i+1:]...)
			rec.UpdatedAt = time.Now().UTC()
			return nil
		}
	}

	return models.ErrClipNotFound
}

func (r *Registry) update(id string, fn func(rec *models.VideoRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.videos[id]
	if !ok {
		return models.ErrVideoNotFound
	}

	fn(rec)
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Registry) updateClip(videoID, clipID string, fn func(clip *models.ClipRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.videos[videoID]
	if !ok {
		return models.ErrVideoNotFound
	}

	for i := range rec.Clips {
		if rec.Clips[i].ID == clipID {
			fn(&rec.Clips[i])
			rec.UpdatedAt = time.Now().UTC()
			return nil
		}
	}

	return models.ErrClipNotFound
}

// snapshot copies a record so callers cannot mutate registry state through
// the returned value.
func snapshot(rec *models.VideoRecord) models.VideoRecord {
	out := *rec
	out.Clips = append([]models.ClipRecord(nil), rec.Clips...)
	return out
}
