// Package manifest persists one record per segment artifact so startup
// recovery does not have to reverse-engineer metadata from filenames.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileName is the manifest file kept inside the segment output directory.
const FileName = "manifest.json"

// Entry describes one segment artifact at creation time.
type Entry struct {
	SegmentID     string    `json:"segmentId"`
	ParentVideoID string    `json:"parentVideoId"`
	Index         int       `json:"index"`
	Start         float64   `json:"start"`
	End           float64   `json:"end"`
	Path          string    `json:"path"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Load reads the manifest from dir. A missing manifest is not an error and
// yields an empty list.
func Load(dir string) ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read segment manifest: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode segment manifest: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries, nil
}

// Append merges the given entries into the manifest in dir, replacing any
// existing entry with the same segment id.
func Append(dir string, entries []Entry) error {
	existing, err := Load(dir)
	if err != nil {
		return err
	}

	byID := make(map[string]int, len(existing))
	for i, e := range existing {
		byID[e.SegmentID] = i
	}
	for _, e := range entries {
		if i, ok := byID[e.SegmentID]; ok {
			existing[i] = e
		} else {
			existing = append(existing, e)
		}
	}

	sort.Slice(existing, func(i, j int) bool { return existing[i].Index < existing[j].Index })

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode segment manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write segment manifest: %w", err)
	}

	return nil
}
