package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.UploadDir != DefaultUploadDir {
		t.Errorf("UploadDir = %s, want %s", cfg.Paths.UploadDir, DefaultUploadDir)
	}
	if cfg.Segmenter.SegmentDuration != DefaultSegmentDuration {
		t.Errorf("SegmentDuration = %v, want %v", cfg.Segmenter.SegmentDuration, DefaultSegmentDuration)
	}
	if cfg.Inference.Model != DefaultInferenceModel {
		t.Errorf("Inference.Model = %s, want %s", cfg.Inference.Model, DefaultInferenceModel)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("UPLOAD_DIR", "/data/raw")
	t.Setenv("SEGMENT_DURATION_SECONDS", "120.5")
	t.Setenv("INFERENCE_MODEL", "glm-4v-plus")
	t.Setenv("METRICS_PORT", "9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.UploadDir != "/data/raw" {
		t.Errorf("UploadDir = %s, want /data/raw", cfg.Paths.UploadDir)
	}
	if cfg.Segmenter.SegmentDuration != 120.5 {
		t.Errorf("SegmentDuration = %v, want 120.5", cfg.Segmenter.SegmentDuration)
	}
	if cfg.Inference.Model != "glm-4v-plus" {
		t.Errorf("Inference.Model = %s, want glm-4v-plus", cfg.Inference.Model)
	}
	if cfg.Metrics.Port != 9200 {
		t.Errorf("Metrics.Port = %d, want 9200", cfg.Metrics.Port)
	}
}

func TestLoadRejectsNonPositiveSegmentDuration(t *testing.T) {
	t.Setenv("SEGMENT_DURATION_SECONDS", "-5")

	if _, err := Load(); err == nil {
		t.Error("Load() with negative segment duration should fail")
	}
}

func TestValidateAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		bucket  string
		wantErr bool
	}{
		{"complete", "key", "bucket", false},
		{"missing api key", "", "bucket", true},
		{"missing bucket", "key", "", true},
		{"missing both", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Inference.APIKey = tt.apiKey
			cfg.Storage.Bucket = tt.bucket

			err := cfg.ValidateAnalysis()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAnalysis() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPathsDerivedDirs(t *testing.T) {
	p := PathsConfig{OutputDir: "/data/out"}

	if got := p.SegmentsDir(); got != filepath.Join("/data/out", "segments") {
		t.Errorf("SegmentsDir() = %s", got)
	}
	if got := p.ThumbnailsDir(); got != filepath.Join("/data/out", "thumbnails") {
		t.Errorf("ThumbnailsDir() = %s", got)
	}
}
