package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Environment   string
	Paths         PathsConfig
	Segmenter     SegmenterConfig
	Inference     InferenceConfig
	Storage       StorageConfig
	Metrics       MetricsConfig
	Observability ObservabilityConfig
}

// PathsConfig holds the filesystem layout consumed and produced by the pipeline.
type PathsConfig struct {
	UploadDir string
	OutputDir string
}

// SegmentsDir returns the directory holding segment output files.
func (p PathsConfig) SegmentsDir() string {
	return filepath.Join(p.OutputDir, "segments")
}

// ThumbnailsDir returns the directory holding per-video thumbnail folders.
func (p PathsConfig) ThumbnailsDir() string {
	return filepath.Join(p.OutputDir, "thumbnails")
}

// SegmenterConfig holds segmentation parameters.
type SegmenterConfig struct {
	// Videos longer than SegmentDuration seconds are split into segments of
	// at most that length.
	SegmentDuration float64
}

// InferenceConfig holds the multimodal inference service configuration.
type InferenceConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	TimeoutSeconds int
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Region        string
	Bucket        string
	SignedURLTTLS int
}

// MetricsConfig holds the metrics listener configuration.
type MetricsConfig struct {
	Port int
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTLPEndpoint string
}

// Default values
const (
	DefaultUploadDir        = "./uploads"
	DefaultOutputDir        = "./outputs"
	DefaultSegmentDuration  = 300.0
	DefaultInferenceModel   = "glm-4.6v"
	DefaultInferenceBaseURL = "https://open.bigmodel.cn/api/paas/v4"
	DefaultInferenceTimeout = 300
	DefaultRegion           = "us-west-2"
	DefaultSignedURLTTL     = 3600
	DefaultMetricsPort      = 2112
	DefaultOTLPEndpoint     = "localhost:4317"
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENV", "dev"),
		Paths: PathsConfig{
			UploadDir: getEnv("UPLOAD_DIR", DefaultUploadDir),
			OutputDir: getEnv("OUTPUT_DIR", DefaultOutputDir),
		},
		Segmenter: SegmenterConfig{
			SegmentDuration: getEnvFloat("SEGMENT_DURATION_SECONDS", DefaultSegmentDuration),
		},
		Inference: InferenceConfig{
			APIKey:         os.Getenv("INFERENCE_API_KEY"),
			Model:          getEnv("INFERENCE_MODEL", DefaultInferenceModel),
			BaseURL:        getEnv("INFERENCE_BASE_URL", DefaultInferenceBaseURL),
			TimeoutSeconds: getEnvInt("INFERENCE_TIMEOUT_SECONDS", DefaultInferenceTimeout),
		},
		Storage: StorageConfig{
			Region:        getEnv("AWS_REGION", DefaultRegion),
			Bucket:        os.Getenv("S3_BUCKET"),
			SignedURLTTLS: getEnvInt("SIGNED_URL_TTL_SECONDS", DefaultSignedURLTTL),
		},
		Metrics: MetricsConfig{
			Port: getEnvInt("METRICS_PORT", DefaultMetricsPort),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", DefaultOTLPEndpoint),
		},
	}

	if cfg.Segmenter.SegmentDuration <= 0 {
		return nil, fmt.Errorf("SEGMENT_DURATION_SECONDS must be positive, got %v", cfg.Segmenter.SegmentDuration)
	}

	return cfg, nil
}

// ValidateAnalysis validates configuration required for the analysis workflow.
func (c *Config) ValidateAnalysis() error {
	var errs []string

	if c.Inference.APIKey == "" {
		errs = append(errs, "INFERENCE_API_KEY is required")
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, "S3_BUCKET is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// EnsureDirs creates the upload and output directories if they do not exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		c.Paths.UploadDir,
		c.Paths.SegmentsDir(),
		c.Paths.ThumbnailsDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "prod" || env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
