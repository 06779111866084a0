// Package health reports the readiness of the pipeline's dependencies: the
// ffmpeg binaries, the data directories and object storage.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Configuration constants
const (
	DefaultCacheTTL     = 10 * time.Second
	DefaultCheckTimeout = 5 * time.Second
)

// Status represents the health check response.
type Status struct {
	Status    string                    `json:"status"`
	Service   string                    `json:"service"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks,omitempty"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// S3Client defines the S3 operations needed for health checks.
type S3Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Config holds health checker configuration.
type Config struct {
	ServiceName  string
	S3Client     S3Client
	S3Bucket     string
	UploadDir    string
	OutputDir    string
	Logger       *slog.Logger
	CacheTTL     time.Duration
	CheckTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig(serviceName string, logger *slog.Logger) *Config {
	return &Config{
		ServiceName:  serviceName,
		Logger:       logger,
		CacheTTL:     DefaultCacheTTL,
		CheckTimeout: DefaultCheckTimeout,
	}
}

// Checker provides health check functionality.
type Checker struct {
	config     *Config
	mu         sync.RWMutex
	lastCheck  time.Time
	lastStatus *Status
}

// NewChecker creates a new health checker with the given configuration.
func NewChecker(config *Config) *Checker {
	return &Checker{
		config: config,
	}
}

// Check performs health checks on all dependencies.
// If deep is false, a cached result may be returned.
func (c *Checker) Check(ctx context.Context, deep bool) *Status {
	if !deep {
		c.mu.RLock()
		if c.lastStatus != nil && time.Since(c.lastCheck) < c.config.CacheTTL {
			status := c.lastStatus
			c.mu.RUnlock()
			return status
		}
		c.mu.RUnlock()
	}

	status := &Status{
		Status:    "healthy",
		Service:   c.config.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	if deep {
		ffmpegCheck := c.checkFFmpeg()
		status.Checks["ffmpeg"] = ffmpegCheck
		if ffmpegCheck.Status != "healthy" {
			status.Status = "degraded"
		}

		if c.config.UploadDir != "" || c.config.OutputDir != "" {
			dirCheck := c.checkDirs()
			status.Checks["dirs"] = dirCheck
			if dirCheck.Status != "healthy" {
				status.Status = "degraded"
			}
		}

		if c.config.S3Client != nil && c.config.S3Bucket != "" {
			s3Check := c.checkS3(ctx)
			status.Checks["s3"] = s3Check
			if s3Check.Status != "healthy" {
				status.Status = "degraded"
			}
		}
	}

	c.mu.Lock()
	c.lastCheck = time.Now()
	c.lastStatus = status
	c.mu.Unlock()

	return status
}

// checkFFmpeg verifies that ffmpeg and ffprobe are on PATH.
func (c *Checker) checkFFmpeg() ComponentCheck {
	start := time.Now()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return ComponentCheck{
				Status:  "unhealthy",
				Latency: time.Since(start).String(),
				Error:   err.Error(),
			}
		}
	}
	return ComponentCheck{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}
}

// checkDirs verifies that the upload and output directories exist.
func (c *Checker) checkDirs() ComponentCheck {
	start := time.Now()
	for _, dir := range []string{c.config.UploadDir, c.config.OutputDir} {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil {
			return ComponentCheck{
				Status:  "unhealthy",
				Latency: time.Since(start).String(),
				Error:   err.Error(),
			}
		}
		if !info.IsDir() {
			return ComponentCheck{
				Status:  "unhealthy",
				Latency: time.Since(start).String(),
				Error:   dir + " is not a directory",
			}
		}
	}
	return ComponentCheck{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}
}

func (c *Checker) checkS3(ctx context.Context) ComponentCheck {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.config.CheckTimeout)
	defer cancel()

	_, err := c.config.S3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.S3Bucket),
	})

	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{
			Status:  "unhealthy",
			Latency: latency.String(),
			Error:   err.Error(),
		}
	}

	return ComponentCheck{
		Status:  "healthy",
		Latency: latency.String(),
	}
}

// Handler returns an HTTP handler for health checks. A deep check runs when
// the request carries ?deep=true.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deep := r.URL.Query().Get("deep") == "true"
		status := c.Check(r.Context(), deep)
		c.writeResponse(w, status)
	}
}

func (c *Checker) writeResponse(w http.ResponseWriter, status *Status) {
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil && c.config.Logger != nil {
		c.config.Logger.Error("Failed to encode health response", "error", err)
	}
}
