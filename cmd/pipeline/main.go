package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clipforge/highlight-pipeline/internal/analysis"
	"github.com/clipforge/highlight-pipeline/internal/config"
	"github.com/clipforge/highlight-pipeline/internal/export"
	"github.com/clipforge/highlight-pipeline/internal/health"
	"github.com/clipforge/highlight-pipeline/internal/inference"
	"github.com/clipforge/highlight-pipeline/internal/logger"
	"github.com/clipforge/highlight-pipeline/internal/manifest"
	"github.com/clipforge/highlight-pipeline/internal/media"
	"github.com/clipforge/highlight-pipeline/internal/observability"
	"github.com/clipforge/highlight-pipeline/internal/registry"
	"github.com/clipforge/highlight-pipeline/internal/storage"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

const (
	ServiceName     = "highlight-pipeline"
	ShutdownTimeout = 5 * time.Second
)

type CLI struct {
	Ingest  IngestCmd  `cmd:"" help:"Register a video and split it into segments when it exceeds the segment duration"`
	Analyze AnalyzeCmd `cmd:"" help:"Run highlight detection on a video or segment"`
	List    ListCmd    `cmd:"" help:"List known videos and segments"`
	Export  ExportCmd  `cmd:"" help:"Cut selected clips into deliverable files"`
	Preview PreviewCmd `cmd:"" help:"Render a low-bitrate preview of a time range"`
}

// app holds the shared runtime assembled before command dispatch. Startup
// recovery has already run, so the registry reflects everything on disk.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *registry.Registry
	exports  *registry.ExportStore
	probe    *media.Probe
}

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		logger.Info(context.Background(), log, "No .env file found, relying on system ENV variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error(context.Background(), log, "Invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirs(); err != nil {
		logger.Error(context.Background(), log, "Failed to create directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:      cfg,
		log:      log,
		registry: registry.New(),
		exports:  registry.NewExportStore(),
		probe:    media.NewProbe(log),
	}

	recovery := registry.NewRecovery(a.registry, a.probe, cfg.Segmenter.SegmentDuration, log)
	restored, err := recovery.Run(ctx, cfg.Paths.UploadDir, cfg.Paths.SegmentsDir())
	if err != nil {
		logger.Error(ctx, log, "Startup recovery failed", "error", err)
		os.Exit(1)
	}
	if restored > 0 {
		logger.Info(ctx, log, "Recovered records from disk", "count", restored)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pipeline"),
		kong.Description("Video segmentation and highlight extraction pipeline"),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(a),
	)
	kctx.FatalIfErrorf(kctx.Run())
}

type IngestCmd struct {
	File string `arg:"" help:"Video file to ingest" type:"existingfile"`
}

func (c *IngestCmd) Run(ctx context.Context, a *app) error {
	ext := strings.ToLower(filepath.Ext(c.File))
	if !models.AllowedExtensions[ext] {
		return fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, ext)
	}

	id := newID()
	destPath := filepath.Join(a.cfg.Paths.UploadDir, id+ext)
	if err := copyFile(c.File, destPath); err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}

	info := a.probe.Probe(ctx, destPath)
	rec := models.VideoRecord{
		ID:       id,
		Filename: filepath.Base(c.File),
		FilePath: destPath,
		Status:   models.StatusUploaded,
		Duration: info.Duration,
		Width:    info.Width,
		Height:   info.Height,
		FPS:      info.FPS,
	}
	if err := a.registry.Insert(rec); err != nil {
		return err
	}
	logger.Info(ctx, a.log, "Video ingested", "videoId", id, "duration", info.Duration)

	if info.Duration > a.cfg.Segmenter.SegmentDuration {
		if err := c.split(ctx, a, rec); err != nil {
			return err
		}
	}

	rec, err := a.registry.Get(id)
	if err != nil {
		return err
	}
	printRecord(rec)
	for _, seg := range a.registry.List() {
		if seg.ParentVideoID == id {
			printRecord(seg)
		}
	}
	return nil
}

func (c *IngestCmd) split(ctx context.Context, a *app, parent models.VideoRecord) error {
	segmenter := media.NewSegmenter(a.probe, a.cfg.Paths.SegmentsDir(), a.log)
	plan, err := segmenter.Split(ctx, parent.FilePath, a.cfg.Segmenter.SegmentDuration)
	if err != nil {
		return fmt.Errorf("failed to split video: %w", err)
	}

	entries := make([]manifest.Entry, 0, len(plan))
	for _, seg := range plan {
		segID := newID()
		segRec := models.VideoRecord{
			ID:            segID,
			Filename:      filepath.Base(seg.FilePath),
			FilePath:      seg.FilePath,
			Status:        models.StatusUploaded,
			Width:         parent.Width,
			Height:        parent.Height,
			FPS:           parent.FPS,
			Duration:      seg.Duration(),
			ParentVideoID: parent.ID,
			SegmentIndex:  seg.Index,
			SegmentStart:  seg.Start,
			SegmentEnd:    seg.End,
			IsSegment:     true,
		}
		if err := a.registry.Insert(segRec); err != nil {
			return err
		}
		entries = append(entries, manifest.Entry{
			SegmentID:     segID,
			ParentVideoID: parent.ID,
			Index:         seg.Index,
			Start:         seg.Start,
			End:           seg.End,
			Path:          seg.FilePath,
			CreatedAt:     time.Now().UTC(),
		})
	}

	if err := manifest.Append(a.cfg.Paths.SegmentsDir(), entries); err != nil {
		return fmt.Errorf("failed to persist segment manifest: %w", err)
	}

	logger.Info(ctx, a.log, "Video segmented", "videoId", parent.ID, "segments", len(plan))
	return nil
}

type AnalyzeCmd struct {
	VideoID string `arg:"" help:"Video or segment id to analyze"`
	Prompt  string `help:"Custom highlight detection prompt"`

	// Export chaining. The registry lives and dies with the process, so
	// exporting detected clips has to happen in the same run as the
	// analysis.
	Export     bool    `help:"Export the detected clips after analysis"`
	MinScore   float64 `default:"-1" help:"With --export, only export clips scoring at least this"`
	Merge      bool    `help:"With --export, concatenate the clips into one file"`
	Resolution string  `default:"1080p" help:"With --export, named output resolution recorded on the export"`
	Publish    bool    `help:"With --export, upload the deliverables and print download URLs"`
}

func (c *AnalyzeCmd) Run(ctx context.Context, a *app) error {
	if err := a.cfg.ValidateAnalysis(); err != nil {
		return err
	}

	shutdownTracer, err := observability.InitTracer(ctx, ServiceName, a.cfg.Observability.OTLPEndpoint, a.cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error(ctx, a.log, "Failed to shutdown tracer", "error", err)
		}
	}()

	objects, err := newObjectStore(ctx, a)
	if err != nil {
		return err
	}

	checkerCfg := health.DefaultConfig(ServiceName, a.log)
	checkerCfg.S3Client = objects.Client()
	checkerCfg.S3Bucket = a.cfg.Storage.Bucket
	checkerCfg.UploadDir = a.cfg.Paths.UploadDir
	checkerCfg.OutputDir = a.cfg.Paths.OutputDir

	metricsServer := startMetricsServer(a.cfg.Metrics.Port, health.NewChecker(checkerCfg), a.log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, a.log, "Failed to shutdown metrics server", "error", err)
		}
	}()

	client := inference.NewClient(
		a.cfg.Inference.BaseURL,
		a.cfg.Inference.APIKey,
		a.cfg.Inference.Model,
		time.Duration(a.cfg.Inference.TimeoutSeconds)*time.Second,
		a.log,
	)
	thumbnailer := media.NewThumbnailer(a.cfg.Paths.OutputDir, a.log)
	orch := analysis.NewOrchestrator(a.registry, objects, client, thumbnailer, a.log)

	task, started, err := orch.Start(ctx, c.VideoID, c.Prompt)
	if err != nil {
		return err
	}
	if !started {
		logger.Info(ctx, a.log, "Analysis already in progress", "videoId", c.VideoID)
	}

	select {
	case <-task.Done:
	case <-ctx.Done():
		logger.Warn(ctx, a.log, "Interrupted, waiting for analysis to settle", "videoId", c.VideoID)
		orch.Wait()
	}
	if err := task.Err(); err != nil {
		return err
	}

	rec, err := a.registry.Get(c.VideoID)
	if err != nil {
		return err
	}
	printRecord(rec)
	for _, clip := range rec.Clips {
		fmt.Printf("  %s  %s - %s  score %.2f  %s\n",
			clip.ID, clip.StartTime, clip.EndTime, clip.Score, clip.Description)
	}

	if !c.Export {
		return nil
	}
	if len(rec.Clips) == 0 {
		logger.Warn(ctx, a.log, "No clips to export", "videoId", c.VideoID)
		return nil
	}

	for _, clip := range rec.Clips {
		selected := c.MinScore < 0 || clip.Score >= c.MinScore
		if err := a.registry.SetClipSelection(c.VideoID, clip.ID, selected); err != nil {
			return err
		}
	}
	if rec, err = a.registry.Get(c.VideoID); err != nil {
		return err
	}

	return runExport(ctx, a, rec, selectedRanges(rec.Clips), exportOptions{
		Merge:      c.Merge,
		Resolution: c.Resolution,
		Publish:    c.Publish,
	}, objects)
}

type ListCmd struct {
	JSON bool `help:"Emit records as JSON"`
}

func (c *ListCmd) Run(_ context.Context, a *app) error {
	records := a.registry.List()
	if c.JSON {
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	for _, rec := range records {
		printRecord(rec)
	}
	if len(records) == 0 {
		fmt.Println("no videos registered")
	}
	return nil
}

type ExportCmd struct {
	VideoID    string   `arg:"" help:"Video or segment id to export from"`
	Clips      []string `help:"Clip ids to export; defaults to the selected clips"`
	MinScore   float64  `default:"-1" help:"Select clips scoring at least this before exporting"`
	Merge      bool     `help:"Concatenate the clips into one file"`
	Resolution string   `default:"1080p" help:"Named output resolution recorded on the export"`
	Publish    bool     `help:"Upload the deliverables and print download URLs"`
}

func (c *ExportCmd) Run(ctx context.Context, a *app) error {
	rec, err := a.registry.Get(c.VideoID)
	if err != nil {
		return err
	}

	if len(c.Clips) == 0 && c.MinScore >= 0 {
		for _, clip := range rec.Clips {
			if err := a.registry.SetClipSelection(c.VideoID, clip.ID, clip.Score >= c.MinScore); err != nil {
				return err
			}
		}
		if rec, err = a.registry.Get(c.VideoID); err != nil {
			return err
		}
	}

	ranges, err := c.resolveRanges(rec)
	if err != nil {
		return err
	}

	return runExport(ctx, a, rec, ranges, exportOptions{
		Merge:      c.Merge,
		Resolution: c.Resolution,
		Publish:    c.Publish,
	}, nil)
}

// resolveRanges maps the requested clip ids, or the selected clips when none
// are named, onto cut ranges in clip order.
func (c *ExportCmd) resolveRanges(rec models.VideoRecord) ([]export.Range, error) {
	byID := make(map[string]models.ClipRecord, len(rec.Clips))
	for _, clip := range rec.Clips {
		byID[clip.ID] = clip
	}

	var ranges []export.Range
	if len(c.Clips) > 0 {
		for _, id := range c.Clips {
			clip, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: %s", models.ErrClipNotFound, id)
			}
			ranges = append(ranges, export.Range{Start: clip.StartSeconds, End: clip.EndSeconds})
		}
		return ranges, nil
	}

	ranges = selectedRanges(rec.Clips)
	if len(ranges) == 0 {
		return nil, models.ErrNoClipsSelected
	}
	return ranges, nil
}

// selectedRanges returns the cut ranges of the selected clips, in clip order.
func selectedRanges(clips []models.ClipRecord) []export.Range {
	var ranges []export.Range
	for _, clip := range clips {
		if clip.Selected {
			ranges = append(ranges, export.Range{Start: clip.StartSeconds, End: clip.EndSeconds})
		}
	}
	return ranges
}

type exportOptions struct {
	Merge      bool
	Resolution string
	Publish    bool
}

// runExport cuts the ranges, optionally publishes the deliverables, records
// the export and prints the output locations. A nil objects store is built on
// demand when publishing is requested.
func runExport(ctx context.Context, a *app, rec models.VideoRecord, ranges []export.Range, opts exportOptions, objects *storage.ObjectStore) error {
	cutter := media.NewCutter(a.cfg.Paths.OutputDir, a.log)
	merger := media.NewMerger(a.cfg.Paths.OutputDir, a.log)
	exporter := export.NewExporter(cutter, merger, a.cfg.Paths.OutputDir, a.log)

	paths, err := exporter.Export(ctx, rec.FilePath, ranges, opts.Merge)
	if err != nil {
		return err
	}

	var urls []string
	if opts.Publish {
		if objects == nil {
			if objects, err = newObjectStore(ctx, a); err != nil {
				return err
			}
		}
		if urls, err = export.PublishAll(ctx, objects, paths); err != nil {
			return err
		}
	}

	resolution, _ := export.LookupResolution(opts.Resolution)
	exportRec := models.ExportRecord{
		ID:          newID(),
		VideoID:     rec.ID,
		OutputPaths: paths,
		Resolution:  resolution,
		Merged:      opts.Merge && len(ranges) > 1,
	}
	if len(urls) > 0 {
		exportRec.DownloadURL = urls[0]
	}
	a.exports.Put(exportRec)

	logger.Info(ctx, a.log, "Export complete", "videoId", rec.ID, "outputs", len(paths), "published", len(urls))
	for i, p := range paths {
		if i < len(urls) {
			fmt.Printf("%s  %s\n", p, urls[i])
		} else {
			fmt.Println(p)
		}
	}
	return nil
}

func newObjectStore(ctx context.Context, a *app) (*storage.ObjectStore, error) {
	objects, err := storage.NewObjectStore(ctx,
		a.cfg.Storage.Region,
		a.cfg.Storage.Bucket,
		time.Duration(a.cfg.Storage.SignedURLTTLS)*time.Second,
		a.log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	return objects, nil
}

type PreviewCmd struct {
	VideoID  string  `arg:"" help:"Video or segment id to preview"`
	Start    float64 `default:"0" help:"Preview start offset in seconds"`
	Duration float64 `default:"10" help:"Preview length in seconds"`
}

func (c *PreviewCmd) Run(ctx context.Context, a *app) error {
	rec, err := a.registry.Get(c.VideoID)
	if err != nil {
		return err
	}

	thumbnailer := media.NewThumbnailer(a.cfg.Paths.OutputDir, a.log)
	path, err := thumbnailer.Preview(ctx, rec.FilePath, c.Start, c.Duration)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func startMetricsServer(port int, checker *health.Checker, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/health", checker.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), log, "Metrics server failed", "error", err)
		}
	}()
	return server
}

func printRecord(rec models.VideoRecord) {
	kind := "video"
	if rec.IsSegment {
		kind = fmt.Sprintf("segment %d of %s [%s - %s]",
			rec.SegmentIndex, rec.ParentVideoID,
			analysis.FormatTimecode(rec.SegmentStart), analysis.FormatTimecode(rec.SegmentEnd))
	}
	fmt.Printf("%s  %-9s  %7.1fs  %d clips  %s\n", rec.ID, rec.Status, rec.Duration, len(rec.Clips), kind)
	if rec.ErrorMessage != "" {
		fmt.Printf("  error: %s\n", rec.ErrorMessage)
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
