package main

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/clipforge/highlight-pipeline/pkg/models"
)

func TestKongParseAnalyzeExportFlags(t *testing.T) {
	var cli CLI
	parser := kong.Must(&cli)

	args := []string{"analyze", "vid123", "--export", "--min-score", "0.7", "--merge", "--publish"}
	kctx, err := parser.Parse(args)
	if err != nil {
		t.Fatalf("Parse(%v) error: %v", args, err)
	}
	if !strings.Contains(kctx.Command(), "analyze") {
		t.Errorf("Command() = %q, want analyze", kctx.Command())
	}
	if cli.Analyze.VideoID != "vid123" {
		t.Errorf("VideoID = %q, want vid123", cli.Analyze.VideoID)
	}
	if !cli.Analyze.Export {
		t.Error("Export flag not set")
	}
	if cli.Analyze.MinScore != 0.7 {
		t.Errorf("MinScore = %v, want 0.7", cli.Analyze.MinScore)
	}
	if !cli.Analyze.Merge || !cli.Analyze.Publish {
		t.Errorf("Merge = %v, Publish = %v, want both true", cli.Analyze.Merge, cli.Analyze.Publish)
	}
}

func TestKongParseAnalyzeDefaults(t *testing.T) {
	var cli CLI
	parser := kong.Must(&cli)

	if _, err := parser.Parse([]string{"analyze", "vid123"}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cli.Analyze.Export {
		t.Error("Export should default to false")
	}
	if cli.Analyze.MinScore != -1 {
		t.Errorf("MinScore default = %v, want -1", cli.Analyze.MinScore)
	}
	if cli.Analyze.Resolution != "1080p" {
		t.Errorf("Resolution default = %q, want 1080p", cli.Analyze.Resolution)
	}
}

func TestKongParseExportPublish(t *testing.T) {
	var cli CLI
	parser := kong.Must(&cli)

	args := []string{"export", "vid123", "--publish", "--resolution", "720p"}
	if _, err := parser.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error: %v", args, err)
	}
	if !cli.Export.Publish {
		t.Error("Publish flag not set")
	}
	if cli.Export.Resolution != "720p" {
		t.Errorf("Resolution = %q, want 720p", cli.Export.Resolution)
	}
}

func TestSelectedRanges(t *testing.T) {
	clips := []models.ClipRecord{
		{ID: "c1", StartSeconds: 10, EndSeconds: 20, Selected: true},
		{ID: "c2", StartSeconds: 30, EndSeconds: 40, Selected: false},
		{ID: "c3", StartSeconds: 50, EndSeconds: 65, Selected: true},
	}

	ranges := selectedRanges(clips)
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
	if ranges[0].Start != 10 || ranges[0].End != 20 {
		t.Errorf("ranges[0] = %+v, want 10-20", ranges[0])
	}
	if ranges[1].Start != 50 || ranges[1].End != 65 {
		t.Errorf("ranges[1] = %+v, want 50-65", ranges[1])
	}
}

func TestSelectedRangesNoneSelected(t *testing.T) {
	clips := []models.ClipRecord{
		{ID: "c1", StartSeconds: 10, EndSeconds: 20},
	}
	if got := selectedRanges(clips); len(got) != 0 {
		t.Errorf("got %d ranges, want 0", len(got))
	}
}
