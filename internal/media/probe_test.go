package media

import (
	"math"
	"testing"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		expr    string
		want    float64
		wantErr bool
	}{
		{"30/1", 30, false},
		{"30000/1001", 29.97002997002997, false},
		{"25", 25, false},
		{"24000/1001", 23.976023976023978, false},
		{"0/0", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"30/abc", 0, true},
		{"1e3/1", 0, true},
		{"__import__('os')", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := parseFrameRate(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFrameRate(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("parseFrameRate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParseProbeOutput(t *testing.T) {
	payload := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001"}
		],
		"format": {"duration": "634.567000", "bit_rate": "2500000"}
	}`)

	info, err := parseProbeOutput(payload)
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}

	if info.Duration != 634.567 {
		t.Errorf("Duration = %v, want 634.567", info.Duration)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", info.Width, info.Height)
	}
	if info.Codec != "h264" {
		t.Errorf("Codec = %s, want h264", info.Codec)
	}
	if info.Bitrate != 2500000 {
		t.Errorf("Bitrate = %d, want 2500000", info.Bitrate)
	}
	if math.Abs(info.FPS-29.97002997002997) > 1e-9 {
		t.Errorf("FPS = %v, want 29.97...", info.FPS)
	}
}

func TestParseProbeOutputNoVideoStream(t *testing.T) {
	payload := []byte(`{
		"streams": [{"codec_type": "audio", "codec_name": "mp3"}],
		"format": {"duration": "120.0"}
	}`)

	info, err := parseProbeOutput(payload)
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}

	if info.Duration != 120 {
		t.Errorf("Duration = %v, want 120", info.Duration)
	}
	if info.Width != 0 || info.Codec != "" {
		t.Errorf("expected zero video fields, got width=%d codec=%q", info.Width, info.Codec)
	}
}

func TestParseProbeOutputMalformed(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Error("parseProbeOutput() with malformed input should fail")
	}
}
