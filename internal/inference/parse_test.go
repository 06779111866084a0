package inference

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"clips": []}`,
			want:  `{"clips": []}`,
		},
		{
			name:  "prose around object",
			input: "Here are the highlights I found:\n\n{\"clips\": [{\"score\": 0.9}]}\n\nLet me know if you need more.",
			want:  `{"clips": [{"score": 0.9}]}`,
		},
		{
			name:  "nested braces",
			input: `result: {"clips": [{"a": {"b": 1}}]} done`,
			want:  `{"clips": [{"a": {"b": 1}}]}`,
		},
		{
			name:  "brace inside string",
			input: `{"clips": [{"description": "the } character"}]}`,
			want:  `{"clips": [{"description": "the } character"}]}`,
		},
		{
			name:  "escaped quote inside string",
			input: `{"clips": [{"description": "a \"quoted\" moment"}]}`,
			want:  `{"clips": [{"description": "a \"quoted\" moment"}]}`,
		},
		{
			name:  "no object",
			input: "I could not find any highlights in this video.",
			want:  "",
		},
		{
			name:  "unbalanced object",
			input: `{"clips": [`,
			want:  "",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONObject(tt.input); got != tt.want {
				t.Errorf("extractJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseHighlights(t *testing.T) {
	content := `The video contains two notable moments.

{
  "clips": [
    {"start_time": "00:01:10", "end_time": "00:01:35", "description": "goal", "highlight_type": "action", "score": 0.92},
    {"start_time": "02:30", "end_time": "02:55", "description": "celebration", "highlight_type": "emotion", "score": 0.7}
  ]
}`

	clips := ParseHighlights(content)
	if len(clips) != 2 {
		t.Fatalf("len(clips) = %d, want 2", len(clips))
	}

	if clips[0].StartTime != "00:01:10" || clips[0].EndTime != "00:01:35" {
		t.Errorf("clips[0] range = %s-%s", clips[0].StartTime, clips[0].EndTime)
	}
	if clips[0].Score == nil || *clips[0].Score != 0.92 {
		t.Errorf("clips[0].Score = %v, want 0.92", clips[0].Score)
	}
	if clips[1].HighlightType != "emotion" {
		t.Errorf("clips[1].HighlightType = %s, want emotion", clips[1].HighlightType)
	}
}

func TestParseHighlightsDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no json at all", "sorry, I cannot process this video"},
		{"malformed json", `{"clips": [{"start_time": }`},
		{"wrong shape", `{"highlights": "none"}`},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if clips := ParseHighlights(tt.content); len(clips) != 0 {
				t.Errorf("ParseHighlights() = %v, want empty", clips)
			}
		})
	}
}
