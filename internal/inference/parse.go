package inference

import (
	"encoding/json"
)

// HighlightDetectionPrompt is the default prompt sent with a video when the
// caller does not provide a custom one.
const HighlightDetectionPrompt = `You are a video highlight detection assistant. Watch the video and identify the most engaging moments.

Return ONLY a JSON object in this exact format:
{
  "clips": [
    {
      "start_time": "HH:MM:SS",
      "end_time": "HH:MM:SS",
      "description": "what happens in this moment",
      "highlight_type": "category of the highlight",
      "score": 0.0
    }
  ]
}

Rules:
- score is a number between 0 and 1 indicating how engaging the moment is
- clips must not overlap and must be listed in chronological order
- prefer moments with clear action, emotion, or key information
- return an empty clips array if nothing stands out`

// Candidate is one highlight clip proposed by the inference service, before
// validation and clamping.
type Candidate struct {
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	Description   string   `json:"description"`
	HighlightType string   `json:"highlight_type"`
	Score         *float64 `json:"score"`
}

type highlightPayload struct {
	Clips []Candidate `json:"clips"`
}

// ParseHighlights extracts the clip candidates from raw model output. The
// output may wrap a single JSON object in explanatory prose; the first
// balanced {...} block is used. Malformed or absent JSON degrades to an empty
// candidate list, never an error.
func ParseHighlights(content string) []Candidate {
	block := extractJSONObject(content)
	if block == "" {
		return nil
	}

	var payload highlightPayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return nil
	}

	return payload.Clips
}

// extractJSONObject returns the first balanced top-level {...} block in s,
// or "" when none exists. Braces inside JSON strings are ignored.
func extractJSONObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}

	return ""
}
