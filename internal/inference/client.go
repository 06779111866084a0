// Package inference calls the multimodal inference service that identifies
// highlight clips in a published video.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clipforge/highlight-pipeline/internal/metrics"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

var tracer = otel.Tracer("highlight-inference")

// Client talks to an OpenAI-compatible chat-completions endpoint that accepts
// video_url content parts. Calls are minutes-scale; the HTTP client timeout
// has to cover the whole inference run.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates an inference client. timeout bounds one full analyze
// call.
func NewClient(baseURL, apiKey, model string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	VideoURL *videoURL `json:"video_url,omitempty"`
}

type videoURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze submits the published video URL with the given prompt and returns
// the model's raw text content. The content may wrap the structured result in
// explanatory prose; ParseHighlights handles that.
func (c *Client) Analyze(ctx context.Context, publicVideoURL, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "inference-analyze")
	defer span.End()

	if prompt == "" {
		prompt = HighlightDetectionPrompt
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "video_url", VideoURL: &videoURL{URL: publicVideoURL}},
					{Type: "text", Text: prompt},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode request: %v", models.ErrInferenceFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInferenceFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Info("Calling inference service", "model", c.model, "videoUrl", publicVideoURL)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInferenceFailed, err)
	}
	defer resp.Body.Close()

	metrics.InferenceDuration.Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", models.ErrInferenceFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d: %s", models.ErrInferenceFailed, resp.StatusCode, truncate(string(respBody), 512))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", models.ErrInferenceFailed, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", models.ErrInferenceFailed)
	}

	content := parsed.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("inference.content_length", len(content)))

	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
