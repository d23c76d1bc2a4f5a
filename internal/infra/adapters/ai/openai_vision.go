package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
	"tg-trade-suite/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.VisionAnalyzer = (*OpenAIVision)(nil)

const maxAttempts = 3

// OpenAIVision implements adapter.VisionAnalyzer using the Chat Completions
// API with an image_url content part. The image travels as a base64 data URL.
type OpenAIVision struct {
	apiKey      string
	base        string // e.g., https://api.openai.com/v1
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
	log         *zerolog.Logger
}

func NewOpenAIVision(apiKey, baseURL, model string, maxTokens int, temperature float64, log *zerolog.Logger) (*OpenAIVision, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o"
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &OpenAIVision{
		apiKey:      apiKey,
		base:        strings.TrimRight(baseURL, "/"),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
	}, nil
}

func (o *OpenAIVision) ModelName() string { return o.model }

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type visionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

func (o *OpenAIVision) AnalyzeChart(ctx context.Context, req adapter.VisionRequest) (*model.AnalysisResult, error) {
	prompt := visionPrompt
	if req.IndicatorSnapshot != "" {
		prompt += "\n\n" + req.IndicatorSnapshot
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.MimeType,
		base64.StdEncoding.EncodeToString(req.ImageData))

	body := struct {
		Model          string          `json:"model"`
		Messages       []visionMessage `json:"messages"`
		MaxTokens      int             `json:"max_tokens"`
		Temperature    float64         `json:"temperature"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}{
		Model: o.model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL, Detail: "high"}},
			},
		}},
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}
	body.ResponseFormat.Type = "json_object"

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncVisionRetry()
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		start := time.Now()
		result, err := o.call(ctx, b)
		metrics.ObserveVisionCall(o.model, int(time.Since(start).Milliseconds()), err == nil)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.log.Warn().Err(err).Int("attempt", attempt).Msg("vision call failed")
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisFailed, lastErr)
}

func (o *OpenAIVision) call(ctx context.Context, body []byte) (*model.AnalysisResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Choices) == 0 || payload.Choices[0].Message.Content == "" {
		return nil, errors.New("no choice content")
	}
	return ParseResult(payload.Choices[0].Message.Content)
}

// ParseResult decodes the model's JSON reply, tolerating markdown fences
// the model sometimes adds despite instructions, and normalizes the result.
func ParseResult(content string) (*model.AnalysisResult, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	var res model.AnalysisResult
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return nil, fmt.Errorf("parse analysis json: %w", err)
	}
	res.Normalize()
	return &res, nil
}
