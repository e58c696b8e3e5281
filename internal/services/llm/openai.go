package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog/log"

	"news-temperature/internal/failure"
)

const (
	DefaultModel = "gpt-4o-mini"

	maxPromptRunes = 3000
	promptHead     = 2000
	promptTail     = 1000
)

const sentimentPrompt = `You are a news sentiment analyst. Read the article and judge its overall tone.

Respond with JSON only:
{"label": "positive" | "neutral" | "negative", "score": 0.0-1.0, "confidence": 0.0-1.0}

score: 0.0 very negative, 0.5 neutral, 1.0 very positive.
positive: growth, progress, success, improvement, innovation, investment, cooperation, awards, optimistic outlook.
negative: decline, crisis, problems, accidents, failure, losses, concerns, warnings, pessimistic outlook.
neutral: factual reporting without a clear tone.`

const summaryPrompt = `Summarize the news article in 2-3 sentences in the same language as the article. Return only the summary.`

// OpenAIConfig configures the remote backend.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAIClient is the remote backend backed by chat completions.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds the remote backend. The SDK's own retries are
// disabled; retry policy belongs to the caller.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, failure.New(failure.MissingCredential, "openai", errors.New("OpenAI API key is required"))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *OpenAIClient) Name() string {
	return "openai:" + c.model
}

func (c *OpenAIClient) Capabilities() []Capability {
	return AllCapabilities
}

func (c *OpenAIClient) Summarize(ctx context.Context, text string) (string, error) {
	if Unusable(text) {
		return "", nil
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summaryPrompt),
			openai.UserMessage(TruncateForPrompt(text)),
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(300),
	})
	if err != nil {
		return "", classifyError("summarize", err)
	}
	if len(resp.Choices) == 0 {
		return "", failure.New(failure.InferenceError, "summarize", errors.New("no choices in response"))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type sentimentReply struct {
	Label      string   `json:"label"`
	Score      *float64 `json:"score"`
	Confidence *float64 `json:"confidence"`
}

func (c *OpenAIClient) ClassifySentiment(ctx context.Context, text string) (Label, float64, error) {
	if Unusable(text) {
		return Neutral, 0, nil
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(sentimentPrompt),
			openai.UserMessage(TruncateForPrompt(text)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(200),
	})
	if err != nil {
		return Neutral, 0, classifyError("classify", err)
	}
	if len(resp.Choices) == 0 {
		return Neutral, 0, failure.New(failure.InferenceError, "classify", errors.New("no choices in response"))
	}

	var reply sentimentReply
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return Neutral, 0, failure.New(failure.InferenceError, "classify", fmt.Errorf("parse model output: %w", err))
	}

	label, confidence := normalizeReply(reply)
	log.Debug().Str("label", string(label)).Float64("confidence", confidence).Msg("Remote sentiment")
	return label, confidence, nil
}

// normalizeReply maps the model output onto a label and confidence. An
// unknown label is derived from the score; a missing confidence is the
// score's distance from neutral.
func normalizeReply(r sentimentReply) (Label, float64) {
	score := 0.5
	if r.Score != nil {
		score = clamp01(*r.Score)
	}

	var label Label
	switch strings.ToLower(strings.TrimSpace(r.Label)) {
	case "positive":
		label = Positive
	case "negative":
		label = Negative
	case "neutral":
		label = Neutral
	default:
		switch {
		case score >= 0.7:
			label = Positive
		case score <= 0.3:
			label = Negative
		default:
			label = Neutral
		}
	}

	if r.Confidence != nil {
		return label, clamp01(*r.Confidence)
	}
	if label == Neutral {
		return label, clamp01(1 - abs(score-0.5)*2)
	}
	return label, clamp01(abs(score-0.5) * 2)
}

// TruncateForPrompt keeps long articles within the provider-safe size by
// joining the first 2000 and last 1000 runes.
func TruncateForPrompt(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPromptRunes {
		return text
	}
	return string(runes[:promptHead]) + " " + string(runes[len(runes)-promptTail:])
}

// classifyError sorts transport and API errors into the failure taxonomy.
func classifyError(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusTooManyRequests:
			return failure.New(failure.RateLimited, op, err)
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return failure.New(failure.AuthError, op, err)
		case code == http.StatusRequestTimeout || code >= http.StatusInternalServerError:
			return failure.New(failure.Timeout, op, err)
		default:
			return failure.New(failure.InferenceError, op, err)
		}
	}

	// Anything without an API status is a transport failure; retry it.
	return failure.New(failure.Timeout, op, err)
}
