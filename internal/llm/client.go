// Package llm extracts invoice data through OpenAI-compatible chat APIs.
// It backs the pipeline's fallback path for documents the layout parsers
// cannot read, and the only path for scanned pages.
package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultTimeout = 120 * time.Second
)

// Models reachable through the OpenRouter endpoint, in provider/model form.
const (
	ModelClaude35Sonnet = "anthropic/claude-3.5-sonnet"
	ModelClaude3Haiku   = "anthropic/claude-3-haiku"
	ModelGPT4oMini      = "openai/gpt-4o-mini"
	ModelGPT4o          = "openai/gpt-4o"
	ModelGeminiFlash    = "google/gemini-flash-1.5"
)

// Completion parameters for structured extraction: near-greedy sampling,
// with room for invoices that run to dozens of line items.
const (
	maxCompletionTokens = 4096
	samplingTemperature = 0.1
)

// Client speaks to one OpenAI-compatible endpoint. Text and multimodal
// requests share the same connection and credentials.
type Client struct {
	api          openai.Client
	defaultModel string
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL      string
	timeout      time.Duration
	defaultModel string
}

// WithBaseURL points the client at a different OpenAI-compatible endpoint
func WithBaseURL(url string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.baseURL = url
	}
}

// WithTimeout sets custom HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.timeout = timeout
	}
}

// WithDefaultModel sets the model used when a request names none
func WithDefaultModel(model string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.defaultModel = model
	}
}

// NewClient creates a client for the configured endpoint. The attribution
// headers identify this tool to OpenRouter's request routing.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	cfg := &clientConfig{
		baseURL:      DefaultBaseURL,
		timeout:      DefaultTimeout,
		defaultModel: ModelClaude35Sonnet,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	api := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
		option.WithHeader("HTTP-Referer", "https://github.com/rezonia/invoice-extractor"),
		option.WithHeader("X-Title", "Invoice Extractor"),
	)

	return &Client{
		api:          api,
		defaultModel: cfg.defaultModel,
	}
}

// ChatText sends a text-only completion request and returns the raw reply.
func (c *Client) ChatText(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	return c.complete(ctx, model, messages)
}

// ChatWithImage sends a multimodal completion request carrying one page
// image as a base64 data URL next to the prompt text.
func (c *Client) ChatWithImage(ctx context.Context, model, systemPrompt, userPrompt string, imageData []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))

	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(userPrompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}),
	}))

	return c.complete(ctx, model, messages)
}

func (c *Client) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		MaxTokens:   param.NewOpt[int64](maxCompletionTokens),
		Temperature: param.NewOpt[float64](samplingTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractJSON returns the JSON payload of a model reply, stripping any
// surrounding prose and markdown code fences.
func ExtractJSON(response string) string {
	if _, after, ok := strings.Cut(response, "```json"); ok {
		if body, _, closed := strings.Cut(after, "```"); closed {
			return strings.TrimSpace(body)
		}
	}
	if _, after, ok := strings.Cut(response, "```"); ok {
		// The opening fence line may carry a language tag.
		if _, rest, nl := strings.Cut(after, "\n"); nl {
			after = rest
		}
		if body, _, closed := strings.Cut(after, "```"); closed {
			return strings.TrimSpace(body)
		}
	}
	return strings.TrimSpace(response)
}
