// Package genai wraps the OpenAI API for generating coach replies.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"whatscoach/internal/models"
)

// Default generation parameters. The token ceiling keeps replies short
// enough for WhatsApp; the temperature matches the coaching register.
const (
	DefaultModel       = openai.ChatModelGPT4oMini
	DefaultMaxTokens   = 200
	DefaultTemperature = 0.7
)

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openAIChatService adapts the OpenAI client to chatService.
type openAIChatService struct {
	client openai.Client
}

func (s *openAIChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the completion client.
type Opts struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Option defines a configuration option for the completion client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTokenLimit overrides the per-reply token ceiling.
func WithTokenLimit(limit int64) Option {
	return func(o *Opts) { o.MaxTokens = limit }
}

// Client generates coach replies via the OpenAI chat completion API.
type Client struct {
	chat        chatService
	model       string
	maxTokens   int64
	temperature float64
}

// NewClient initializes a completion client, falling back to the
// OPENAI_API_KEY environment variable when no key option is given.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: DefaultModel, MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		chat:        &openAIChatService{client: cli},
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// GenerateReply produces one coach reply from the fixed system instructions,
// the per-user context summary, and the bounded conversation history.
// A provider response without content yields models.ErrNoReply so the caller
// can substitute its fallback without treating the turn as failed.
func (c *Client) GenerateReply(ctx context.Context, systemPrompt, contextSummary string, history []models.Turn) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.SystemMessage(contextSummary),
	}
	for _, turn := range history {
		switch turn.Role {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(c.temperature),
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("Client.GenerateReply: completion request failed", "error", err)
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("Client.GenerateReply: completion returned no content", "choices", len(resp.Choices))
		return "", models.ErrNoReply
	}
	return resp.Choices[0].Message.Content, nil
}
