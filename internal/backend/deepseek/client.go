// Package deepseek implements the backend adapter for the DeepSeek API,
// which speaks the OpenAI chat-completion protocol on its own base URL.
package deepseek

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/avelesov/neyra/internal/backend"
)

// Name is the routing identifier for this adapter.
const Name = "deepseek"

const defaultBaseURL = "https://api.deepseek.com"

// Config holds the credentials for one DeepSeek client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client is the DeepSeek backend adapter.
type Client struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// New builds a DeepSeek client from config.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger.With().Str("backend", Name).Logger(),
	}
}

// Name implements backend.Adapter.
func (c *Client) Name() string { return Name }

// Generate implements backend.Adapter.
func (c *Client) Generate(ctx context.Context, req backend.Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, turn := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(req.Options.Temperature),
		MaxTokens:   req.Options.MaxTokens,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", backend.NewError(backend.KindUpstream, Name, errors.New("chat response has no choices"))
	}

	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return backend.NewError(backend.KindTimeout, Name, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return backend.NewError(backend.KindRateLimited, Name, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return backend.NewError(backend.KindAuth, Name, err)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return backend.NewError(backend.KindTimeout, Name, err)
		}
	}
	return backend.NewError(backend.KindUpstream, Name, err)
}
