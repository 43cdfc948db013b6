// Package ark implements the backend adapter for ByteDance Ark models via
// the eino component stack.
package ark

import (
	"context"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/avelesov/neyra/internal/backend"
	"github.com/avelesov/neyra/internal/model/chat"
)

// Name is the routing identifier for this adapter.
const Name = "ark"

// Config holds the credentials for one Ark client.
type Config struct {
	APIKey  string
	BaseURL string
	Region  string
	Model   string
}

// Client is the Ark backend adapter.
type Client struct {
	chatModel model.ChatModel
	logger    zerolog.Logger
}

// New builds an Ark client from config.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	chatModel, err := einoark.NewChatModel(ctx, &einoark.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Region:  cfg.Region,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create ark chat model")
	}

	return &Client{
		chatModel: chatModel,
		logger:    logger.With().Str("backend", Name).Logger(),
	}, nil
}

// Name implements backend.Adapter.
func (c *Client) Name() string { return Name }

// Generate implements backend.Adapter.
func (c *Client) Generate(ctx context.Context, req backend.Request) (string, error) {
	messages := make([]*schema.Message, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, schema.SystemMessage(req.SystemPrompt))
	}
	for _, turn := range req.History {
		switch turn.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	messages = append(messages, schema.UserMessage(req.UserMessage))

	opts := []model.Option{}
	if req.Options.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Options.Temperature)))
	}
	if req.Options.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.Options.MaxTokens))
	}

	resp, err := c.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return "", classify(err)
	}

	return resp.Content, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return backend.NewError(backend.KindTimeout, Name, err)
	}
	return backend.NewError(backend.KindUpstream, Name, err)
}
