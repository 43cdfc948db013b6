// Package gigachat implements the backend adapter for Sber's GigaChat API.
// GigaChat authenticates through a separate OAuth gateway: a Basic auth key
// is exchanged for a short-lived bearer token which is then used against the
// chat completion and model catalog endpoints.
package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/avelesov/neyra/internal/backend"
)

const (
	defaultOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	defaultBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"

	// Tokens live ~30 minutes; refresh this much before expiry.
	tokenRefreshMargin = 60 * time.Second
)

// Name is the routing identifier for this adapter.
const Name = "gigachat"

// Config holds the credentials and endpoints for one GigaChat client.
type Config struct {
	AuthKey     string
	Scope       string
	OAuthURL    string
	BaseURL     string
	Model       string
	InsecureTLS bool
	Timeout     time.Duration
}

type token struct {
	accessToken string
	expiresAt   time.Time
}

// Client is the GigaChat backend adapter.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger

	mu  sync.Mutex
	tok token
}

// New builds a GigaChat client from config.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = defaultOAuthURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "GigaChat:latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	transport := http.DefaultTransport
	if cfg.InsecureTLS {
		// The GigaChat endpoints present certificates signed by the
		// Russian trust chain, which is absent from most cert stores.
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger.With().Str("backend", Name).Logger(),
	}
}

// Name implements backend.Adapter.
func (c *Client) Name() string { return Name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements backend.Adapter.
func (c *Client) Generate(ctx context.Context, req backend.Request) (string, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, turn := range req.History {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserMessage})

	payload := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", backend.NewError(backend.KindUpstream, Name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", backend.NewError(backend.KindUpstream, Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", backend.NewError(backend.KindUpstream, Name, errors.Wrap(err, "decode chat response"))
	}
	if len(parsed.Choices) == 0 {
		return "", backend.NewError(backend.KindUpstream, Name, errors.New("chat response has no choices"))
	}

	return parsed.Choices[0].Message.Content, nil
}

// Models implements backend.Cataloger against the /models endpoint.
func (c *Client) Models(ctx context.Context) ([]backend.ModelInfo, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, backend.NewError(backend.KindUpstream, Name, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var parsed struct {
		Data []struct {
			ID      string `json:"id"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, backend.NewError(backend.KindUpstream, Name, errors.Wrap(err, "decode models response"))
	}

	models := make([]backend.ModelInfo, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		models = append(models, backend.ModelInfo{ID: m.ID, OwnedBy: m.OwnedBy, Backend: Name})
	}
	return models, nil
}

// accessToken returns a cached bearer token, exchanging the auth key for a
// fresh one when the cached token is missing or close to expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tok.accessToken != "" && time.Until(c.tok.expiresAt) > tokenRefreshMargin {
		return c.tok.accessToken, nil
	}

	c.logger.Debug().Msg("requesting new access token")

	form := url.Values{"scope": {c.cfg.Scope}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", backend.NewError(backend.KindUpstream, Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+c.cfg.AuthKey)
	httpReq.Header.Set("RqUID", uuid.NewString())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return "", backend.NewError(backend.KindAuth, Name,
				errors.Errorf("oauth rejected: %d %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
		return "", classifyStatus(resp)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", backend.NewError(backend.KindUpstream, Name, errors.Wrap(err, "decode oauth response"))
	}
	if parsed.AccessToken == "" {
		return "", backend.NewError(backend.KindAuth, Name, errors.New("oauth response has no access_token"))
	}

	expiresAt := time.Now().Add(30 * time.Minute)
	if parsed.ExpiresAt > 0 {
		expiresAt = time.UnixMilli(parsed.ExpiresAt)
	}
	c.tok = token{accessToken: parsed.AccessToken, expiresAt: expiresAt}
	return c.tok.accessToken, nil
}

func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := errors.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return backend.NewError(backend.KindRateLimited, Name, err)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return backend.NewError(backend.KindAuth, Name, err)
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return backend.NewError(backend.KindTimeout, Name, err)
	default:
		return backend.NewError(backend.KindUpstream, Name, err)
	}
}

func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return backend.NewError(backend.KindTimeout, Name, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return backend.NewError(backend.KindTimeout, Name, err)
	}
	return backend.NewError(backend.KindUpstream, Name, err)
}
