package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelesov/neyra/internal/backend"
	"github.com/avelesov/neyra/internal/model/persona"
)

func newTestServer(t *testing.T, status int, reply string, capture *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			_ = json.NewDecoder(r.Body).Decode(capture)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "nope", "type": "invalid_request_error"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, http.StatusOK, "hello from deepseek", &captured)
	client := New(Config{APIKey: "sk-test", BaseURL: srv.URL}, zerolog.Nop())

	reply, err := client.Generate(context.Background(), backend.Request{
		SystemPrompt: "be brief",
		History:      []backend.Turn{{Role: "user", Content: "earlier"}},
		UserMessage:  "ping",
		Options:      persona.Options{Temperature: 0.7, MaxTokens: 128},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello from deepseek", reply)

	assert.Equal(t, "deepseek-chat", captured["model"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 3)
}

func TestAuthFailureClassification(t *testing.T) {
	srv := newTestServer(t, http.StatusUnauthorized, "", nil)
	client := New(Config{APIKey: "sk-bad", BaseURL: srv.URL}, zerolog.Nop())

	_, err := client.Generate(context.Background(), backend.Request{UserMessage: "ping"})
	require.Error(t, err)
	assert.Equal(t, backend.KindAuth, backend.KindOf(err))
}

func TestRateLimitClassification(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests, "", nil)
	client := New(Config{APIKey: "sk-test", BaseURL: srv.URL}, zerolog.Nop())

	_, err := client.Generate(context.Background(), backend.Request{UserMessage: "ping"})
	require.Error(t, err)
	assert.Equal(t, backend.KindRateLimited, backend.KindOf(err))
}

func TestCancelledContextIsTimeout(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "late", nil)
	client := New(Config{APIKey: "sk-test", BaseURL: srv.URL}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, backend.Request{UserMessage: "ping"})
	require.Error(t, err)
	assert.Equal(t, backend.KindTimeout, backend.KindOf(err))
}
