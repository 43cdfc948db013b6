package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelesov/neyra/internal/model/chat"
)

func sampleTranscript() Transcript {
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return Transcript{
		UserID: "alice",
		Exchanges: []chat.Exchange{
			{
				ID: "ex-1", UserID: "alice", TurnIndex: 0, Role: chat.RoleUser,
				Content: "hello", ModelUsed: "gigachat", PersonaUsed: "neutral",
				CreatedAt: base,
			},
			{
				ID: "ex-2", UserID: "alice", TurnIndex: 1, Role: chat.RoleAssistant,
				Content: "hi, how can I help?", ModelUsed: "gigachat", PersonaUsed: "neutral",
				CreatedAt: base.Add(2 * time.Second),
			},
			{
				ID: "ex-3", UserID: "alice", TurnIndex: 2, Role: chat.RoleUser,
				Content: "tell me a story\nwith two lines", ModelUsed: "deepseek", PersonaUsed: "creative",
				CreatedAt: base.Add(time.Minute),
			},
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	e := &JSONExporter{}
	var buf bytes.Buffer

	require.NoError(t, e.Export(sampleTranscript(), &buf))

	got, err := e.Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleTranscript(), got)
}

func TestJSONLRoundTrip(t *testing.T) {
	e := &JSONLExporter{}
	var buf bytes.Buffer

	require.NoError(t, e.Export(sampleTranscript(), &buf))

	got, err := e.Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleTranscript(), got)
}

func TestMarkdownIncludesProvenance(t *testing.T) {
	e := &MarkdownExporter{}
	var buf bytes.Buffer

	require.NoError(t, e.Export(sampleTranscript(), &buf))

	out := buf.String()
	assert.Contains(t, out, "# Conversation alice")
	assert.Contains(t, out, "gigachat")
	assert.Contains(t, out, "hello")
}

func TestTextTranscript(t *testing.T) {
	e := &TextExporter{}
	var buf bytes.Buffer

	require.NoError(t, e.Export(sampleTranscript(), &buf))

	out := buf.String()
	assert.Contains(t, out, "Conversation alice (3 messages)")
	assert.Contains(t, out, "Bot (gigachat)")
}

func TestNewExporterUnknownFormat(t *testing.T) {
	_, err := NewExporter("xml")
	assert.Error(t, err)
}

func TestNewExporterDefaultsToJSON(t *testing.T) {
	e, err := NewExporter("")
	require.NoError(t, err)
	assert.Equal(t, "json", e.Extension())
}
