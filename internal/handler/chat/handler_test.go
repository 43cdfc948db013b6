package chat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelesov/neyra/internal/backend"
	"github.com/avelesov/neyra/internal/backend/backendtest"
	"github.com/avelesov/neyra/internal/export"
	"github.com/avelesov/neyra/internal/model/persona"
	"github.com/avelesov/neyra/internal/ratelimit"
	"github.com/avelesov/neyra/internal/service/dialog"
	"github.com/avelesov/neyra/internal/store"
)

func setupRouter(t *testing.T, limiter *ratelimit.Limiter, script ...backendtest.Result) *chi.Mux {
	t.Helper()

	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	adapter := backendtest.New("modela", script...)
	svc, err := dialog.NewService(st, persona.NewMemoryStore(persona.Seed()),
		[]backend.Adapter{adapter}, dialog.DefaultDetector,
		dialog.Config{DefaultModel: "modela"}, zerolog.Nop())
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, limiter).RegisterRoutes(r)
	return r
}

func postMessage(t *testing.T, r http.Handler, userID, text string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"userId": userID, "text": text})
	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestPostMessage(t *testing.T) {
	r := setupRouter(t, nil, backendtest.Result{Reply: "hello back"})

	resp := postMessage(t, r, "alice", "hello")
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "hello back", body["reply"])
}

func TestPostMessageMissingFields(t *testing.T) {
	r := setupRouter(t, nil)

	resp := postMessage(t, r, "", "hello")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = postMessage(t, r, "alice", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPostMessageInvalidBody(t *testing.T) {
	r := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader([]byte("{")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUnknownModelDirectiveIsBadRequest(t *testing.T) {
	r := setupRouter(t, nil)

	resp := postMessage(t, r, "alice", "/model bogus")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBackendFailureIsBadGateway(t *testing.T) {
	timeout := backend.NewError(backend.KindTimeout, "modela", assert.AnError)
	r := setupRouter(t, nil,
		backendtest.Result{Err: timeout},
		backendtest.Result{Err: timeout},
	)

	resp := postMessage(t, r, "alice", "hello")
	require.Equal(t, http.StatusBadGateway, resp.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, FailureReply, body["error"])
}

func TestRateLimited(t *testing.T) {
	r := setupRouter(t, ratelimit.New(0, 1))

	resp := postMessage(t, r, "alice", "hello")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = postMessage(t, r, "alice", "again")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	r := setupRouter(t, nil)

	postMessage(t, r, "alice", "hello")

	req := httptest.NewRequest(http.MethodGet, "/history/alice", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		UserID    string           `json:"userId"`
		Exchanges []map[string]any `json:"exchanges"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.UserID)
	assert.Len(t, body.Exchanges, 2)
}

func TestExportEndpointRoundTrips(t *testing.T) {
	r := setupRouter(t, nil)

	postMessage(t, r, "alice", "hello")

	req := httptest.NewRequest(http.MethodGet, "/export/alice?format=json", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	importer := &export.JSONExporter{}
	transcript, err := importer.Import(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "alice", transcript.UserID)
	assert.Len(t, transcript.Exchanges, 2)
}

func TestExportUnknownFormat(t *testing.T) {
	r := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/export/alice?format=xml", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestResetEndpoint(t *testing.T) {
	r := setupRouter(t, nil)

	postMessage(t, r, "alice", "hello")

	req := httptest.NewRequest(http.MethodPost, "/reset/alice", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/history/alice", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var body struct {
		Exchanges []map[string]any `json:"exchanges"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Empty(t, body.Exchanges)
}

func TestModelsEndpoint(t *testing.T) {
	r := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Models []map[string]string `json:"models"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Models, 1)
	assert.Equal(t, "modela", body.Models[0]["id"])
}
