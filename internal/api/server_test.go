package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yargnad/The-Crystalizer/internal/config"
	"github.com/yargnad/The-Crystalizer/internal/controller"
	"github.com/yargnad/The-Crystalizer/internal/export"
	"github.com/yargnad/The-Crystalizer/internal/persona"
	"github.com/yargnad/The-Crystalizer/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	ctrl := controller.New(controller.Options{
		KV:        store.NewMemory(),
		Platforms: config.DefaultPlatforms(),
		Logger:    log,
	})
	_, err := ctrl.Init(context.Background())
	require.NoError(t, err)
	return NewServer("127.0.0.1:0", ctrl, log)
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

const scrapeBody = `{"data":{"chatId":"c1","platformId":"claude","platformName":"Claude","timestamp":10,
"exchanges":[
 {"speaker":"user","text":"hello","timestamp":10,"index":0},
 {"speaker":"model","text":"hi","timestamp":11,"index":1},
 {"speaker":"user","text":"bye","timestamp":20,"index":2},
 {"speaker":"model","text":"later","timestamp":21,"index":3}]}}`

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFullFlow(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", bytes.NewBufferString(scrapeBody))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, srv, http.MethodPost, "/api/v1/personas", map[string]any{"name": "Chat", "addToQueue": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p persona.Persona
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Len(t, p.Exchanges, 2)

	w = do(t, srv, http.MethodPost, "/api/v1/step/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var step stepResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&step))
	assert.Equal(t, controller.StepPrune, step.Step)
	assert.Nil(t, step.Notice)

	w = do(t, srv, http.MethodPost, "/api/v1/prune/0/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var counts map[string]int
	require.NoError(t, json.NewDecoder(w.Body).Decode(&counts))
	assert.Equal(t, 1, counts["selectedCount"])

	w = do(t, srv, http.MethodPost, "/api/v1/prune/9/toggle", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out export.Output
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, 1, out.Count)
	assert.Contains(t, out.Document, "bye")
	assert.NotContains(t, out.Document, "hello")

	w = do(t, srv, http.MethodPost, "/api/v1/prune/deselect-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, srv, http.MethodGet, "/api/v1/export", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap controller.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, controller.StepPrune, snap.Step)
	assert.Equal(t, []string{p.ID}, snap.Queue)
	assert.Zero(t, snap.SelectedCount)
}

func TestStepPreconditionRedirects(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/api/v1/step/4", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var step stepResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&step))
	assert.Equal(t, controller.StepPersonas, step.Step)
	require.NotNil(t, step.Notice)
	assert.Equal(t, controller.LevelWarning, step.Notice.Level)

	w = do(t, srv, http.MethodPost, "/api/v1/step/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/v1/personas", map[string]any{"name": "nothing scraped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/queue/persona-missing", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/merge", map[string]string{"strategy": "random"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/merge", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty queue")

	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Contains(t, body.Error, "merge queue is empty")
}

func TestScrapeWithoutBrowser(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/api/v1/scrape", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.NotNil(t, body.Notice)
	assert.Equal(t, controller.LevelWarning, body.Notice.Level)
}
