package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"multimodal-rag-be/internal/bootstrap"
	"multimodal-rag-be/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			LogFilePath:        dir + "/app.log",
			RagLogFilePath:     dir + "/rag.log",
			CorsAllowedOrigins: "*",
			UploadDir:          dir + "/uploads",
			ImageDir:           dir + "/images",
			IngestMode:         "sync",
		},
		Ai: config.AIConfig{
			EmbeddingProvider: "ollama",
			LLMProvider:       "ollama",
			VisionProvider:    "none",
		},
		Rag: config.RAGConfig{
			MinChunkLength:            80,
			MinImageDescriptionLength: 40,
			MaxTurns:                  6,
			TopK:                      6,
			VectorStore:               "memory",
			SessionStore:              "memory",
		},
	}
}

func TestServer_HealthzReportsStores(t *testing.T) {
	cfg := testConfig(t)
	container, err := bootstrap.NewContainer(nil, cfg)
	require.NoError(t, err)
	defer container.Close()

	resp, err := New(cfg, container).GetApp().Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "memory", body.Data["vector_store"])
	assert.Equal(t, "memory", body.Data["session_store"])
}

func TestServer_UnknownSessionHistoryIs404(t *testing.T) {
	cfg := testConfig(t)
	container, err := bootstrap.NewContainer(nil, cfg)
	require.NoError(t, err)
	defer container.Close()

	resp, err := New(cfg, container).GetApp().Test(httptest.NewRequest("GET", "/api/session/v1/missing/history", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
