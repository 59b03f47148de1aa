package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// OllamaProvider embeds through a local Ollama daemon (/api/embed accepts a batch).
type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type ollamaEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var resp ollamaEmbeddingResponse
	err := PostJSON(ctx, p.Client, p.BaseURL+"/api/embed", nil,
		ollamaEmbeddingRequest{Model: p.Model, Input: texts}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama embedding error: %s", resp.Error)
	}
	if err := CheckCount("ollama", len(resp.Embeddings), len(texts)); err != nil {
		return nil, err
	}

	return NormalizeAll(resp.Embeddings), nil
}
