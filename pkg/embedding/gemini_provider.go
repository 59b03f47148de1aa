package embedding

import (
	"context"
	"fmt"
	"net/http"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

type GeminiProvider struct {
	ApiKey   string
	Model    string
	TaskType string
	BaseURL  string
	Client   *http.Client
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		ApiKey:   apiKey,
		Model:    "text-embedding-004",
		TaskType: "SEMANTIC_SIMILARITY",
		BaseURL:  geminiBaseURL,
		Client:   &http.Client{},
	}
}

func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	modelPath := "models/" + p.Model
	batch := geminiBatchRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, text := range texts {
		batch.Requests[i] = geminiEmbedRequest{
			Model:    modelPath,
			Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType: p.TaskType,
		}
	}

	header := http.Header{}
	header.Set("x-goog-api-key", p.ApiKey)

	var resEmbedding geminiBatchResponse
	endpoint := fmt.Sprintf("%s/%s:batchEmbedContents", p.BaseURL, modelPath)
	if err := PostJSON(ctx, p.Client, endpoint, header, batch, &resEmbedding); err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	if err := CheckCount("gemini", len(resEmbedding.Embeddings), len(texts)); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(resEmbedding.Embeddings))
	for i, e := range resEmbedding.Embeddings {
		vectors[i] = e.Values
	}
	return NormalizeAll(vectors), nil
}
