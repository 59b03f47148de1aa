package factory

import (
	"fmt"

	"multimodal-rag-be/pkg/embedding"
	"multimodal-rag-be/pkg/embedding/jina"
)

func NewEmbeddingProvider(providerType, model, ollamaBaseURL, geminiKey, jinaKey string) (embedding.EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return embedding.NewOllamaProvider(ollamaBaseURL, model), nil
	case "gemini":
		if geminiKey == "" {
			return nil, fmt.Errorf("gemini embedding provider requires GOOGLE_GEMINI_API_KEY")
		}
		return embedding.NewGeminiProvider(geminiKey), nil
	case "jina":
		if jinaKey == "" {
			return nil, fmt.Errorf("jina embedding provider requires JINA_API_KEY")
		}
		return jina.NewJinaProvider(jinaKey), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
