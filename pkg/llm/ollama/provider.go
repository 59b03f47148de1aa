package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"multimodal-rag-be/pkg/llm"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client

	// StreamClient has no overall timeout; streams are bounded by the caller's context.
	StreamClient *http.Client

	Defaults llm.Options
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
		StreamClient: &http.Client{},
		Defaults: llm.Options{
			Temperature: 0.2,
			MaxTokens:   512,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) model(options *llm.Options) string {
	if options.Model != "" {
		return options.Model
	}
	return o.ModelName
}

func (o *OllamaProvider) modelOptions(options *llm.Options) *ollamaOptions {
	opts := &ollamaOptions{Temperature: options.Temperature}
	if options.MaxTokens > 0 {
		opts.NumPredict = options.MaxTokens
	}
	return opts
}

func (o *OllamaProvider) post(ctx context.Context, client *http.Client, path string, payload interface{}) (*http.Response, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+path, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	return resp, nil
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(o.Defaults, opts...)

	ollamaMessages := make([]ollamaMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		ollamaMessages[i] = ollamaMessage{
			Role:    role,
			Content: msg.Content,
		}
	}

	resp, err := o.post(ctx, o.Client, "/api/chat", ollamaChatRequest{
		Model:    o.model(options),
		Messages: ollamaMessages,
		Stream:   false,
		Options:  o.modelOptions(options),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var ollamaResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return ollamaResp.Message.Content, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(o.Defaults, opts...)

	resp, err := o.post(ctx, o.Client, "/api/generate", ollamaGenerateRequest{
		Model:   o.model(options),
		Prompt:  prompt,
		Stream:  false,
		Options: o.modelOptions(options),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var ollamaResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if ollamaResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", ollamaResp.Error)
	}

	return ollamaResp.Response, nil
}

func (o *OllamaProvider) GenerateStream(ctx context.Context, prompt string, opts ...llm.Option) (llm.TokenStream, error) {
	options := llm.ApplyOptions(o.Defaults, opts...)

	resp, err := o.post(ctx, o.StreamClient, "/api/generate", ollamaGenerateRequest{
		Model:   o.model(options),
		Prompt:  prompt,
		Stream:  true,
		Options: o.modelOptions(options),
	})
	if err != nil {
		return nil, err
	}

	return &generateStream{
		body:    resp.Body,
		decoder: json.NewDecoder(resp.Body),
	}, nil
}

// generateStream reads NDJSON objects until one carries done=true.
type generateStream struct {
	body    io.ReadCloser
	decoder *json.Decoder
	done    bool
}

func (s *generateStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}

		var chunk ollamaGenerateResponse
		if err := s.decoder.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				// body ended before the model said it was done
				return "", io.ErrUnexpectedEOF
			}
			return "", fmt.Errorf("read stream: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}

		if chunk.Done {
			s.done = true
		}
		if chunk.Response != "" {
			return chunk.Response, nil
		}
	}
}

func (s *generateStream) Close() error {
	return s.body.Close()
}
