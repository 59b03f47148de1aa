package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"multimodal-rag-be/internal/constant"
)

// OllamaDescriber asks a multimodal Ollama model to pick one label from a closed set.
type OllamaDescriber struct {
	BaseURL string
	Model   string
	Labels  []string
	Timeout time.Duration
	Client  *http.Client
}

var _ Describer = &OllamaDescriber{}

func NewOllamaDescriber(baseURL, model string, timeout time.Duration) *OllamaDescriber {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llava"
	}
	return &OllamaDescriber{
		BaseURL: baseURL,
		Model:   model,
		Labels:  constant.VisualLabels,
		Timeout: timeout,
		Client:  &http.Client{},
	}
}

type describeRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Images  []string `json:"images"`
	Stream  bool     `json:"stream"`
	Options struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

type describeResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (d *OllamaDescriber) Describe(ctx context.Context, imagePath string) Result {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return Unavailable(fmt.Sprintf("read image: %v", err))
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	reqBody := describeRequest{
		Model:  d.Model,
		Prompt: fmt.Sprintf(constant.VisualDescriberPrompt, strings.Join(d.Labels, "\n")),
		Images: []string{base64.StdEncoding.EncodeToString(raw)},
		Stream: false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Unavailable(fmt.Sprintf("marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/api/generate", bytes.NewBuffer(payload))
	if err != nil {
		return Unavailable(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return Unavailable(fmt.Sprintf("vision request failed: %v", err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Unavailable(fmt.Sprintf("vision error: status %d, body: %s", resp.StatusCode, string(body)))
	}

	var out describeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Unavailable(fmt.Sprintf("unmarshal response: %v", err))
	}
	if out.Error != "" {
		return Unavailable(out.Error)
	}

	label := MatchLabel(out.Response, d.Labels)
	if label == "" {
		return Unavailable(fmt.Sprintf("no known label in reply %q", strings.TrimSpace(out.Response)))
	}
	return Described(label)
}

// MatchLabel returns the longest label mentioned in reply, case-insensitively.
// Longest wins so "table screenshot" beats a bare "table".
func MatchLabel(reply string, labels []string) string {
	lower := strings.ToLower(reply)

	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	for _, label := range sorted {
		if strings.Contains(lower, strings.ToLower(label)) {
			return label
		}
	}
	return ""
}
