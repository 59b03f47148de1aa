package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "figure.png")
	require.NoError(t, os.WriteFile(path, []byte("not-really-a-png"), 0o644))
	return path
}

func TestMatchLabel(t *testing.T) {
	labels := []string{"chart", "table screenshot", "graph", "spinal cord"}

	tests := []struct {
		reply string
		want  string
	}{
		{"Chart", "chart"},
		{"This looks like a Table Screenshot.", "table screenshot"},
		{"  spinal cord\n", "spinal cord"},
		{"a photo of a cat", ""},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchLabel(tt.reply, labels))
		})
	}
}

func TestOllamaDescriberDescribed(t *testing.T) {
	path := writeImage(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req describeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llava", req.Model)
		require.Len(t, req.Images, 1)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("not-really-a-png")), req.Images[0])
		assert.Contains(t, req.Prompt, "flowchart")

		fmt.Fprint(w, `{"response":"Flowchart"}`)
	}))
	defer server.Close()

	result := NewOllamaDescriber(server.URL, "", time.Second).Describe(context.Background(), path)
	assert.True(t, result.IsDescribed())
	assert.Equal(t, "flowchart", result.Label())
}

func TestOllamaDescriberUnavailable(t *testing.T) {
	path := writeImage(t)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer failing.Close()

	unknown := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":"a sunset"}`)
	}))
	defer unknown.Close()

	tests := []struct {
		name string
		url  string
		path string
	}{
		{"missing file", failing.URL, filepath.Join(t.TempDir(), "missing.png")},
		{"server error", failing.URL, path},
		{"unknown label", unknown.URL, path},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewOllamaDescriber(tt.url, "llava", time.Second).Describe(context.Background(), tt.path)
			assert.False(t, result.IsDescribed())
			assert.NotEmpty(t, result.Reason())
		})
	}
}

func TestNoopDescriber(t *testing.T) {
	result := NoopDescriber{}.Describe(context.Background(), "x.png")
	assert.False(t, result.IsDescribed())
	assert.Equal(t, "visual describer disabled", result.Reason())
}
