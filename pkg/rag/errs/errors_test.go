package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamErrorMatching(t *testing.T) {
	err := Upstream("llm", context.DeadlineExceeded)
	wrapped := fmt.Errorf("run: %w", err)

	assert.True(t, IsUpstream(wrapped))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
	assert.False(t, IsNotFound(wrapped))

	var ue *UpstreamError
	assert.True(t, errors.As(wrapped, &ue))
	assert.Equal(t, "llm", ue.Service)
}

func TestUpstreamDoesNotDoubleWrap(t *testing.T) {
	inner := Upstream("embedding", errors.New("boom"))
	outer := Upstream("llm", inner)

	var ue *UpstreamError
	assert.True(t, errors.As(outer, &ue))
	assert.Equal(t, "embedding", ue.Service)
	assert.Nil(t, Upstream("llm", nil))
}

func TestNotFound(t *testing.T) {
	err := NotFound("document %s", "a.pdf")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "document a.pdf: not found", err.Error())
}
