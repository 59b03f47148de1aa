package response

import (
	"context"
	"time"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/llm"
	"multimodal-rag-be/pkg/rag/errs"
)

// Generator calls the generative model with the configured sampling options and deadline.
// Every failure it returns is an UpstreamError.
type Generator struct {
	llmProvider llm.LLMProvider
	options     []llm.Option
	timeout     time.Duration
	logger      logger.ILogger
}

func NewGenerator(llmProvider llm.LLMProvider, timeout time.Duration, log logger.ILogger, options ...llm.Option) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		options:     options,
		timeout:     timeout,
		logger:      log,
	}
}

func (g *Generator) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// Generate returns the whole answer in one call.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()

	answer, err := g.llmProvider.Generate(ctx, prompt, g.options...)
	if err != nil {
		g.logger.Error("GENERATION", "LLM generation failed", map[string]interface{}{"error": err.Error()})
		return "", errs.Upstream("generation", err)
	}
	return answer, nil
}

// Stream opens a token stream. The deadline covers the whole stream and is
// released when the returned stream is closed.
func (g *Generator) Stream(ctx context.Context, prompt string) (llm.TokenStream, error) {
	ctx, cancel := g.withDeadline(ctx)

	stream, err := g.llmProvider.GenerateStream(ctx, prompt, g.options...)
	if err != nil {
		cancel()
		g.logger.Error("GENERATION", "LLM stream failed to open", map[string]interface{}{"error": err.Error()})
		return nil, errs.Upstream("generation", err)
	}
	return &deadlineStream{TokenStream: stream, ctx: ctx, cancel: cancel}, nil
}

// NotFoundMessage is the fixed answer used when no grounding is available.
func (g *Generator) NotFoundMessage() string {
	return constant.NotFoundAnswer
}

type deadlineStream struct {
	llm.TokenStream
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *deadlineStream) Recv() (string, error) {
	token, err := s.TokenStream.Recv()
	if err != nil && s.ctx.Err() != nil {
		// report the cancellation or deadline rather than the transport error it caused
		return "", s.ctx.Err()
	}
	return token, err
}

func (s *deadlineStream) Close() error {
	defer s.cancel()
	return s.TokenStream.Close()
}
