package executor

import (
	"context"
	"fmt"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/rag/history"
	"multimodal-rag-be/pkg/rag/prompt"
	"multimodal-rag-be/pkg/rag/response"
	"multimodal-rag-be/pkg/rag/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PipelineExecutor runs one question through memory, retrieval, prompting and generation.
//
// Per request: user turn appended -> retrieved -> either the fixed not-found
// answer, or prompted -> generated -> assistant turn appended. The session is
// locked for the whole request, including the full life of a stream.
type PipelineExecutor struct {
	memory    *history.Manager
	retriever *search.Retriever
	builder   prompt.Builder
	generator *response.Generator
	defaultK  int
	logger    logger.ILogger
}

func NewPipelineExecutor(
	memory *history.Manager,
	retriever *search.Retriever,
	builder prompt.Builder,
	generator *response.Generator,
	defaultK int,
	log logger.ILogger,
) *PipelineExecutor {
	if defaultK <= 0 {
		defaultK = search.DefaultTopK
	}
	return &PipelineExecutor{
		memory:    memory,
		retriever: retriever,
		builder:   builder,
		generator: generator,
		defaultK:  defaultK,
		logger:    log,
	}
}

// Result of an atomic run. Answer is exactly what was persisted.
type Result struct {
	Answer    string
	Grounding []entity.RetrievalResult
	Citations []response.Citation
}

// Grounded reports whether any chunk backed the answer.
func (r *Result) Grounded() bool {
	return len(r.Grounding) > 0
}

// Composed is the answer followed by its "Sources:" block.
func (r *Result) Composed() string {
	return response.AppendCitations(r.Answer, r.Grounding)
}

// prepared is the shared state after retrieval.
type prepared struct {
	conv      *history.Conversation
	grounding []entity.RetrievalResult
	prompt    string
}

func (p *PipelineExecutor) startSpan(ctx context.Context, mode, sessionId string, k int) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("multimodal-rag-be/rag").Start(ctx, "rag.run")
	span.SetAttributes(
		attribute.String("rag.mode", mode),
		attribute.String("rag.session_id", sessionId),
		attribute.Int("rag.k", k),
	)
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// prepare appends the user turn, retrieves, and builds the prompt. An empty
// grounding persists the not-found answer and returns a nil prompt state.
func (p *PipelineExecutor) prepare(ctx context.Context, query, sessionId string, k int) (*prepared, error) {
	conv, err := p.memory.Load(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if err := conv.AppendUser(ctx, query); err != nil {
		return nil, err
	}
	historyContext := conv.RenderContext()

	grounding, err := p.retriever.Retrieve(ctx, query, sessionId, k)
	if err != nil {
		p.logger.Error("PIPELINE", "Retrieval failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return nil, err
	}

	if len(grounding) == 0 {
		answer := p.generator.NotFoundMessage()
		if err := conv.AppendAssistant(ctx, answer); err != nil {
			return nil, err
		}
		p.logger.Info("PIPELINE", "No grounding, answered not-found", map[string]interface{}{
			"session_id": sessionId,
		})
		return &prepared{conv: conv}, nil
	}

	return &prepared{
		conv:      conv,
		grounding: grounding,
		prompt:    p.builder.Build(grounding, query, historyContext),
	}, nil
}

func (p *PipelineExecutor) resolveK(k int) int {
	if k <= 0 {
		return p.defaultK
	}
	return k
}

// Run answers in one piece.
func (p *PipelineExecutor) Run(ctx context.Context, query string, sessionId string, k int) (_ *Result, err error) {
	k = p.resolveK(k)
	ctx, span := p.startSpan(ctx, "atomic", sessionId, k)
	defer func() { endSpan(span, err) }()

	unlock, err := p.memory.Lock(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("wait for session %s: %w", sessionId, err)
	}
	defer unlock()

	prep, err := p.prepare(ctx, query, sessionId, k)
	if err != nil {
		return nil, err
	}
	if len(prep.grounding) == 0 {
		return &Result{Answer: p.generator.NotFoundMessage(), Citations: []response.Citation{}}, nil
	}

	answer, err := p.generator.Generate(ctx, prep.prompt)
	if err != nil {
		return nil, err
	}
	if err := prep.conv.AppendAssistant(ctx, answer); err != nil {
		return nil, err
	}

	p.logger.Info("PIPELINE", "Answer generated", map[string]interface{}{
		"session_id": sessionId,
		"grounding":  len(prep.grounding),
	})
	return &Result{
		Answer:    answer,
		Grounding: prep.grounding,
		Citations: response.Citations(prep.grounding),
	}, nil
}

// RunStream answers incrementally. The caller must Close the stream; the
// session stays locked until it does or the stream reaches a terminal state.
func (p *PipelineExecutor) RunStream(ctx context.Context, query string, sessionId string, k int) (*AnswerStream, error) {
	k = p.resolveK(k)
	ctx, span := p.startSpan(ctx, "stream", sessionId, k)

	unlock, err := p.memory.Lock(ctx, sessionId)
	if err != nil {
		err = fmt.Errorf("wait for session %s: %w", sessionId, err)
		endSpan(span, err)
		return nil, err
	}

	prep, err := p.prepare(ctx, query, sessionId, k)
	if err != nil {
		unlock()
		endSpan(span, err)
		return nil, err
	}

	if len(prep.grounding) == 0 {
		return newFixedStream(p.generator.NotFoundMessage(), unlock, span), nil
	}

	upstream, err := p.generator.Stream(ctx, prep.prompt)
	if err != nil {
		unlock()
		endSpan(span, err)
		return nil, err
	}

	return newGeneratedStream(ctx, upstream, prep, unlock, span, p.logger), nil
}
