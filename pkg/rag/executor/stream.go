package executor

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/llm"
	"multimodal-rag-be/pkg/rag/errs"
	"multimodal-rag-be/pkg/rag/history"
	"multimodal-rag-be/pkg/rag/response"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AnswerStream yields answer fragments. Recv returns io.EOF after the last one,
// by which time the concatenation of every fragment has been persisted as one
// assistant turn. On failure or cancellation the partial text is discarded.
type AnswerStream struct {
	// fixed answers (not-found) are persisted before the stream opens
	fixed string

	ctx       context.Context
	upstream  llm.TokenStream
	conv      *history.Conversation
	citations []response.Citation

	text   strings.Builder
	done   bool
	err    error
	closed bool

	unlock    func()
	span      trace.Span
	logger    logger.ILogger
	closeOnce sync.Once
}

func newFixedStream(answer string, unlock func(), span trace.Span) *AnswerStream {
	return &AnswerStream{
		fixed:     answer,
		citations: []response.Citation{},
		unlock:    unlock,
		span:      span,
	}
}

func newGeneratedStream(ctx context.Context, upstream llm.TokenStream, prep *prepared, unlock func(), span trace.Span, log logger.ILogger) *AnswerStream {
	return &AnswerStream{
		ctx:       ctx,
		upstream:  upstream,
		conv:      prep.conv,
		citations: response.Citations(prep.grounding),
		unlock:    unlock,
		span:      span,
		logger:    log,
	}
}

func (s *AnswerStream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.done {
		return "", io.EOF
	}
	if s.closed {
		return "", errors.New("answer stream closed")
	}

	if s.upstream == nil {
		s.text.WriteString(s.fixed)
		s.finish()
		return s.fixed, nil
	}

	for {
		token, err := s.upstream.Recv()
		if err == io.EOF {
			// the model finished; persist even if the caller is going away
			if err := s.conv.AppendAssistant(context.WithoutCancel(s.ctx), s.text.String()); err != nil {
				s.fail(err)
				return "", err
			}
			s.finish()
			return "", io.EOF
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				err = errs.Upstream("generation", err)
			}
			s.fail(err)
			return "", err
		}
		if token == "" {
			continue
		}
		s.text.WriteString(token)
		return token, nil
	}
}

// Citations for the grounding behind this answer; empty for the not-found answer.
func (s *AnswerStream) Citations() []response.Citation {
	return s.citations
}

// Text is the concatenation of every fragment yielded so far.
func (s *AnswerStream) Text() string {
	return s.text.String()
}

// Close releases the upstream connection and the session lock. Idempotent.
func (s *AnswerStream) Close() error {
	if !s.done && s.err == nil && !s.closed {
		if s.logger != nil {
			s.logger.Warn("PIPELINE", "Stream closed early, partial answer discarded", map[string]interface{}{
				"session_id":    s.sessionId(),
				"partial_chars": s.text.Len(),
			})
		}
		s.span.SetAttributes(attribute.Bool("rag.stream.abandoned", true))
	}
	s.closed = true
	return s.release()
}

// release runs once, on the first terminal state or Close.
func (s *AnswerStream) release() error {
	var err error
	s.closeOnce.Do(func() {
		if s.upstream != nil {
			err = s.upstream.Close()
		}
		s.unlock()
		s.span.SetAttributes(attribute.Int("rag.answer_chars", s.text.Len()))
		endSpan(s.span, s.err)
	})
	return err
}

func (s *AnswerStream) finish() {
	s.done = true
	s.release()
}

func (s *AnswerStream) fail(err error) {
	s.err = err
	if s.logger != nil {
		s.logger.Error("PIPELINE", "Stream failed, partial answer discarded", map[string]interface{}{
			"session_id":    s.sessionId(),
			"partial_chars": s.text.Len(),
			"error":         err.Error(),
		})
	}
	s.release()
}

func (s *AnswerStream) sessionId() string {
	if s.conv == nil {
		return ""
	}
	return s.conv.SessionId()
}
