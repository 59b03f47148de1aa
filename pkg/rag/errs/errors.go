package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing input document or a missing session.
	ErrNotFound = errors.New("not found")

	// ErrUpstream is matched by every UpstreamError through errors.Is.
	ErrUpstream = errors.New("upstream failure")
)

// UpstreamError wraps a failure (or timeout) of the embedding, vision or generation service.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstream.Error(), e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func Upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Service: service, Err: err}
}

func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IntegrityIssue describes a non-fatal data problem found during ingestion.
// It is logged and counted, never returned.
type IntegrityIssue struct {
	Kind    string
	ChunkId string
	Detail  string
}

const (
	IntegrityDuplicateId     = "duplicate_id"
	IntegrityMalformedChunk  = "malformed_chunk"
	IntegrityEmbeddingLength = "embedding_length"
)
