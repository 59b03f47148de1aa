package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/rag/errs"
	"multimodal-rag-be/pkg/rag/executor"
	"multimodal-rag-be/pkg/rag/ingest"
	"multimodal-rag-be/pkg/rag/response"
	"multimodal-rag-be/pkg/rag/session"
)

type IRAGService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	Upload(ctx context.Context, fileName string, content io.Reader) (*dto.UploadDocumentResponse, error)
	Ingest(ctx context.Context, sessionId, path string) (int, error)
	Run(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	RunStream(ctx context.Context, req *dto.ChatRequest) (*executor.AnswerStream, error)
	DeleteSession(ctx context.Context, sessionId string) (*dto.DeleteSessionResponse, error)
	ListSessions(ctx context.Context) (*dto.ListSessionsResponse, error)
	History(ctx context.Context, sessionId string) (*dto.HistoryResponse, error)
}

type RAGServiceConfig struct {
	UploadDir   string
	AsyncIngest bool
}

type ragService struct {
	cfg       RAGServiceConfig
	sessions  *session.Manager
	ingestor  *ingest.Ingestor
	executor  *executor.PipelineExecutor
	publisher IPublisherService
	logger    logger.ILogger
}

var _ DocumentIngester = &ragService{}

// NewRAGService wires the exposed operations. publisher may be nil when ingestion is synchronous.
func NewRAGService(
	cfg RAGServiceConfig,
	sessions *session.Manager,
	ingestor *ingest.Ingestor,
	exec *executor.PipelineExecutor,
	publisher IPublisherService,
	log logger.ILogger,
) IRAGService {
	if cfg.AsyncIngest && publisher == nil {
		cfg.AsyncIngest = false
	}
	return &ragService{
		cfg:       cfg,
		sessions:  sessions,
		ingestor:  ingestor,
		executor:  exec,
		publisher: publisher,
		logger:    log,
	}
}

func (s *ragService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	sessionId, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{SessionId: sessionId}, nil
}

// Upload stores the document under a fresh session and ingests it, or queues it in async mode.
func (s *ragService) Upload(ctx context.Context, fileName string, content io.Reader) (*dto.UploadDocumentResponse, error) {
	sessionId, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(fileName)
	path, err := s.store(sessionId, name, content)
	if err != nil {
		return nil, err
	}

	res := &dto.UploadDocumentResponse{
		SessionId: sessionId,
		FileName:  name,
	}

	if s.cfg.AsyncIngest {
		payload, err := json.Marshal(dto.PublishIngestDocumentMessage{SessionId: sessionId, Path: path})
		if err != nil {
			return nil, err
		}
		if err := s.publisher.Publish(ctx, payload); err != nil {
			return nil, fmt.Errorf("queue ingestion: %w", err)
		}
		res.Queued = true
		res.Message = fmt.Sprintf("%s queued for ingestion", name)
		return res, nil
	}

	count, err := s.Ingest(ctx, sessionId, path)
	if err != nil {
		return nil, err
	}
	res.Chunks = count
	res.Message = fmt.Sprintf("%s ingested successfully", name)
	return res, nil
}

func (s *ragService) store(sessionId, name string, content io.Reader) (string, error) {
	dir := filepath.Join(s.cfg.UploadDir, sessionId)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// Ingest indexes one document into an existing session. It holds the session lock
// so a concurrent DeleteSession either runs first and the ingest is refused, or waits for it.
func (s *ragService) Ingest(ctx context.Context, sessionId, path string) (int, error) {
	unlock, err := s.sessions.Lock(ctx, sessionId)
	if err != nil {
		return 0, err
	}
	defer unlock()

	count, err := s.ingestor.Ingest(ctx, path, sessionId)
	if err != nil {
		return 0, err
	}
	s.sessions.Ingested(ctx, sessionId, filepath.Base(path), count)
	return count, nil
}

func (s *ragService) Run(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	result, err := s.executor.Run(ctx, req.Question, req.SessionId, req.K)
	if err != nil {
		return nil, err
	}
	return &dto.ChatResponse{
		SessionId: req.SessionId,
		Answer:    result.Composed(),
		Grounded:  result.Grounded(),
		Citations: ToCitationDTOs(result.Citations),
	}, nil
}

func (s *ragService) RunStream(ctx context.Context, req *dto.ChatRequest) (*executor.AnswerStream, error) {
	return s.executor.RunStream(ctx, req.Question, req.SessionId, req.K)
}

func (s *ragService) DeleteSession(ctx context.Context, sessionId string) (*dto.DeleteSessionResponse, error) {
	found, err := s.sessions.Delete(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	if s.cfg.UploadDir != "" && filepath.Base(sessionId) == sessionId {
		if err := os.RemoveAll(filepath.Join(s.cfg.UploadDir, sessionId)); err != nil {
			s.logger.Warn("RAG_SERVICE", "Failed to remove uploaded files", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
	}

	return &dto.DeleteSessionResponse{SessionId: sessionId, Found: found}, nil
}

func (s *ragService) ListSessions(ctx context.Context) (*dto.ListSessionsResponse, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.ListSessionsResponse{Sessions: ids}, nil
}

func (s *ragService) History(ctx context.Context, sessionId string) (*dto.HistoryResponse, error) {
	turns, found, err := s.sessions.History(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errs.NotFound("session %s", sessionId)
	}

	res := &dto.HistoryResponse{SessionId: sessionId, Turns: make([]dto.TurnDTO, len(turns))}
	for i, t := range turns {
		res.Turns[i] = dto.TurnDTO{Role: string(t.Role), Content: t.Content}
	}
	return res, nil
}

func ToCitationDTOs(citations []response.Citation) []dto.CitationDTO {
	out := make([]dto.CitationDTO, len(citations))
	for i, c := range citations {
		out[i] = dto.CitationDTO{Index: c.Index, Source: c.Source, Page: c.Page}
	}
	return out
}
