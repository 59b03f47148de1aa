package service

import (
	"context"
	"encoding/json"
	"sync"

	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/rag/errs"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// DocumentIngester is the part of the RAG service the consumer drives.
type DocumentIngester interface {
	Ingest(ctx context.Context, sessionId, path string) (int, error)
}

// MaxIngestAttempts bounds redelivery of a message that fails upstream.
const MaxIngestAttempts = 3

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	ingester  DocumentIngester
	logger    logger.ILogger

	mu       sync.Mutex
	attempts map[string]int
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	ingester DocumentIngester,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		ingester:  ingester,
		logger:    log,
		attempts:  make(map[string]int),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal ingest message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// malformed payloads would never succeed on retry
		msg.Ack()
		return
	}

	count, err := cs.ingester.Ingest(ctx, payload.SessionId, payload.Path)
	if err != nil {
		details := map[string]interface{}{
			"session_id": payload.SessionId,
			"path":       payload.Path,
			"error":      err.Error(),
		}
		if errs.IsUpstream(err) && cs.attempt(msg.UUID) < MaxIngestAttempts {
			cs.logger.Warn("CONSUMER", "Ingestion failed upstream, retrying", details)
			msg.Nack()
			return
		}
		cs.logger.Error("CONSUMER", "Ingestion failed", details)
		cs.forget(msg.UUID)
		msg.Ack()
		return
	}
	cs.forget(msg.UUID)

	cs.logger.Info("CONSUMER", "Document ingested", map[string]interface{}{
		"session_id": payload.SessionId,
		"path":       payload.Path,
		"chunks":     count,
	})
	msg.Ack()
}

func (cs *consumerService) attempt(id string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.attempts[id]++
	return cs.attempts[id]
}

func (cs *consumerService) forget(id string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.attempts, id)
}
