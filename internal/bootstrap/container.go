package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"multimodal-rag-be/internal/config"
	"multimodal-rag-be/internal/controller"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/internal/repository/implementation"
	"multimodal-rag-be/internal/repository/memory"
	redisrepo "multimodal-rag-be/internal/repository/redis"
	"multimodal-rag-be/internal/repository/sqlite"
	"multimodal-rag-be/internal/repository/unitofwork"
	"multimodal-rag-be/internal/service"
	"multimodal-rag-be/pkg/embedding"
	embeddingFactory "multimodal-rag-be/pkg/embedding/factory"
	"multimodal-rag-be/pkg/events"
	"multimodal-rag-be/pkg/llm"
	llmFactory "multimodal-rag-be/pkg/llm/factory"
	pktNats "multimodal-rag-be/pkg/nats"
	"multimodal-rag-be/pkg/partition"
	"multimodal-rag-be/pkg/rag/executor"
	"multimodal-rag-be/pkg/rag/history"
	"multimodal-rag-be/pkg/rag/index"
	"multimodal-rag-be/pkg/rag/ingest"
	"multimodal-rag-be/pkg/rag/prompt"
	"multimodal-rag-be/pkg/rag/response"
	"multimodal-rag-be/pkg/rag/search"
	"multimodal-rag-be/pkg/rag/session"
	"multimodal-rag-be/pkg/vision"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	ChatController    controller.IChatController

	// Exposed for entry points that skip HTTP
	RAGService service.IRAGService

	// Background Services (nil when ingestion is synchronous)
	ConsumerService service.IConsumerService

	Logger    logger.ILogger
	RAGLogger logger.ILogger

	closers []func()
}

// Close releases connections opened by the container, in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// NewContainer wires the application. db may be nil when no postgres-backed store is configured.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	ragLogger := logger.NewIsolatedLogger(cfg.App.RagLogFilePath)
	c.Logger, c.RAGLogger = sysLogger, ragLogger
	c.closers = append(c.closers, func() {
		_ = sysLogger.Sync()
		_ = ragLogger.Sync()
	})

	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	}

	// 2. Providers
	embeddingModel := cfg.Ai.EmbeddingModel
	embeddingProvider, err := embeddingFactory.NewEmbeddingProvider(
		cfg.Ai.EmbeddingProvider,
		embeddingModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
		cfg.Keys.Jina,
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	embeddingProvider = embedding.Batched(embeddingProvider, cfg.Ai.EmbeddingBatchSize)
	log.Printf("[INFO] Using Embedding Provider: %s (%s)", cfg.Ai.EmbeddingProvider, embeddingModel)

	llmBaseURL := cfg.Ai.LLMBaseURL
	if llmBaseURL == "" && cfg.Ai.LLMProvider == "ollama" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := llmFactory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, llmBaseURL, cfg.Keys.HuggingFace)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	var describer vision.Describer = vision.NoopDescriber{}
	if cfg.Ai.VisionProvider == "ollama" {
		describer = vision.NewOllamaDescriber(cfg.Ai.OllamaBaseURL, cfg.Ai.VisionModel, seconds(cfg.Ai.VisionTimeoutSeconds))
	}

	// 3. Storage
	sessionStore, err := c.newSessionStore(db, cfg, sysLogger)
	if err != nil {
		c.Close()
		return nil, err
	}

	var backend index.Backend
	switch cfg.Rag.VectorStore {
	case "pgvector":
		if uowFactory == nil {
			c.Close()
			return nil, fmt.Errorf("vector store pgvector requires DB_CONNECTION_STRING")
		}
		backend = index.NewPgvectorBackend(uowFactory)
	case "memory":
		backend = index.NewMemoryBackend()
	default:
		c.Close()
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.Rag.VectorStore)
	}
	registry := index.NewRegistry(backend, ragLogger)

	// 4. Event Bus
	var eventPublisher events.Publisher = events.NopPublisher{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
			c.subscribeActivityLog(cfg.App.NatsURL, sysLogger)
		}
	}

	// 5. RAG pipeline
	memoryManager := history.NewManager(sessionStore, cfg.Rag.MaxTurns, ragLogger)
	sessionManager := session.NewManager(sessionStore, registry, memoryManager, eventPublisher, sysLogger)

	var overview *ingest.OverviewBuilder
	if cfg.Rag.OverviewEnabled {
		overview = ingest.NewOverviewBuilder(cfg.Rag.OverviewMaxSentences)
	}
	extractor := ingest.NewExtractor(ingest.ExtractorConfig{
		MinTextLength:             cfg.Rag.MinChunkLength,
		MinImageDescriptionLength: cfg.Rag.MinImageDescriptionLength,
	}, describer, ingest.UUIDGenerator{}, ragLogger)
	partitioner := partition.ByExtension{
		".pdf": partition.NewPDFPartitioner(cfg.App.ImageDir, ragLogger),
		".txt": partition.TextPartitioner{},
		".md":  partition.TextPartitioner{},
	}
	ingestor := ingest.NewIngestor(partitioner, extractor, overview, embeddingProvider, registry, ragLogger)
	ingestor.EmbeddingTimeout = seconds(cfg.Ai.EmbeddingTimeoutSeconds)

	retriever := search.NewRetriever(embeddingProvider, registry, ragLogger)
	retriever.EmbeddingTimeout = seconds(cfg.Ai.EmbeddingTimeoutSeconds)

	generator := response.NewGenerator(
		llmProvider,
		seconds(cfg.Ai.LLMTimeoutSeconds),
		ragLogger,
		llm.WithTemperature(cfg.Ai.LLMTemperature),
		llm.WithMaxTokens(cfg.Ai.LLMMaxTokens),
	)
	pipelineExecutor := executor.NewPipelineExecutor(
		memoryManager,
		retriever,
		prompt.NewGroundedBuilder(),
		generator,
		cfg.Rag.TopK,
		ragLogger,
	)

	// 6. Services
	asyncIngest := cfg.App.IngestMode == "async"
	var publisherService service.IPublisherService
	var pubSub *gochannel.GoChannel
	if asyncIngest {
		pubSub = gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
		c.closers = append(c.closers, func() { _ = pubSub.Close() })
		publisherService = service.NewPublisherService(cfg.App.IngestTopic, pubSub)
	}

	ragService := service.NewRAGService(service.RAGServiceConfig{
		UploadDir:   cfg.App.UploadDir,
		AsyncIngest: asyncIngest,
	}, sessionManager, ingestor, pipelineExecutor, publisherService, sysLogger)

	if asyncIngest {
		c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.IngestTopic, ragService, sysLogger)
	}

	// 7. Controllers
	c.RAGService = ragService
	c.SessionController = controller.NewSessionController(ragService, asyncIngest)
	c.ChatController = controller.NewChatController(ragService, sysLogger)

	return c, nil
}

func (c *Container) newSessionStore(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (contract.ChatSessionRepository, error) {
	switch cfg.Rag.SessionStore {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("session store postgres requires DB_CONNECTION_STRING")
		}
		return implementation.NewChatSessionRepository(db), nil

	case "redis":
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		return redisrepo.NewChatSessionRepository(rdb), nil

	case "sqlite":
		store, err := sqlite.NewChatSessionRepository(cfg.Database.SqlitePath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = store.Close() })
		sysLogger.Info("BOOTSTRAP", "Using sqlite session store", map[string]interface{}{
			"path": store.Path(),
		})
		return store, nil

	case "memory":
		return memory.NewChatSessionRepository(), nil

	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Rag.SessionStore)
	}
}

// subscribeActivityLog mirrors every lifecycle event into the system log.
func (c *Container) subscribeActivityLog(url string, sysLogger logger.ILogger) {
	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		return
	}
	c.closers = append(c.closers, sub.Close)

	err = sub.Subscribe(context.Background(), "events.>", "rag-activity", func(ctx context.Context, event events.Event) error {
		sysLogger.Info("EVENTS", event.EventType(), event.Payload())
		return nil
	})
	if err != nil {
		log.Printf("[WARN] Failed to subscribe activity log: %v", err)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
