package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Rag      RAGConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	RagLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	UploadDir          string
	ImageDir           string
	IngestMode         string // "sync" or "async"
	IngestTopic        string
}

type DatabaseConfig struct {
	Connection string
	SqlitePath string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
	HuggingFace  string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama", "gemini" or "jina"
	EmbeddingModel    string
	OllamaBaseURL     string
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string
	LLMBaseURL        string
	LLMTemperature    float64
	LLMMaxTokens      int
	VisionProvider    string // "ollama" or "none"
	VisionModel       string

	EmbeddingBatchSize      int
	EmbeddingTimeoutSeconds int
	LLMTimeoutSeconds       int
	VisionTimeoutSeconds    int
}

type RAGConfig struct {
	MinChunkLength            int
	MinImageDescriptionLength int
	MaxTurns                  int
	TopK                      int
	OverviewEnabled           bool
	OverviewMaxSentences      int
	VectorStore               string // "pgvector" or "memory"
	SessionStore              string // "postgres", "redis", "sqlite" or "memory"
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			RagLogFilePath:     getEnv("RAG_LOG_FILE_PATH", "logs/llm_rag.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
			ImageDir:           getEnv("IMAGE_DIR", "extracted_images"),
			IngestMode:         getEnv("INGEST_MODE", "sync"),
			IngestTopic:        getEnv("INGEST_TOPIC_NAME", "INGEST_DOCUMENT"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			SqlitePath: getEnv("SQLITE_PATH", "sessions.db"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			LLMTemperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			LLMMaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 512),
			VisionProvider:    getEnv("VISION_PROVIDER", "ollama"),
			VisionModel:       getEnv("VISION_MODEL", "llava"),

			EmbeddingBatchSize:      getEnvAsInt("EMBEDDING_BATCH_SIZE", 32),
			EmbeddingTimeoutSeconds: getEnvAsInt("EMBEDDING_TIMEOUT_SECONDS", 60),
			LLMTimeoutSeconds:       getEnvAsInt("LLM_TIMEOUT_SECONDS", 120),
			VisionTimeoutSeconds:    getEnvAsInt("VISION_TIMEOUT_SECONDS", 30),
		},
		Rag: RAGConfig{
			MinChunkLength:            getEnvAsInt("RAG_MIN_CHUNK_LENGTH", 80),
			MinImageDescriptionLength: getEnvAsInt("RAG_MIN_IMAGE_DESCRIPTION_LENGTH", 40),
			MaxTurns:                  getEnvAsInt("RAG_MAX_TURNS", 6),
			TopK:                      getEnvAsInt("RAG_TOP_K", 6),
			OverviewEnabled:           getEnvAsBool("RAG_OVERVIEW_ENABLED", true),
			OverviewMaxSentences:      getEnvAsInt("RAG_OVERVIEW_MAX_SENTENCES", 5),
			VectorStore:               strings.ToLower(getEnv("RAG_VECTOR_STORE", "pgvector")),
			SessionStore:              strings.ToLower(getEnv("RAG_SESSION_STORE", "postgres")),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

// NeedsDatabase reports whether any configured store is backed by postgres.
func (c *Config) NeedsDatabase() bool {
	return c.Rag.VectorStore == "pgvector" || c.Rag.SessionStore == "postgres"
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
