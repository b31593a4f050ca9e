package config

import (
	"time"
)

const (
	TRACE_ID_KEY                = "traceId"
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5
	CacheSimilarityCutoff       = 0.97

	//ingestion
	DefaultDataDir       = "ORG-KB"
	DefaultChunkSize     = 1000 // characters
	DefaultChunkOverlap  = 0
	UpsertBatchSize      = 100
	PageExtractTimeout   = 10 * time.Second
	MaxPdfExtractions    = 4
	MaxUploadSize        = 32 << 20 //32mb
	UploadTempDirName    = "temporary_data"
	IdStrategyPositional = "positional"
	IdStrategyContent    = "content"

	//vectorDB
	DefaultPersistDir       = "db"
	DefaultCollectionName   = "kb-collection"
	AnswerCacheSuffix       = "-answers"
	DefaultTopK             = 3
	VectorStoreSQLite       = "sqlite"
	VectorStoreQdrant       = "qdrant"
	QdrantHost              = "localhost"
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1 //2-5 is preferred for prod according to documentation
	QdrantConnectionTimeout = 30 * time.Second

	//embeddings
	EmbedderHashing             = "hashing"
	EmbedderGoogle              = "google"
	EmbedderOpenAI              = "openai"
	HashingEmbeddingDimension   = 384
	GoogleEmbeddingModel        = "gemini-embedding-001"
	GoogleEmbeddingDimension    = 768
	OpenAIEmbeddingModel        = "text-embedding-3-small"
	OpenAIEmbeddingDimension    = 1536
	EmbeddingCallTimeout        = 60 * time.Second
	EmbeddingTaskTypeDocument   = "RETRIEVAL_DOCUMENT"
	EmbeddingTaskTypeQuery      = "RETRIEVAL_QUERY"
	EmbeddingHashingModelPrefix = "hashing-v1"

	//llm
	LLMGemini                = "gemini"
	LLMOpenAI                = "openai"
	GeminiModelName          = "gemini-2.5-flash-lite"
	OpenAIChatModel          = "gpt-4o-mini"
	ModelTemperature float32 = 0

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//worker pool - one worker keeps chat turns strictly sequential
	//idle workers above the minimum retire
	DefaultWorkerCount        = 1
	MinWorkerCount            = 1
	IdleWorkerTimeout         = 5 * time.Minute
	RequestsPerNewWorkerCount = 10
	BufferLimit               = 100
	JobTimeout                = 60 * time.Second
	ProcessTimeout            = 30 * time.Second

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//redis
	RedisAddr        = "127.0.0.1:6379"
	RedisCallTimeout = 30 * time.Second
	RedisPingTimeout = 3 * time.Second

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisMessageStore = 1

	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour
	MessageHistoryLength = 5

	NotFoundResponse = "No stored response found"
)

// ExamplePrompts are offered to chat clients as starting questions.
var ExamplePrompts = []string{
	"Tell me about swimlanes in architecture guidelines",
	"How to invoice accounting?",
	"Give some examples of actions from managers of one",
}
