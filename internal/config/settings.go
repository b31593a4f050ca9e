package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings are the runtime values that may differ between deployments.
// Everything else lives in the constant block.
type Settings struct {
	LogLevel string `mapstructure:"log_level"`
	IsProd   bool   `mapstructure:"is_prod"`

	PersistDir     string `mapstructure:"persist_dir"`
	CollectionName string `mapstructure:"collection"`
	VectorStore    string `mapstructure:"vector_store"`
	QdrantHost     string `mapstructure:"qdrant_host"`
	QdrantPort     int    `mapstructure:"qdrant_port"`
	QdrantAPIKey   string `mapstructure:"qdrant_api_key"`

	Embedder       string `mapstructure:"embedder"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	LLM            string `mapstructure:"llm"`
	LLMModel       string `mapstructure:"llm_model"`
	GoogleAPIKey   string `mapstructure:"google_api_key"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	OpenAIBaseURL  string `mapstructure:"openai_base_url"`

	IdStrategy    string `mapstructure:"id_strategy"`
	ChunkSize     int    `mapstructure:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap"`
	TopK          int    `mapstructure:"top_k"`
	SemanticCache bool   `mapstructure:"semantic_cache"`

	ListenAddr    string `mapstructure:"listen_addr"`
	WorkerCount   int    `mapstructure:"worker_count"`
	AuthToken     string `mapstructure:"auth_token"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
}

var envBindings = map[string][]string{
	"log_level":       {"KB_LOG_LEVEL"},
	"is_prod":         {"KB_IS_PROD"},
	"persist_dir":     {"KB_PERSIST_DIR", "CHROMA_PERSIST_DIR"},
	"collection":      {"KB_COLLECTION", "CHROMA_COLLECTION_NAME"},
	"vector_store":    {"KB_VECTOR_STORE"},
	"qdrant_host":     {"QDRANT_HOST"},
	"qdrant_port":     {"QDRANT_PORT"},
	"qdrant_api_key":  {"QDRANT_API_KEY"},
	"embedder":        {"KB_EMBEDDER"},
	"embedding_model": {"KB_EMBEDDING_MODEL"},
	"llm":             {"KB_LLM"},
	"llm_model":       {"KB_LLM_MODEL"},
	"google_api_key":  {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"openai_api_key":  {"OPENAI_API_KEY"},
	"openai_base_url": {"OPENAI_BASE_URL"},
	"id_strategy":     {"KB_ID_STRATEGY"},
	"chunk_size":      {"KB_CHUNK_SIZE"},
	"chunk_overlap":   {"KB_CHUNK_OVERLAP"},
	"top_k":           {"KB_TOP_K"},
	"semantic_cache":  {"KB_SEMANTIC_CACHE"},
	"listen_addr":     {"KB_LISTEN_ADDR"},
	"worker_count":    {"KB_WORKER_COUNT"},
	"auth_token":      {"KB_AUTH_TOKEN"},
	"redis_addr":      {"REDIS_ADDR"},
	"redis_password":  {"REDIS_PASSWORD"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("is_prod", false)
	v.SetDefault("persist_dir", DefaultPersistDir)
	v.SetDefault("collection", DefaultCollectionName)
	v.SetDefault("vector_store", VectorStoreSQLite)
	v.SetDefault("qdrant_host", QdrantHost)
	v.SetDefault("qdrant_port", QdrantGrpcPort)
	v.SetDefault("embedder", EmbedderHashing)
	v.SetDefault("llm", LLMGemini)
	v.SetDefault("id_strategy", IdStrategyPositional)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("semantic_cache", false)
	v.SetDefault("listen_addr", ServerListenAddr)
	v.SetDefault("worker_count", DefaultWorkerCount)
	v.SetDefault("redis_addr", RedisAddr)
}

// Load reads .env (if present), the optional kbbot.yaml in the working
// directory and the process environment, in increasing precedence.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Settings{}, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	v.SetConfigName("kbbot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading kbbot.yaml: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	switch s.IdStrategy {
	case IdStrategyPositional, IdStrategyContent:
	default:
		return fmt.Errorf("unknown id strategy %q", s.IdStrategy)
	}
	switch s.VectorStore {
	case VectorStoreSQLite, VectorStoreQdrant:
	default:
		return fmt.Errorf("unknown vector store %q", s.VectorStore)
	}
	if s.ChunkSize <= 0 || s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("invalid chunk settings size=%d overlap=%d", s.ChunkSize, s.ChunkOverlap)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", s.TopK)
	}
	if s.WorkerCount <= 0 {
		return fmt.Errorf("worker_count must be positive, got %d", s.WorkerCount)
	}
	return nil
}
