package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	arkembedding "github.com/cloudwego/eino-ext/components/embedding/ark"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting of the service.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Cache    CacheConfig
	Agent    AgentConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Docs     DocsConfig
	Log      LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	cache, err := loadCacheConfig()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}

	database, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	docs, err := loadDocsConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Cache:    cache,
		Agent:    agent,
		Database: database,
		Auth:     auth,
		Docs:     docs,
		Log:      logCfg,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are taken as is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the Ark chat and embedding models.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	EmbeddingModel string
	BaseURL        string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether credentials and a model are configured.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && c.hasCredentials()
}

// NewChatModel creates the configured chat model.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("missing Ark credentials or model: set ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// EmbeddingEnabled reports whether document search can use embeddings.
func (c AIConfig) EmbeddingEnabled() bool {
	return c.EmbeddingModel != "" && c.hasCredentials()
}

// NewEmbedder creates the configured embedding model.
func (c AIConfig) NewEmbedder(ctx context.Context) (embedding.Embedder, error) {
	if !c.EmbeddingEnabled() {
		return nil, fmt.Errorf("missing Ark credentials or ARK_EMBEDDING_MODEL")
	}

	return arkembedding.NewEmbedder(ctx, &arkembedding.EmbeddingConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.EmbeddingModel,
	})
}

func (c AIConfig) hasCredentials() bool {
	return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("Model")),
		EmbeddingModel: strings.TrimSpace(os.Getenv("ARK_EMBEDDING_MODEL")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
	}, nil
}

// CacheConfig describes the persisted answer cache.
type CacheConfig struct {
	Path    string
	TTL     time.Duration
	MaxSize int
}

func loadCacheConfig() (CacheConfig, error) {
	ttl, err := parseDurationEnv("CACHE_TTL", 24*time.Hour)
	if err != nil {
		return CacheConfig{}, err
	}

	maxSize, err := parsePositiveIntEnv("CACHE_MAX_SIZE", 100)
	if err != nil {
		return CacheConfig{}, err
	}

	return CacheConfig{
		Path:    getEnvOrDefault("CACHE_FILE", "faq_cache.json"),
		TTL:     ttl,
		MaxSize: maxSize,
	}, nil
}

// AgentConfig bounds the LLM/tool loop of a turn.
type AgentConfig struct {
	MaxIterations   int
	ToolConcurrency int
}

func loadAgentConfig() (AgentConfig, error) {
	maxIter, err := parsePositiveIntEnv("AGENT_MAX_ITERATIONS", 5)
	if err != nil {
		return AgentConfig{}, err
	}

	concurrency, err := parsePositiveIntEnv("AGENT_TOOL_CONCURRENCY", 4)
	if err != nil {
		return AgentConfig{}, err
	}

	return AgentConfig{MaxIterations: maxIter, ToolConcurrency: concurrency}, nil
}

// DatabaseConfig describes the commerce PostgreSQL database.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	maxOpen, err := parsePositiveIntEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return DatabaseConfig{}, err
	}

	return DatabaseConfig{
		URL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MaxOpenConns: maxOpen,
	}, nil
}

// AuthConfig describes JWT verification.
type AuthConfig struct {
	Secret    string
	Algorithm string
}

func loadAuthConfig() (AuthConfig, error) {
	alg := getEnvOrDefault("JWT_ALGORITHM", "HS256")
	switch alg {
	case "HS256", "HS384", "HS512":
	default:
		return AuthConfig{}, fmt.Errorf("unsupported JWT_ALGORITHM %q", alg)
	}

	return AuthConfig{
		Secret:    strings.TrimSpace(os.Getenv("JWT_SECRET_KEY")),
		Algorithm: alg,
	}, nil
}

// DocsConfig describes the policy/FAQ document index.
type DocsConfig struct {
	Dir   string
	Watch bool
	TopK  int
}

func loadDocsConfig() (DocsConfig, error) {
	watch, err := parseBoolEnv("DOCS_WATCH", true)
	if err != nil {
		return DocsConfig{}, err
	}

	topK, err := parsePositiveIntEnv("DOCS_TOP_K", 3)
	if err != nil {
		return DocsConfig{}, err
	}

	return DocsConfig{
		Dir:   getEnvOrDefault("DOCS_DIR", "data/documents"),
		Watch: watch,
		TopK:  topK,
	}, nil
}

// LogConfig describes logger output.
type LogConfig struct {
	Level  string
	Pretty bool
}

func loadLogConfig() (LogConfig, error) {
	pretty, err := parseBoolEnv("LOG_PRETTY", false)
	if err != nil {
		return LogConfig{}, err
	}

	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Pretty: pretty,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parsePositiveIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	if *val < 1 {
		return 0, fmt.Errorf("invalid %s value %d: must be at least 1", key, *val)
	}
	return *val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
