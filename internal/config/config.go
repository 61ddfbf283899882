package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ragchat API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	AI        AIConfig        `yaml:"ai"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Chat      ChatConfig      `yaml:"chat"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// AIConfig holds the OpenAI-compatible provider settings.
type AIConfig struct {
	Provider            string `yaml:"provider"` // label for logs/metrics
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	EmbeddingModel      string `yaml:"embedding_model"`
	Dimensions          int    `yaml:"dimensions"`
	ChatModel           string `yaml:"chat_model"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
}

// RetrievalConfig names the retrieval-quality/cache-precision knobs.
// CacheThreshold is deliberately much higher than RelevanceThreshold:
// a cache hit substitutes for generation and must represent a
// near-identical prior query, while passages need only be topically useful.
type RetrievalConfig struct {
	CacheThreshold      float64 `yaml:"cache_threshold"`       // min similarity for a cache hit
	RelevanceThreshold  float64 `yaml:"relevance_threshold"`   // min similarity for a passage to count
	TopK                int     `yaml:"top_k"`                 // passages per retrieval
	CacheTopK           int     `yaml:"cache_top_k"`           // candidates per cache lookup
	CandidateMultiplier int     `yaml:"candidate_multiplier"`  // KNN candidate pool = top_k × this
	HNSWM               int     `yaml:"hnsw_m"`                // index build parameter
	HNSWEFConstruct     int     `yaml:"hnsw_ef_construction"`  // index build parameter
}

// IngestConfig holds PDF ingestion settings.
type IngestConfig struct {
	ChunkSize          int `yaml:"chunk_size"`
	ChunkOverlap       int `yaml:"chunk_overlap"`
	DownloadTimeoutSec int `yaml:"download_timeout_sec"`
	Concurrency        int `yaml:"concurrency"`
}

// ChatConfig holds chat flow settings.
type ChatConfig struct {
	DefaultLanguage string `yaml:"default_language"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.AI.Dimensions <= 0 {
		c.AI.Dimensions = 768
	}
	if c.Retrieval.CacheThreshold <= 0 {
		c.Retrieval.CacheThreshold = 0.96
	}
	if c.Retrieval.RelevanceThreshold <= 0 {
		c.Retrieval.RelevanceThreshold = 0.8
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 4
	}
	if c.Retrieval.CacheTopK <= 0 {
		c.Retrieval.CacheTopK = 1
	}
	if c.Retrieval.CandidateMultiplier <= 0 {
		c.Retrieval.CandidateMultiplier = 20
	}
	if c.Retrieval.HNSWM <= 0 {
		c.Retrieval.HNSWM = 32
	}
	if c.Retrieval.HNSWEFConstruct <= 0 {
		c.Retrieval.HNSWEFConstruct = 400
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap < 0 {
		c.Ingest.ChunkOverlap = 0
	}
	if c.Ingest.ChunkOverlap == 0 {
		c.Ingest.ChunkOverlap = 200
	}
	if c.Ingest.DownloadTimeoutSec <= 0 {
		c.Ingest.DownloadTimeoutSec = 30
	}
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = 4
	}
	if c.Chat.DefaultLanguage == "" {
		c.Chat.DefaultLanguage = "en"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "ragchat:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.AI.EmbeddingModel == "" {
		return fmt.Errorf("ai.embedding_model is required")
	}
	if c.AI.ChatModel == "" {
		return fmt.Errorf("ai.chat_model is required")
	}
	if c.Retrieval.CacheThreshold <= c.Retrieval.RelevanceThreshold {
		return fmt.Errorf(
			"retrieval.cache_threshold (%g) must exceed retrieval.relevance_threshold (%g)",
			c.Retrieval.CacheThreshold, c.Retrieval.RelevanceThreshold,
		)
	}
	if c.Retrieval.CacheThreshold > 1 || c.Retrieval.RelevanceThreshold > 1 {
		return fmt.Errorf("retrieval thresholds must be within (0, 1]")
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf(
			"ingest.chunk_overlap (%d) must be smaller than ingest.chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
