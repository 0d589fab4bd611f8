package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for LeaderTalk
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	LLM       LLMConfig       `mapstructure:"llm"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// AdminConfig holds admin authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// AuthConfig maps bearer tokens to user identities. This is a stand-in for
// the external identity provider; deployments running behind the real
// provider leave it empty and terminate auth upstream.
type AuthConfig struct {
	Tokens map[string]string `mapstructure:"tokens"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig holds source document and index blob storage configuration
type StorageConfig struct {
	Documents string `mapstructure:"documents"`
	Indexes   string `mapstructure:"indexes"`
}

// RetrievalConfig holds chunking and retrieval configuration
type RetrievalConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	TopK         int `mapstructure:"top_k"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	LLMModel       string        `mapstructure:"llm_model"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("LEADERTALK")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("admin.api_key", "")

	v.SetDefault("database.path", "./data/leadertalk.db")
	v.SetDefault("storage.documents", "./data/documents")
	v.SetDefault("storage.indexes", "./data/indexes")

	v.SetDefault("retrieval.chunk_size", 1000)
	v.SetDefault("retrieval.chunk_overlap", 200)
	v.SetDefault("retrieval.top_k", 3)

	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.embedding_model", "nomic-embed-text")
	v.SetDefault("llm.llm_model", "qwen2.5:7b")
	v.SetDefault("llm.timeout", 2*time.Minute)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
