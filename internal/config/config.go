package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Research ResearchConfig `mapstructure:"research"`
	Market   MarketConfig   `mapstructure:"market"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ResearchConfig struct {
	// Endpoint is the autonomous chat stream URL consumed by the client
	// side (TUI, tests). The server side serves the same protocol under
	// /api/chat/autonomous.
	Endpoint           string `mapstructure:"endpoint"`
	Model              string `mapstructure:"model"`
	MaxHistoryMessages int    `mapstructure:"max_history_messages"`
	MaxTasks           int    `mapstructure:"max_tasks"`
}

type MarketConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	DataDir   string `mapstructure:"data_dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("QUANT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Config file wins; fall back to well-known env vars for secrets.
	if cfg.OpenAI.APIKey == "" {
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			cfg.OpenAI.APIKey = apiKey
		}
	}
	if cfg.Market.APIKey == "" {
		if apiKey := os.Getenv("FINANCIAL_DATASETS_API_KEY"); apiKey != "" {
			cfg.Market.APIKey = apiKey
		}
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Research.MaxHistoryMessages <= 0 {
		c.Research.MaxHistoryMessages = 6
	}
	if c.Research.MaxTasks <= 0 {
		c.Research.MaxTasks = 5
	}
	if c.Market.CacheTTL <= 0 {
		c.Market.CacheTTL = 5 * time.Minute
	}
	if c.Storage.CacheSize <= 0 {
		c.Storage.CacheSize = 100
	}
}

func Get() *Config {
	return cfg
}
