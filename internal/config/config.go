package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Grok       GrokConfig       `yaml:"grok"`
	Completion CompletionConfig `yaml:"completion"`
	RapidAPI   RapidAPIConfig   `yaml:"rapidapi"`
	Download   DownloadConfig   `yaml:"download"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Store      StoreConfig      `yaml:"store"`
	Personas   PersonasConfig   `yaml:"personas"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" envconfig:"SERVER_PORT" default:"8080"`
	APIKey          string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"15m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	LogLevel        string        `yaml:"log_level" envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins     []string      `yaml:"cors_origins" envconfig:"CORS_ORIGINS" default:"*"`
}

// GeminiConfig holds Gemini API configuration.
type GeminiConfig struct {
	APIKey            string        `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	Model             string        `yaml:"model" envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	PollInterval      time.Duration `yaml:"poll_interval" envconfig:"GEMINI_POLL_INTERVAL" default:"2s"`
	ProcessingTimeout time.Duration `yaml:"processing_timeout" envconfig:"GEMINI_PROCESSING_TIMEOUT" default:"3m"`
}

// GrokConfig holds Grok AI configuration.
type GrokConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"GROK_API_KEY"`
	BaseURL string        `yaml:"base_url" envconfig:"GROK_BASE_URL" default:"https://api.x.ai/v1"`
	Timeout time.Duration `yaml:"timeout" envconfig:"GROK_TIMEOUT" default:"2m"`
	Model   string        `yaml:"model" envconfig:"GROK_MODEL" default:"grok-3-mini"`
}

// Completion providers.
const (
	ProviderGemini = "gemini"
	ProviderGrok   = "grok"
)

// CompletionConfig selects the text completion provider.
type CompletionConfig struct {
	Provider string `yaml:"provider" envconfig:"COMPLETION_PROVIDER" default:"gemini"`
}

// RapidAPIConfig holds credentials and hosts for the insight and media APIs.
type RapidAPIConfig struct {
	TikTokKey          string        `yaml:"tiktok_key" envconfig:"TIKTOK_RAPIDAPI_KEY"`
	InstagramKey       string        `yaml:"instagram_key" envconfig:"INSTAGRAM_RAPIDAPI_KEY"`
	TikTokHost         string        `yaml:"tiktok_host" envconfig:"TIKTOK_API_HOST" default:"tiktok-api23.p.rapidapi.com"`
	TikTokDownloadHost string        `yaml:"tiktok_download_host" envconfig:"TIKTOK_DOWNLOAD_HOST" default:"tiktok-video-downloader-api.p.rapidapi.com"`
	InstagramHost      string        `yaml:"instagram_host" envconfig:"INSTAGRAM_API_HOST" default:"instagram-scraper-api2.p.rapidapi.com"`
	InstagramMediaHost string        `yaml:"instagram_media_host" envconfig:"INSTAGRAM_MEDIA_HOST" default:"instagram-scraper-stable-api.p.rapidapi.com"`
	Timeout            time.Duration `yaml:"timeout" envconfig:"RAPIDAPI_TIMEOUT" default:"30s"`
}

// DownloadConfig holds video download configuration.
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"2m"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"DOWNLOAD_RETRY_DELAY" default:"1s"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" envconfig:"DOWNLOAD_MAX_RETRY_DELAY" default:"10s"`
	MaxAttempts   int           `yaml:"max_attempts" envconfig:"DOWNLOAD_MAX_ATTEMPTS" default:"3"`
	MaxBytes      int64         `yaml:"max_bytes" envconfig:"DOWNLOAD_MAX_BYTES" default:"209715200"` // 200MB
	UserAgent     string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
}

// AnalysisConfig tunes the orchestration pipeline.
type AnalysisConfig struct {
	BatchSize         int           `yaml:"batch_size" envconfig:"ANALYSIS_BATCH_SIZE" default:"5"`
	ProfileVideoCount int           `yaml:"profile_video_count" envconfig:"ANALYSIS_PROFILE_VIDEO_COUNT" default:"10"`
	DefaultPersona    string        `yaml:"default_persona" envconfig:"ANALYSIS_DEFAULT_PERSONA" default:"doshirouto"`
	ChunkSize         int           `yaml:"chunk_size" envconfig:"DISCUSSION_CHUNK_SIZE" default:"10"`
	ChunkDelay        time.Duration `yaml:"chunk_delay" envconfig:"DISCUSSION_CHUNK_DELAY" default:"30ms"`
	TurnDelay         time.Duration `yaml:"turn_delay" envconfig:"DISCUSSION_TURN_DELAY" default:"200ms"`
}

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// StoreConfig selects the conversation store.
type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"STORE_DRIVER" default:"sqlite"`
	Path   string `yaml:"path" envconfig:"STORE_PATH" default:"data/buzzteacher.db"`
}

// PersonasConfig points at an optional persona catalog file.
type PersonasConfig struct {
	File string `yaml:"file" envconfig:"PERSONAS_FILE"`
}

// Load builds the configuration from defaults, environment variables and an
// optional YAML file, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	switch c.Completion.Provider {
	case ProviderGemini:
	case ProviderGrok:
		if c.Grok.APIKey == "" {
			return fmt.Errorf("GROK_API_KEY is required when COMPLETION_PROVIDER=grok")
		}
	default:
		return fmt.Errorf("unknown completion provider %q", c.Completion.Provider)
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("STORE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Analysis.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.Analysis.ProfileVideoCount <= 0 {
		return fmt.Errorf("profile_video_count must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
