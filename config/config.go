// Package config provides configuration management for the smartmeet backend.
// It supports loading configuration from YAML files with environment variable
// overrides for deployment-sensitive values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultConfigDir  = ".smartmeet"
	DefaultConfigFile = "config.yaml"

	DefaultRedisAddr = "localhost:6379"
	DefaultUploadDir = "uploads"

	DefaultTranscribeModel = "whisper-large-v3"
	DefaultChatModel       = "llama-3.3-70b-versatile"
	DefaultEmbeddingModel  = "text-embedding-3-small"

	// DefaultSpeakerEmbeddingDim is the output dimensionality of the
	// speaker-encoder model (ECAPA-TDNN style encoders emit 192 floats).
	DefaultSpeakerEmbeddingDim = 192

	DefaultTranscribeTimeout = 10 * time.Minute
	DefaultLLMTimeout        = 2 * time.Minute
	DefaultEmbedTimeout      = 30 * time.Second
	DefaultEncoderTimeout    = 30 * time.Second

	DefaultWorkerCount = 2
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level,omitempty"`

	// JSON enables JSON log output (production); console output otherwise.
	JSON bool `yaml:"json,omitempty"`
}

// RedisConfig holds Redis connection settings for the work queue,
// the meeting locks, and the memory index store.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// ProviderConfig holds connection settings for one external AI provider.
type ProviderConfig struct {
	// APIKey authenticates against the provider. The environment variable
	// named in APIKeyEnv takes precedence when set.
	APIKey string `yaml:"api_key,omitempty"`

	// APIKeyEnv names an environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// BaseURL overrides the provider endpoint (for OpenAI-compatible hosts).
	BaseURL string `yaml:"base_url,omitempty"`

	// Model is the model identifier sent with each request.
	Model string `yaml:"model,omitempty"`

	// Timeout bounds every call to this provider.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Key resolves the API key, preferring the environment variable.
func (p *ProviderConfig) Key() string {
	if p.APIKeyEnv != "" {
		if v := os.Getenv(p.APIKeyEnv); v != "" {
			return v
		}
	}
	return p.APIKey
}

// EncoderConfig holds settings for the speaker-encoder service.
type EncoderConfig struct {
	// URL is the base URL of the speaker-encoder HTTP service.
	URL string `yaml:"url,omitempty"`

	// Dim is the expected embedding dimensionality.
	Dim int `yaml:"dim,omitempty"`

	// Timeout bounds each embedding call.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// PipelineConfig holds pipeline execution settings.
type PipelineConfig struct {
	// UploadDir is where uploaded and normalized audio files live.
	UploadDir string `yaml:"upload_dir,omitempty"`

	// FFmpegPath overrides the ffmpeg binary used for audio normalization.
	FFmpegPath string `yaml:"ffmpeg_path,omitempty"`

	// Workers is the number of pipeline workers to run.
	Workers int `yaml:"workers,omitempty"`
}

// Config is the top-level service configuration.
type Config struct {
	Logging    LoggingConfig  `yaml:"logging,omitempty"`
	Redis      RedisConfig    `yaml:"redis,omitempty"`
	Transcribe ProviderConfig `yaml:"transcribe,omitempty"`
	LLM        ProviderConfig `yaml:"llm,omitempty"`
	Embedding  ProviderConfig `yaml:"embedding,omitempty"`
	Encoder    EncoderConfig  `yaml:"encoder,omitempty"`
	Pipeline   PipelineConfig `yaml:"pipeline,omitempty"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Redis:   RedisConfig{Addr: DefaultRedisAddr},
		Transcribe: ProviderConfig{
			APIKeyEnv: "GROQ_API_KEY",
			Model:     DefaultTranscribeModel,
			Timeout:   DefaultTranscribeTimeout,
		},
		LLM: ProviderConfig{
			APIKeyEnv: "GROQ_API_KEY",
			Model:     DefaultChatModel,
			Timeout:   DefaultLLMTimeout,
		},
		Embedding: ProviderConfig{
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     DefaultEmbeddingModel,
			Timeout:   DefaultEmbedTimeout,
		},
		Encoder: EncoderConfig{
			URL:     "http://localhost:8081",
			Dim:     DefaultSpeakerEmbeddingDim,
			Timeout: DefaultEncoderTimeout,
		},
		Pipeline: PipelineConfig{
			UploadDir: DefaultUploadDir,
			Workers:   DefaultWorkerCount,
		},
	}
}

// DefaultPath returns the default config file path (~/.smartmeet/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigFile
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
}

// Load reads configuration from the given path, falling back to defaults
// for anything unset. A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// applyDefaults fills zero values left by a partial YAML file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = d.Redis.Addr
	}
	if c.Transcribe.Model == "" {
		c.Transcribe.Model = d.Transcribe.Model
	}
	if c.Transcribe.Timeout == 0 {
		c.Transcribe.Timeout = d.Transcribe.Timeout
	}
	if c.LLM.Model == "" {
		c.LLM.Model = d.LLM.Model
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = d.LLM.Timeout
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = d.Embedding.Model
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = d.Embedding.Timeout
	}
	if c.Encoder.Dim == 0 {
		c.Encoder.Dim = d.Encoder.Dim
	}
	if c.Encoder.Timeout == 0 {
		c.Encoder.Timeout = d.Encoder.Timeout
	}
	if c.Pipeline.UploadDir == "" {
		c.Pipeline.UploadDir = d.Pipeline.UploadDir
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = d.Pipeline.Workers
	}
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if dir := os.Getenv("SMARTMEET_UPLOAD_DIR"); dir != "" {
		c.Pipeline.UploadDir = dir
	}
	if url := os.Getenv("SPEAKER_ENCODER_URL"); url != "" {
		c.Encoder.URL = url
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.Encoder.Dim <= 0 {
		return fmt.Errorf("encoder dim must be positive, got %d", c.Encoder.Dim)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline workers must be positive, got %d", c.Pipeline.Workers)
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
