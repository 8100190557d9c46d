package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Chat          ChatConfig          `yaml:"chat"`
	Speech        SpeechConfig        `yaml:"speech"`
	History       HistoryConfig       `yaml:"history"`
	Retry         RetryConfig         `yaml:"retry"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	Log           LogConfig           `yaml:"log"`
}

type ServerConfig struct {
	Addr          string          `yaml:"addr"`
	MaxBodyBytes  int64           `yaml:"max_body_bytes"`
	SessionCookie string          `yaml:"session_cookie"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	ReadTimeout   time.Duration   `yaml:"read_timeout"`
	WriteTimeout  time.Duration   `yaml:"write_timeout"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type AudioConfig struct {
	Source     string `yaml:"source"`
	FileDir    string `yaml:"file_dir"`
	OutputDir  string `yaml:"output_dir"`
	TempDir    string `yaml:"temp_dir"`
	SampleRate int    `yaml:"sample_rate"`
	MaxSeconds int    `yaml:"max_seconds"`
}

type TranscriptionConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ChatConfig struct {
	Provider     string        `yaml:"provider"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	MaxTokens    int           `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`
}

type SpeechConfig struct {
	Provider        string             `yaml:"provider"`
	Voice           string             `yaml:"voice"`
	Engine          string             `yaml:"engine"`
	Format          string             `yaml:"format"`
	SampleRate      string             `yaml:"sample_rate"`
	Region          string             `yaml:"region"`
	AccessKeyID     string             `yaml:"access_key_id"`
	SecretAccessKey string             `yaml:"secret_access_key"`
	Endpoint        string             `yaml:"endpoint"`
	OpenAI          OpenAISpeechConfig `yaml:"openai"`
}

type OpenAISpeechConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Voice   string        `yaml:"voice"`
	Timeout time.Duration `yaml:"timeout"`
}

type HistoryConfig struct {
	Store      string        `yaml:"store"`
	MaxTurns   int           `yaml:"max_turns"`
	TTL        time.Duration `yaml:"ttl"`
	Redis      RedisConfig   `yaml:"redis"`
	SQLitePath string        `yaml:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file, expanding ${VAR} references from the
// environment. Variables from a .env file in the working directory are loaded
// first when the file exists.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 10 << 20
	}
	if c.Server.SessionCookie == "" {
		c.Server.SessionCookie = "relay_session"
	}
	if c.Server.RateLimit.Requests == 0 {
		c.Server.RateLimit.Requests = 30
	}
	if c.Server.RateLimit.Window == 0 {
		c.Server.RateLimit.Window = time.Minute
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}

	if c.Audio.Source == "" {
		c.Audio.Source = "http"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.OutputDir == "" {
		c.Audio.OutputDir = "./replies"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.MaxSeconds == 0 {
		c.Audio.MaxSeconds = 10
	}

	if c.Transcription.Provider == "" {
		c.Transcription.Provider = "openai"
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = "whisper-1"
	}
	if c.Transcription.Timeout == 0 {
		c.Transcription.Timeout = 60 * time.Second
	}

	if c.Chat.Provider == "" {
		c.Chat.Provider = "openai"
	}
	if c.Chat.Model == "" {
		switch c.Chat.Provider {
		case "anthropic":
			c.Chat.Model = "claude-sonnet-4-20250514"
		case "gemini":
			c.Chat.Model = "gemini-2.0-flash"
		default:
			c.Chat.Model = "gpt-4o"
		}
	}
	if c.Chat.APIKey == "" && c.Chat.Provider == "openai" {
		c.Chat.APIKey = c.Transcription.APIKey
	}
	if c.Chat.SystemPrompt == "" {
		c.Chat.SystemPrompt = "You are a helpful virtual assistant."
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = 1024
	}
	if c.Chat.Timeout == 0 {
		c.Chat.Timeout = 60 * time.Second
	}

	if c.Speech.Provider == "" {
		c.Speech.Provider = "polly"
	}
	if c.Speech.Voice == "" {
		c.Speech.Voice = "Joanna"
	}
	if c.Speech.Engine == "" {
		c.Speech.Engine = "neural"
	}
	if c.Speech.Format == "" {
		c.Speech.Format = "mp3"
	}
	if c.Speech.SampleRate == "" {
		c.Speech.SampleRate = "24000"
	}
	if c.Speech.Region == "" {
		c.Speech.Region = "us-east-1"
	}
	if c.Speech.OpenAI.APIKey == "" {
		c.Speech.OpenAI.APIKey = c.Transcription.APIKey
	}
	if c.Speech.OpenAI.Model == "" {
		c.Speech.OpenAI.Model = "tts-1"
	}
	if c.Speech.OpenAI.Voice == "" {
		c.Speech.OpenAI.Voice = "alloy"
	}
	if c.Speech.OpenAI.Timeout == 0 {
		c.Speech.OpenAI.Timeout = 60 * time.Second
	}

	if c.History.Store == "" {
		c.History.Store = "memory"
	}
	if c.History.MaxTurns == 0 {
		c.History.MaxTurns = 20
	}
	if c.History.TTL == 0 {
		c.History.TTL = 30 * time.Minute
	}
	if c.History.Redis.Addr == "" {
		c.History.Redis.Addr = "localhost:6379"
	}
	if c.History.SQLitePath == "" {
		c.History.SQLitePath = "history.db"
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 1
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = 100 * time.Millisecond
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 5 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects unknown providers and missing credentials. All problems
// are reported together.
func (c *Config) Validate() error {
	var errs []error

	oneOf := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown value %q (want one of %v)", field, value, allowed))
	}

	oneOf("audio.source", c.Audio.Source, "http", "file", "microphone")
	oneOf("transcription.provider", c.Transcription.Provider, "openai")
	oneOf("chat.provider", c.Chat.Provider, "openai", "anthropic", "gemini")
	oneOf("speech.provider", c.Speech.Provider, "polly", "openai")
	oneOf("history.store", c.History.Store, "memory", "redis", "sqlite")
	oneOf("log.format", c.Log.Format, "text", "json")

	if c.Transcription.APIKey == "" {
		errs = append(errs, errors.New("transcription.api_key is required"))
	}
	if c.Chat.APIKey == "" {
		errs = append(errs, errors.New("chat.api_key is required"))
	}
	if c.History.MaxTurns < 0 {
		errs = append(errs, errors.New("history.max_turns must not be negative"))
	}
	if c.History.MaxTurns%2 != 0 {
		errs = append(errs, errors.New("history.max_turns must be even so the window starts on a user turn"))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server.max_body_bytes must not be negative"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		errs = append(errs, errors.New("pushover.token and pushover.user_key are required when pushover is enabled"))
	}

	return errors.Join(errs...)
}
