// Package openai talks to the OpenAI REST API for transcription, chat
// completions and speech.
package openai

import (
	"net/http"
	"time"

	"voice-relay/internal/infra"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Retry   infra.RetryConfig
}

type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func newClient(cfg Config) client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = infra.DefaultRetryConfig()
	}
	return client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      cfg.Retry,
	}
}

func (c *client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
