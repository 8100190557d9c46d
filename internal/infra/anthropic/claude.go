package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"voice-relay/internal/domain"
	"voice-relay/internal/infra"
)

const DefaultModel = "claude-sonnet-4-20250514"

type ClaudeClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
	retry      infra.RetryConfig
}

func NewClaudeClient(apiKey, model string, maxTokens int) *ClaudeClient {
	return NewClaudeClientWithURL(apiKey, model, maxTokens, "https://api.anthropic.com/v1")
}

func NewClaudeClientWithURL(apiKey, model string, maxTokens int, baseURL string) *ClaudeClient {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
		maxTokens:  maxTokens,
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *ClaudeClient) SetRetryConfig(cfg infra.RetryConfig) {
	c.retry = cfg
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends the conversation to the Messages API. System turns are
// lifted into the top-level system field. The messages list must open with a
// user turn, so assistant turns left at the front by a trimmed window are
// dropped.
func (c *ClaudeClient) Complete(ctx context.Context, messages []domain.Turn) (string, error) {
	reqBody := request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
	}

	var system []string
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		reqBody.Messages = append(reqBody.Messages, message{Role: string(m.Role), Content: m.Content})
	}
	reqBody.System = strings.Join(system, "\n\n")

	for len(reqBody.Messages) > 0 && reqBody.Messages[0].Role != string(domain.RoleUser) {
		reqBody.Messages = reqBody.Messages[1:]
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return infra.StatusError("claude", resp)
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	if sb.Len() == 0 {
		return "", errors.New("empty response from claude")
	}

	return sb.String(), nil
}
