package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"voice-relay/internal/domain"
	"voice-relay/internal/infra"
)

const DefaultModel = "gemini-2.0-flash"

type Client struct {
	client    *genai.Client
	model     string
	maxTokens int32
	retry     infra.RetryConfig
}

func NewClient(ctx context.Context, apiKey, model string, maxTokens int) (*Client, error) {
	return NewClientWithURL(ctx, apiKey, model, maxTokens, "")
}

// NewClientWithURL points the SDK at a different endpoint; an empty baseURL
// keeps the SDK default.
func NewClientWithURL(ctx context.Context, apiKey, model string, maxTokens int, baseURL string) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{
		client:    client,
		model:     model,
		maxTokens: int32(maxTokens),
		retry:     infra.DefaultRetryConfig(),
	}, nil
}

func (c *Client) SetRetryConfig(cfg infra.RetryConfig) {
	c.retry = cfg
}

// Complete maps the conversation onto Gemini contents: system turns become the
// system instruction and assistant turns use the "model" role.
func (c *Client) Complete(ctx context.Context, messages []domain.Turn) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: c.maxTokens,
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	var text string
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
		if err != nil {
			err = fmt.Errorf("gemini generate content: %w", err)
			if !retryable(err) {
				return infra.Permanent(err)
			}
			return err
		}
		text = resp.Text()
		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	if text == "" {
		return "", errors.New("empty response from gemini")
	}

	return text, nil
}

// retryable reports whether a GenerateContent error is worth another attempt.
// API errors other than 429 and 5xx are final; transport errors are not.
func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return infra.IsRetryableHTTPStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return infra.IsRetryableHTTPStatus(apiErrPtr.Code)
	}
	return true
}
