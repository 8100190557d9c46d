package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"voice-relay/internal/domain"
	"voice-relay/internal/infra"
)

type SpeechClient struct {
	client
	model  string
	voice  string
	format string
}

func NewSpeechClient(cfg Config, model, voice, format string) *SpeechClient {
	if model == "" {
		model = "tts-1"
	}
	if voice == "" {
		voice = "alloy"
	}
	if format == "" {
		format = "mp3"
	}
	return &SpeechClient{
		client: newClient(cfg),
		model:  model,
		voice:  voice,
		format: format,
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (c *SpeechClient) Synthesize(ctx context.Context, text string) (*domain.Speech, error) {
	bodyBytes, err := json.Marshal(speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: c.format,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var audio []byte
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		c.authorize(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return infra.StatusError("openai speech", resp)
		}

		audio, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading audio: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return &domain.Speech{Data: audio, Format: c.format}, nil
}
