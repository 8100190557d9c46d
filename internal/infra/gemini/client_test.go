package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-relay/internal/domain"
	"voice-relay/internal/infra"
	"voice-relay/internal/infra/gemini"
)

type generateRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
}

func TestClient_Complete(t *testing.T) {
	var received generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			http.Error(w, "not found: "+r.URL.Path, http.StatusNotFound)
			return
		}
		json.NewDecoder(r.Body).Decode(&received)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]string{{"text": "**Paris** is the capital of France."}},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	defer server.Close()

	client, err := gemini.NewClientWithURL(context.Background(), "test-key", "gemini-test", 256, server.URL)
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), []domain.Turn{
		domain.SystemTurn("You are a helpful virtual assistant."),
		domain.UserTurn("Hi"),
		domain.AssistantTurn("Hello!"),
		domain.UserTurn("What is the capital of France?"),
	})
	require.NoError(t, err)

	assert.Equal(t, "**Paris** is the capital of France.", reply)

	require.Len(t, received.Contents, 3)
	assert.Equal(t, "user", received.Contents[0].Role)
	assert.Equal(t, "model", received.Contents[1].Role)
	require.NotNil(t, received.SystemInstruction)
	assert.Equal(t, "You are a helpful virtual assistant.", received.SystemInstruction.Parts[0].Text)
}

func TestClient_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client, err := gemini.NewClientWithURL(context.Background(), "bad-key", "gemini-test", 256, server.URL)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []domain.Turn{domain.UserTurn("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestClient_RetriesOnlyTransientErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
		wantErr   bool
	}{
		{name: "bad request is final", status: http.StatusBadRequest, wantCalls: 1, wantErr: true},
		{name: "forbidden is final", status: http.StatusForbidden, wantCalls: 1, wantErr: true},
		{name: "unavailable is retried", status: http.StatusServiceUnavailable, wantCalls: 2},
		{name: "rate limit is retried", status: http.StatusTooManyRequests, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if calls.Add(1) == 1 {
					w.WriteHeader(tt.status)
					w.Write([]byte(`{"error":{"code":` + strconv.Itoa(tt.status) + `,"message":"failed"}}`))
					return
				}
				json.NewEncoder(w).Encode(map[string]any{
					"candidates": []map[string]any{
						{"content": map[string]any{"role": "model", "parts": []map[string]string{{"text": "ok"}}}},
					},
				})
			}))
			defer server.Close()

			client, err := gemini.NewClientWithURL(context.Background(), "test-key", "gemini-test", 256, server.URL)
			require.NoError(t, err)
			client.SetRetryConfig(infra.RetryConfig{
				MaxAttempts:  3,
				InitialDelay: time.Millisecond,
				MaxDelay:     time.Millisecond,
				Multiplier:   2,
			})

			reply, err := client.Complete(context.Background(), []domain.Turn{domain.UserTurn("hi")})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "ok", reply)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}
