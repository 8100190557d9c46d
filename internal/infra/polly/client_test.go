package polly_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-relay/internal/infra/polly"
)

func newTestClient(t *testing.T, endpoint string) *polly.Client {
	t.Helper()
	client, err := polly.NewClient(context.Background(), polly.Config{
		Region:          "us-east-1",
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "secret",
		Endpoint:        endpoint,
	})
	require.NoError(t, err)
	return client
}

func TestClient_Synthesize(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/speech" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewDecoder(r.Body).Decode(&received)

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("x-amzn-RequestCharacters", "31")
		w.Write([]byte("ID3 polly audio"))
	}))
	defer server.Close()

	speech, err := newTestClient(t, server.URL).Synthesize(context.Background(), "Paris is the capital of France.")
	require.NoError(t, err)

	assert.Equal(t, "ID3 polly audio", string(speech.Data))
	assert.Equal(t, "mp3", speech.Format)

	assert.Equal(t, "Paris is the capital of France.", received["Text"])
	assert.Equal(t, "Joanna", received["VoiceId"])
	assert.Equal(t, "neural", received["Engine"])
	assert.Equal(t, "24000", received["SampleRate"])
	assert.Equal(t, "text", received["TextType"])
}

func TestClient_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("x-amzn-ErrorType", "TextLengthExceededException")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Maximum text length has been exceeded"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Synthesize(context.Background(), "too long")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Maximum text length has been exceeded")
}
