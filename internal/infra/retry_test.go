package infra_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"voice-relay/internal/infra"
)

func fastRetry(attempts int) infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry_DefaultIsSingleAttempt(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), infra.DefaultRetryConfig(), func() error {
		calls++
		return errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("unauthorized")
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(5), func() error {
		calls++
		return infra.Permanent(cause)
	})

	assert.Equal(t, cause, err)
	assert.Equal(t, 1, calls)
}

func TestStatusError(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(strings.NewReader("bad key"))}
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(3), func() error {
		calls++
		return infra.StatusError("whisper", resp)
	})

	assert.EqualError(t, err, "whisper API error 401: bad key")
	assert.Equal(t, 1, calls)
	assert.True(t, infra.IsRetryableHTTPStatus(http.StatusBadGateway))
	assert.False(t, infra.IsRetryableHTTPStatus(http.StatusBadRequest))
}
