package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"voice-relay/internal/application"
)

type mockAudioSource struct {
	recordings []*application.Recording
	index      int
}

func (m *mockAudioSource) Start(_ context.Context) error { return nil }
func (m *mockAudioSource) Stop() error                   { return nil }
func (m *mockAudioSource) Name() string                  { return "mock" }

func (m *mockAudioSource) NextRecording(ctx context.Context) (*application.Recording, error) {
	if m.index >= len(m.recordings) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	rec := m.recordings[m.index]
	m.index++
	return rec, nil
}

type mockSink struct {
	mu       sync.Mutex
	results  map[string]*application.Result
	doneChan chan struct{}
	expected int
}

func (m *mockSink) Write(_ context.Context, name string, result *application.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[name] = result
	if m.doneChan != nil && len(m.results) == m.expected {
		close(m.doneChan)
	}
	return nil
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func TestListener_ProcessesRecordings(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := newFixture()

	source := &mockAudioSource{
		recordings: []*application.Recording{
			{Name: "first.wav", MIMEType: "audio/wav", Data: []byte("RIFF one")},
			{Name: "second.wav", MIMEType: "audio/wav", Data: []byte("RIFF two")},
		},
	}
	doneChan := make(chan struct{})
	sink := &mockSink{results: map[string]*application.Result{}, doneChan: doneChan, expected: 2}
	notifier := &mockNotifier{}

	listener := application.NewListener(f.assistant(), source, sink, notifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- listener.Run(ctx)
	}()

	select {
	case <-doneChan:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for recordings to be processed")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}

	if got := sink.results["first.wav"].SpeechText; got != "Paris is the capital of France." {
		t.Errorf("speech text: got %q", got)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.messages) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(notifier.messages))
	}

	if got := len(f.history.turns[application.LocalSessionID]); got != 4 {
		t.Errorf("local history length: got %d, want 4", got)
	}
}

func TestListener_ProviderFailureIsNotified(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := newFixture()
	f.tts.err = errors.New("polly down")

	source := &mockAudioSource{
		recordings: []*application.Recording{
			{Name: "broken.wav", MIMEType: "audio/wav", Data: []byte("RIFF")},
		},
	}
	sink := &mockSink{results: map[string]*application.Result{}}
	notifier := &mockNotifier{}

	listener := application.NewListener(f.assistant(), source, sink, notifier, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_ = listener.Run(ctx)

	if len(sink.results) != 0 {
		t.Errorf("failed recording should not reach the sink")
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.messages) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.messages))
	}
}
