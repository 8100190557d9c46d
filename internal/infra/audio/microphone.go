//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"voice-relay/internal/application"
)

const framesPerBuffer = 1024

type MicrophoneSource struct {
	stream     *portaudio.Stream
	frame      []int16
	sampleRate int
	maxSeconds int
	logger     *slog.Logger
}

func NewMicrophoneSource(sampleRate, maxSeconds int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		maxSeconds: maxSeconds,
		logger:     logger,
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	m.frame = make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.frame)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	m.stream = stream

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

// NextRecording blocks until a spoken utterance has been captured. Stretches
// of pure silence are discarded.
func (m *MicrophoneSource) NextRecording(ctx context.Context) (*application.Recording, error) {
	m.logger.Info("listening")

	for {
		u := newUtterance(m.sampleRate, m.maxSeconds)

		for done := false; !done; {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			if err := m.stream.Read(); err != nil {
				return nil, fmt.Errorf("reading from stream: %w", err)
			}
			done = u.add(m.frame)
		}

		if !u.hasSpeech() {
			continue
		}

		return &application.Recording{
			Name:     "mic-" + time.Now().Format("20060102-150405"),
			MIMEType: "audio/wav",
			Data:     encodeWAV(u.samples, m.sampleRate),
		}, nil
	}
}
