package application

import (
	"context"

	"voice-relay/internal/domain"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, clip *domain.Clip) (string, error)
}

type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) (*domain.Speech, error)
}

// ChatModel produces the assistant's next message for a conversation. The
// first message is the system instruction, the last one the new user turn.
type ChatModel interface {
	Complete(ctx context.Context, messages []domain.Turn) (string, error)
}
