package application

import (
	"context"
	"io"

	"voice-relay/internal/domain"
)

// AudioSpool holds decoded recordings for the lifetime of one request.
type AudioSpool interface {
	Save(mimeType string, r io.Reader) (*domain.Clip, error)
	Release(clip *domain.Clip) error
}

// Recording is a clip captured by a local source before it is spooled.
type Recording struct {
	Name     string
	MIMEType string
	Data     []byte
}

type AudioSource interface {
	Start(ctx context.Context) error
	Stop() error
	NextRecording(ctx context.Context) (*Recording, error)
	Name() string
}

// ResultSink receives the outcome of recordings processed in local mode.
type ResultSink interface {
	Write(ctx context.Context, name string, result *Result) error
}

// Notifier pushes a short message about a processed recording to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (*NoopNotifier) Notify(context.Context, string) error { return nil }
