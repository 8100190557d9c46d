package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// LocalSessionID is the conversation used by recordings from local sources.
const LocalSessionID = "local"

// Listener feeds recordings from a local source through the assistant and
// hands the results to a sink and a notifier.
type Listener struct {
	assistant *Assistant
	source    AudioSource
	sink      ResultSink
	notifier  Notifier
	logger    *slog.Logger
}

func NewListener(
	assistant *Assistant,
	source AudioSource,
	sink ResultSink,
	notifier Notifier,
	logger *slog.Logger,
) *Listener {
	return &Listener{
		assistant: assistant,
		source:    source,
		sink:      sink,
		notifier:  notifier,
		logger:    logger,
	}
}

func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("starting audio source", "source", l.source.Name())
	if err := l.source.Start(ctx); err != nil {
		return fmt.Errorf("starting audio: %w", err)
	}
	defer l.source.Stop()

	l.logger.Info("assistant ready, listening for recordings")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := l.processOne(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				l.logger.Error("processing recording", "error", err)
			}
		}
	}
}

func (l *Listener) processOne(ctx context.Context) error {
	rec, err := l.source.NextRecording(ctx)
	if err != nil {
		return fmt.Errorf("getting audio: %w", err)
	}

	if rec == nil || len(rec.Data) == 0 {
		return nil
	}

	l.logger.Info("received recording", "name", rec.Name, "bytes", len(rec.Data))

	result, err := l.assistant.HandleRecording(ctx, LocalSessionID, rec.MIMEType, bytes.NewReader(rec.Data))
	if err != nil {
		if KindOf(err).UserCorrectable() {
			return nil
		}
		if notifyErr := l.notifier.Notify(ctx, fmt.Sprintf("Error: %s", err.Error())); notifyErr != nil {
			l.logger.Error("notifying error", "error", notifyErr)
		}
		return fmt.Errorf("handling %s: %w", rec.Name, err)
	}

	if err := l.sink.Write(ctx, rec.Name, result); err != nil {
		return fmt.Errorf("writing result for %s: %w", rec.Name, err)
	}

	if err := l.notifier.Notify(ctx, result.ReplyText); err != nil {
		l.logger.Error("notifying result", "error", err)
	}

	return nil
}
