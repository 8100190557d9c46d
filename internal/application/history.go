package application

import (
	"context"

	"voice-relay/internal/domain"
)

// HistoryStore keeps one bounded conversation per session. Append must be an
// atomic read-modify-write so two requests of the same session never lose
// each other's turns.
type HistoryStore interface {
	Turns(ctx context.Context, sessionID string) ([]domain.Turn, error)
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error
	Clear(ctx context.Context, sessionID string) error
}
