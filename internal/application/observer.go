package application

import "time"

// PipelineObserver is told how long each state took and how every request
// ended. An empty kind means success.
type PipelineObserver interface {
	ObserveState(state State, elapsed time.Duration)
	ObserveOutcome(kind Kind, elapsed time.Duration)
}

type NoopObserver struct{}

func (NoopObserver) ObserveState(State, time.Duration)  {}
func (NoopObserver) ObserveOutcome(Kind, time.Duration) {}
