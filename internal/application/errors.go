package application

import (
	"errors"
	"fmt"
)

// State is a step of the request pipeline.
type State int

const (
	StateValidating State = iota
	StateDecoding
	StateTranscribing
	StateAwaitingGeneration
	StateUpdatingHistory
	StateSynthesizing
	StateDone
)

var stateNames = [...]string{
	StateValidating:         "validating",
	StateDecoding:           "decoding",
	StateTranscribing:       "transcribing",
	StateAwaitingGeneration: "awaiting_generation",
	StateUpdatingHistory:    "updating_history",
	StateSynthesizing:       "synthesizing",
	StateDone:               "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Kind classifies why a request failed.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindNoSpeechDetected    Kind = "no_speech_detected"
	KindTranscriptionFailed Kind = "transcription_failed"
	KindGenerationFailed    Kind = "generation_failed"
	KindSynthesisFailed     Kind = "synthesis_failed"
	KindUnexpected          Kind = "unexpected"
)

// UserCorrectable reports whether the caller can fix the failure by sending
// a different recording.
func (k Kind) UserCorrectable() bool {
	return k == KindInvalidInput || k == KindNoSpeechDetected
}

// PipelineError is the terminal Failed(kind) state of a request.
type PipelineError struct {
	Kind    Kind
	State   State
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a pipeline failure, or KindUnexpected for any
// other error.
func KindOf(err error) Kind {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnexpected
}
