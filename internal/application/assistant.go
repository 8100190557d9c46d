package application

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"voice-relay/internal/domain"
	"voice-relay/internal/speech"
)

const DefaultSystemPrompt = "You are a helpful virtual assistant."

type Request struct {
	SessionID string
	// Audio is a "data:<mime>;base64,<payload>" string.
	Audio string
}

type Result struct {
	TranscribedText string
	ReplyText       string
	SpeechText      string
	Speech          *domain.Speech
}

// Assistant runs one recording through transcription, chat completion and
// speech synthesis, keeping per-session conversation history in between.
type Assistant struct {
	spool        AudioSpool
	stt          SpeechToText
	chat         ChatModel
	tts          TextToSpeech
	history      HistoryStore
	observer     PipelineObserver
	systemPrompt string
	logger       *slog.Logger
}

func NewAssistant(
	spool AudioSpool,
	stt SpeechToText,
	chat ChatModel,
	tts TextToSpeech,
	history HistoryStore,
	systemPrompt string,
	logger *slog.Logger,
) *Assistant {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Assistant{
		spool:        spool,
		stt:          stt,
		chat:         chat,
		tts:          tts,
		history:      history,
		observer:     NoopObserver{},
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

func (a *Assistant) SetObserver(o PipelineObserver) {
	if o == nil {
		o = NoopObserver{}
	}
	a.observer = o
}

// Handle validates and decodes a data-URL request, then processes it.
func (a *Assistant) Handle(ctx context.Context, req Request) (*Result, error) {
	r := a.newRun(req.SessionID)
	defer r.finish()

	dataURL, err := domain.ParseDataURL(req.Audio)
	if err != nil {
		return nil, r.fail(KindInvalidInput, "invalid audio payload", err)
	}

	decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader(dataURL.Payload))
	return r.process(ctx, dataURL.MIMEType, decoder)
}

// HandleRecording processes audio that is already raw, as captured by local
// sources.
func (a *Assistant) HandleRecording(ctx context.Context, sessionID, mimeType string, audio io.Reader) (*Result, error) {
	r := a.newRun(sessionID)
	defer r.finish()

	return r.process(ctx, mimeType, audio)
}

// run tracks one request through the pipeline states.
type run struct {
	a         *Assistant
	sessionID string
	state     State
	started   time.Time
	entered   time.Time
	err       error
}

func (a *Assistant) newRun(sessionID string) *run {
	now := time.Now()
	return &run{
		a:         a,
		sessionID: sessionID,
		state:     StateValidating,
		started:   now,
		entered:   now,
	}
}

func (r *run) enter(next State) {
	now := time.Now()
	r.a.observer.ObserveState(r.state, now.Sub(r.entered))
	r.a.logger.Debug("pipeline state", "session", r.sessionID, "from", r.state, "to", next)
	r.state = next
	r.entered = now
}

func (r *run) fail(kind Kind, message string, err error) error {
	r.err = &PipelineError{Kind: kind, State: r.state, Message: message, Err: err}
	return r.err
}

func (r *run) process(ctx context.Context, mimeType string, audio io.Reader) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.a.logger.Error("pipeline panic",
				"session", r.sessionID,
				"state", r.state,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			res, err = nil, r.fail(KindUnexpected, "internal error", fmt.Errorf("panic: %v", p))
		}
	}()

	r.enter(StateDecoding)
	clip, err := r.a.spool.Save(mimeType, audio)
	if err != nil {
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			return nil, r.fail(KindInvalidInput, "audio payload is not valid base64", err)
		}
		return nil, r.fail(KindUnexpected, "storing audio", err)
	}
	defer func() {
		if err := r.a.spool.Release(clip); err != nil {
			r.a.logger.Warn("releasing audio clip", "path", clip.Path, "error", err)
		}
	}()

	if clip.Size == 0 {
		return nil, r.fail(KindInvalidInput, "invalid audio payload", domain.ErrEmptyAudio)
	}

	r.enter(StateTranscribing)
	text, err := r.a.stt.Transcribe(ctx, clip)
	if err != nil {
		return nil, r.fail(KindTranscriptionFailed, "transcription failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, r.fail(KindNoSpeechDetected, "no speech detected, please try again", nil)
	}
	r.a.logger.Info("transcribed", "session", r.sessionID, "text", text)

	r.enter(StateAwaitingGeneration)
	past, err := r.a.history.Turns(ctx, r.sessionID)
	if err != nil {
		return nil, r.fail(KindUnexpected, "loading conversation history", err)
	}

	userTurn := domain.UserTurn(text)
	messages := make([]domain.Turn, 0, len(past)+2)
	messages = append(messages, domain.SystemTurn(r.a.systemPrompt))
	messages = append(messages, past...)
	messages = append(messages, userTurn)

	reply, err := r.a.chat.Complete(ctx, messages)
	if err != nil {
		return nil, r.fail(KindGenerationFailed, "generating reply failed", err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, r.fail(KindGenerationFailed, "generating reply failed", errors.New("empty reply"))
	}

	r.enter(StateUpdatingHistory)
	if err := r.a.history.Append(ctx, r.sessionID, userTurn, domain.AssistantTurn(reply)); err != nil {
		return nil, r.fail(KindUnexpected, "saving conversation history", err)
	}

	r.enter(StateSynthesizing)
	speechText := speech.StripMarkdown(reply)
	audioOut, err := r.a.tts.Synthesize(ctx, speechText)
	if err != nil {
		return nil, r.fail(KindSynthesisFailed, "speech synthesis failed", err)
	}

	r.enter(StateDone)
	return &Result{
		TranscribedText: text,
		ReplyText:       reply,
		SpeechText:      speechText,
		Speech:          audioOut,
	}, nil
}

func (r *run) finish() {
	elapsed := time.Since(r.started)

	if r.err == nil {
		r.a.observer.ObserveOutcome("", elapsed)
		r.a.logger.Info("request processed", "session", r.sessionID, "duration", elapsed)
		return
	}

	kind := KindOf(r.err)
	if r.state != StateDone {
		r.a.observer.ObserveState(r.state, time.Since(r.entered))
	}
	r.a.observer.ObserveOutcome(kind, elapsed)

	attrs := []any{"session", r.sessionID, "state", r.state, "kind", kind, "error", r.err}
	if kind.UserCorrectable() {
		r.a.logger.Warn("request rejected", attrs...)
	} else {
		r.a.logger.Error("request failed", attrs...)
	}
}
