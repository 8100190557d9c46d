package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"voice-relay/config"
	"voice-relay/internal/application"
	"voice-relay/internal/infra"
	"voice-relay/internal/infra/anthropic"
	"voice-relay/internal/infra/audio"
	"voice-relay/internal/infra/gemini"
	"voice-relay/internal/infra/history"
	"voice-relay/internal/infra/openai"
	"voice-relay/internal/infra/polly"
	"voice-relay/internal/infra/pushover"
	"voice-relay/internal/infra/web"
	"voice-relay/internal/metrics"
)

// app holds every wired component for one process.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	assistant *application.Assistant
	history   application.HistoryStore
	metrics   *metrics.Metrics
	server    *web.Server
	listener  *application.Listener
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	retry := infra.RetryConfig{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Multiplier:   2.0,
	}

	spool, err := audio.NewSpool(cfg.Audio.TempDir)
	if err != nil {
		return nil, err
	}

	stt := openai.NewWhisperClient(openai.Config{
		APIKey:  cfg.Transcription.APIKey,
		BaseURL: cfg.Transcription.BaseURL,
		Timeout: cfg.Transcription.Timeout,
		Retry:   retry,
	}, cfg.Transcription.Model, cfg.Transcription.Language)

	chat, err := createChatModel(ctx, cfg.Chat, retry)
	if err != nil {
		return nil, err
	}

	tts, err := createSpeech(ctx, cfg.Speech, retry)
	if err != nil {
		return nil, err
	}

	if err := a.createHistory(ctx); err != nil {
		a.close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)

	a.assistant = application.NewAssistant(spool, stt, chat, tts, a.history, cfg.Chat.SystemPrompt, logger)
	a.assistant.SetObserver(a.metrics)

	switch cfg.Audio.Source {
	case "http":
		a.server = web.NewServer(web.Config{
			Addr:          cfg.Server.Addr,
			MaxBodyBytes:  cfg.Server.MaxBodyBytes,
			SessionCookie: cfg.Server.SessionCookie,
			RateLimit:     cfg.Server.RateLimit.Requests,
			RateWindow:    cfg.Server.RateLimit.Window,
			ReadTimeout:   cfg.Server.ReadTimeout,
			WriteTimeout:  cfg.Server.WriteTimeout,
		}, a.assistant, a.history, a.metrics.Handler(), a.metrics, logger)
	default:
		sink, err := audio.NewDirSink(cfg.Audio.OutputDir)
		if err != nil {
			a.close()
			return nil, err
		}
		a.listener = application.NewListener(
			a.assistant,
			createAudioSource(cfg.Audio, logger),
			sink,
			createNotifier(cfg.Pushover),
			logger,
		)
	}

	return a, nil
}

// run serves HTTP or drains the local source until ctx is cancelled.
func (a *app) run(ctx context.Context) error {
	if a.listener != nil {
		return a.listener.Run(ctx)
	}

	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("starting http server: %w", err)
	}
	<-ctx.Done()
	if err := a.server.Stop(); err != nil {
		return fmt.Errorf("stopping http server: %w", err)
	}
	return ctx.Err()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("closing resource", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) createHistory(ctx context.Context) error {
	cfg := a.cfg.History

	switch cfg.Store {
	case "redis":
		client, err := history.NewRedisClient(ctx, history.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.history = history.NewRedisStore(client, cfg.MaxTurns, cfg.TTL)
	case "sqlite":
		store, err := history.NewSQLiteStore(cfg.SQLitePath, cfg.MaxTurns, cfg.TTL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		a.history = store
	default:
		store := history.NewMemoryStore(cfg.MaxTurns, cfg.TTL)
		store.StartCleanupRoutine(ctx, cfg.TTL/2)
		a.history = store
	}
	return nil
}

func createChatModel(ctx context.Context, cfg config.ChatConfig, retry infra.RetryConfig) (application.ChatModel, error) {
	switch cfg.Provider {
	case "anthropic":
		var client *anthropic.ClaudeClient
		if cfg.BaseURL != "" {
			client = anthropic.NewClaudeClientWithURL(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.BaseURL)
		} else {
			client = anthropic.NewClaudeClient(cfg.APIKey, cfg.Model, cfg.MaxTokens)
		}
		client.SetRetryConfig(retry)
		return client, nil
	case "gemini":
		client, err := gemini.NewClientWithURL(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		client.SetRetryConfig(retry)
		return client, nil
	default:
		return openai.NewChatClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Retry:   retry,
		}, cfg.Model, cfg.MaxTokens), nil
	}
}

func createSpeech(ctx context.Context, cfg config.SpeechConfig, retry infra.RetryConfig) (application.TextToSpeech, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewSpeechClient(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Timeout: cfg.OpenAI.Timeout,
			Retry:   retry,
		}, cfg.OpenAI.Model, cfg.OpenAI.Voice, cfg.Format), nil
	default:
		return polly.NewClient(ctx, polly.Config{
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Endpoint:        cfg.Endpoint,
			VoiceID:         cfg.Voice,
			Engine:          cfg.Engine,
			Format:          cfg.Format,
			SampleRate:      cfg.SampleRate,
		})
	}
}

func createAudioSource(cfg config.AudioConfig, logger *slog.Logger) application.AudioSource {
	switch cfg.Source {
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, cfg.MaxSeconds, logger)
	default:
		return audio.NewFileSource(cfg.FileDir)
	}
}

func createNotifier(cfg config.PushoverConfig) application.Notifier {
	if cfg.Enabled {
		return pushover.NewClient(cfg.Token, cfg.UserKey)
	}
	return &application.NoopNotifier{}
}
