package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"voice-relay/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("starting voice relay", "error", err)
		os.Exit(1)
	}

	logger.Info("starting voice relay",
		"audio_source", cfg.Audio.Source,
		"chat_provider", cfg.Chat.Provider,
		"speech_provider", cfg.Speech.Provider,
		"history_store", cfg.History.Store,
	)

	err = a.run(ctx)
	a.close()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("voice relay error", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

// newLogger builds a text or JSON slog logger. Unknown levels fall back to
// info.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
