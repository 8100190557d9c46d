package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"voice-relay/internal/application"
)

// DirSink writes each result next to its siblings in an output directory:
// "<name>.txt" with the transcript and reply, and the synthesized audio.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (d *DirSink) Write(_ context.Context, name string, result *application.Result) error {
	base := filepath.Join(d.dir, filepath.Base(name))

	text := fmt.Sprintf("You: %s\nAssistant: %s\n", result.TranscribedText, result.ReplyText)
	if err := os.WriteFile(base+".txt", []byte(text), 0644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}

	if result.Speech != nil {
		if err := os.WriteFile(base+"."+result.Speech.Extension(), result.Speech.Data, 0644); err != nil {
			return fmt.Errorf("writing speech: %w", err)
		}
	}

	return nil
}
