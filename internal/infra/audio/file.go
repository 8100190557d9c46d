package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"voice-relay/internal/application"
)

var fileMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// FileSource watches a drop directory. Each new recording is picked up once
// and renamed with a ".processed" suffix.
type FileSource struct {
	dir          string
	pollInterval time.Duration
	processed    map[string]bool
	mu           sync.Mutex
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{
		dir:          dir,
		pollInterval: 500 * time.Millisecond,
		processed:    make(map[string]bool),
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating audio dir: %w", err)
	}
	return nil
}

func (f *FileSource) Stop() error {
	return nil
}

func (f *FileSource) NextRecording(ctx context.Context) (*application.Recording, error) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			rec, err := f.checkForNewFile()
			if err != nil {
				return nil, err
			}
			if rec != nil {
				return rec, nil
			}
		}
	}
}

func (f *FileSource) checkForNewFile() (*application.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		mimeType, ok := fileMIMETypes[ext]
		if !ok {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		if f.processed[path] {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", path, err)
		}

		f.processed[path] = true

		if err := os.Rename(path, path+".processed"); err != nil {
			return nil, fmt.Errorf("marking %s processed: %w", path, err)
		}

		return &application.Recording{
			Name:     strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			MIMEType: mimeType,
			Data:     data,
		}, nil
	}

	return nil, nil
}
