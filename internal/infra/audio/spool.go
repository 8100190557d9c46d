package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"voice-relay/internal/domain"
)

// Spool writes incoming audio to uniquely named temporary files so the
// transcription client can upload them with the right extension.
type Spool struct {
	dir string
}

// NewSpool uses dir for clips, or the OS temp directory when dir is empty.
func NewSpool(dir string) (*Spool, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool dir: %w", err)
	}
	return &Spool{dir: dir}, nil
}

func (s *Spool) Save(mimeType string, r io.Reader) (*domain.Clip, error) {
	path := filepath.Join(s.dir, "clip-"+uuid.NewString()+"."+domain.ExtensionFor(mimeType))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating clip file: %w", err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing clip file: %w", err)
	}

	return &domain.Clip{Path: path, MIMEType: mimeType, Size: n}, nil
}

func (s *Spool) Release(clip *domain.Clip) error {
	if clip == nil {
		return nil
	}
	if err := os.Remove(clip.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing clip file: %w", err)
	}
	return nil
}
