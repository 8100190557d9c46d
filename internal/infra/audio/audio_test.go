package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-relay/internal/application"
	"voice-relay/internal/domain"
)

func TestSpool_SaveAndRelease(t *testing.T) {
	spool, err := NewSpool(t.TempDir())
	require.NoError(t, err)

	clip, err := spool.Save("audio/ogg;codecs=opus", strings.NewReader("ogg bytes"))
	require.NoError(t, err)

	assert.Equal(t, int64(9), clip.Size)
	assert.Equal(t, ".ogg", filepath.Ext(clip.Path))

	data, err := os.ReadFile(clip.Path)
	require.NoError(t, err)
	assert.Equal(t, "ogg bytes", string(data))

	require.NoError(t, spool.Release(clip))
	_, err = os.Stat(clip.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	assert.NoError(t, spool.Release(clip), "releasing twice is harmless")
}

func TestSpool_UniqueNames(t *testing.T) {
	spool, err := NewSpool(t.TempDir())
	require.NoError(t, err)

	a, err := spool.Save("audio/webm", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := spool.Save("audio/webm", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
}

func TestSpool_CorruptBase64RemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	spool, err := NewSpool(dir)
	require.NoError(t, err)

	decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader("aGVsbG8=!!!"))
	_, err = spool.Save("audio/webm", decoder)
	require.Error(t, err)

	var corrupt base64.CorruptInputError
	assert.True(t, errors.As(err, &corrupt))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileSource_PicksUpNewRecordings(t *testing.T) {
	dir := t.TempDir()
	source := NewFileSource(dir)
	source.pollInterval = 10 * time.Millisecond
	require.NoError(t, source.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "question.WAV"), []byte("RIFF data"), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rec, err := source.NextRecording(ctx)
	require.NoError(t, err)

	assert.Equal(t, "question", rec.Name)
	assert.Equal(t, "audio/wav", rec.MIMEType)
	assert.Equal(t, "RIFF data", string(rec.Data))

	_, err = os.Stat(filepath.Join(dir, "question.WAV.processed"))
	assert.NoError(t, err)

	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	_, err = source.NextRecording(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDirSink_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "replies")
	sink, err := NewDirSink(dir)
	require.NoError(t, err)

	err = sink.Write(context.Background(), "question", &application.Result{
		TranscribedText: "What is the capital of France?",
		ReplyText:       "**Paris** is the capital of France.",
		SpeechText:      "Paris is the capital of France.",
		Speech:          &domain.Speech{Data: []byte("ID3"), Format: "mp3"},
	})
	require.NoError(t, err)

	text, err := os.ReadFile(filepath.Join(dir, "question.txt"))
	require.NoError(t, err)
	assert.Equal(t, "You: What is the capital of France?\nAssistant: **Paris** is the capital of France.\n", string(text))

	audio, err := os.ReadFile(filepath.Join(dir, "question.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "ID3", string(audio))
}

func TestDirSink_WriteOggSpeech(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(dir)
	require.NoError(t, err)

	err = sink.Write(context.Background(), "question", &application.Result{
		Speech: &domain.Speech{Data: []byte("OggS"), Format: "ogg_vorbis"},
	})
	require.NoError(t, err)

	audio, err := os.ReadFile(filepath.Join(dir, "question.ogg"))
	require.NoError(t, err)
	assert.Equal(t, "OggS", string(audio))
}

func TestEncodeWAV(t *testing.T) {
	data := encodeWAV([]int16{1, -1, 300}, 16000)

	require.Len(t, data, 44+6)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(data[40:44]))
	assert.True(t, bytes.Equal([]byte{1, 0, 0xff, 0xff, 0x2c, 0x01}, data[44:]))
}

func TestUtterance(t *testing.T) {
	silence := make([]int16, 1000)
	loud := make([]int16, 1000)
	for i := range loud {
		loud[i] = 2000
	}

	t.Run("ends after trailing silence", func(t *testing.T) {
		u := newUtterance(1000, 10)
		assert.False(t, u.add(loud))
		assert.False(t, u.add(silence))
		assert.True(t, u.add(silence))
		assert.True(t, u.hasSpeech())
	})

	t.Run("ends at length limit", func(t *testing.T) {
		u := newUtterance(1000, 2)
		assert.False(t, u.add(loud))
		assert.True(t, u.add(loud))
	})

	t.Run("silence only", func(t *testing.T) {
		u := newUtterance(1000, 10)
		u.add(silence)
		u.add(silence)
		assert.False(t, u.hasSpeech())
	})
}
