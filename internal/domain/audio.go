package domain

import (
	"errors"
	"strings"
)

var (
	ErrMissingAudio = errors.New("audio payload is missing")
	ErrNotDataURL   = errors.New("audio payload is not a base64 data URL")
	ErrEmptyAudio   = errors.New("audio payload is empty")
)

// DataURL is the "data:<mime>;base64,<payload>" container browsers produce
// for recorded media. Payload is still base64 encoded.
type DataURL struct {
	MIMEType string
	Payload  string
}

func ParseDataURL(s string) (DataURL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DataURL{}, ErrMissingAudio
	}

	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return DataURL{}, ErrNotDataURL
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURL{}, ErrNotDataURL
	}

	params := strings.Split(header, ";")
	if len(params) < 2 || params[len(params)-1] != "base64" {
		return DataURL{}, ErrNotDataURL
	}

	mimeType := strings.ToLower(strings.TrimSpace(params[0]))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return DataURL{MIMEType: mimeType, Payload: payload}, nil
}

func EncodeDataURL(mimeType, base64Payload string) string {
	return "data:" + mimeType + ";base64," + base64Payload
}

// Clip is a decoded recording spooled to local storage for the length of
// one request.
type Clip struct {
	Path     string
	MIMEType string
	Size     int64
}

var clipExtensions = map[string]string{
	"audio/webm":  "webm",
	"video/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/wav":   "wav",
	"audio/wave":  "wav",
	"audio/x-wav": "wav",
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
	"audio/mp4":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/flac":  "flac",
}

// Extension guesses a file extension from the clip's MIME type, ignoring
// codec parameters. Unknown types fall back to webm, which is what browser
// recorders emit by default.
func (c *Clip) Extension() string {
	return ExtensionFor(c.MIMEType)
}

func ExtensionFor(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	if ext, ok := clipExtensions[strings.TrimSpace(base)]; ok {
		return ext
	}
	return "webm"
}

// Speech is synthesized audio ready to be returned to a client.
type Speech struct {
	Data   []byte
	Format string
}

var speechMIMETypes = map[string]string{
	"mp3":        "audio/mpeg",
	"ogg_vorbis": "audio/ogg",
	"opus":       "audio/ogg",
	"pcm":        "audio/L16",
	"aac":        "audio/aac",
	"flac":       "audio/flac",
	"wav":        "audio/wav",
}

var speechExtensions = map[string]string{
	"ogg_vorbis": "ogg",
	"opus":       "ogg",
	"pcm":        "raw",
}

// MIMEType maps the provider's output format name to a registered media type.
func (s *Speech) MIMEType() string {
	if mimeType, ok := speechMIMETypes[s.Format]; ok {
		return mimeType
	}
	return "audio/" + s.Format
}

func (s *Speech) Extension() string {
	if ext, ok := speechExtensions[s.Format]; ok {
		return ext
	}
	return s.Format
}
