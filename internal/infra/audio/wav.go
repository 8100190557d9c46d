package audio

import (
	"bytes"
	"encoding/binary"
)

// encodeWAV wraps mono 16-bit PCM samples in a RIFF/WAVE container.
func encodeWAV(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer

	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, int16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, int16(2))
	binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// utterance accumulates microphone frames and decides when a spoken
// recording is complete: after a second of trailing silence once at least a
// second was captured, or when the length limit is hit.
type utterance struct {
	sampleRate int
	maxSamples int
	threshold  int16

	samples []int16
	silent  int
	voiced  bool
}

func newUtterance(sampleRate, maxSeconds int) *utterance {
	if maxSeconds <= 0 {
		maxSeconds = 10
	}
	return &utterance{
		sampleRate: sampleRate,
		maxSamples: sampleRate * maxSeconds,
		threshold:  500,
		samples:    make([]int16, 0, sampleRate*5),
	}
}

// add appends one frame and reports whether the recording is complete.
func (u *utterance) add(frame []int16) bool {
	u.samples = append(u.samples, frame...)

	loud := false
	for _, s := range frame {
		if s > u.threshold || s < -u.threshold {
			loud = true
			break
		}
	}

	if loud {
		u.silent = 0
		u.voiced = true
	} else {
		u.silent += len(frame)
	}

	if u.silent > u.sampleRate && len(u.samples) > u.sampleRate {
		return true
	}
	return len(u.samples) >= u.maxSamples
}

// hasSpeech is false when nothing above the threshold was heard.
func (u *utterance) hasSpeech() bool {
	return u.voiced
}
