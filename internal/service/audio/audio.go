// Package audio inspects uploaded recordings before they reach a
// transcription provider.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Limits are guardrails on a single recorded question.
type Limits struct {
	MaxAudioBytes int64
	// MaxDuration is only enforced when the duration can be read from the
	// container header.
	MaxDuration time.Duration
}

// DefaultLimits returns the limits for spoken questions.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes: 10 << 20,
		MaxDuration:   2 * time.Minute,
	}
}

// Errors returned by Inspect.
var (
	ErrEmpty           = errors.New("audio: empty recording")
	ErrTooLarge        = errors.New("audio: recording too large")
	ErrTooLong         = errors.New("audio: recording too long")
	ErrUnsupportedType = errors.New("audio: unsupported content type")
)

// Info describes a recording. Format fields are zero unless the container
// is WAV.
type Info struct {
	MimeType      string
	Bytes         int
	Duration      time.Duration
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
}

// wavHeaderSize is the canonical PCM WAV header length.
const wavHeaderSize = 44

// Inspect validates data against limits and settles its content type.
// Browsers often upload with an empty or generic type, so the type is
// sniffed from the leading bytes when the declared one says nothing.
func Inspect(data []byte, declared string, limits Limits) (Info, error) {
	info := Info{Bytes: len(data)}
	if len(data) == 0 {
		return info, ErrEmpty
	}
	if limits.MaxAudioBytes > 0 && int64(len(data)) > limits.MaxAudioBytes {
		return info, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), limits.MaxAudioBytes)
	}

	mt := normalize(declared)
	switch {
	case mt == "" || mt == "application/octet-stream":
		mt = sniff(data)
	case !strings.HasPrefix(mt, "audio/") && mt != "video/webm":
		return info, fmt.Errorf("%w: %s", ErrUnsupportedType, declared)
	}
	if mt == "" {
		return info, fmt.Errorf("%w: unrecognised data", ErrUnsupportedType)
	}
	if mt == "video/webm" {
		// MediaRecorder in some browsers labels audio-only webm as video.
		mt = "audio/webm"
	}
	info.MimeType = mt

	if mt == "audio/wav" {
		readWAV(data, &info)
		if limits.MaxDuration > 0 && info.Duration > limits.MaxDuration {
			return info, fmt.Errorf("%w: %s > %s", ErrTooLong, info.Duration.Round(time.Second), limits.MaxDuration)
		}
	}
	return info, nil
}

func normalize(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return "audio/wav"
	}
	return mt
}

func sniff(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "audio/wav"
	case bytes.HasPrefix(data, []byte("ID3")), len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "audio/mpeg"
	case bytes.HasPrefix(data, []byte("OggS")):
		return "audio/ogg"
	case bytes.HasPrefix(data, []byte("fLaC")):
		return "audio/flac"
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "audio/webm"
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return "audio/mp4"
	}
	return ""
}

// readWAV fills format fields from a canonical PCM header. Anything shorter
// or non-canonical leaves them zero.
func readWAV(data []byte, info *Info) {
	if len(data) < wavHeaderSize {
		return
	}
	info.Channels = binary.LittleEndian.Uint16(data[22:24])
	info.SampleRate = binary.LittleEndian.Uint32(data[24:28])
	byteRate := binary.LittleEndian.Uint32(data[28:32])
	info.BitsPerSample = binary.LittleEndian.Uint16(data[34:36])
	if byteRate > 0 {
		payload := len(data) - wavHeaderSize
		info.Duration = time.Duration(float64(payload) / float64(byteRate) * float64(time.Second))
	}
}
