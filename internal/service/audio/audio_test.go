package audio

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// wav builds a canonical 16-bit mono PCM file with the given payload length.
func wav(sampleRate uint32, payload int) []byte {
	h := make([]byte, wavHeaderSize+payload)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+payload))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1)
	binary.LittleEndian.PutUint16(h[22:24], 1)
	binary.LittleEndian.PutUint32(h[24:28], sampleRate)
	binary.LittleEndian.PutUint32(h[28:32], sampleRate*2)
	binary.LittleEndian.PutUint16(h[32:34], 2)
	binary.LittleEndian.PutUint16(h[34:36], 16)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(payload))
	return h
}

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()

	if l.MaxAudioBytes != 10<<20 {
		t.Errorf("expected 10MB, got %d", l.MaxAudioBytes)
	}
	if l.MaxDuration != 2*time.Minute {
		t.Errorf("expected 2m, got %v", l.MaxDuration)
	}
}

func TestInspect_WAV(t *testing.T) {
	data := wav(16000, 16000*2*3) // 3 seconds

	info, err := Inspect(data, "", DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.MimeType != "audio/wav" {
		t.Errorf("expected audio/wav, got %s", info.MimeType)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitsPerSample != 16 {
		t.Errorf("unexpected format %+v", info)
	}
	if info.Duration != 3*time.Second {
		t.Errorf("expected 3s, got %v", info.Duration)
	}
}

func TestInspect_ContentTypes(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		declared string
		want     string
	}{
		{"declared m4a", []byte("anything"), "audio/x-m4a", "audio/x-m4a"},
		{"codec parameter", []byte("anything"), "audio/webm;codecs=opus", "audio/webm"},
		{"wave alias", wav(8000, 10), "audio/x-wav", "audio/wav"},
		{"video webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0}, "video/webm", "audio/webm"},
		{"sniff mp3", []byte("ID3\x04rest"), "", "audio/mpeg"},
		{"sniff mp3 frame", []byte{0xFF, 0xFB, 0x90}, "", "audio/mpeg"},
		{"sniff ogg", []byte("OggSrest"), "application/octet-stream", "audio/ogg"},
		{"sniff flac", []byte("fLaCrest"), "", "audio/flac"},
		{"sniff webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 1}, "", "audio/webm"},
		{"sniff mp4", []byte("\x00\x00\x00\x20ftypM4A "), "", "audio/mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.data, tt.declared, DefaultLimits())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.MimeType != tt.want {
				t.Errorf("expected %s, got %s", tt.want, info.MimeType)
			}
		})
	}
}

func TestInspect_Rejections(t *testing.T) {
	limits := Limits{MaxAudioBytes: 1 << 20, MaxDuration: 5 * time.Second}

	tests := []struct {
		name     string
		data     []byte
		declared string
		want     error
	}{
		{"empty", nil, "audio/wav", ErrEmpty},
		{"too large", make([]byte, 1<<20+1), "audio/wav", ErrTooLarge},
		{"too long", wav(8000, 8000*2*6), "audio/wav", ErrTooLong},
		{"not audio", []byte("%PDF-1.7"), "application/pdf", ErrUnsupportedType},
		{"unrecognised bytes", []byte("hello world"), "", ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(tt.data, tt.declared, limits)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestInspect_NoLimits(t *testing.T) {
	if _, err := Inspect(wav(8000, 8000*2*600), "audio/wav", Limits{}); err != nil {
		t.Errorf("zero limits must not reject, got %v", err)
	}
}
