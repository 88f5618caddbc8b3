package mock

import (
	"context"
	"errors"
	"testing"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/service/tts"
)

func TestSynthesizer(t *testing.T) {
	s := New(nil)

	audio, err := s.Synthesize(context.Background(), "apply 50 kg", models.Tamil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio.Data) != "ta:apply 50 kg" {
		t.Errorf("unexpected payload %q", audio.Data)
	}
	if audio.ContentType != "audio/mpeg" {
		t.Errorf("unexpected content type %s", audio.ContentType)
	}

	if _, err := s.Synthesize(context.Background(), "", models.English); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if got := len(s.Calls()); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestSynthesizer_Error(t *testing.T) {
	boom := errors.New("quota exceeded")
	s := New(boom)

	if _, err := s.Synthesize(context.Background(), "hi", models.English); !errors.Is(err, boom) {
		t.Errorf("expected configured error, got %v", err)
	}
}
