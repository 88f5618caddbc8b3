// Package mock provides an in-memory synthesizer.
package mock

import (
	"context"
	"sync"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/service/tts"
)

// Synthesizer returns the text bytes as "audio" so results are inspectable.
type Synthesizer struct {
	mu    sync.Mutex
	err   error
	calls []string
}

// New creates a mock synthesizer. A non-nil err makes every call fail.
func New(err error) *Synthesizer {
	return &Synthesizer{err: err}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string, lang models.Language) (*models.SynthesizedAudio, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	return &models.SynthesizedAudio{
		Data:        []byte(string(lang) + ":" + text),
		ContentType: "audio/mpeg",
	}, nil
}

// Calls returns the texts synthesized so far.
func (s *Synthesizer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}
