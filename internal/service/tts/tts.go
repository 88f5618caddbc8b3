// Package tts defines the speech synthesis contract. Synthesis is best
// effort: a failure leaves the answer text-only.
package tts

import (
	"context"
	"errors"

	"ai-voice-query-service/internal/models"
)

// Synthesizer renders answer text as speech in the given language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang models.Language) (*models.SynthesizedAudio, error)
}

// Sentinel errors.
var (
	ErrEmptyText          = errors.New("tts: empty text")
	ErrMissingCredentials = errors.New("tts: API key is not configured")
)
