// Package mock provides a canned transcriber for running the pipeline
// without provider credentials.
package mock

import (
	"context"
	"sync"
	"time"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/service/stt"
)

// Utterance is one canned transcription.
type Utterance struct {
	Text       string
	Confidence float64
	Language   models.Language
}

// DefaultUtterances cycle when no script is configured.
var DefaultUtterances = []Utterance{
	{Text: "How much fertilizer should I give my coconut trees this month?", Confidence: 92, Language: models.English},
	{Text: "என் நெல் பயிருக்கு எவ்வளவு யூரியா போடணும்?", Confidence: 88, Language: models.Tamil},
	{Text: "വാഴയ്ക്ക് എത്ര വളം ഇടണം?", Confidence: 86, Language: models.Malayalam},
	{Text: "hello", Confidence: 97, Language: models.English},
}

// Transcriber implements stt.Transcriber with scripted results.
type Transcriber struct {
	mu         sync.Mutex
	utterances []Utterance
	next       int
	delay      time.Duration
	err        error
	calls      int
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithUtterances replaces the script.
func WithUtterances(u ...Utterance) Option {
	return func(t *Transcriber) { t.utterances = u }
}

// WithDelay simulates provider latency.
func WithDelay(d time.Duration) Option {
	return func(t *Transcriber) { t.delay = d }
}

// WithError makes every call fail with err.
func WithError(err error) Option {
	return func(t *Transcriber) { t.err = err }
}

// New creates a mock transcriber.
func New(opts ...Option) *Transcriber {
	t := &Transcriber{utterances: DefaultUtterances}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe returns the next scripted utterance. The configured error, if
// any, is wrapped in an *stt.Failure like a real provider would.
func (t *Transcriber) Transcribe(ctx context.Context, audio stt.Audio) (*stt.Transcription, error) {
	t.mu.Lock()
	t.calls++
	delay, err := t.delay, t.err
	var u Utterance
	if len(t.utterances) > 0 {
		u = t.utterances[t.next%len(t.utterances)]
		t.next++
	}
	t.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, stt.NewFailure("mock", "transport", ctx.Err(), audio.Language)
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, stt.NewFailure("mock", "transport", err, audio.Language)
	}
	if u.Text == "" {
		return nil, stt.NewFailure("mock", "empty_transcript", stt.ErrEmptyTranscript, audio.Language)
	}

	lang := u.Language
	if lang == "" {
		lang = audio.Language
	}
	return &stt.Transcription{
		Text:             u.Text,
		Confidence:       u.Confidence,
		DetectedLanguage: lang.Tag(),
		Latency:          delay,
		Provider:         "mock",
	}, nil
}

// Calls returns how many times Transcribe was invoked.
func (t *Transcriber) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
