// Package stt defines the transcription contract used by the voice pipeline
// and the localized fallback shown when transcription is unavailable.
package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-voice-query-service/internal/models"
)

// Audio is one recorded question to transcribe.
type Audio struct {
	Data     []byte
	MimeType string
	// Filename is the uploaded name; empty names are derived from MimeType.
	Filename string
	// Language is the caller's hint.
	Language models.Language
}

// Transcription is a successful transcription.
type Transcription struct {
	Text string
	// Confidence is on a 0-100 scale; 0 when the provider gave none.
	Confidence float64
	// DetectedLanguage is the provider's BCP-47 tag, e.g. "ta-IN".
	DetectedLanguage string
	Latency          time.Duration
	Provider         string
}

// Transcriber turns audio into text. Implementations return a *Failure for
// provider errors so callers always have a localized fallback to show.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (*Transcription, error)
}

// Sentinel errors.
var (
	ErrEmptyTranscript    = errors.New("stt: empty transcript")
	ErrEmptyAudio         = errors.New("stt: empty audio")
	ErrMissingCredentials = errors.New("stt: API key is not configured")
)

// Failure is a structured transcription failure.
type Failure struct {
	Provider string
	// Code is machine readable: "missing_credentials", "empty_audio",
	// "empty_transcript", "http_<status>", "transport" or "decode".
	Code string
	Err  error
	// Fallback is the localized message to show the user.
	Fallback string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("stt %s [%s]: %v", f.Provider, f.Code, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure builds a Failure with the busy message for lang.
func NewFailure(provider, code string, err error, lang models.Language) *Failure {
	return &Failure{
		Provider: provider,
		Code:     code,
		Err:      err,
		Fallback: BusyMessage(lang),
	}
}

var busyMessages = map[models.Language]string{
	models.English:   "Service is busy, please try again in a moment.",
	models.Tamil:     "சேவை பிசியாக உள்ளது, சிறிது நேரம் கழித்து மீண்டும் முயற்சிக்கவும்.",
	models.Malayalam: "സേവനം തിരക്കിലാണ്, ദയവായി കുറച്ച് കഴിഞ്ഞ് വീണ്ടും ശ്രമിക്കുക.",
}

// BusyMessage returns the "service busy" text for lang, falling back to
// English for unrecognised languages.
func BusyMessage(lang models.Language) string {
	if msg, ok := busyMessages[lang]; ok {
		return msg
	}
	return busyMessages[models.English]
}

// ShortLanguage maps a provider tag such as "ml-IN" to a supported language.
// It returns "" for an empty tag so callers can keep their own hint.
func ShortLanguage(tag string) models.Language {
	if strings.TrimSpace(tag) == "" {
		return ""
	}
	return models.ParseLanguage(tag)
}

var filenames = map[string]string{
	"audio/m4a":   "recording.m4a",
	"audio/x-m4a": "recording.m4a",
	"audio/mp4":   "recording.m4a",
	"audio/aac":   "recording.aac",
	"audio/wav":   "recording.wav",
	"audio/wave":  "recording.wav",
	"audio/x-wav": "recording.wav",
	"audio/mpeg":  "recording.mp3",
	"audio/mp3":   "recording.mp3",
	"audio/ogg":   "recording.ogg",
	"audio/webm":  "recording.webm",
	"audio/flac":  "recording.flac",
}

// Filename returns a name with an extension matching mimeType. Some
// providers reject uploads without one.
func Filename(original, mimeType string) string {
	if original != "" {
		return original
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if name, ok := filenames[mt]; ok {
		return name
	}
	return "recording.wav"
}
