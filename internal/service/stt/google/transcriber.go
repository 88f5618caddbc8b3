// Package google provides a Google Cloud Speech-to-Text transcriber.
package google

import (
	"context"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/observability/logging"
	"ai-voice-query-service/internal/observability/metrics"
	"ai-voice-query-service/internal/service/stt"
)

const provider = "google"

// Config holds the recognition settings.
type Config struct {
	// LanguageCode is used when the audio carries no language hint.
	LanguageCode  string
	SampleRateHz  int
	AudioEncoding string
	// AlternativeLanguages lets the service detect the spoken language
	// among the supported locales.
	AlternativeLanguages bool
}

// DefaultConfig returns settings for 16 kHz LINEAR16 audio.
func DefaultConfig() Config {
	return Config{
		LanguageCode:         "en-IN",
		SampleRateHz:         16000,
		AudioEncoding:        "LINEAR16",
		AlternativeLanguages: true,
	}
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Transcriber implements stt.Transcriber with synchronous recognition.
type Transcriber struct {
	client    *speech.Client
	recognize recognizeFunc
	cfg       Config
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// New creates a Google transcriber.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
func New(ctx context.Context, cfg Config) (*Transcriber, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	t := newTranscriber(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return c.Recognize(ctx, req)
	}, cfg)
	t.client = c
	return t, nil
}

func newTranscriber(fn recognizeFunc, cfg Config) *Transcriber {
	return &Transcriber{
		recognize: fn,
		cfg:       cfg,
		metrics:   metrics.DefaultMetrics,
		log:       logging.WithComponent("stt-google"),
	}
}

// Close releases the underlying gRPC connection.
func (t *Transcriber) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

// Transcribe sends the audio in a single Recognize call.
func (t *Transcriber) Transcribe(ctx context.Context, audio stt.Audio) (*stt.Transcription, error) {
	lang := audio.Language
	if len(audio.Data) == 0 {
		t.metrics.RecordSTTError(provider, "empty_audio")
		return nil, stt.NewFailure(provider, "empty_audio", stt.ErrEmptyAudio, lang)
	}

	start := time.Now()
	resp, err := t.recognize(ctx, t.request(audio))
	latency := time.Since(start)
	if err != nil {
		t.metrics.RecordSTTError(provider, "transport")
		t.log.Error().Err(err).Dur("latency", latency).Msg("Recognize failed")
		return nil, stt.NewFailure(provider, "transport", err, lang)
	}

	var (
		parts      []string
		confidence float64
		detected   string
	)
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		if c := float64(alts[0].GetConfidence()); c > confidence {
			confidence = c
		}
		if detected == "" {
			detected = r.GetLanguageCode()
		}
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		t.metrics.RecordSTTError(provider, "empty_transcript")
		return nil, stt.NewFailure(provider, "empty_transcript", stt.ErrEmptyTranscript, lang)
	}
	if detected == "" {
		detected = t.languageCode(lang)
	}

	t.log.Debug().
		Dur("latency", latency).
		Str("detected", detected).
		Int("chars", len(text)).
		Msg("Transcribed")

	return &stt.Transcription{
		Text:             text,
		Confidence:       confidence * 100,
		DetectedLanguage: detected,
		Latency:          latency,
		Provider:         provider,
	}, nil
}

func (t *Transcriber) request(audio stt.Audio) *speechpb.RecognizeRequest {
	primary := t.languageCode(audio.Language)
	rc := &speechpb.RecognitionConfig{
		Encoding:                   parseAudioEncoding(t.cfg.AudioEncoding),
		SampleRateHertz:            int32(t.cfg.SampleRateHz),
		LanguageCode:               primary,
		EnableAutomaticPunctuation: true,
	}
	if t.cfg.AlternativeLanguages {
		for _, l := range models.Languages {
			if tag := l.Tag(); tag != primary {
				rc.AlternativeLanguageCodes = append(rc.AlternativeLanguageCodes, tag)
			}
		}
	}
	return &speechpb.RecognizeRequest{
		Config: rc,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.Data},
		},
	}
}

func (t *Transcriber) languageCode(lang models.Language) string {
	if lang != "" {
		return lang.Tag()
	}
	if t.cfg.LanguageCode != "" {
		return t.cfg.LanguageCode
	}
	return models.English.Tag()
}

// parseAudioEncoding maps an encoding name to the proto enum. Unknown names
// fall back to LINEAR16.
func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	switch s {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
