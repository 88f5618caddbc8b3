package app

import (
	"context"
	"fmt"

	"ai-voice-query-service/internal/config"
	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/service/stt"
	sttgoogle "ai-voice-query-service/internal/service/stt/google"
	sttmock "ai-voice-query-service/internal/service/stt/mock"
	"ai-voice-query-service/internal/service/stt/sarvam"
	"ai-voice-query-service/internal/service/tts"
	"ai-voice-query-service/internal/service/tts/elevenlabs"
	ttsmock "ai-voice-query-service/internal/service/tts/mock"
)

func newTranscriber(ctx context.Context, cfg config.STTConfig) (stt.Transcriber, error) {
	switch cfg.Provider {
	case "mock", "":
		return sttmock.New(), nil
	case "sarvam":
		return sarvam.New(sarvam.Config{
			URL:     cfg.SarvamURL,
			APIKey:  cfg.SarvamAPIKey,
			Model:   cfg.SarvamModel,
			Timeout: cfg.Timeout,
		}), nil
	case "google":
		gc := sttgoogle.DefaultConfig()
		gc.LanguageCode = cfg.LanguageCode
		gc.SampleRateHz = cfg.SampleRateHz
		gc.AudioEncoding = cfg.Encoding
		t, err := sttgoogle.New(ctx, gc)
		if err != nil {
			return nil, fmt.Errorf("app: google speech client: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("app: unknown STT provider %q", cfg.Provider)
	}
}

func newSynthesizer(cfg config.TTSConfig) (tts.Synthesizer, error) {
	switch cfg.Provider {
	case "mock", "":
		return ttsmock.New(nil), nil
	case "elevenlabs":
		settings := elevenlabs.DefaultConfig().Settings
		settings.Stability = cfg.Stability
		settings.SimilarityBoost = cfg.SimilarityBoost
		settings.Style = cfg.Style
		return elevenlabs.New(elevenlabs.Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			ModelID: cfg.ModelID,
			Voices: map[models.Language]string{
				models.English:   cfg.EnglishVoiceID,
				models.Tamil:     cfg.TamilVoiceID,
				models.Malayalam: cfg.MalayalamVoice,
			},
			Settings: settings,
			Timeout:  cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("app: unknown TTS provider %q", cfg.Provider)
	}
}
