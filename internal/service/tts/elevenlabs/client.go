// Package elevenlabs provides a synthesizer for the ElevenLabs
// text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/observability/logging"
	"ai-voice-query-service/internal/service/tts"
)

const contentType = "audio/mpeg"

// VoiceSettings tune the generated voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Config holds the ElevenLabs client settings.
type Config struct {
	BaseURL string
	APIKey  string
	ModelID string
	// Voices maps each language to a voice ID. Missing languages use the
	// English voice.
	Voices     map[models.Language]string
	Settings   VoiceSettings
	Timeout    time.Duration
	HTTPClient *http.Client
}

// DefaultConfig returns the production voices and settings.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.elevenlabs.io/v1",
		ModelID: "eleven_multilingual_v2",
		Voices: map[models.Language]string{
			models.English:   "pNInz6obpgDQGcFmaJgB",
			models.Tamil:     "pNInz6obpgDQGcFmaJgB",
			models.Malayalam: "Lcf7135Sc6Sjn9as9vmb",
		},
		Settings: VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.3,
			UseSpeakerBoost: true,
		},
		Timeout: 15 * time.Second,
	}
}

// Client implements tts.Synthesizer.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// New creates a client, filling unset fields from DefaultConfig.
func New(cfg Config) *Client {
	d := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ModelID == "" {
		cfg.ModelID = d.ModelID
	}
	if cfg.Voices == nil {
		cfg.Voices = d.Voices
	}
	if cfg.Settings == (VoiceSettings{}) {
		cfg.Settings = d.Settings
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc, log: logging.WithComponent("tts-elevenlabs")}
}

type request struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
	LanguageCode  string        `json:"language_code"`
}

// Voice returns the voice ID used for lang.
func (c *Client) Voice(lang models.Language) string {
	if v, ok := c.cfg.Voices[lang]; ok && v != "" {
		return v
	}
	return c.cfg.Voices[models.English]
}

// Synthesize renders text as MP3 audio.
func (c *Client) Synthesize(ctx context.Context, text string, lang models.Language) (*models.SynthesizedAudio, error) {
	if c.cfg.APIKey == "" {
		return nil, tts.ErrMissingCredentials
	}
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}
	if !lang.IsSupported() {
		lang = models.English
	}

	payload, err := json.Marshal(request{
		Text:          text,
		ModelID:       c.cfg.ModelID,
		VoiceSettings: c.cfg.Settings,
		LanguageCode:  string(lang),
	})
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/text-to-speech/%s", c.cfg.BaseURL, c.Voice(lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Accept", contentType)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tts: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read audio: %w", err)
	}

	c.log.Debug().
		Str("language", string(lang)).
		Int("bytes", len(data)).
		Dur("latency", time.Since(start)).
		Msg("Synthesized")

	return &models.SynthesizedAudio{Data: data, ContentType: contentType}, nil
}
