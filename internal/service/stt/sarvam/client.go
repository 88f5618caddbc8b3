// Package sarvam provides a transcriber for the Sarvam speech-to-text API.
package sarvam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-query-service/internal/observability/logging"
	"ai-voice-query-service/internal/observability/metrics"
	"ai-voice-query-service/internal/service/stt"
)

const provider = "sarvam"

// defaultConfidence is reported when the API omits a confidence score.
const defaultConfidence = 85

// Config holds the Sarvam client settings.
type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

// DefaultConfig returns the production endpoint and model.
func DefaultConfig() Config {
	return Config{
		URL:     "https://api.sarvam.ai/speech-to-text",
		Model:   "saaras:v3",
		Timeout: 60 * time.Second,
	}
}

// Client implements stt.Transcriber over HTTP.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a Sarvam client. A missing API key is reported on each call,
// not here, so the service still starts and answers with the busy message.
func New(cfg Config) *Client {
	d := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = d.URL
	}
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:     cfg,
		http:    hc,
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("stt-sarvam"),
	}
}

type response struct {
	Transcript   string   `json:"transcript"`
	Text         string   `json:"text"`
	Confidence   *float64 `json:"confidence"`
	LanguageCode string   `json:"language_code"`
}

// Transcribe uploads the audio as a multipart form.
func (c *Client) Transcribe(ctx context.Context, audio stt.Audio) (*stt.Transcription, error) {
	lang := audio.Language
	if c.cfg.APIKey == "" {
		c.metrics.RecordSTTError(provider, "missing_credentials")
		return nil, stt.NewFailure(provider, "missing_credentials", stt.ErrMissingCredentials, lang)
	}
	if len(audio.Data) == 0 {
		c.metrics.RecordSTTError(provider, "empty_audio")
		return nil, stt.NewFailure(provider, "empty_audio", stt.ErrEmptyAudio, lang)
	}

	body, contentType, err := c.form(audio)
	if err != nil {
		return nil, stt.NewFailure(provider, "encode", err, lang)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return nil, stt.NewFailure(provider, "encode", err, lang)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("api-subscription-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		c.metrics.RecordSTTError(provider, "transport")
		c.log.Error().Err(err).Dur("latency", latency).Msg("Request failed")
		return nil, stt.NewFailure(provider, "transport", err, lang)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		code := fmt.Sprintf("http_%d", resp.StatusCode)
		c.metrics.RecordSTTError(provider, code)
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(msg)).
			Msg("Unexpected status")
		return nil, stt.NewFailure(provider, code,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), lang)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		c.metrics.RecordSTTError(provider, "decode")
		return nil, stt.NewFailure(provider, "decode", err, lang)
	}

	text := strings.TrimSpace(r.Transcript)
	if text == "" {
		text = strings.TrimSpace(r.Text)
	}
	if text == "" {
		c.metrics.RecordSTTError(provider, "empty_transcript")
		return nil, stt.NewFailure(provider, "empty_transcript", stt.ErrEmptyTranscript, lang)
	}

	confidence := float64(defaultConfidence)
	if r.Confidence != nil {
		confidence = *r.Confidence * 100
	}
	detected := r.LanguageCode
	if detected == "" {
		detected = lang.Tag()
	}

	c.log.Debug().
		Dur("latency", latency).
		Str("detected", detected).
		Float64("confidence", confidence).
		Msg("Transcribed")

	return &stt.Transcription{
		Text:             text,
		Confidence:       confidence,
		DetectedLanguage: detected,
		Latency:          latency,
		Provider:         provider,
	}, nil
}

func (c *Client) form(audio stt.Audio) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	mimeType := audio.MimeType
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`,
		stt.Filename(audio.Filename, audio.MimeType)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"language_code", audio.Language.Tag()},
		{"model", c.cfg.Model},
		{"mode", "transcribe"},
		{"with_timestamps", "false"},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
