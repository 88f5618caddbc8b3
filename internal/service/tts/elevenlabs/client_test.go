package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/service/tts"
)

func TestSynthesize_Request(t *testing.T) {
	var (
		gotPath string
		gotKey  string
		gotBody request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte("ID3mp3"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", APIKey: "xi"})
	audio, err := c.Synthesize(context.Background(), "Apply 50 kg urea.", models.Malayalam)
	require.NoError(t, err)

	assert.Equal(t, "/text-to-speech/Lcf7135Sc6Sjn9as9vmb", gotPath)
	assert.Equal(t, "xi", gotKey)
	assert.Equal(t, "Apply 50 kg urea.", gotBody.Text)
	assert.Equal(t, "eleven_multilingual_v2", gotBody.ModelID)
	assert.Equal(t, "ml", gotBody.LanguageCode)
	assert.Equal(t, DefaultConfig().Settings, gotBody.VoiceSettings)

	assert.Equal(t, []byte("ID3mp3"), audio.Data)
	assert.Equal(t, "audio/mpeg", audio.ContentType)
}

func TestVoice(t *testing.T) {
	c := New(Config{Voices: map[models.Language]string{models.English: "en-voice", models.Tamil: "ta-voice"}})

	assert.Equal(t, "ta-voice", c.Voice(models.Tamil))
	assert.Equal(t, "en-voice", c.Voice(models.Malayalam))
	assert.Equal(t, "en-voice", c.Voice("fr"))
}

func TestSynthesize_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Synthesize(context.Background(), "hi", models.English)
	assert.ErrorIs(t, err, tts.ErrMissingCredentials)

	c := New(Config{BaseURL: srv.URL, APIKey: "xi"})
	_, err = c.Synthesize(context.Background(), "  ", models.English)
	assert.ErrorIs(t, err, tts.ErrEmptyText)

	_, err = c.Synthesize(context.Background(), "hi", models.English)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
