package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/service/audio"
)

// formOverhead is room for the non-file form fields and multipart framing.
const formOverhead = 1 << 20

// Runner executes one voice query.
type Runner interface {
	Run(ctx context.Context, q models.AudioQuery) (*models.PipelineResult, error)
}

// Districts serves the district profiles.
type Districts interface {
	Lookup(id string) (*models.Location, bool)
	IDs() []string
}

type breakdown struct {
	STTMs int64 `json:"stt_ms"`
	LLMMs int64 `json:"llm_ms"`
	TTSMs int64 `json:"tts_ms"`
}

type voiceQueryResponse struct {
	QueryID          string    `json:"query_id"`
	Transcript       string    `json:"transcript"`
	Response         string    `json:"response"`
	Language         string    `json:"language"`
	DetectedLanguage string    `json:"detected_language"`
	AudioBase64      *string   `json:"audio_base64"`
	AudioContentType string    `json:"audio_content_type,omitempty"`
	Model            string    `json:"model,omitempty"`
	RacePath         string    `json:"race_path,omitempty"`
	QueryClass       string    `json:"query_class,omitempty"`
	ContextTier      string    `json:"context_tier,omitempty"`
	PhoneticAccuracy float64   `json:"phonetic_accuracy"`
	InfoDensity      float64   `json:"info_density"`
	LatencyMs        int64     `json:"latency_ms"`
	Breakdown        breakdown `json:"breakdown"`
	Under3s          bool      `json:"under_3s"`
}

type errorResponse struct {
	Error            string   `json:"error"`
	Details          string   `json:"details,omitempty"`
	QueryID          string   `json:"query_id,omitempty"`
	PhoneticAccuracy *float64 `json:"phonetic_accuracy,omitempty"`
	LatencyMs        *int64   `json:"latency_ms,omitempty"`
	Available        []string `json:"available,omitempty"`
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(runner Runner, districts Districts) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/voice-query", voiceQuery(runner, audio.DefaultLimits()))
		r.Get("/districts", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string][]string{"districts": districts.IDs()})
		})
		r.Get("/districts/{id}", district(districts))
	})

	return r
}

func voiceQuery(runner Runner, limits audio.Limits) http.HandlerFunc {
	maxBody := limits.MaxAudioBytes + formOverhead
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		if err := r.ParseMultipartForm(maxBody); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid multipart form", Details: err.Error()})
			return
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No audio file uploaded"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Could not read audio", Details: err.Error()})
			return
		}
		info, err := audio.Inspect(data, header.Header.Get("Content-Type"), limits)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, audio.ErrTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeJSON(w, status, errorResponse{Error: "Unusable audio", Details: err.Error()})
			return
		}

		q := models.AudioQuery{
			Audio:      data,
			MimeType:   info.MimeType,
			Filename:   header.Filename,
			Language:   models.Language(r.FormValue("language")),
			DistrictID: r.FormValue("district"),
		}

		res, err := runner.Run(r.Context(), q)
		if err != nil {
			log.Error().
				Err(err).
				Str("requestId", middleware.GetReqID(r.Context())).
				Msg("Voice query failed")
			resp := errorResponse{Error: "Voice query failed", Details: err.Error()}
			if res != nil {
				resp.QueryID = res.QueryID
			}
			writeJSON(w, http.StatusInternalServerError, resp)
			return
		}

		if res.Outcome == models.OutcomeServiceBusy {
			zero := 0.0
			latency := res.Timing.TotalMs
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{
				Error:            res.Answer,
				Details:          res.Error,
				QueryID:          res.QueryID,
				PhoneticAccuracy: &zero,
				LatencyMs:        &latency,
			})
			return
		}

		writeJSON(w, http.StatusOK, toResponse(res))
	}
}

func toResponse(res *models.PipelineResult) voiceQueryResponse {
	resp := voiceQueryResponse{
		QueryID:          res.QueryID,
		Transcript:       res.Transcript,
		Response:         res.Answer,
		Language:         string(res.Language),
		DetectedLanguage: res.DetectedLanguage,
		Model:            res.Model,
		RacePath:         res.RacePath,
		QueryClass:       res.QueryClass,
		ContextTier:      res.ContextTier,
		PhoneticAccuracy: res.PhoneticAccuracy,
		InfoDensity:      res.InfoDensity,
		LatencyMs:        res.Timing.TotalMs,
		Breakdown: breakdown{
			STTMs: res.Timing.TranscriptionMs,
			LLMMs: res.Timing.GenerationMs,
			TTSMs: res.Timing.SynthesisMs,
		},
		Under3s: res.MetBudget,
	}
	if resp.DetectedLanguage == "" {
		resp.DetectedLanguage = res.Language.Tag()
	}
	if res.Audio != nil {
		encoded := base64.StdEncoding.EncodeToString(res.Audio.Data)
		resp.AudioBase64 = &encoded
		resp.AudioContentType = res.Audio.ContentType
	}
	return resp
}

func district(districts Districts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc, ok := districts.Lookup(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "District not found", Available: districts.IDs()})
			return
		}
		writeJSON(w, http.StatusOK, loc)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
