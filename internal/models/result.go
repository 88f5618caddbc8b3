package models

// Outcome is the terminal state of one pipeline run.
type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeServiceBusy Outcome = "service_busy"
	OutcomeFailed      Outcome = "failed"
)

// Timing is the stage-level latency breakdown in milliseconds.
type Timing struct {
	TranscriptionMs int64 `json:"transcriptionMs"`
	GenerationMs    int64 `json:"generationMs"`
	SynthesisMs     int64 `json:"synthesisMs"`
	TotalMs         int64 `json:"totalMs"`
}

// SynthesizedAudio is the speech payload for an answer.
type SynthesizedAudio struct {
	Data        []byte `json:"-"`
	ContentType string `json:"contentType"`
}

// PipelineResult is the externally visible unit of work. It is never persisted
// by the pipeline itself.
type PipelineResult struct {
	QueryID          string            `json:"queryId"`
	Outcome          Outcome           `json:"outcome"`
	Transcript       string            `json:"transcript"`
	Answer           string            `json:"answer"`
	Language         Language          `json:"language"`
	DetectedLanguage string            `json:"detectedLanguage,omitempty"`
	Audio            *SynthesizedAudio `json:"audio"`
	Model            string            `json:"model,omitempty"`
	RacePath         string            `json:"racePath,omitempty"`
	QueryClass       string            `json:"queryClass,omitempty"`
	ContextTier      string            `json:"contextTier,omitempty"`
	PhoneticAccuracy float64           `json:"phoneticAccuracy"`
	InfoDensity      float64           `json:"infoDensity"`
	Timing           Timing            `json:"timing"`
	MetBudget        bool              `json:"metBudget"`
	// Error carries diagnostic detail for busy and failed outcomes.
	Error string `json:"error,omitempty"`
}
