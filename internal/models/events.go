package models

// Stage names reported on the live metrics feed.
const (
	StageTranscription = "transcription"
	StageGeneration    = "generation"
	StageSynthesis     = "synthesis"
	StageTotal         = "total"
)

// StageEvent is a single advisory timing sample for the debug dashboard.
type StageEvent struct {
	QueryID          string  `json:"queryId"`
	Stage            string  `json:"stage"`
	LatencyMs        int64   `json:"latencyMs"`
	InfoDensity      float64 `json:"infoDensity"`
	PhoneticAccuracy float64 `json:"phoneticAccuracy"`
	Timestamp        int64   `json:"timestamp"`
}

// QueryCompleted is published after a run produced an answer.
type QueryCompleted struct {
	EventType   string   `json:"eventType"`
	QueryID     string   `json:"queryId"`
	Language    Language `json:"language"`
	Transcript  string   `json:"transcript"`
	Answer      string   `json:"answer"`
	Model       string   `json:"model"`
	RacePath    string   `json:"racePath"`
	ContextTier string   `json:"contextTier"`
	InfoDensity float64  `json:"infoDensity"`
	HasAudio    bool     `json:"hasAudio"`
	Timing      Timing   `json:"timing"`
	MetBudget   bool     `json:"metBudget"`
	Timestamp   int64    `json:"timestamp"`
}

// QueryFailed is published after a run ended busy or failed.
type QueryFailed struct {
	EventType string   `json:"eventType"`
	QueryID   string   `json:"queryId"`
	Language  Language `json:"language"`
	Outcome   Outcome  `json:"outcome"`
	Stage     string   `json:"stage"`
	Error     string   `json:"error"`
	Timing    Timing   `json:"timing"`
	Timestamp int64    `json:"timestamp"`
}

const (
	EventQueryCompleted = "voice.query.completed"
	EventQueryFailed    = "voice.query.failed"
)
