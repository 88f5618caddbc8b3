package schema

import (
	"errors"
	"strings"
	"testing"

	"ai-voice-query-service/internal/models"
)

func validCompleted() models.QueryCompleted {
	return models.QueryCompleted{
		EventType:   models.EventQueryCompleted,
		QueryID:     "q-1",
		Language:    models.Tamil,
		Transcript:  "thengai urea",
		Answer:      "Apply 1.3 kg urea per palm.",
		InfoDensity: 0.5,
		Timing:      models.Timing{TotalMs: 2100},
		Timestamp:   1700000000000,
	}
}

func validFailed() models.QueryFailed {
	return models.QueryFailed{
		EventType: models.EventQueryFailed,
		QueryID:   "q-2",
		Language:  models.English,
		Outcome:   models.OutcomeServiceBusy,
		Stage:     models.StageTranscription,
		Timestamp: 1700000000000,
	}
}

func TestValidate_Valid(t *testing.T) {
	v := New()
	completed := validCompleted()
	failed := validFailed()

	for _, event := range []any{completed, &completed, failed, &failed} {
		if err := v.Validate(event); err != nil {
			t.Errorf("expected %T to be valid, got %v", event, err)
		}
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		event   any
		problem string
	}{
		{"unsupported type", map[string]string{}, "unsupported event type"},
		{"nil pointer", (*models.QueryCompleted)(nil), "nil event"},
		{"wrong event type", func() any { e := validCompleted(); e.EventType = "x"; return e }(), "eventType"},
		{"missing id", func() any { e := validCompleted(); e.QueryID = ""; return e }(), "queryId"},
		{"empty transcript", func() any { e := validCompleted(); e.Transcript = " "; return e }(), "transcript"},
		{"density range", func() any { e := validCompleted(); e.InfoDensity = 1.5; return e }(), "infoDensity"},
		{"bad language", func() any { e := validFailed(); e.Language = "fr"; return e }(), "language"},
		{"answered outcome", func() any { e := validFailed(); e.Outcome = models.OutcomeAnswered; return e }(), "outcome"},
		{"missing stage", func() any { e := validFailed(); e.Stage = ""; return e }(), "stage"},
		{"negative timing", func() any { e := validFailed(); e.Timing.TotalMs = -1; return e }(), "timing"},
		{"missing timestamp", func() any { e := validFailed(); e.Timestamp = 0; return e }(), "timestamp"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.event)
			if !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("expected ErrInvalidEvent, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("expected error to mention %q, got %v", tt.problem, err)
			}
		})
	}
}
