// Package schema checks outbound events before they leave the service.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"ai-voice-query-service/internal/models"
)

// ErrInvalidEvent wraps every validation failure.
var ErrInvalidEvent = errors.New("invalid event")

// Validator enforces the required fields of each event type.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate accepts models.QueryCompleted and models.QueryFailed, by value or
// pointer. Any other type is rejected.
func (v *Validator) Validate(event any) error {
	switch e := event.(type) {
	case models.QueryCompleted:
		return v.completed(&e)
	case *models.QueryCompleted:
		if e == nil {
			return invalid("nil event")
		}
		return v.completed(e)
	case models.QueryFailed:
		return v.failed(&e)
	case *models.QueryFailed:
		if e == nil {
			return invalid("nil event")
		}
		return v.failed(e)
	default:
		return invalid("unsupported event type %T", event)
	}
}

func (v *Validator) completed(e *models.QueryCompleted) error {
	var problems []string
	if e.EventType != models.EventQueryCompleted {
		problems = append(problems, fmt.Sprintf("eventType must be %q", models.EventQueryCompleted))
	}
	problems = append(problems, common(e.QueryID, e.Language, e.Timestamp, e.Timing)...)
	if strings.TrimSpace(e.Transcript) == "" {
		problems = append(problems, "transcript is required")
	}
	if e.InfoDensity < 0 || e.InfoDensity > 1 {
		problems = append(problems, "infoDensity must be within [0,1]")
	}
	return join(problems)
}

func (v *Validator) failed(e *models.QueryFailed) error {
	var problems []string
	if e.EventType != models.EventQueryFailed {
		problems = append(problems, fmt.Sprintf("eventType must be %q", models.EventQueryFailed))
	}
	problems = append(problems, common(e.QueryID, e.Language, e.Timestamp, e.Timing)...)
	if e.Outcome != models.OutcomeServiceBusy && e.Outcome != models.OutcomeFailed {
		problems = append(problems, fmt.Sprintf("outcome %q is not a failure outcome", e.Outcome))
	}
	if e.Stage == "" {
		problems = append(problems, "stage is required")
	}
	return join(problems)
}

func common(queryID string, lang models.Language, ts int64, timing models.Timing) []string {
	var problems []string
	if queryID == "" {
		problems = append(problems, "queryId is required")
	}
	if !lang.IsSupported() {
		problems = append(problems, fmt.Sprintf("language %q is not supported", lang))
	}
	if ts <= 0 {
		problems = append(problems, "timestamp is required")
	}
	if timing.TotalMs < 0 || timing.TranscriptionMs < 0 || timing.GenerationMs < 0 || timing.SynthesisMs < 0 {
		problems = append(problems, "timing must not be negative")
	}
	return problems
}

func join(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return invalid("%s", strings.Join(problems, "; "))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEvent, fmt.Sprintf(format, args...))
}
