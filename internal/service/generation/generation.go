// Package generation races a high-quality primary text model against a fast
// secondary model so that an answer is produced within the latency budget.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a generation request. The model is chosen by whoever sends it.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completion is a provider's answer to a Request.
type Completion struct {
	Text  string
	Model string
}

// Provider is a text-generation endpoint.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Leg identifies which side of the race produced something.
type Leg string

const (
	LegPrimary   Leg = "primary"
	LegSecondary Leg = "secondary"
)

// Path records how a result was reached.
type Path string

const (
	// PathPrimary: the primary answered before the soft deadline.
	PathPrimary Path = "primary"
	// PathSoftDeadline: the primary was cancelled and the secondary answered
	// after the clearance pause.
	PathSoftDeadline Path = "soft_deadline"
	// PathRateLimited: the primary was rate limited and the secondary was
	// dispatched immediately.
	PathRateLimited Path = "rate_limited"
	// PathPrimaryFailed: the primary failed outright and the secondary answered.
	PathPrimaryFailed Path = "primary_failed"
	// PathDirect: the race was bypassed and the secondary was called directly.
	PathDirect Path = "direct"
)

// Result is the single winner of a race.
type Result struct {
	Text  string
	Model string
	Leg   Leg
	Path  Path
	// TTFT is the latency of the winning request from its dispatch.
	TTFT time.Duration
	// Elapsed is the latency of the whole race.
	Elapsed time.Duration
	// Transitions is the state history of the race.
	Transitions []Transition
}

// Sentinel errors for provider failures.
var (
	ErrRateLimited        = errors.New("generation: rate limited")
	ErrUnauthorized       = errors.New("generation: unauthorized")
	ErrMissingCredentials = errors.New("generation: API key is not configured")
	ErrMalformedResponse  = errors.New("generation: malformed response")
	errSoftDeadline       = errors.New("generation: primary exceeded soft deadline")
)

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("generation: provider returned status %d", e.Code)
	}
	return fmt.Sprintf("generation: provider returned status %d: %s", e.Code, e.Body)
}

// Is maps HTTP status codes onto the sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Code == 429
	case ErrUnauthorized:
		return e.Code == 401 || e.Code == 403
	}
	return false
}

// RaceError is returned when both legs of a race failed.
type RaceError struct {
	Primary   error
	Secondary error
}

func (e *RaceError) Error() string {
	return fmt.Sprintf("generation: both models failed: primary: %v; secondary: %v", e.Primary, e.Secondary)
}

func (e *RaceError) Unwrap() []error {
	return []error{e.Primary, e.Secondary}
}

// errorKind labels an error for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "other"
	}
}
