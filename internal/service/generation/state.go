package generation

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is a phase of a single race.
type State int

const (
	// StateDispatched - primary request issued.
	StateDispatched State = iota
	// StateRacing - primary in flight, soft deadline armed.
	StateRacing
	// StateCancelling - soft deadline fired, primary being cancelled.
	StateCancelling
	// StateClearing - waiting out the clearance pause.
	StateClearing
	// StateSecondaryDispatched - secondary request issued.
	StateSecondaryDispatched
	// StateResolved - a winner (or final error) was recorded. Terminal.
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateDispatched:
		return "DISPATCHED"
	case StateRacing:
		return "RACING"
	case StateCancelling:
		return "CANCELLING"
	case StateClearing:
		return "CLEARING"
	case StateSecondaryDispatched:
		return "SECONDARY_DISPATCHED"
	case StateResolved:
		return "RESOLVED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid race transitions.
var (
	ErrRaceResolved      = errors.New("race already resolved")
	ErrInvalidTransition = errors.New("invalid race transition")
)

// Transition is one recorded state change.
type Transition struct {
	State State
	At    time.Time
}

// race guards the state of one Generate call.
//
// State transitions:
//
//	DISPATCHED → RACING ─┬──────────────────────────────→ RESOLVED
//	                     ├→ CANCELLING → CLEARING ─→ SECONDARY_DISPATCHED → RESOLVED
//	                     └→ SECONDARY_DISPATCHED (rate limit or primary failure)
//
// Every non-terminal state may also move to RESOLVED when the caller gives up.
// Once RESOLVED nothing changes, so a late result is dropped by a single check.
type race struct {
	mu      sync.Mutex
	state   State
	history []Transition
}

var allowedTransitions = map[State][]State{
	StateDispatched:          {StateRacing},
	StateRacing:              {StateCancelling, StateSecondaryDispatched},
	StateCancelling:          {StateClearing},
	StateClearing:            {StateSecondaryDispatched},
	StateSecondaryDispatched: {},
}

func newRace() *race {
	return &race{
		state:   StateDispatched,
		history: []Transition{{State: StateDispatched, At: time.Now()}},
	}
}

// transition moves the race to a new non-terminal state.
func (r *race) transition(to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateResolved {
		return ErrRaceResolved
	}
	for _, s := range allowedTransitions[r.state] {
		if s == to {
			r.state = to
			r.history = append(r.history, Transition{State: to, At: time.Now()})
			return nil
		}
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, r.state, to)
}

// resolve ends the race. It reports true only for the first caller.
func (r *race) resolve() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateResolved {
		return false
	}
	r.state = StateResolved
	r.history = append(r.history, Transition{State: StateResolved, At: time.Now()})
	return true
}

func (r *race) current() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *race) transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transition, len(r.history))
	copy(out, r.history)
	return out
}
