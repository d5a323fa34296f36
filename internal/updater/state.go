package updater

import (
	"encoding/json"
	"time"
)

// State is the lifecycle state of a Scheduler.
type State int

const (
	// StateIdle means Run has not been called yet.
	StateIdle State = iota
	// StateRunning means an update cycle is in progress.
	StateRunning
	// StatePaused means a cycle is waiting out a provider-requested pause.
	StatePaused
	// StateWaiting means the scheduler is sleeping until the next cycle.
	StateWaiting
	// StateStopped means Run has returned.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateWaiting:
		return "waiting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of a Scheduler.
type Status struct {
	State State

	// Cycles is the number of completed cycles, successful or not.
	Cycles int

	// LastCycle is when the last cycle finished. Zero before the first one.
	LastCycle time.Time

	// LastSuccess is when the last successful cycle finished.
	LastSuccess time.Time

	// LastError is the error of the last cycle, nil if it succeeded.
	LastError error
}

type statusJSON struct {
	State       string     `json:"state"`
	Cycles      int        `json:"cycles"`
	LastCycle   *time.Time `json:"last_cycle,omitempty"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// MarshalJSON renders the snapshot for the /status endpoint.
func (s Status) MarshalJSON() ([]byte, error) {
	out := statusJSON{
		State:  s.State.String(),
		Cycles: s.Cycles,
	}
	if !s.LastCycle.IsZero() {
		out.LastCycle = &s.LastCycle
	}
	if !s.LastSuccess.IsZero() {
		out.LastSuccess = &s.LastSuccess
	}
	if s.LastError != nil {
		out.LastError = s.LastError.Error()
	}
	return json.Marshal(out)
}
