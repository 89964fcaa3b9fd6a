package fsm

// These errors are user errors, not internal errors.

import (
	"errors"
)

// StateEventError occurs when an event is dispatched in a state that
// has no handler for it.  Callers treat this as a recoverable
// conflict, not a crash.
type StateEventError struct {
	State State
	Event Event
}

func (e *StateEventError) Error() string {
	return `no handler for event "` + string(e.Event) + `" in state "` + string(e.State) + `"`
}

// UnknownState occurs when a state outside the FSM's vocabulary is
// used: at registration, at Start, or as a handler's transition
// target.
type UnknownState struct {
	State State
}

func (e *UnknownState) Error() string {
	return `state "` + string(e.State) + `" not in vocabulary`
}

// UnknownEvent occurs when an event outside the FSM's vocabulary is
// registered.
type UnknownEvent struct {
	Event Event
}

func (e *UnknownEvent) Error() string {
	return `event "` + string(e.Event) + `" not in vocabulary`
}

// DuplicateHandler occurs when a second handler is registered for the
// same (state, event) pair.
type DuplicateHandler struct {
	State State
	Event Event
}

func (e *DuplicateHandler) Error() string {
	return `handler already registered for event "` + string(e.Event) + `" in state "` + string(e.State) + `"`
}

// NotStarted occurs when an event is dispatched before Start.
var NotStarted = errors.New("fsm not started")
