/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package fsm is a small deterministic state/event dispatcher.
//
// The engine knows nothing about any particular vocabulary.  An FSM
// is constructed with closed sets of states and events plus two
// designated sentinel events (conventionally ENTER and EXIT).  A
// handler registered for a state's sentinel events is invoked around
// every transition through that state, which gives every state
// uniform bookkeeping without each handler re-implementing it.
package fsm

import (
	"context"
	"sort"
)

// State names a state in an FSM's vocabulary.
type State string

// Event names an event in an FSM's vocabulary.
type Event string

// Handler is the code behind one (state, event) pair.
//
// A Handler receives the positional and keyword arguments that were
// given to OnEvent.  A non-empty next state requests a transition,
// which the engine performs (EXIT hook, cursor update, ENTER hook)
// before OnEvent returns.  The next state returned by an ENTER or
// EXIT hook is ignored.
type Handler func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (next State, result interface{}, err error)

// FSM dispatches events against a current state.
//
// An FSM is not safe for concurrent use.  The current-state cursor is
// mutated only inside OnEvent, and the design assumes at most one
// in-flight OnEvent call at a time.  A caller that wants concurrent
// dispatch must serialize externally (see fleet.Member).
type FSM struct {
	states map[State]bool
	events map[Event]bool

	enter Event
	exit  Event

	handlers map[State]map[Event]Handler

	current State
	started bool
}

// New creates an FSM with the given vocabulary.
//
// The enter and exit sentinels must be members of events.
func New(states []State, events []Event, enter, exit Event) (*FSM, error) {
	m := &FSM{
		states:   make(map[State]bool, len(states)),
		events:   make(map[Event]bool, len(events)),
		enter:    enter,
		exit:     exit,
		handlers: make(map[State]map[Event]Handler, len(states)),
	}
	for _, s := range states {
		m.states[s] = true
	}
	for _, e := range events {
		m.events[e] = true
	}
	if !m.events[enter] {
		return nil, &UnknownEvent{enter}
	}
	if !m.events[exit] {
		return nil, &UnknownEvent{exit}
	}
	return m, nil
}

// AddHandler registers a handler for exactly one (state, event) pair.
//
// Registering a second handler for the same pair is an error.  The
// ancestors of this engine silently overwrote instead; failing fast
// here turns a silent misconfiguration into a construction-time
// complaint.
func (m *FSM) AddHandler(state State, event Event, h Handler) error {
	if !m.states[state] {
		return &UnknownState{state}
	}
	if !m.events[event] {
		return &UnknownEvent{event}
	}
	hs, have := m.handlers[state]
	if !have {
		hs = make(map[Event]Handler, 8)
		m.handlers[state] = hs
	}
	if _, have := hs[event]; have {
		return &DuplicateHandler{state, event}
	}
	hs[event] = h
	return nil
}

// Start sets the initial state and fires that state's ENTER hook (if
// one is registered).
//
// No prior transition is validated: the initial state is simply the
// first state.
func (m *FSM) Start(ctx context.Context, initial State) error {
	if !m.states[initial] {
		return &UnknownState{initial}
	}
	m.current = initial
	m.started = true
	return m.hook(ctx, initial, m.enter)
}

// OnEvent dispatches the given event against the current state.
//
// If no handler is registered for (current, event), OnEvent fails
// with a *StateEventError.  That condition is recoverable and
// caller-visible; the current state does not change.
//
// If the handler requests a transition, the EXIT hook of the old
// state, the cursor update, and the ENTER hook of the new state all
// happen before OnEvent returns, so the transition is atomic as far
// as any caller can observe.
//
// Errors from the handler itself propagate unmodified.
func (m *FSM) OnEvent(ctx context.Context, event Event, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	if !m.started {
		return nil, NotStarted
	}
	h, have := m.handlers[m.current][event]
	if !have {
		return nil, &StateEventError{m.current, event}
	}

	next, result, err := h(ctx, args, kwargs)
	if err != nil {
		return nil, err
	}

	if next != "" {
		if err := m.transition(ctx, next); err != nil {
			return result, err
		}
	}

	return result, nil
}

// Current returns the current state.  Pure read.
func (m *FSM) Current() State {
	return m.current
}

// Events returns the events that have a registered handler, either
// for the current state only or across the whole table.
//
// The ENTER/EXIT sentinels are excluded: they are structural, not
// commands anyone can send.
func (m *FSM) Events(currentOnly bool) []Event {
	seen := make(map[Event]bool, len(m.events))
	if currentOnly {
		for e := range m.handlers[m.current] {
			seen[e] = true
		}
	} else {
		for _, hs := range m.handlers {
			for e := range hs {
				seen[e] = true
			}
		}
	}
	delete(seen, m.enter)
	delete(seen, m.exit)

	acc := make([]Event, 0, len(seen))
	for e := range seen {
		acc = append(acc, e)
	}
	sort.Slice(acc, func(i, j int) bool {
		return acc[i] < acc[j]
	})
	return acc
}

// transition moves the cursor: EXIT hook of the old state, then the
// cursor update, then the ENTER hook of the new state.
//
// A hook sees the cursor for the side of the transition it belongs
// to: EXIT still sees the old state; ENTER already sees the new one.
func (m *FSM) transition(ctx context.Context, next State) error {
	if !m.states[next] {
		return &UnknownState{next}
	}
	if err := m.hook(ctx, m.current, m.exit); err != nil {
		return err
	}
	m.current = next
	return m.hook(ctx, next, m.enter)
}

// hook invokes the sentinel handler for (state, event) if one is
// registered.  The hook's next-state return is deliberately dropped.
func (m *FSM) hook(ctx context.Context, state State, event Event) error {
	h, have := m.handlers[state][event]
	if !have {
		return nil
	}
	_, _, err := h(ctx, nil, nil)
	return err
}
