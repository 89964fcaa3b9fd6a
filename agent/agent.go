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

// Package agent binds the fsm engine to a resource agent: one FSM per
// controlled resource, an agent-level command surface (lifecycle,
// capabilities), and a resource-level command surface (get, set,
// execute).
package agent

import (
	"context"
	"log"

	"github.com/Comcast/sonde/fsm"
)

// Notice is one observability record: an agent entered or left a
// state.
type Notice struct {
	AgentID    string    `json:"agent_id"`
	ResourceID string    `json:"resource_id"`
	State      fsm.State `json:"state"`
	Entered    bool      `json:"entered"`
}

// Notifier consumes Notices.  The default logs them.
type Notifier func(Notice)

func logNotifier(n Notice) {
	direction := "entered"
	if !n.Entered {
		direction = "leaving"
	}
	log.Printf("agent %s %s state %s", n.AgentID, direction, n.State)
}

// ResourceAgent exposes the standard agent command surface over one
// FSM.  One ResourceAgent maps to one controlled resource for its
// lifetime.
//
// A ResourceAgent assumes at most one in-flight operation at a time.
// See fleet.Member for the serialization boundary a hosting service
// puts around concurrent callers.
type ResourceAgent struct {
	// ResourceID identifies the controlled device or resource.
	ResourceID string `json:"resource_id"`

	// AgentID identifies this agent instance.
	AgentID string `json:"agent_id"`

	// AgentDefID identifies the agent definition this instance was
	// built from, if any.
	AgentDefID string `json:"agent_def_id,omitempty"`

	// Notify receives one record per state entry/exit.  If nil, a
	// log-based default is used.
	Notify Notifier `json:"-"`

	fsm     *fsm.FSM
	initial fsm.State
}

// New creates a ResourceAgent with its FSM and uniform enter/exit
// bookkeeping registered for every state in the vocabulary.
//
// An unrecognized initial state falls back to UNINITIALIZED rather
// than failing construction.  The FSM is not started; call Start.
func New(resourceID, agentID, agentDefID string, initial fsm.State) (*ResourceAgent, error) {
	if !KnownState(initial) {
		initial = StateUninitialized
	}

	m, err := fsm.New(States, Events, EventEnter, EventExit)
	if err != nil {
		return nil, err
	}

	a := &ResourceAgent{
		ResourceID: resourceID,
		AgentID:    agentID,
		AgentDefID: agentDefID,
		fsm:        m,
		initial:    initial,
	}

	// Every state gets an enter and an exit hook.  A state without
	// the pair is a defect.
	for _, state := range States {
		state := state
		if err := m.AddHandler(state, EventEnter, a.commonStateHook(true)); err != nil {
			return nil, err
		}
		if err := m.AddHandler(state, EventExit, a.commonStateHook(false)); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// commonStateHook does the work common to every state entry and exit:
// read the current state and emit one observability record.
func (a *ResourceAgent) commonStateHook(entered bool) fsm.Handler {
	return func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (fsm.State, interface{}, error) {
		n := Notice{
			AgentID:    a.AgentID,
			ResourceID: a.ResourceID,
			State:      a.fsm.Current(),
			Entered:    entered,
		}
		if a.Notify != nil {
			a.Notify(n)
		} else {
			logNotifier(n)
		}
		return "", nil, nil
	}
}

// AddHandler registers a handler on the underlying FSM.  This is the
// extension point for a specializing layer that wires the actual
// inter-state transitions and resource handlers for an instrument
// type.
func (a *ResourceAgent) AddHandler(state fsm.State, event fsm.Event, h fsm.Handler) error {
	return a.fsm.AddHandler(state, event, h)
}

// Start starts the FSM in the agent's initial state, firing that
// state's ENTER hook.
func (a *ResourceAgent) Start(ctx context.Context) error {
	return a.fsm.Start(ctx, a.initial)
}

// GetAgentState returns the FSM's current state.  Never fails.
func (a *ResourceAgent) GetAgentState() fsm.State {
	return a.fsm.Current()
}

// GetCapabilities returns the agent-level commands (optionally
// filtered to the current state) plus whatever resource-level
// capabilities the resource handler reports.
//
// If GET_RESOURCE_CAPABILITIES has no handler in the current state,
// the resource capabilities degrade to an empty set.  That fallback
// is deliberate and deliberately narrow: only the FSM's state/event
// mismatch is swallowed.
func (a *ResourceAgent) GetCapabilities(ctx context.Context, currentOnly bool) ([]Capability, error) {
	caps := make([]Capability, 0, 8)

	for _, e := range a.fsm.Events(currentOnly) {
		caps = append(caps, Capability{
			Name:    string(e),
			CapType: AgentCommand,
		})
	}

	result, err := a.fsm.OnEvent(ctx, EventGetResourceCapabilities, nil,
		map[string]interface{}{"current_state": currentOnly})
	if err != nil {
		if _, is := err.(*fsm.StateEventError); is {
			return caps, nil
		}
		return nil, err
	}

	switch vv := result.(type) {
	case nil:
	case []Capability:
		caps = append(caps, vv...)
	case []interface{}:
		for _, x := range vv {
			if c, is := x.(Capability); is {
				caps = append(caps, c)
			} else {
				log.Printf("warning: agent %s dropping resource capability %#v", a.AgentID, x)
			}
		}
	default:
		log.Printf("warning: agent %s dropping resource capabilities %#v", a.AgentID, result)
	}

	return caps, nil
}

// ExecuteAgent dispatches the command's name as an FSM event.
//
// A nil command or an empty command name fails with *BadRequest
// before the FSM is consulted.  An event that the current state
// rejects fails with *Conflict carrying the FSM's diagnostic.
func (a *ResourceAgent) ExecuteAgent(ctx context.Context, cmd *Command) (*CommandResult, error) {
	if cmd == nil {
		return nil, &BadRequest{`execute argument "command" not set`}
	}
	if cmd.Command == "" {
		return nil, &BadRequest{"command name not set"}
	}

	result := newCommandResult(cmd)

	x, err := a.fsm.OnEvent(ctx, fsm.Event(cmd.Command), cmd.Args, cmd.Kwargs)
	if err != nil {
		if see, is := err.(*fsm.StateEventError); is {
			return nil, &Conflict{see.Error()}
		}
		return nil, err
	}

	result.Result = x
	return result, nil
}

// GetResource dispatches GET_RESOURCE with the given params.
//
// The handler's payload is discarded at this boundary; only the error
// surfaces.  That asymmetry with SetResource is preserved from the
// system this package descends from.  See DESIGN.md.
func (a *ResourceAgent) GetResource(ctx context.Context, params []interface{}) error {
	_, err := a.fsm.OnEvent(ctx, EventGetResource, []interface{}{params}, nil)
	if err != nil {
		if see, is := err.(*fsm.StateEventError); is {
			return &Conflict{see.Error()}
		}
		return err
	}
	return nil
}

// SetResource dispatches SET_RESOURCE with the given params and
// returns the handler's result.
func (a *ResourceAgent) SetResource(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	x, err := a.fsm.OnEvent(ctx, EventSetResource, []interface{}{params}, nil)
	if err != nil {
		if see, is := err.(*fsm.StateEventError); is {
			return nil, &Conflict{see.Error()}
		}
		return nil, err
	}
	return x, nil
}

// GetResourceState dispatches GET_RESOURCE_STATE.
//
// Unlike the other resource operations, an FSM rejection here
// propagates as the engine's raw *fsm.StateEventError rather than as
// a *Conflict.  The asymmetry is documented rather than unified; see
// DESIGN.md.
func (a *ResourceAgent) GetResourceState(ctx context.Context) (interface{}, error) {
	return a.fsm.OnEvent(ctx, EventGetResourceState, nil, nil)
}

// ExecuteResource dispatches EXECUTE_RESOURCE with the command name
// as the first positional argument, followed by the command's own
// args and kwargs.
func (a *ResourceAgent) ExecuteResource(ctx context.Context, cmd *Command) (*CommandResult, error) {
	if cmd == nil {
		return nil, &BadRequest{`execute argument "command" not set`}
	}
	if cmd.Command == "" {
		return nil, &BadRequest{"command name not set"}
	}

	result := newCommandResult(cmd)

	args := make([]interface{}, 0, 1+len(cmd.Args))
	args = append(args, cmd.Command)
	args = append(args, cmd.Args...)

	x, err := a.fsm.OnEvent(ctx, EventExecuteResource, args, cmd.Kwargs)
	if err != nil {
		if see, is := err.(*fsm.StateEventError); is {
			return nil, &Conflict{see.Error()}
		}
		return nil, err
	}

	result.Result = x
	return result, nil
}
