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

// Package instrument turns declarative agent definitions into running
// agents.
//
// A definition is JSON or YAML.  It names the driver handlers for an
// instrument class: for each (state, event) pair, either a scripted
// handler body or a bare transition target.  A definition can also
// carry cron schedules for autonomous sampling.
package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/Comcast/sonde/agent"
	"github.com/Comcast/sonde/fsm"
	"github.com/Comcast/sonde/script"

	"github.com/jsccast/yaml"
)

// HandlerSpec wires one handler into a definition's agent.
//
// Source, when given, is an ECMAScript body compiled by the script
// package.  Otherwise Target must name the state to transition to.
type HandlerSpec struct {
	State  string `json:"state" yaml:"state"`
	Event  string `json:"event" yaml:"event"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// Doc is optional documentation for this handler.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`
}

// Schedule requests autonomous execution of a resource command.
type Schedule struct {
	Id      string        `json:"id" yaml:"id"`
	Cron    string        `json:"cron" yaml:"cron"`
	Command string        `json:"command" yaml:"command"`
	Args    []interface{} `json:"args,omitempty" yaml:"args,omitempty"`
}

// Definition describes an instrument class.
type Definition struct {
	// Name is the generic name for this instrument class.
	// Something like "sbe37-ctd".
	Name string `json:"name" yaml:"name"`

	// Version is the version of this definition.  Something like
	// "1.2".
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Doc is general documentation about this instrument class.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// InitialState is where a new agent starts.  Defaults to
	// UNINITIALIZED.
	InitialState string `json:"initialState,omitempty" yaml:"initialState,omitempty"`

	Handlers []HandlerSpec `json:"handlers" yaml:"handlers"`

	Schedules []Schedule `json:"schedules,omitempty" yaml:"schedules,omitempty"`
}

// Parse unmarshals a definition from JSON or YAML.
func Parse(body []byte) (*Definition, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("definition is empty")
	}

	var (
		d   Definition
		err error
	)
	switch body[0] {
	case '{':
		err = json.Unmarshal(body, &d)
	default:
		err = yaml.Unmarshal(body, &d)
	}
	if err != nil {
		return nil, err
	}

	return &d, nil
}

// Load reads a definition from a file.
func Load(filename string) (*Definition, error) {
	body, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	d, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", filename, err)
	}
	return d, nil
}

func transitionTo(target fsm.State) fsm.Handler {
	return func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (fsm.State, interface{}, error) {
		return target, nil, nil
	}
}

// Build compiles the definition's handlers and assembles a new agent
// for the given resource.
//
// State and event names are checked against the agent vocabulary;
// unknown names fail the build.
func (d *Definition) Build(ctx context.Context, interp *script.Interpreter, resourceID, agentID string) (*agent.ResourceAgent, error) {
	initial := fsm.State(d.InitialState)
	if d.InitialState == "" {
		initial = agent.StateUninitialized
	}

	a, err := agent.New(resourceID, agentID, d.Name, initial)
	if err != nil {
		return nil, err
	}

	for _, h := range d.Handlers {
		var f fsm.Handler
		switch {
		case h.Source != "":
			p, err := interp.Compile(ctx, h.Source)
			if err != nil {
				return nil, fmt.Errorf("handler at %s/%s: %v", h.State, h.Event, err)
			}
			f = interp.Handler(p)
		case h.Target != "":
			f = transitionTo(fsm.State(h.Target))
		default:
			return nil, fmt.Errorf("handler at %s/%s has neither source nor target", h.State, h.Event)
		}

		if err := a.AddHandler(fsm.State(h.State), fsm.Event(h.Event), f); err != nil {
			return nil, err
		}
	}

	return a, nil
}
