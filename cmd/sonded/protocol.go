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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Comcast/sonde/agent"
	"github.com/Comcast/sonde/fsm"
	"github.com/Comcast/sonde/qc"
	. "github.com/Comcast/sonde/util/testutil"
)

// SOp is a Service Operation.
//
// In normal use, only one op field should be given.
type SOp struct {
	// Launch builds an agent from a definition and starts it.
	Launch *OpLaunch `json:"launch,omitempty" yaml:",omitempty"`

	// Rem removes an agent from the fleet.
	Rem *OpRem `json:"rem,omitempty" yaml:",omitempty"`

	// Execute submits a command to the agent for a resource.
	Execute *OpExecute `json:"execute,omitempty" yaml:",omitempty"`

	// State reports the state of the agent for a resource.
	State *OpState `json:"state,omitempty" yaml:",omitempty"`

	// Caps reports the capabilities of the agent for a resource.
	Caps *OpCaps `json:"caps,omitempty" yaml:",omitempty"`

	// GetRes queries resource parameters.
	GetRes *OpGetResource `json:"getResource,omitempty" yaml:",omitempty"`

	// SetRes writes resource parameters.
	SetRes *OpSetResource `json:"setResource,omitempty" yaml:",omitempty"`

	// QC loads or reads QC lookup tables.
	QC *OpQC `json:"qc,omitempty" yaml:",omitempty"`

	// Fleet lists the running agents.
	Fleet *OpFleet `json:"fleet,omitempty" yaml:",omitempty"`

	// Error will hold an error (if any) that results from
	// processing this operation.
	Error error `json:"-" yaml:"-"`

	// Err will hold a string representation of an error (if any)
	// that results from processing this operation.
	Err string `json:"err,omitempty" yaml:",omitempty"`
}

// erred is a utility function to return values to assign to operation
// Error and Err fields.
func erred(err error) (error, string) {
	if err == nil {
		return nil, ""
	}
	return err, err.Error()
}

func (o *SOp) Do(ctx context.Context, s *Service) error {
	s.op(ctx, map[string]interface{}{
		"do": o,
	})

	var err error
	switch {
	case o.Launch != nil:
		err = o.Launch.Do(ctx, s)
	case o.Rem != nil:
		err = o.Rem.Do(ctx, s)
	case o.Execute != nil:
		err = o.Execute.Do(ctx, s)
	case o.State != nil:
		err = o.State.Do(ctx, s)
	case o.Caps != nil:
		err = o.Caps.Do(ctx, s)
	case o.GetRes != nil:
		err = o.GetRes.Do(ctx, s)
	case o.SetRes != nil:
		err = o.SetRes.Do(ctx, s)
	case o.QC != nil:
		err = o.QC.Do(ctx, s)
	case o.Fleet != nil:
		err = o.Fleet.Do(ctx, s)
	default:
		err = fmt.Errorf("not implemented: %s", JS(o))
	}

	if err != nil && o.Error == nil {
		o.Error, o.Err = erred(err)
	}

	s.op(ctx, map[string]interface{}{
		"did": o,
	})

	return o.Error
}

type OpLaunch struct {
	// Def names a definition in the service's definitions
	// directory.
	Def string `json:"def"`

	ResourceID string `json:"resourceId"`

	// AgentID is optional; one is generated when not given.
	AgentID string `json:"agentId,omitempty" yaml:",omitempty"`
}

func (o *OpLaunch) Do(ctx context.Context, s *Service) error {
	id, err := s.LaunchAgent(ctx, o.Def, o.ResourceID, o.AgentID)
	if err != nil {
		return err
	}
	o.AgentID = id
	return nil
}

type OpRem struct {
	// Id is the id of the agent to remove.
	Id string `json:"id"`
}

func (o *OpRem) Do(ctx context.Context, s *Service) error {
	return s.RemAgent(ctx, o.Id)
}

type OpExecute struct {
	ResourceID string `json:"resourceId"`

	// Resource directs the command at the instrument instead of
	// the agent lifecycle.
	Resource bool `json:"resource,omitempty" yaml:",omitempty"`

	Cmd *agent.Command `json:"cmd"`

	Result *agent.CommandResult `json:"result,omitempty" yaml:",omitempty"`
}

func (o *OpExecute) Do(ctx context.Context, s *Service) error {
	c, err := s.Resolve(ctx, o.ResourceID)
	if err != nil {
		return err
	}
	if o.Resource {
		o.Result, err = c.ExecuteResource(ctx, o.Cmd)
	} else {
		o.Result, err = c.ExecuteAgent(ctx, o.Cmd)
	}
	return err
}

type OpState struct {
	ResourceID string `json:"resourceId"`

	State fsm.State `json:"state,omitempty" yaml:",omitempty"`
}

func (o *OpState) Do(ctx context.Context, s *Service) error {
	c, err := s.Resolve(ctx, o.ResourceID)
	if err != nil {
		return err
	}
	o.State = c.GetAgentState(ctx)
	return nil
}

type OpCaps struct {
	ResourceID  string `json:"resourceId"`
	CurrentOnly bool   `json:"currentOnly,omitempty" yaml:",omitempty"`

	Capabilities []agent.Capability `json:"capabilities,omitempty" yaml:",omitempty"`
}

func (o *OpCaps) Do(ctx context.Context, s *Service) error {
	c, err := s.Resolve(ctx, o.ResourceID)
	if err != nil {
		return err
	}
	o.Capabilities, err = c.GetCapabilities(ctx, o.CurrentOnly)
	return err
}

type OpGetResource struct {
	ResourceID string        `json:"resourceId"`
	Params     []interface{} `json:"params,omitempty" yaml:",omitempty"`
}

func (o *OpGetResource) Do(ctx context.Context, s *Service) error {
	c, err := s.Resolve(ctx, o.ResourceID)
	if err != nil {
		return err
	}
	return c.GetResource(ctx, o.Params)
}

type OpSetResource struct {
	ResourceID string                 `json:"resourceId"`
	Params     map[string]interface{} `json:"params,omitempty" yaml:",omitempty"`

	Result interface{} `json:"result,omitempty" yaml:",omitempty"`
}

func (o *OpSetResource) Do(ctx context.Context, s *Service) error {
	c, err := s.Resolve(ctx, o.ResourceID)
	if err != nil {
		return err
	}
	o.Result, err = c.SetResource(ctx, o.Params)
	return err
}

type OpQC struct {
	// Load parses a CSV lookup table and stores its documents.
	Load *OpQCLoad `json:"load,omitempty" yaml:",omitempty"`

	// Read returns the document at a key.
	Read *OpQCRead `json:"read,omitempty" yaml:",omitempty"`
}

type OpQCLoad struct {
	// Kind is one of "grt", "spike", "svt", "trend".
	Kind string `json:"kind"`
	File string `json:"file"`

	Count int `json:"count,omitempty" yaml:",omitempty"`
}

type OpQCRead struct {
	Key string `json:"key"`

	Doc map[string]interface{} `json:"doc,omitempty" yaml:",omitempty"`
}

func (o *OpQC) Do(ctx context.Context, s *Service) error {
	if s.values == nil {
		return fmt.Errorf("no QC store")
	}

	if o.Load != nil {
		in, err := os.Open(o.Load.File)
		if err != nil {
			return err
		}
		defer in.Close()

		var kvs []qc.KV
		switch o.Load.Kind {
		case "grt":
			kvs, err = qc.ParseGlobalRange(in)
		case "spike":
			kvs, err = qc.ParseSpike(in)
		case "svt":
			kvs, err = qc.ParseStuckValue(in)
		case "trend":
			kvs, err = qc.ParseTrend(in)
		default:
			return fmt.Errorf("unknown QC table kind '%s'", o.Load.Kind)
		}
		if err != nil {
			return err
		}
		if err = s.values.Load(ctx, kvs); err != nil {
			return err
		}
		o.Load.Count = len(kvs)
		return nil
	}

	if o.Read != nil {
		doc, err := s.values.Read(ctx, o.Read.Key)
		if err != nil {
			return err
		}
		o.Read.Doc = doc
		return nil
	}

	return fmt.Errorf("empty QC op")
}

type OpFleet struct {
	Ids []string `json:"ids,omitempty" yaml:",omitempty"`
}

func (o *OpFleet) Do(ctx context.Context, s *Service) error {
	o.Ids = s.fleet.Ids()
	return nil
}
