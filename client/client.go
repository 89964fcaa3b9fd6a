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

// Package client resolves a resource id to a running agent and
// forwards calls to it.
//
// Resolution happens exactly once, at construction, via a directory
// lookup keyed by the resource id.  The transport between a remote
// caller and the hosting process is out of scope here; within a
// process the client forwards directly to the fleet member, holding
// the member's dispatch lock for each call.
package client

import (
	"context"
	"log"

	"github.com/Comcast/sonde/agent"
	"github.com/Comcast/sonde/directory"
	"github.com/Comcast/sonde/fleet"
	"github.com/Comcast/sonde/fsm"
)

// Client is a per-resource proxy over a running agent.
type Client struct {
	ResourceID string

	member *fleet.Member
}

// New resolves the given resource id through the directory and binds
// to the running agent.
//
// No registration, or a registration that names an agent the fleet
// doesn't have, fails with *agent.NotFound.  More than one
// registration for the same resource id is a logged inconsistency,
// not a hard failure: the first match wins.
func New(ctx context.Context, resourceID string, dir *directory.Directory, f *fleet.Fleet) (*Client, error) {
	if resourceID == "" {
		return nil, &agent.BadRequest{Msg: "resource_id must be set for an agent client"}
	}

	regs, err := dir.Find(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, &agent.NotFound{Msg: "no agent registered for resource_id " + resourceID}
	}
	if 1 < len(regs) {
		log.Printf("warning: inconsistency: %d agents registered for resource_id %s", len(regs), resourceID)
	}

	m := f.Get(regs[0].Key)
	if m == nil {
		return nil, &agent.NotFound{Msg: "no running agent " + regs[0].Key + " for resource_id " + resourceID}
	}

	return &Client{
		ResourceID: resourceID,
		member:     m,
	}, nil
}

func (c *Client) GetCapabilities(ctx context.Context, currentOnly bool) ([]agent.Capability, error) {
	c.member.Lock()
	defer c.member.Unlock()
	return c.member.Agent.GetCapabilities(ctx, currentOnly)
}

func (c *Client) GetAgentState(ctx context.Context) fsm.State {
	c.member.Lock()
	defer c.member.Unlock()
	return c.member.Agent.GetAgentState()
}

func (c *Client) ExecuteAgent(ctx context.Context, cmd *agent.Command) (*agent.CommandResult, error) {
	c.member.Lock()
	defer c.member.Unlock()
	return c.member.Agent.ExecuteAgent(ctx, cmd)
}

func (c *Client) GetResource(ctx context.Context, params []interface{}) error {
	c.member.Lock()
	defer c.member.Unlock()
	return c.member.Agent.GetResource(ctx, params)
}

func (c *Client) SetResource(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	c.member.Lock()
	defer c.member.Unlock()
	return c.member.Agent.SetResource(ctx, params)
}

func (c *Client) GetResourceState(ctx context.Context) (interface{}, error) {
	c.member.Lock()
	defer c.member.Unlock()
	return c.member.Agent.GetResourceState(ctx)
}

func (c *Client) ExecuteResource(ctx context.Context, cmd *agent.Command) (*agent.CommandResult, error) {
	c.member.Lock()
	defer c.member.Unlock()
	return c.member.Agent.ExecuteResource(ctx, cmd)
}
