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

package agent

import (
	"strconv"
	"time"
)

// Command is a caller-supplied request against an agent or its
// resource.
//
// The CommandID is assigned by the caller and is only used for
// correlation; this package never inspects it.
type Command struct {
	CommandID string `json:"command_id,omitempty" yaml:",omitempty"`

	// Command is the command name.  Must be non-empty.
	Command string `json:"command"`

	Args   []interface{}          `json:"args,omitempty" yaml:",omitempty"`
	Kwargs map[string]interface{} `json:"kwargs,omitempty" yaml:",omitempty"`
}

// CommandResult correlates a submitted Command to its outcome.
//
// A CommandResult is created fresh per invocation and owned by the
// caller once returned; the agent retains nothing.
type CommandResult struct {
	CommandID string `json:"command_id,omitempty" yaml:",omitempty"`
	Command   string `json:"command"`

	// TsExecute is the execution timestamp: milliseconds since the
	// epoch, as a string.
	TsExecute string `json:"ts_execute"`

	// Status is 0 when nominal.
	Status int `json:"status"`

	// Result is whatever the underlying handler returned.  Opaque
	// here.
	Result interface{} `json:"result,omitempty" yaml:",omitempty"`
}

// newCommandResult stamps a result envelope for the given command
// with the current timestamp.
func newCommandResult(cmd *Command) *CommandResult {
	return &CommandResult{
		CommandID: cmd.CommandID,
		Command:   cmd.Command,
		TsExecute: Timestamp(),
	}
}

// Timestamp returns the current time as milliseconds since the epoch,
// rendered as a string.
func Timestamp() string {
	return strconv.FormatInt(time.Now().UnixNano()/int64(time.Millisecond), 10)
}

// CapType tags a Capability as a command or a parameter.
type CapType string

const (
	AgentCommand   CapType = "AGT_CMD"
	AgentParameter CapType = "AGT_PAR"
)

// Capability is a named command or parameter that an agent advertises
// as available.
type Capability struct {
	Name    string  `json:"name"`
	CapType CapType `json:"cap_type"`
}
