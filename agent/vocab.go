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
	"github.com/Comcast/sonde/fsm"
)

// The common agent lifecycle states.
//
// These eleven states are a superset scaffold.  This package
// registers uniform enter/exit bookkeeping for every one of them; the
// transitions between them (which event moves COMMAND to STREAMING
// and so on) are wired by a specializing layer per instrument type.
// See package instrument.
const (
	StatePoweredDown   fsm.State = "POWERED_DOWN"
	StateUninitialized fsm.State = "UNINITIALIZED"
	StateInactive      fsm.State = "INACTIVE"
	StateIdle          fsm.State = "IDLE"
	StateStopped       fsm.State = "STOPPED"
	StateCommand       fsm.State = "COMMAND"
	StateStreaming     fsm.State = "STREAMING"
	StateTest          fsm.State = "TEST"
	StateCalibrate     fsm.State = "CALIBRATE"
	StateDirectAccess  fsm.State = "DIRECT_ACCESS"
	StateBusy          fsm.State = "BUSY"
)

// States is the closed agent state vocabulary, defined once at
// process start and never mutated.
var States = []fsm.State{
	StatePoweredDown,
	StateUninitialized,
	StateInactive,
	StateIdle,
	StateStopped,
	StateCommand,
	StateStreaming,
	StateTest,
	StateCalibrate,
	StateDirectAccess,
	StateBusy,
}

// The common agent events: the ENTER/EXIT structural sentinels, the
// lifecycle triggers, and the resource-interface triggers.
const (
	EventEnter fsm.Event = "ENTER"
	EventExit  fsm.Event = "EXIT"

	EventPowerUp        fsm.Event = "POWER_UP"
	EventPowerDown      fsm.Event = "POWER_DOWN"
	EventInitialize     fsm.Event = "INITIALIZE"
	EventReset          fsm.Event = "RESET"
	EventGoActive       fsm.Event = "GO_ACTIVE"
	EventGoInactive     fsm.Event = "GO_INACTIVE"
	EventRun            fsm.Event = "RUN"
	EventClear          fsm.Event = "CLEAR"
	EventPause          fsm.Event = "PAUSE"
	EventResume         fsm.Event = "RESUME"
	EventGoCommand      fsm.Event = "GO_COMMAND"
	EventGoDirectAccess fsm.Event = "GO_DIRECT_ACCESS"

	EventGetResource             fsm.Event = "GET_RESOURCE"
	EventSetResource             fsm.Event = "SET_RESOURCE"
	EventExecuteResource         fsm.Event = "EXECUTE_RESOURCE"
	EventGetResourceState        fsm.Event = "GET_RESOURCE_STATE"
	EventGetResourceCapabilities fsm.Event = "GET_RESOURCE_CAPABILITIES"
)

// Events is the closed agent event vocabulary.
var Events = []fsm.Event{
	EventEnter,
	EventExit,
	EventPowerUp,
	EventPowerDown,
	EventInitialize,
	EventReset,
	EventGoActive,
	EventGoInactive,
	EventRun,
	EventClear,
	EventPause,
	EventResume,
	EventGoCommand,
	EventGoDirectAccess,
	EventGetResource,
	EventSetResource,
	EventExecuteResource,
	EventGetResourceState,
	EventGetResourceCapabilities,
}

// KnownState reports whether the given state is in the agent
// vocabulary.
func KnownState(s fsm.State) bool {
	for _, x := range States {
		if x == s {
			return true
		}
	}
	return false
}
