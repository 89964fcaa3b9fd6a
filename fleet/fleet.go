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

// Package fleet holds a set of running resource agents keyed by agent
// id.
package fleet

import (
	"sync"

	"github.com/Comcast/sonde/agent"
)

// Member is one running agent plus the mutual-exclusion boundary
// around its dispatch.
//
// A ResourceAgent itself assumes single-threaded dispatch.  Callers
// that might overlap (the daemon's TCP and WebSocket listeners, the
// sampler) must hold the Member's lock for the duration of each
// operation.
type Member struct {
	sync.Mutex

	Agent *agent.ResourceAgent `json:"agent"`

	// DefName names the instrument definition this member was built
	// from (if any).
	DefName string `json:"def,omitempty"`
}

// Fleet is a mutex-guarded set of Members.
type Fleet struct {
	sync.RWMutex

	Id      string             `json:"id"`
	Members map[string]*Member `json:"members"`
}

func NewFleet(id string) *Fleet {
	return &Fleet{
		Id:      id,
		Members: make(map[string]*Member, 32),
	}
}

// Add adds a member keyed by its agent id.  Returns false if that id
// is already present.
func (f *Fleet) Add(m *Member) bool {
	f.Lock()
	_, have := f.Members[m.Agent.AgentID]
	if !have {
		f.Members[m.Agent.AgentID] = m
	}
	f.Unlock()
	return !have
}

// Get returns the member with the given agent id (or nil).
func (f *Fleet) Get(agentID string) *Member {
	f.RLock()
	m := f.Members[agentID]
	f.RUnlock()
	return m
}

// Rem removes the member with the given agent id.
func (f *Fleet) Rem(agentID string) bool {
	f.Lock()
	_, have := f.Members[agentID]
	delete(f.Members, agentID)
	f.Unlock()
	return have
}

// Ids returns the current set of agent ids.
func (f *Fleet) Ids() []string {
	f.RLock()
	acc := make([]string, 0, len(f.Members))
	for id := range f.Members {
		acc = append(acc, id)
	}
	f.RUnlock()
	return acc
}
