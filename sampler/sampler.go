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

// Package sampler schedules autonomous resource commands.
//
// Each entry fires a command on a cron schedule against an agent via
// the sampler's Submitter, which is typically a fleet dispatch.  A
// command that conflicts with the agent's current state is logged and
// skipped; the schedule keeps running.
package sampler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Comcast/sonde/agent"

	"github.com/gorhill/cronexpr"
)

// Submitter executes a scheduled command against its agent.
type Submitter func(ctx context.Context, agentID string, cmd *agent.Command) (*agent.CommandResult, error)

// Entry represents one live schedule.
type Entry struct {
	Id      string
	AgentID string
	Cron    string
	Command string
	Args    []interface{}
	Ctl     chan bool `json:"-"`

	expr    *cronexpr.Expression
	sampler *Sampler
}

// Sampler represents pending schedules.
type Sampler struct {
	Map       map[string]*Entry
	Submitter Submitter `json:"-"`

	sync.Mutex
}

// NewSampler creates a Sampler that will execute fired commands with
// the given Submitter.
func NewSampler(submit Submitter) *Sampler {
	return &Sampler{
		Map:       make(map[string]*Entry, 8),
		Submitter: submit,
	}
}

// Add creates a new schedule and starts it.
//
// Adding an entry with an existing id cancels the old entry first.
func (s *Sampler) Add(ctx context.Context, agentID, id, cron, command string, args []interface{}) error {
	expr, err := cronexpr.Parse(cron)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	if _, have := s.Map[id]; have {
		if err := s.cancel(ctx, id); err != nil {
			return err
		}
	}

	e := &Entry{
		Id:      id,
		AgentID: agentID,
		Cron:    cron,
		Command: command,
		Args:    args,
		Ctl:     make(chan bool),
		expr:    expr,
		sampler: s,
	}
	s.Map[id] = e

	go e.run(ctx)

	return nil
}

// run waits out the cron schedule, firing the entry's command each
// time, until the entry is cancelled.
func (e *Entry) run(ctx context.Context) {
	for {
		next := e.expr.Next(time.Now())
		if next.IsZero() {
			log.Printf("sampler entry '%s' schedule exhausted", e.Id)
			return
		}

		t := time.NewTimer(next.Sub(time.Now()))
		select {
		case <-t.C:
			e.fire(ctx)
		case <-e.Ctl:
			t.Stop()
			return
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
}

func (e *Entry) fire(ctx context.Context) {
	cmd := &agent.Command{
		CommandID: fmt.Sprintf("%s-%d", e.Id, time.Now().UnixNano()),
		Command:   e.Command,
		Args:      e.Args,
	}

	_, err := e.sampler.Submitter(ctx, e.AgentID, cmd)
	if err != nil {
		if _, is := err.(*agent.Conflict); is {
			log.Printf("warning sampler entry '%s' skipped: %v", e.Id, err)
			return
		}
		log.Printf("sampler entry '%s' failed: %v", e.Id, err)
	}
}

func (s *Sampler) cancel(ctx context.Context, id string) error {
	e, have := s.Map[id]
	if !have {
		return fmt.Errorf("sampler entry '%s' doesn't exist", id)
	}
	delete(s.Map, id)
	close(e.Ctl)
	return nil
}

// Cancel attempts to cancel the schedule with the given id.
func (s *Sampler) Cancel(ctx context.Context, id string) error {
	s.Lock()
	defer s.Unlock()
	return s.cancel(ctx, id)
}

// Ids returns the ids of the live schedules.
func (s *Sampler) Ids() []string {
	s.Lock()
	defer s.Unlock()
	acc := make([]string, 0, len(s.Map))
	for id := range s.Map {
		acc = append(acc, id)
	}
	return acc
}
