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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/sonde/agent"
	"github.com/Comcast/sonde/client"
	"github.com/Comcast/sonde/directory"
	"github.com/Comcast/sonde/fleet"
	"github.com/Comcast/sonde/instrument"
	"github.com/Comcast/sonde/qc"
	"github.com/Comcast/sonde/sampler"
	"github.com/Comcast/sonde/script"
	. "github.com/Comcast/sonde/util/testutil"

	"github.com/jsccast/yaml"
)

// Service hosts a fleet of agents behind the wire protocol.
type Service struct {
	// Notices is the firehose of agent state notices.
	Notices chan agent.Notice

	Tracing bool

	ops chan interface{}

	defsDir string
	fleet   *fleet.Fleet
	dir     *directory.Directory
	interp  *script.Interpreter
	sampler *sampler.Sampler
	values  *qc.StoredValues

	counter int
	mu      sync.Mutex
}

func (s *Service) trf(format string, args ...interface{}) {
	if !s.Tracing {
		return
	}
	log.Printf("trace "+format, args...)
}

func NewService(ctx context.Context, defsDir, dbFile, qcFile string) (*Service, error) {
	var dir *directory.Directory
	if dbFile != "" {
		var err error
		if dir, err = directory.NewDirectory(dbFile); err != nil {
			return nil, err
		}
		if err = dir.Open(ctx); err != nil {
			return nil, err
		}
		go func() {
			<-ctx.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := dir.Close(ctx); err != nil {
				log.Printf("Service.dir.Close error %s", err)
			}
		}()
	}

	var values *qc.StoredValues
	if qcFile != "" {
		var err error
		if values, err = qc.NewStoredValues(qcFile); err != nil {
			return nil, err
		}
		go func() {
			<-ctx.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := values.Close(ctx); err != nil {
				log.Printf("Service.values.Close error %s", err)
			}
		}()
	}

	s := &Service{
		Notices: make(chan agent.Notice, 32),
		defsDir: defsDir,
		fleet:   fleet.NewFleet("sonde"),
		dir:     dir,
		interp:  script.NewInterpreter(),
		values:  values,
	}

	s.sampler = sampler.NewSampler(func(ctx context.Context, agentID string, cmd *agent.Command) (*agent.CommandResult, error) {
		m := s.fleet.Get(agentID)
		if m == nil {
			return nil, &agent.NotFound{Msg: "no running agent " + agentID}
		}
		m.Lock()
		defer m.Unlock()
		return m.Agent.ExecuteResource(ctx, cmd)
	})

	return s, nil
}

func (s *Service) op(ctx context.Context, x interface{}) {
	if s.ops != nil {
		select {
		case s.ops <- x:
		default:
			log.Printf("Service ops chan blocked")
		}
	}
}

// GetDefinition reads a definition from the service's definitions
// directory.
func (s *Service) GetDefinition(ctx context.Context, name string) (*instrument.Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("definition needs a name")
	}
	return instrument.Load(s.defsDir + "/" + name + ".yaml")
}

func (s *Service) genAgentID(def string) string {
	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()
	return fmt.Sprintf("%s-%d", def, n)
}

// LaunchAgent builds an agent from the named definition, registers
// it, starts it, and starts its schedules.
func (s *Service) LaunchAgent(ctx context.Context, defName, resourceID, agentID string) (string, error) {
	d, err := s.GetDefinition(ctx, defName)
	if err != nil {
		return "", err
	}

	if agentID == "" {
		agentID = s.genAgentID(defName)
	}
	if s.fleet.Get(agentID) != nil {
		return "", fmt.Errorf("agent '%s' already exists", agentID)
	}

	a, err := d.Build(ctx, s.interp, resourceID, agentID)
	if err != nil {
		return "", err
	}

	a.Notify = func(n agent.Notice) {
		select {
		case s.Notices <- n:
		default:
			log.Printf("warning Service notices chan blocked")
		}
	}

	if err = a.Start(ctx); err != nil {
		return "", err
	}

	if !s.fleet.Add(&fleet.Member{Agent: a, DefName: defName}) {
		return "", fmt.Errorf("agent '%s' already exists", agentID)
	}

	err = s.dir.Register(ctx, &directory.Registration{
		Key:        agentID,
		ResourceID: resourceID,
	})
	if err != nil {
		s.fleet.Rem(agentID)
		return "", err
	}

	for _, sched := range d.Schedules {
		id := agentID + "/" + sched.Id
		if err := s.sampler.Add(ctx, agentID, id, sched.Cron, sched.Command, sched.Args); err != nil {
			log.Printf("warning LaunchAgent schedule '%s': %v", id, err)
		}
	}

	s.trf("Service.LaunchAgent %s for %s", agentID, resourceID)

	return agentID, nil
}

// RemAgent stops an agent's schedules and removes it from the fleet
// and the directory.
func (s *Service) RemAgent(ctx context.Context, agentID string) error {
	m := s.fleet.Get(agentID)
	if m == nil {
		return &agent.NotFound{Msg: "no running agent " + agentID}
	}

	for _, id := range s.sampler.Ids() {
		if strings.HasPrefix(id, agentID+"/") {
			if err := s.sampler.Cancel(ctx, id); err != nil {
				log.Printf("warning RemAgent cancel '%s': %v", id, err)
			}
		}
	}

	if err := s.dir.Deregister(ctx, agentID); err != nil {
		return err
	}
	s.fleet.Rem(agentID)

	return nil
}

// Resolve makes a client bound to the agent for the given resource.
func (s *Service) Resolve(ctx context.Context, resourceID string) (*client.Client, error) {
	return client.New(ctx, resourceID, s.dir, s.fleet)
}

// Listener runs the line-oriented protocol: one op (or control word)
// in per line, one rendered response out.
func (s *Service) Listener(ctx context.Context, in *bufio.Reader, out io.Writer, ctl chan bool) error {
	render := "json"

	sayMutex := sync.Mutex{}

	say := func(x interface{}) bool {
		sayMutex.Lock()
		defer sayMutex.Unlock()

		var js []byte
		var err error
		switch render {
		case "prettyjson":
			js, err = json.MarshalIndent(&x, "  ", "  ")
		case "yaml":
			js, err = yaml.Marshal(&x)
		default:
			js, err = json.Marshal(&x)
		}
		if err != nil {
			log.Printf("Service.Listener warning on rendering: %s on %#v", err, x)
			js = []byte(fmt.Sprintf("error: %s on %#v", err, x))
		}

		js = append(js, '\n')

		if _, err = out.Write(js); err != nil {
			log.Printf("Service.Listener warning on Write: %s", err)
			return false
		}

		return true
	}

	complain := func(err error) bool {
		return say(map[string]interface{}{
			"error": err.Error(),
		})
	}

	okay := func() bool {
		return say("okay")
	}

	for {
		line, err := in.ReadBytes('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		sl := strings.TrimSpace(string(line))

		if strings.HasPrefix(sl, "#") || sl == "" {
			continue
		}

		switch sl {
		case "shutdown":
			log.Printf("client says to shutdown")
			if ctl != nil {
				ctl <- true
			}
			return nil
		case "prettyjson", "yaml", "json":
			render = sl
			okay()
			continue
		}

		parts := strings.Split(sl, " ")
		if parts[0] == "sleep" {
			if len(parts) != 2 {
				if !complain(fmt.Errorf("sleep DURATION")) {
					return nil
				}
				continue
			}
			d, err := time.ParseDuration(parts[1])
			if err != nil {
				if !complain(err) {
					return nil
				}
				continue
			}
			time.Sleep(d)
			continue
		}

		var op SOp
		if err := json.Unmarshal([]byte(sl), &op); err != nil {
			if !complain(err) {
				return err
			}
			continue
		}
		if err = op.Do(ctx, s); err != nil {
			s.trf("Service.Listener op error %s on %s", err, JS(&op))
		}

		if !say(&op) {
			return nil
		}
	}

	return nil
}
