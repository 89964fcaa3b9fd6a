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
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/sonde/agent"
)

var testDef = `
name: sbe37-ctd
initialState: IDLE
handlers:
  - state: IDLE
    event: RUN
    target: COMMAND
  - state: COMMAND
    event: EXECUTE_RESOURCE
    source: |
      return {result: {executed: _.args[0]}};
`

func testService(ctx context.Context, t *testing.T) *Service {
	dir := t.TempDir()

	if err := ioutil.WriteFile(filepath.Join(dir, "sbe37-ctd.yaml"), []byte(testDef), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewService(ctx, dir,
		filepath.Join(dir, "test.db"),
		filepath.Join(dir, "qc.db"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestServiceBasic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := testService(ctx, t)

	launch := &OpLaunch{
		Def:        "sbe37-ctd",
		ResourceID: "dev-001",
	}
	op := &SOp{Launch: launch}
	if err := op.Do(ctx, s); err != nil {
		t.Fatal(err)
	}
	if launch.AgentID == "" {
		t.Fatal("no agent id")
	}

	state := &OpState{ResourceID: "dev-001"}
	if err := (&SOp{State: state}).Do(ctx, s); err != nil {
		t.Fatal(err)
	}
	if state.State != agent.StateIdle {
		t.Fatalf("state %s", state.State)
	}

	exec := &OpExecute{
		ResourceID: "dev-001",
		Cmd:        &agent.Command{CommandID: "c1", Command: string(agent.EventRun)},
	}
	if err := (&SOp{Execute: exec}).Do(ctx, s); err != nil {
		t.Fatal(err)
	}
	if exec.Result == nil || exec.Result.TsExecute == "" {
		t.Fatalf("result %#v", exec.Result)
	}

	res := &OpExecute{
		ResourceID: "dev-001",
		Resource:   true,
		Cmd:        &agent.Command{CommandID: "c2", Command: "acquire_sample"},
	}
	if err := (&SOp{Execute: res}).Do(ctx, s); err != nil {
		t.Fatal(err)
	}
	m, is := res.Result.Result.(map[string]interface{})
	if !is || m["executed"] != "acquire_sample" {
		t.Fatalf("result %#v", res.Result)
	}

	caps := &OpCaps{ResourceID: "dev-001"}
	if err := (&SOp{Caps: caps}).Do(ctx, s); err != nil {
		t.Fatal(err)
	}
	if len(caps.Capabilities) == 0 {
		t.Fatal("no capabilities")
	}

	f := &OpFleet{}
	if err := (&SOp{Fleet: f}).Do(ctx, s); err != nil {
		t.Fatal(err)
	}
	if len(f.Ids) != 1 || f.Ids[0] != launch.AgentID {
		t.Fatalf("ids %v", f.Ids)
	}

	if err := (&SOp{Rem: &OpRem{Id: launch.AgentID}}).Do(ctx, s); err != nil {
		t.Fatal(err)
	}
	if err := (&SOp{State: &OpState{ResourceID: "dev-001"}}).Do(ctx, s); err == nil {
		t.Fatal("expected an error")
	}
}

func TestServiceQC(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := testService(ctx, t)

	table := filepath.Join(t.TempDir(), "grt.csv")
	if err := ioutil.WriteFile(table, []byte("dev-001,cond,0,100\n"), 0644); err != nil {
		t.Fatal(err)
	}

	load := &OpQC{Load: &OpQCLoad{Kind: "grt", File: table}}
	if err := (&SOp{QC: load}).Do(ctx, s); err != nil {
		t.Fatal(err)
	}
	if load.Load.Count != 1 {
		t.Fatalf("count %d", load.Load.Count)
	}

	read := &OpQC{Read: &OpQCRead{Key: "grt_dev-001_cond"}}
	if err := (&SOp{QC: read}).Do(ctx, s); err != nil {
		t.Fatal(err)
	}
	if read.Read.Doc["grt_max_value"] != 100.0 {
		t.Fatalf("doc %v", read.Read.Doc)
	}
}

func TestListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := testService(ctx, t)

	in := strings.NewReader(`# comment
{"launch":{"def":"sbe37-ctd","resourceId":"dev-001","agentId":"agent-001"}}
{"state":{"resourceId":"dev-001"}}
{"state":{"resourceId":"dev-none"}}
`)

	var out bytes.Buffer
	if err := s.Listener(ctx, bufio.NewReader(in), &out, nil); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("output %s", out.String())
	}
	if !strings.Contains(lines[1], `"IDLE"`) {
		t.Fatalf("state line %s", lines[1])
	}
	if !strings.Contains(lines[2], "err") {
		t.Fatalf("error line %s", lines[2])
	}
}
