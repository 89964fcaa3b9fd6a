package instrument

import (
	"context"
	"testing"

	"github.com/Comcast/sonde/agent"
	"github.com/Comcast/sonde/script"
)

var testDef = `
name: sbe37-ctd
version: "1.0"
initialState: IDLE
handlers:
  - state: IDLE
    event: RUN
    target: COMMAND
  - state: COMMAND
    event: EXECUTE_RESOURCE
    source: |
      // args[0] is the resource command name.
      return {result: {executed: _.args[0]}};
schedules:
  - id: sample
    cron: "0 * * * * *"
    command: acquire_sample
`

func TestParseBuild(t *testing.T) {
	ctx := context.Background()

	d, err := Parse([]byte(testDef))
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "sbe37-ctd" {
		t.Fatalf("name %s", d.Name)
	}
	if len(d.Schedules) != 1 || d.Schedules[0].Command != "acquire_sample" {
		t.Fatalf("schedules %v", d.Schedules)
	}

	a, err := d.Build(ctx, script.NewInterpreter(), "dev-001", "agent-001")
	if err != nil {
		t.Fatal(err)
	}
	a.Notify = func(agent.Notice) {}
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}

	_, err = a.ExecuteAgent(ctx, &agent.Command{CommandID: "c1", Command: string(agent.EventRun)})
	if err != nil {
		t.Fatal(err)
	}
	if s := a.GetAgentState(); s != agent.StateCommand {
		t.Fatalf("state %s", s)
	}

	r, err := a.ExecuteResource(ctx, &agent.Command{CommandID: "c2", Command: "acquire_sample"})
	if err != nil {
		t.Fatal(err)
	}
	m, is := r.Result.(map[string]interface{})
	if !is || m["executed"] != "acquire_sample" {
		t.Fatalf("result %#v", r.Result)
	}
}

func TestParseJSON(t *testing.T) {
	js := `{"name":"probe","handlers":[{"state":"IDLE","event":"RUN","target":"COMMAND"}]}`
	d, err := Parse([]byte(js))
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "probe" || len(d.Handlers) != 1 {
		t.Fatalf("definition %#v", d)
	}
}

func TestBuildBadVocabulary(t *testing.T) {
	ctx := context.Background()

	d := &Definition{
		Name: "broken",
		Handlers: []HandlerSpec{
			{State: "NOPE", Event: "RUN", Target: "COMMAND"},
		},
	}
	if _, err := d.Build(ctx, script.NewInterpreter(), "dev-001", "agent-001"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestBuildEmptyHandler(t *testing.T) {
	ctx := context.Background()

	d := &Definition{
		Name: "broken",
		Handlers: []HandlerSpec{
			{State: "IDLE", Event: "RUN"},
		},
	}
	if _, err := d.Build(ctx, script.NewInterpreter(), "dev-001", "agent-001"); err == nil {
		t.Fatal("expected an error")
	}
}
