package client

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Comcast/sonde/agent"
	"github.com/Comcast/sonde/directory"
	"github.com/Comcast/sonde/fleet"
	"github.com/Comcast/sonde/fsm"
)

func newTestWorld(t *testing.T) (*directory.Directory, *fleet.Fleet) {
	d, err := directory.NewDirectory(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		d.Close(context.Background())
	})
	return d, fleet.NewFleet("test")
}

func addAgent(t *testing.T, ctx context.Context, d *directory.Directory, f *fleet.Fleet, agentID, resourceID string) *agent.ResourceAgent {
	a, err := agent.New(resourceID, agentID, "", agent.StateIdle)
	if err != nil {
		t.Fatal(err)
	}
	a.Notify = func(agent.Notice) {}
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	f.Add(&fleet.Member{Agent: a})
	err = d.Register(ctx, &directory.Registration{
		Key:        agentID,
		ResourceID: resourceID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestClientNotFound(t *testing.T) {
	ctx := context.Background()
	d, f := newTestWorld(t)

	_, err := New(ctx, "dev-none", d, f)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, is := err.(*agent.NotFound); !is {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestClientForwarding(t *testing.T) {
	ctx := context.Background()
	d, f := newTestWorld(t)

	a := addAgent(t, ctx, d, f, "agent-001", "dev-001")
	err := a.AddHandler(agent.StateIdle, agent.EventRun, func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (fsm.State, interface{}, error) {
		return agent.StateCommand, nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err := New(ctx, "dev-001", d, f)
	if err != nil {
		t.Fatal(err)
	}

	if s := c.GetAgentState(ctx); s != agent.StateIdle {
		t.Fatalf("state %s", s)
	}

	_, err = c.ExecuteAgent(ctx, &agent.Command{CommandID: "c1", Command: string(agent.EventRun)})
	if err != nil {
		t.Fatal(err)
	}
	if s := c.GetAgentState(ctx); s != agent.StateCommand {
		t.Fatalf("state %s", s)
	}

	// The same command now conflicts: RUN isn't wired at COMMAND.
	_, err = c.ExecuteAgent(ctx, &agent.Command{CommandID: "c2", Command: string(agent.EventRun)})
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, is := err.(*agent.Conflict); !is {
		t.Fatalf("got %T: %v", err, err)
	}

	caps, err := c.GetCapabilities(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) == 0 {
		t.Fatal("no capabilities")
	}
}

func TestClientFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	d, f := newTestWorld(t)

	addAgent(t, ctx, d, f, "agent-001", "dev-001")
	addAgent(t, ctx, d, f, "agent-002", "dev-001")

	c, err := New(ctx, "dev-001", d, f)
	if err != nil {
		t.Fatal(err)
	}
	if c.GetAgentState(ctx) != agent.StateIdle {
		t.Fatal("no agent bound")
	}
}
