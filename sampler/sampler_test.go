package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/Comcast/sonde/agent"
)

func TestFires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan *agent.Command, 4)
	s := NewSampler(func(ctx context.Context, agentID string, cmd *agent.Command) (*agent.CommandResult, error) {
		fired <- cmd
		return nil, nil
	})

	// Every second.
	err := s.Add(ctx, "agent-001", "sample", "* * * * * *", "acquire_sample", nil)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case cmd := <-fired:
		if cmd.Command != "acquire_sample" {
			t.Fatalf("command %s", cmd.Command)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("never fired")
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	s := NewSampler(func(ctx context.Context, agentID string, cmd *agent.Command) (*agent.CommandResult, error) {
		return nil, nil
	})

	if err := s.Add(ctx, "agent-001", "sample", "0 0 * * * *", "acquire_sample", nil); err != nil {
		t.Fatal(err)
	}
	if ids := s.Ids(); len(ids) != 1 || ids[0] != "sample" {
		t.Fatalf("ids %v", ids)
	}
	if err := s.Cancel(ctx, "sample"); err != nil {
		t.Fatal(err)
	}
	if ids := s.Ids(); len(ids) != 0 {
		t.Fatalf("ids %v", ids)
	}
	if err := s.Cancel(ctx, "sample"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestBadCron(t *testing.T) {
	s := NewSampler(nil)
	if err := s.Add(context.Background(), "agent-001", "sample", "not cron", "acquire_sample", nil); err == nil {
		t.Fatal("expected an error")
	}
}

func TestConflictSkipped(t *testing.T) {
	// A conflicting command shouldn't kill the schedule.
	s := NewSampler(func(ctx context.Context, agentID string, cmd *agent.Command) (*agent.CommandResult, error) {
		return nil, &agent.Conflict{Msg: "busy"}
	})
	e := &Entry{
		Id:      "sample",
		AgentID: "agent-001",
		Command: "acquire_sample",
		sampler: s,
	}
	e.fire(context.Background())
}
