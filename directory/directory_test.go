package directory

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestDirectory(t *testing.T) *Directory {
	d, err := NewDirectory(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		d.Close(context.Background())
	})
	return d
}

func TestRegisterFind(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	err := d.Register(ctx, &Registration{
		Key:        "agent-001",
		ResourceID: "dev-001",
		Endpoint:   "tcp://localhost:9000",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = d.Register(ctx, &Registration{
		Key:        "agent-002",
		ResourceID: "dev-002",
	})
	if err != nil {
		t.Fatal(err)
	}

	regs, err := d.Find(ctx, "dev-001")
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 1 {
		t.Fatalf("found %v", regs)
	}
	if regs[0].Key != "agent-001" || regs[0].Endpoint != "tcp://localhost:9000" {
		t.Fatalf("reg %v", regs[0])
	}

	regs, err = d.Find(ctx, "dev-none")
	if err != nil {
		t.Fatal(err)
	}
	if regs != nil {
		t.Fatalf("found %v", regs)
	}
}

func TestDeregister(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	err := d.Register(ctx, &Registration{Key: "agent-001", ResourceID: "dev-001"})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Deregister(ctx, "agent-001"); err != nil {
		t.Fatal(err)
	}

	regs, err := d.Find(ctx, "dev-001")
	if err != nil {
		t.Fatal(err)
	}
	if regs != nil {
		t.Fatalf("found %v", regs)
	}
}

func TestMultipleRegistrations(t *testing.T) {
	// More than one agent for a resource is an inconsistency that
	// the directory itself tolerates.
	ctx := context.Background()
	d := newTestDirectory(t)

	for _, key := range []string{"agent-001", "agent-002"} {
		err := d.Register(ctx, &Registration{Key: key, ResourceID: "dev-001"})
		if err != nil {
			t.Fatal(err)
		}
	}

	regs, err := d.Find(ctx, "dev-001")
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 2 {
		t.Fatalf("found %v", regs)
	}
}

func TestNilDirectory(t *testing.T) {
	ctx := context.Background()
	var d *Directory

	if err := d.Register(ctx, &Registration{Key: "x"}); err != nil {
		t.Fatal(err)
	}
	regs, err := d.Find(ctx, "dev-001")
	if err != nil {
		t.Fatal(err)
	}
	if regs != nil {
		t.Fatalf("found %v", regs)
	}
	if err := d.Close(ctx); err != nil {
		t.Fatal(err)
	}
}
