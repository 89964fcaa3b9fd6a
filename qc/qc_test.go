package qc

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseGlobalRange(t *testing.T) {
	table := `refdes,parameter,min,max
GP03FLMA-RI001-01-CTDMOG999,cond,0.0,42.914
GP03FLMA-RI001-01-CTDMOG999,temp,-5.0,35.0
`
	kvs, err := ParseGlobalRange(strings.NewReader(table))
	if err != nil {
		t.Fatal(err)
	}
	if len(kvs) != 2 {
		t.Fatalf("got %v", kvs)
	}
	kv := kvs[0]
	if kv.Key != "grt_GP03FLMA-RI001-01-CTDMOG999_cond" {
		t.Fatalf("key %s", kv.Key)
	}
	if kv.Doc["grt_min_value"] != 0.0 || kv.Doc["grt_max_value"] != 42.914 {
		t.Fatalf("doc %v", kv.Doc)
	}
}

func TestParseNoHeader(t *testing.T) {
	kvs, err := ParseGlobalRange(strings.NewReader("dev-001,cond,0,100\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(kvs) != 1 {
		t.Fatalf("got %v", kvs)
	}
}

func TestParseSpike(t *testing.T) {
	kvs, err := ParseSpike(strings.NewReader("dev-001,cond,0.1,5,7\n"))
	if err != nil {
		t.Fatal(err)
	}
	kv := kvs[0]
	if kv.Key != "spike_dev-001_cond" {
		t.Fatalf("key %s", kv.Key)
	}
	if kv.Doc["acc"] != 0.1 || kv.Doc["spike_n"] != 5.0 || kv.Doc["spike_l"] != 7.0 {
		t.Fatalf("doc %v", kv.Doc)
	}
}

func TestParseStuckValue(t *testing.T) {
	kvs, err := ParseStuckValue(strings.NewReader("dev-001,temp,0.001,10\n"))
	if err != nil {
		t.Fatal(err)
	}
	kv := kvs[0]
	if kv.Key != "svt_dev-001_temp" {
		t.Fatalf("key %s", kv.Key)
	}
	if kv.Doc["svt_resolution"] != 0.001 || kv.Doc["svt_n"] != 10.0 {
		t.Fatalf("doc %v", kv.Doc)
	}
}

func TestParseTrend(t *testing.T) {
	kvs, err := ParseTrend(strings.NewReader("dev-001,temp,86400,2,3.0\n"))
	if err != nil {
		t.Fatal(err)
	}
	kv := kvs[0]
	if kv.Key != "trend_dev-001_temp" {
		t.Fatalf("key %s", kv.Key)
	}
	if kv.Doc["polynomial_order"] != 2.0 || kv.Doc["standard_deviation"] != 3.0 {
		t.Fatalf("doc %v", kv.Doc)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := ParseGlobalRange(strings.NewReader("dev-001,cond,zero,100\n")); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := ParseSpike(strings.NewReader("dev-001,cond,0.1\n")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestStoredValues(t *testing.T) {
	ctx := context.Background()

	s, err := NewStoredValues(filepath.Join(t.TempDir(), "qc.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	kvs, err := ParseGlobalRange(strings.NewReader("dev-001,cond,0,100\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Load(ctx, kvs); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Read(ctx, "grt_dev-001_cond")
	if err != nil {
		t.Fatal(err)
	}
	if doc["grt_max_value"] != 100.0 {
		t.Fatalf("doc %v", doc)
	}

	_, err = s.Read(ctx, "grt_dev-001_nope")
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, is := err.(*NotFound); !is {
		t.Fatalf("got %T: %v", err, err)
	}
}
