package tools

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Comcast/sonde/instrument"
)

func testDef(t *testing.T) *instrument.Definition {
	d, err := instrument.Parse([]byte(`
name: sbe37-ctd
doc: |
  A **CTD** instrument.
initialState: IDLE
handlers:
  - state: IDLE
    event: RUN
    target: COMMAND
    doc: Go active.
  - state: COMMAND
    event: EXECUTE_RESOURCE
    source: |
      return {result: _.args};
schedules:
  - id: sample
    cron: "0 * * * * *"
    command: acquire_sample
`))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRenderDefPage(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderDefPage(testDef(t), &buf, nil); err != nil {
		t.Fatal(err)
	}
	html := buf.String()

	for _, want := range []string{
		"<title>sbe37-ctd</title>",
		"<strong>CTD</strong>",
		"EXECUTE_RESOURCE",
		"acquire_sample",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("missing %q in %s", want, html)
		}
	}
}

func TestDot(t *testing.T) {
	var buf bytes.Buffer
	if err := Dot(testDef(t), &buf, "COMMAND"); err != nil {
		t.Fatal(err)
	}
	dot := buf.String()

	for _, want := range []string{
		"digraph G {",
		`"IDLE" -> "COMMAND" [label="RUN"]`,
		`style="dashed"`,
		"schedules",
	} {
		if !strings.Contains(dot, want) {
			t.Fatalf("missing %q in %s", want, dot)
		}
	}
}
