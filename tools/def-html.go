package tools

import (
	"fmt"
	"io"

	"github.com/Comcast/sonde/instrument"

	md "github.com/russross/blackfriday/v2"
)

// RenderDefHTML writes an HTML fragment documenting the given
// instrument definition.
//
// Doc strings are Markdown.
func RenderDefHTML(d *instrument.Definition, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="defDoc doc">%s</div>`, md.Run([]byte(d.Doc)))

	{ // Handlers
		f(`<div class="handlers"><table>`)
		for _, h := range d.Handlers {
			f(`<tr class="handler"><td><span class="stateName">%s</span></td><td><code>%s</code></td><td>`, h.State, h.Event)
			if h.Doc != "" {
				f(`<div class="handlerDoc doc">%s</div>`, md.Run([]byte(h.Doc)))
			}
			if h.Source != "" {
				f(`<div class="code"><pre>%s</pre></div>`, h.Source)
			}
			if h.Target != "" {
				f(`<div>target: <a href="#%s"><code>%s</code></a></div>`, h.Target, h.Target)
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	if 0 < len(d.Schedules) {
		f(`<div class="schedules"><table>`)
		for _, sched := range d.Schedules {
			f(`<tr class="schedule"><td>%s</td><td><code>%s</code></td><td><code>%s</code></td></tr>`,
				sched.Id, sched.Cron, sched.Command)
		}
		f(`</table></div>`)
	}

	return nil
}

// RenderDefPage writes a complete HTML page for the given definition.
func RenderDefPage(d *instrument.Definition, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/def-html.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, d.Name)

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, d.Name)

	if err := RenderDefHTML(d, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderDefPage reads a definition from a file and renders its
// page.
func ReadAndRenderDefPage(filename string, cssFiles []string, out io.Writer) error {
	d, err := instrument.Load(filename)
	if err != nil {
		return err
	}
	return RenderDefPage(d, out, cssFiles)
}
