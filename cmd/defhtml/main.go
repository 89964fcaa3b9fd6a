// defhtml renders an instrument definition as an HTML page or a
// Graphviz dot graph.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Comcast/sonde/instrument"
	"github.com/Comcast/sonde/tools"
)

func main() {
	var (
		dot     = flag.Bool("dot", false, "emit a Graphviz dot graph instead of HTML")
		cssFile = flag.String("css", "", "optional CSS file reference")
	)

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: defhtml [-dot] [-css FILE] DEFINITION\n")
		os.Exit(1)
	}
	filename := flag.Arg(0)

	var err error
	if *dot {
		var d *instrument.Definition
		if d, err = instrument.Load(filename); err == nil {
			err = tools.Dot(d, os.Stdout, "")
		}
	} else {
		var cssFiles []string
		if *cssFile != "" {
			cssFiles = []string{*cssFile}
		}
		err = tools.ReadAndRenderDefPage(filename, cssFiles, os.Stdout)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
