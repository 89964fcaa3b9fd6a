// Package script compiles ECMAScript handler bodies into fsm
// Handlers using Goja, a Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
//
// A handler body is wrapped in a function, so 'return' works.  The
// runtime exposes the dispatch context at _:
//
//	_.args: the positional arguments (an array).
//	_.kwargs: the keyword arguments (an object).
//
// Some utilities:
//
//	cronNext(expr): the next firing time for the given cron
//	  expression, as an RFC 3339 string.
//	millis(): the current time in milliseconds since the epoch.
//	log(x): log the given value as JSON.
//	parseSample(line): split a raw CTD line into its fields.
//	salinity(c, t, p): practical salinity per PSS-78.
//
// A body's return value becomes the handler's result.  To request a
// state transition, return an object with a "to" property naming the
// target state; its "result" property (if any) becomes the handler's
// result.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Comcast/sonde/ctd"
	"github.com/Comcast/sonde/fsm"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// Interpreter compiles and executes handler bodies.
type Interpreter struct {
	// Testing exposes some runtime capabilities that production
	// handlers shouldn't have.
	Testing bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Compile compiles a handler body.
func (i *Interpreter) Compile(ctx context.Context, src string) (*goja.Program, error) {
	p, err := goja.Compile("", wrapSrc(src), true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + src)
	}
	return p, nil
}

// Handler wraps a compiled program as an fsm.Handler.
func (i *Interpreter) Handler(p *goja.Program) fsm.Handler {
	return func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (fsm.State, interface{}, error) {
		return i.Exec(ctx, p, args, kwargs)
	}
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// Exec runs a compiled handler body with the given dispatch
// arguments.
//
// Cancel the ctx to interrupt a runaway script.
func (i *Interpreter) Exec(ctx context.Context, p *goja.Program, args []interface{}, kwargs map[string]interface{}) (fsm.State, interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}

	env := map[string]interface{}{
		"args":   args,
		"kwargs": kwargs,
	}

	o := goja.New()
	o.Set("_", env)

	o.Set("cronNext", func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		cronExpr, is := x.(string)
		if !is {
			protest(o, "not a string")
		}

		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	})

	o.Set("millis", func() interface{} {
		return time.Now().UnixNano() / int64(time.Millisecond)
	})

	o.Set("log", func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		js, err := json.Marshal(&x)
		if err != nil {
			log.Println("script.log (can't marshal: " + err.Error() + ")")
		} else {
			log.Println(string(js))
		}
		return x
	})

	o.Set("parseSample", func(line string) interface{} {
		s, err := ctd.ParseSample(line)
		if err != nil {
			protest(o, err.Error())
		}
		return map[string]interface{}{
			"conductivity": s.Conductivity,
			"temperature":  s.Temperature,
			"pressure":     s.Pressure,
		}
	})

	o.Set("salinity", func(c, t, p float64) float64 {
		return ctd.Salinity(c, t, p)
	})

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return "", nil, Interrupted
		}
		return "", nil, err
	}

	x := v.Export()

	if m, is := x.(map[string]interface{}); is {
		if to, have := m["to"]; have {
			if target, is := to.(string); is {
				return fsm.State(target), m["result"], nil
			}
			return "", nil, fmt.Errorf("bad transition target %#v", m["to"])
		}
	}

	return "", x, nil
}
