// Package goja evaluates script expressions with Goja, a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Eval if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// DefaultTimeout bounds an evaluation when the Interpreter
	// doesn't specify its own Timeout.
	DefaultTimeout = 100 * time.Millisecond
)

// Env is what an expression can see.
//
// Every entry in Vars whose key is a valid identifier is a global.
// All of them are also available at _.vars, which is how to get at
// keys like "Role Name".
type Env struct {
	Vars map[string]interface{}

	// Now is the logical time of the evaluation.  _.cronNext
	// computes relative to Now and never reads the clock.
	Now time.Time
}

// Interpreter compiles and evaluates expressions.  Compiled programs
// are cached by source, so an Interpreter should be shared.
type Interpreter struct {
	// Timeout bounds each evaluation.  Zero means DefaultTimeout.
	Timeout time.Duration

	// Testing exposes sleep(ms).
	Testing bool

	programs sync.Map // source -> *goja.Program
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\nreturn (%s\n);\n}());\n", src)
}

// Compile checks and caches the given expression.
func (i *Interpreter) Compile(src string) (*goja.Program, error) {
	if p, have := i.programs.Load(src); have {
		return p.(*goja.Program), nil
	}
	p, err := goja.Compile("", wrapSrc(src), true)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", src, err)
	}
	i.programs.Store(src, p)
	return p, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

func (i *Interpreter) run(ctx context.Context, src string, env *Env) (goja.Value, error) {
	p, err := i.Compile(src)
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = &Env{}
	}

	o := goja.New()

	vars := make(map[string]interface{}, len(env.Vars))
	for k, v := range env.Vars {
		vars[k] = v
		if isIdentifier(k) {
			if err := o.Set(k, v); err != nil {
				return nil, err
			}
		}
	}

	util := map[string]interface{}{
		"vars": vars,
	}

	// cronNext returns the next time (RFC3339) matching the cron
	// expression after Now.
	util["cronNext"] = func(x interface{}) interface{} {
		expr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(expr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(env.Now).UTC().Format(time.RFC3339Nano)
	}

	util["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	if err := o.Set("_", util); err != nil {
		return nil, err
	}

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	timeout := i.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithTimeout(ctx, timeout)
	go func() {
		<-ictx.Done()
		// If we call cancel() after RunProgram returns, then
		// this interrupt is harmless.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		var ie *goja.InterruptedError
		if errors.As(err, &ie) {
			return nil, Interrupted
		}
		return nil, err
	}
	return v, nil
}

// Eval evaluates the expression and exports its value.
func (i *Interpreter) Eval(ctx context.Context, src string, env *Env) (interface{}, error) {
	v, err := i.run(ctx, src, env)
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}

// Test evaluates the expression and reports its ECMAScript
// truthiness.
func (i *Interpreter) Test(ctx context.Context, src string, env *Env) (bool, error) {
	v, err := i.run(ctx, src, env)
	if err != nil {
		return false, err
	}
	return v.ToBoolean(), nil
}

var reserved = map[string]bool{
	"_": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "export": true,
	"extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "new": true, "null": true, "return": true,
	"super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "let": true,
	"undefined": true, "NaN": true, "Infinity": true,
}

func isIdentifier(s string) bool {
	if s == "" || reserved[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case '0' <= r && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
