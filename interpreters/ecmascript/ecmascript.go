/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ecmascript provides an ECMAScript-compatible hook
// interpreter.
//
// A hook's source is the body of a function.  The hook's arguments
// are available as _.args in the raw format (see term.RawBuilder),
// and the function returns the result in the same format.  Returning
// undefined declines, which leaves the application unevaluated.
package ecmascript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/match"
	"github.com/Comcast/kexec/term"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// IgnoreExit will prevent the Goja function "exit" from
	// terminating the process. Being able to halt the process
	// from Goja is useful for some tests and utilities.  Maybe.
	IgnoreExit = false
)

// init adds a Interpreter as one of the DefaultInterpreters
func init() {
	core.DefaultInterpreters["ecmascript"] = NewInterpreter()
}

// Interpreter implements core.Intepreter using Goja, which is a
// Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {

	// Testing is used to expose or hide some runtime
	// capabilities.
	Test bool

	// Extended adds some additional properties.
	Extended bool

	// Symbolic lets hooks see arguments that contain variables.
	// Otherwise such applications are declined without running
	// any code.
	Symbolic bool

	// LibraryProvider resolves the names in a source's
	// "requires".  If nil, DefaultLibraryProvider is used.
	LibraryProvider LibraryProvider
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// AsSource extracts the code and required libraries from a hook's
// source, which is either a string or a map with "code" and
// "requires".
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		code = vv
		return
	case map[interface{}]interface{}:
		var x interface{}
		if x, err = core.StringMaps(vv); err != nil {
			return
		}
		return parseSource(x.(map[string]interface{}))
	case map[string]interface{}:
		return parseSource(vv)
	default:
		err = fmt.Errorf("bad ECMAScript source (%T)", src)
		return
	}
}

func parseSource(m map[string]interface{}) (code string, libs []string, err error) {
	s, is := m["code"].(string)
	if !is {
		err = errors.New("bad ECMAScript hook code")
		return
	}
	code = s

	switch vv := m["requires"].(type) {
	case nil:
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			s, is := x.(string)
			if !is {
				err = fmt.Errorf("bad library (%T)", x)
				return
			}
			libs = append(libs, s)
		}
	default:
		err = fmt.Errorf("bad requires (%T)", vv)
	}

	return
}

// Compile calls goja.Compile after prepending any required
// libraries.
//
// This method can block if the interpreter's LibraryProvider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	code = wrapSrc(code)

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}
	code = libsSrc + code

	obj, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}

	return obj, nil
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

// Exec implements the Interpreter method of the same name.
//
// The following properties are available from the runtime at _.
//
//    args: the hook's arguments as raw terms.
//
// Extended properties (enabled by interpreter's Extended property):
//
//    randstr(): generate a random string.
//    cronNext(s, ms): Return the next time (in Unix milliseconds)
//      after ms for the given crontab expression.  Without ms,
//      the next time after now.
//    match(pat, subject): Run the matcher on two raw terms.  Returns
//      an array of bindings keyed by variable name.
//
// Testing properties (enabled by the interpreter's Test property):
//
//    sleep(ms): sleep for the given number of milliseconds.  For testing.
//    log(x): log x as JSON.
//    exit(msg): Terminate the process after printing the given message.
//      For testing.
//
func (i *Interpreter) Exec(ctx context.Context, args []term.Term, src interface{}, compiled interface{}) (term.Term, error) {
	if !i.Symbolic {
		for _, arg := range args {
			if !arg.Ground() {
				return nil, nil
			}
		}
	}

	var p *goja.Program
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return nil, err
		}
	}
	var is bool
	if p, is = compiled.(*goja.Program); !is {
		return nil, fmt.Errorf("ECMAScript bad compilation: %T %#v", compiled, compiled)
	}

	raw := make([]interface{}, len(args))
	for j, arg := range args {
		raw[j] = term.ToRaw(arg)
	}

	env := map[string]interface{}{
		"ctx":  ctx,
		"args": raw,
	}

	o := goja.New()

	o.Set("_", env)

	if i.Extended {
		env["randstr"] = func() interface{} {
			return core.Gensym(32)
		}

		// cronNext parses the given string as a crontab expression
		// using github.com/gorhill/cronexpr.
		env["cronNext"] = func(x interface{}, ms interface{}) interface{} {
			cronExpr, is := export(x).(string)
			if !is {
				protest(o, "not a string")
			}
			from := time.Now().UTC()
			switch vv := export(ms).(type) {
			case int64:
				from = time.Unix(0, vv*int64(time.Millisecond)).UTC()
			case float64:
				from = time.Unix(0, int64(vv)*int64(time.Millisecond)).UTC()
			}
			next, err := CronNext(cronExpr, from)
			if err != nil {
				protest(o, err.Error())
			}
			return next
		}

		// match is a utility that invokes the matcher.
		env["match"] = func(pat, subject goja.Value) interface{} {
			p, err := build(pat.Export())
			if err != nil {
				protest(o, err.Error())
			}
			s, err := build(subject.Export())
			if err != nil {
				protest(o, err.Error())
			}
			bss := match.DefaultMatcher.Match(p, s)
			acc := make([]interface{}, len(bss))
			for j, bs := range bss {
				m := make(map[string]interface{}, len(bs))
				for name, x := range bs.ByName() {
					m[name] = term.ToRaw(x)
				}
				acc[j] = m
			}
			return acc
		}
	}

	if i.Test {

		env["sleep"] = func(n interface{}) interface{} {
			n = export(n)
			ms, is := n.(int64)
			if !is {
				panic(fmt.Sprintf("a %T is not an %T", n, ms))
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return nil
		}

		env["log"] = func(x interface{}) interface{} {
			x = export(x)
			js, err := json.Marshal(&x)
			if err != nil {
				log.Println("goja.log (can't marshal: " + err.Error() + ")")
			} else {
				log.Println(string(js))
			}

			return x
		}
		env["exit"] = func(n interface{}, msg interface{}) interface{} {
			s, is := export(msg).(string)
			if !is {
				panic("not a string")
			}
			n = export(n)
			ec, is := n.(int64)
			if !is {
				panic(fmt.Sprintf("a %T is not an %T", n, ec))
			}
			log.Println(s)
			if !IgnoreExit {
				os.Exit(int(ec))
			}
			return msg
		}
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If this Exec method calls cancel() after RunProgram
		// returns, then we'll never see this
		// InterruptedMessage, which is actually the behavior
		// we want.  In this case, we weren't actually interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := RunProgram(o, p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	if v == nil || goja.IsUndefined(v) {
		return nil, nil
	}

	x := v.Export()
	if ie, is := x.(*goja.InterruptedError); is {
		return nil, ie
	}

	return build(x)
}

// build makes a Term from a value exported from the runtime.
func build(x interface{}) (term.Term, error) {
	x, err := core.Canonicalize(x)
	if err != nil {
		return nil, err
	}
	return term.Build(x)
}

// CronNext returns the next time (in Unix milliseconds) after the
// given time for the crontab expression.
func CronNext(expr string, from time.Time) (float64, error) {
	c, err := cronexpr.Parse(expr)
	if err != nil {
		return 0, err
	}
	next := c.Next(from)
	if next.IsZero() {
		return 0, fmt.Errorf("no next time for %q", expr)
	}
	return float64(next.UnixNano() / int64(time.Millisecond)), nil
}

func RunProgram(o *goja.Runtime, p *goja.Program) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s", r)
		}
	}()
	return o.RunProgram(p)
}
