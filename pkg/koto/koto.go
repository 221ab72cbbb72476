// Package koto is the embedding API: load and run .koto source from a host
// Go program, bind Go functions/values into a script's globals, and read
// results back out. Mirrors funxy's pkg/embed in shape - a thin VM wrapper
// plus a reflection-based marshaller - adapted to this VM's value.Value
// union instead of funxy's evaluator.Object interface.
package koto

import (
	"fmt"
	"os"

	"github.com/kotoscript/koto/internal/compiler"
	"github.com/kotoscript/koto/internal/exec"
	"github.com/kotoscript/koto/internal/frontend"
	"github.com/kotoscript/koto/internal/modules"
	"github.com/kotoscript/koto/internal/value"
)

// VM wraps an exec.VM with a host-friendly Bind/Eval/Call surface.
type VM struct {
	machine *exec.VM
	globals *value.Map
}

// New creates a VM with no bindings, output to stdout, and module
// resolution against the given search roots (passed to
// internal/modules.NewFileLoader; pass none to disable import support).
func New(moduleRoots ...string) *VM {
	m := exec.New()
	if len(moduleRoots) > 0 {
		m.SetResolver(modules.NewFileLoader(moduleRoots...))
	}
	return &VM{machine: m, globals: value.NewMap()}
}

// SetOutput redirects the script's io/print output.
func (v *VM) SetOutput(w *os.File) { v.machine.SetOutput(w) }

// Bind registers a Go function or value under name, reachable from script
// globals the next time Run/Eval executes. Functions are wrapped as a
// value.NativeFunction via reflection (ToValue); anything else is
// marshalled once and stored as-is.
func (v *VM) Bind(name string, goVal interface{}) error {
	val, err := ToValue(goVal)
	if err != nil {
		return fmt.Errorf("bind %q: %w", name, err)
	}
	if err := v.globals.Insert(value.StrVal(value.NewStr(name)), val); err != nil {
		return err
	}
	v.machine.SetGlobals(v.globals)
	return nil
}

// Run parses and executes src, returning its implicit result converted
// back to a Go value. Bound globals resolve as plain identifiers the same
// way a script's own non-local/export lookups do (§4.1 OpLoadNonLocal),
// via exec.VM.SetGlobals.
func (v *VM) Run(src string) (interface{}, error) {
	block, err := frontend.Parse(src)
	if err != nil {
		return nil, err
	}
	chunk, err := compiler.CompileMain(block, "<embed>")
	if err != nil {
		return nil, err
	}
	result, err := v.machine.Run(chunk)
	if err != nil {
		return nil, err
	}
	return FromValue(result, nil)
}

// Call invokes a previously bound or exported function by looking it up
// in the last Run's exports and applying it to args.
func (v *VM) Call(name string, args ...interface{}) (interface{}, error) {
	exports := v.machine.Exports()
	if exports == nil {
		return nil, fmt.Errorf("call %q: no script has been run yet", name)
	}
	fnVal, ok := exports.GetWithMeta(name)
	if !ok {
		return nil, fmt.Errorf("function %q not found among exports", name)
	}
	if !fnVal.Callable() {
		return nil, fmt.Errorf("%q is not callable (got %s)", name, fnVal.TypeName())
	}
	kotoArgs := make([]value.Value, len(args))
	for i, a := range args {
		kv, err := ToValue(a)
		if err != nil {
			return nil, fmt.Errorf("call %q: argument %d: %w", name, i, err)
		}
		kotoArgs[i] = kv
	}
	result, err := v.machine.CallFunction(fnVal, kotoArgs)
	if err != nil {
		return nil, err
	}
	return FromValue(result, nil)
}
