package exec

import "github.com/kotoscript/koto/internal/value"

// callValue dispatches a call to whichever callable shape fn holds: a
// compiled Function (runs its own frame), a NativeFunction (host code),
// an Object with a Call hook, or a Map whose meta-map defines `@||`
// (§4.4.4, §6.3).
func (vm *VM) callValue(fn value.Value, args []value.Value, instance *value.Value) (value.Value, error) {
	switch fn.Tag {
	case value.FunctionTag:
		return vm.callFunction(fn.Function(), args)
	case value.NativeFunctionTag:
		return fn.NativeFunction()(vm, args, instance)
	case value.ObjectTag:
		if c, ok := fn.Object().(value.Callable); ok {
			return c.Call(vm, args)
		}
	case value.MapTag:
		if meta, ok := fn.Map().Meta.Get(value.MetaCall); ok {
			self := fn
			return vm.callValue(meta, args, &self)
		}
	}
	return value.Value{}, value.NotCallable(fn.TypeName())
}

// CallFunction implements value.CallContext for host Objects calling back
// into Koto.
func (vm *VM) CallFunction(fn value.Value, args []value.Value) (value.Value, error) {
	return vm.callValue(fn, args, nil)
}

// callFunction binds args to fn's parameters per its flags (§4.3.1
// Function, §4.1 "keep HOW") and runs its body in a fresh frame, with
// captures pre-seeded ahead of the regular args the compiler already laid
// out captured names' locals for (see compiler.compileFunctionLiteral).
func (vm *VM) callFunction(fn *value.Function, args []value.Value) (value.Value, error) {
	if fn.IsGenerator() {
		return value.IteratorVal(newGeneratorVM(vm, fn, args)), nil
	}
	bound, err := bindArgs(fn, args)
	if err != nil {
		return value.Value{}, err
	}
	return vm.runChunk(fn.Chunk, bound, fn.Captures)
}

// bindArgs lays out the caller's args into fn's declared parameter slots,
// honouring variadic/unpacked-tuple collection of trailing arguments.
// Captures are NOT included here; runChunk writes them into the same
// frame separately since they and positional args don't overlap (capture
// locals come first, added to the child Compiler before any parameter).
func bindArgs(fn *value.Function, args []value.Value) ([]value.Value, error) {
	n := int(fn.ArgCount)
	if !fn.IsVariadic() {
		if len(args) > n {
			args = args[:n]
		}
		out := make([]value.Value, n)
		copy(out, args)
		for i := len(args); i < n; i++ {
			out[i] = value.NullVal()
		}
		return out, nil
	}
	out := make([]value.Value, n)
	fixed := n - 1
	if fixed < 0 {
		fixed = 0
	}
	for i := 0; i < fixed && i < len(args); i++ {
		out[i] = args[i]
	}
	for i := len(args); i < fixed; i++ {
		out[i] = value.NullVal()
	}
	var rest []value.Value
	if len(args) > fixed {
		rest = append(rest, args[fixed:]...)
	}
	if n > 0 {
		if fn.ArgIsUnpackedTuple() {
			out[n-1] = value.TupleVal(value.NewTuple(rest...))
		} else {
			out[n-1] = value.ListVal(value.NewList(rest...))
		}
	}
	return out, nil
}
