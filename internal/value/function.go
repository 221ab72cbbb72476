package value

import "github.com/kotoscript/koto/internal/bytecode"

// Function is a Koto closure: a reference to its home Chunk, the byte
// offset its body starts at, arity, flag bits, and (if any) captured
// values (§3.1).
type Function struct {
	Chunk        *bytecode.Chunk
	EntryIP      int
	ArgCount     uint8
	Flags        bytecode.FunctionFlags
	Captures     []Value
	Name         string // for display/debugging only
}

func (f *Function) IsVariadic() bool { return f.Flags&bytecode.FuncVariadic != 0 }
func (f *Function) IsGenerator() bool { return f.Flags&bytecode.FuncGenerator != 0 }
func (f *Function) ArgIsUnpackedTuple() bool {
	return f.Flags&bytecode.FuncArgIsUnpackedTuple != 0
}
func (f *Function) AccessesNonLocals() bool {
	return f.Flags&bytecode.FuncAccessesNonLocals != 0
}

// NativeFunction is an opaque callable implemented by the host (§6.3).
// The CallContext gives native code a narrow window back into the VM.
type NativeFunction func(ctx CallContext, args []Value, instance *Value) (Value, error)
