// Package exec runs compiled bytecode.Chunks: a register-windowed
// interpreter loop, call/return handling, meta-operator dispatch, and the
// try/catch unwind (§4, §5). Each Go call frame corresponds to one Koto
// call frame, so native recursion gives Call/Return their stack discipline
// for free; generators are the one case that needs to suspend mid-frame,
// handled separately in generator.go via a parked goroutine.
package exec

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/host"
	"github.com/kotoscript/koto/internal/value"
)

// Resolver loads a named module's exports for import/from..import (§6.5).
// The host embedding this VM supplies the concrete implementation (file
// system lookup, an in-memory registry, etc).
type Resolver interface {
	Resolve(name string) (*value.Map, error)
}

// VM owns the register stack and runs one or more MainBlocks/Functions
// against it. Not safe for concurrent use from multiple goroutines (§5:
// Koto values use a single-writer borrow discipline, not locks).
type VM struct {
	registers []value.Value
	regTop    int

	depth    int
	maxDepth int

	resolver Resolver
	out      io.Writer
	prelude  *host.Prelude
	exports  *value.Map

	seqStack []seqBuilder
	strStack []strBuilder

	// gen is set only on the dedicated child VM a generator Function call
	// runs on (generator.go); nil on every ordinary VM.
	gen *genState

	// id identifies this VM instance in trace output, so a generator's
	// child VM's instructions can be told apart from its parent's when
	// both are logged to the same writer.
	id        string
	traceOut  io.Writer

	// globals holds host-bound names (pkg/koto's Bind) that should resolve
	// like non-local identifiers/exports without themselves having been
	// written by an `export` statement.
	globals *value.Map
}

// SetGlobals installs host-provided bindings consulted by OpLoadNonLocal
// (§4.1) in addition to whatever the running script exports itself. Pass
// nil to clear. The embedder (pkg/koto) owns the map's lifetime.
func (vm *VM) SetGlobals(m *value.Map) { vm.globals = m }

type seqBuilder struct{ elems []value.Value }
type strBuilder struct{ parts []string }

const defaultMaxDepth = 512

// New creates a VM with no module resolver and output to stdout; use
// SetResolver/SetOutput to customize before Run.
func New() *VM {
	return &VM{
		registers: make([]value.Value, 1024),
		maxDepth:  defaultMaxDepth,
		out:       os.Stdout,
		prelude:   host.NewPrelude(),
		id:        uuid.NewString(),
	}
}

func (vm *VM) SetResolver(r Resolver) { vm.resolver = r }
func (vm *VM) SetOutput(w io.Writer)  { vm.out = w }

// ID identifies this VM instance in trace output.
func (vm *VM) ID() string { return vm.id }

// SetTrace enables per-instruction tracing to w, prefixed with this VM's
// ID; passing nil disables tracing. A differential-debugging aid, not for
// the hot path; cmd/koto does not call it.
func (vm *VM) SetTrace(w io.Writer) { vm.traceOut = w }

func (vm *VM) traceInstr(fr *frame, ins bytecode.Instruction) {
	if vm.traceOut == nil {
		return
	}
	fmt.Fprintf(vm.traceOut, "[%s] ip=%d op=%d a=%d b=%d c=%d const=%d\n",
		vm.id, fr.ip, ins.Op, ins.A, ins.B, ins.C, ins.Const)
}

// Exports returns the bindings accumulated by export statements in the
// module last run through Run (§6.5).
func (vm *VM) Exports() *value.Map { return vm.exports }

// frame is one active call: the chunk it's executing, its instruction
// pointer, and the base offset of its register window within vm.registers.
type frame struct {
	fn      *value.Function
	chunk   *bytecode.Chunk
	ip      int
	base    int
	size    int
	catches []catchHandler
}

type catchHandler struct {
	targetIP int
	errReg   uint8
}

// ThrownError wraps a Koto value thrown via OpThrow/a propagating runtime
// error that escaped every try/catch in the call stack.
type ThrownError struct {
	Value value.Value
}

func (e *ThrownError) Error() string {
	s, err := value.Display(nil, e.Value)
	if err != nil {
		return fmt.Sprintf("<unprintable error value: %s>", e.Value.TypeName())
	}
	return s
}

func asThrown(err error) *ThrownError {
	if te, ok := err.(*ThrownError); ok {
		return te
	}
	return &ThrownError{Value: value.StrVal(value.NewStr(err.Error()))}
}

// ensureCapacity grows the flat register slice so [base, base+size) is
// addressable; frames stack like a real call stack, so this only ever
// needs to grow forward from the current high-water mark.
func (vm *VM) ensureCapacity(upTo int) {
	if upTo <= len(vm.registers) {
		return
	}
	grown := make([]value.Value, upTo*2)
	copy(grown, vm.registers)
	vm.registers = grown
}

func (vm *VM) reg(fr *frame, i uint8) value.Value     { return vm.registers[fr.base+int(i)] }
func (vm *VM) setReg(fr *frame, i uint8, v value.Value) { vm.registers[fr.base+int(i)] = v }

// Run executes a top-level MainBlock chunk and returns its implicit result.
// Exports accumulated by `export` statements are collected into vm.exports,
// replacing whatever a previous Run left there.
func (vm *VM) Run(chunk *bytecode.Chunk) (value.Value, error) {
	vm.exports = value.NewMap()
	if vm.globals != nil {
		_ = vm.globals.Each(func(k, v value.Value) error {
			return vm.exports.Insert(k, v)
		})
	}
	return vm.runChunk(chunk, nil, nil)
}

// runChunk pushes a fresh frame for chunk starting at ip 0, pre-seeding
// args (already-bound parameter values, for a function call) and captures
// (for a closure) into the low registers before executing, and runs until
// Return/ReturnImplicitNull or an uncaught throw.
func (vm *VM) runChunk(chunk *bytecode.Chunk, args []value.Value, captures []value.Value) (value.Value, error) {
	if vm.depth >= vm.maxDepth {
		return value.Value{}, value.ErrStackOverflow
	}
	vm.depth++
	defer func() { vm.depth-- }()

	if len(chunk.Bytes) < 2 || bytecode.Op(chunk.Bytes[0]) != bytecode.OpNewFrame {
		return value.Value{}, &bytecode.DecodeError{Offset: 0, Err: bytecode.ErrMalformed}
	}
	size := int(chunk.Bytes[1])

	base := vm.regTop
	vm.ensureCapacity(base + size)
	vm.regTop = base + size
	defer func() { vm.regTop = base }()

	fr := &frame{chunk: chunk, ip: 2, base: base, size: size}
	// Captures occupy the first locals a function's child Compiler adds
	// (see compiler.compileFunctionLiteral), so they sit ahead of the
	// positional args in the register window.
	for i, c := range captures {
		vm.setReg(fr, uint8(i), c)
	}
	off := len(captures)
	for i, a := range args {
		vm.setReg(fr, uint8(off+i), a)
	}

	return vm.execFrame(fr)
}

// execFrame runs fr's instruction stream to completion, catching any error
// (a Go error from a failed instruction, or a throw from this frame or a
// nested call) against fr's own try/catch handler stack before giving up
// and propagating it to the caller.
func (vm *VM) execFrame(fr *frame) (value.Value, error) {
	for {
		result, done, err := vm.step(fr)
		if err != nil {
			if len(fr.catches) > 0 {
				h := fr.catches[len(fr.catches)-1]
				fr.catches = fr.catches[:len(fr.catches)-1]
				vm.setReg(fr, h.errReg, asThrown(err).Value)
				fr.ip = h.targetIP
				continue
			}
			return value.Value{}, err
		}
		if done {
			return result, nil
		}
	}
}
