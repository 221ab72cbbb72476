// Package compiler lowers a syntax tree into the bytecode ISA defined by
// package bytecode. It performs a single pass per function body, allocating
// each frame's register window as it goes (§4.1 of the execution core: a
// per-frame register allocator, jump patching, capture resolution, and
// generator marking).
package compiler

import (
	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/syntax"
)

// local is one named register binding live in the current function.
type local struct {
	name  string
	reg   uint8
	depth int
}

// capture is an entry in a nested function's capture list: the name being
// captured and the register it lives in within the enclosing function's
// window at the point the closure is created. Captures are resolved
// eagerly from FunctionNode.AccessedNonLocals and materialize as ordinary
// locals at the front of the nested function's own register window, so
// there is no separate "read capture" opcode: by the time the callee's
// body runs, the VM has already copied each one into place.
type capture struct {
	name   string
	srcReg uint8
}

type loopFrame struct {
	continueTarget int
	breakJumps     []int // operand offsets of forward jumps to patch at loop end
	depth          int
}

// Compiler holds the state for lowering one function body (the root
// MainBlock, or a nested FunctionNode.Body) into its own Chunk.
type Compiler struct {
	chunk *bytecode.Chunk

	locals    []local
	depth     int
	nextReg   uint8
	highWater uint8

	loops []loopFrame

	enclosing *Compiler
	captures  []capture

	isGenerator       bool
	accessesNonLocals bool
}

// CompileMain compiles a top-level script into a standalone Chunk.
func CompileMain(block *syntax.MainBlock, sourcePath string) (*bytecode.Chunk, error) {
	c := &Compiler{chunk: bytecode.NewChunk(sourcePath)}
	if err := c.compileBody(block); err != nil {
		return nil, err
	}
	return c.chunk, nil
}

func (c *Compiler) compileBody(block *syntax.MainBlock) error {
	return c.compileBodyWithPrologue(block, nil)
}

// compileBodyWithPrologue is compileBody with an extra step run after the
// NewFrame placeholder but before the block's own statements, used by
// compileFunctionLiteral to destructure pattern arguments before the
// user's code runs.
func (c *Compiler) compileBodyWithPrologue(block *syntax.MainBlock, prologue func() error) error {
	c.chunk.Bytes = append(c.chunk.Bytes, 0) // placeholder for NewFrame opcode
	c.chunk.Bytes = append(c.chunk.Bytes, 0) // placeholder for its operand
	if prologue != nil {
		if err := prologue(); err != nil {
			return err
		}
	}
	for _, stmt := range block.Body {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	c.chunk.Op0(bytecode.OpReturnImplicitNull)
	c.patchNewFrame()
	return nil
}

// patchNewFrame backfills the NewFrame instruction reserved at the start
// of compileBody once the function's high-water mark is known.
func (c *Compiler) patchNewFrame() {
	c.chunk.Bytes[0] = byte(bytecode.OpNewFrame)
	c.chunk.Bytes[1] = c.highWater
}

// ---- register allocation ----

func (c *Compiler) mark() uint8 { return c.nextReg }

func (c *Compiler) releaseTo(mark uint8) { c.nextReg = mark }

func (c *Compiler) allocTemp(line, col int) (uint8, error) {
	if c.nextReg == 255 {
		return 0, errTooManyRegisters(line, col)
	}
	r := c.nextReg
	c.nextReg++
	if c.nextReg > c.highWater {
		c.highWater = c.nextReg
	}
	return r, nil
}

func (c *Compiler) allocN(n uint8, line, col int) (uint8, error) {
	if int(c.nextReg)+int(n) > 255 {
		return 0, errTooManyRegisters(line, col)
	}
	start := c.nextReg
	c.nextReg += n
	if c.nextReg > c.highWater {
		c.highWater = c.nextReg
	}
	return start, nil
}

// ---- scopes & locals ----

func (c *Compiler) beginScope() { c.depth++ }

func (c *Compiler) endScope() {
	c.depth--
	mark := c.mark()
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.depth {
		last := c.locals[len(c.locals)-1]
		if last.reg < mark {
			mark = last.reg
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
	c.releaseTo(mark)
}

func (c *Compiler) addLocal(name string, line, col int) (uint8, error) {
	reg, err := c.allocTemp(line, col)
	if err != nil {
		return 0, err
	}
	c.locals = append(c.locals, local{name: name, reg: reg, depth: c.depth})
	return reg, nil
}

// resolveLocal looks for name among this function's own locals.
func (c *Compiler) resolveLocal(name string) (uint8, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return c.locals[i].reg, true
		}
	}
	return 0, false
}

// resolve looks up name as a local in the current function. Captured
// names are seeded as locals before the body compiles (see
// compileFunctionLiteral), so a plain local lookup covers both cases.
func (c *Compiler) resolve(name string) (reg uint8, found bool) {
	return c.resolveLocal(name)
}
