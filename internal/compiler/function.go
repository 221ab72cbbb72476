package compiler

import (
	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/syntax"
)

// compileFunctionLiteral compiles fn as its own standalone Chunk (own
// register window, own constant pool) and splices it into the current
// chunk via OpFunction, followed by one OpCapture per free variable the
// analyzer recorded in fn.AccessedNonLocals (§4.1, §4.4.4).
func (c *Compiler) compileFunctionLiteral(fn *syntax.FunctionNode, dest uint8) error {
	line, col := fn.Pos().StartLine, fn.Pos().StartCol
	child := &Compiler{
		chunk:       bytecode.NewChunk(c.chunk.SourcePath),
		enclosing:   c,
		isGenerator: fn.Is(syntax.FlagGenerator),
	}

	for _, name := range fn.AccessedNonLocals {
		srcReg, ok := c.resolve(name)
		if !ok {
			return errUndefinedLocal(line, col, name)
		}
		if _, err := child.addLocal(name, line, col); err != nil {
			return err
		}
		child.captures = append(child.captures, capture{name: name, srcReg: srcReg})
	}
	if len(child.captures) > 0 {
		child.accessesNonLocals = true
	}

	type patternArg struct {
		reg     uint8
		pattern syntax.Node
	}
	var patternArgs []patternArg

	argCount := 0
	for _, arg := range fn.Args {
		if arg.Pattern != nil {
			reg, err := child.addLocal("", line, col)
			if err != nil {
				return err
			}
			patternArgs = append(patternArgs, patternArg{reg: reg, pattern: arg.Pattern})
		} else {
			if _, existed := child.resolveLocal(arg.Name); existed {
				return errDuplicateArg(line, col, arg.Name)
			}
			if _, err := child.addLocal(arg.Name, line, col); err != nil {
				return err
			}
		}
		argCount++
	}
	if argCount > 255 {
		return errArgCountOutOfRange(line, col, "<anonymous>")
	}

	prologue := func() error {
		for _, pa := range patternArgs {
			if err := child.storePattern(pa.pattern, pa.reg, line, col); err != nil {
				return err
			}
		}
		return nil
	}
	if err := child.compileBodyWithPrologue(fn.Body, prologue); err != nil {
		return err
	}

	var flags bytecode.FunctionFlags
	if fn.Is(syntax.FlagVariadic) {
		flags |= bytecode.FuncVariadic
	}
	if fn.Is(syntax.FlagGenerator) {
		flags |= bytecode.FuncGenerator
	}
	if fn.Is(syntax.FlagUnpackedArg) {
		flags |= bytecode.FuncArgIsUnpackedTuple
	}
	if child.accessesNonLocals {
		flags |= bytecode.FuncAccessesNonLocals
	}

	c.chunk.OpFunction(dest, uint8(argCount), uint8(len(child.captures)), flags, child.chunk)
	for i, cap := range child.captures {
		c.chunk.OpABC(bytecode.OpCapture, dest, uint8(i), cap.srcReg)
	}
	return nil
}
