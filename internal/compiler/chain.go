package compiler

import (
	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/syntax"
)

// compileChain lowers `a.b[c](d)` left to right (§4.1): the root value and
// every intermediate result live in the same register, rewritten in place
// by each step, so a long chain costs one register rather than one per
// step.
func (c *Compiler) compileChain(e *syntax.Chain, dest uint8) error {
	if err := c.compileExpr(e.Root, dest); err != nil {
		return err
	}
	return c.compileChainSteps(e, dest, dest, 0, nil, 0)
}

// compileChainWithExtraArg compiles a chain whose final call gets `extra`
// prepended as its first argument, used to lower the pipe operator.
func (c *Compiler) compileChainWithExtraArg(e *syntax.Chain, extra uint8, dest uint8) error {
	if err := c.compileExpr(e.Root, dest); err != nil {
		return err
	}
	lastCall := -1
	for i, step := range e.Steps {
		if step.Kind == syntax.ChainCall || step.Kind == syntax.ChainCallInstance {
			lastCall = i
		}
	}
	if lastCall == -1 {
		// Bare reference on the right: call it directly with just `extra`.
		fnReg := dest
		argBase, err := c.allocN(1, e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		c.chunk.OpAB(bytecode.OpCopy, argBase, extra)
		c.chunk.OpCallLike(bytecode.OpCall, dest, fnReg, argBase, 1, 0, 0, false)
		return nil
	}
	return c.compileChainSteps(e, dest, dest, 0, &extra, lastCall)
}

// compileChainSteps walks e.Steps starting at index 0, rewriting recvReg
// (== dest) in place. extraArg/extraArgAt implement the pipe-call lowering:
// when the step index reaches extraArgAt, extraArg is prepended to that
// call's arguments.
func (c *Compiler) compileChainSteps(e *syntax.Chain, dest, recvReg uint8, start int, extraArg *uint8, extraArgAt int) error {
	line, col := e.Pos().StartLine, e.Pos().StartCol
	var tryJumps []int
	for i := start; i < len(e.Steps); i++ {
		step := e.Steps[i]
		switch step.Kind {
		case syntax.ChainAccess:
			idx := c.chunk.Constants.AddString(step.Key)
			if step.Optional {
				_, operand := c.chunk.OpAConstOffset(bytecode.OpTryAccess, recvReg, idx)
				tryJumps = append(tryJumps, operand)
			} else {
				c.chunk.OpAConst(bytecode.OpAccess, recvReg, idx)
			}

		case syntax.ChainAccessString:
			mark := c.mark()
			keyReg, err := c.allocTemp(line, col)
			if err != nil {
				return err
			}
			if err := c.compileExpr(step.KeyExpr, keyReg); err != nil {
				return err
			}
			if step.Optional {
				_, operand := c.chunk.OpABCOffset(bytecode.OpTryAccessString, recvReg, recvReg, keyReg)
				tryJumps = append(tryJumps, operand)
			} else {
				c.chunk.OpABC(bytecode.OpAccessString, recvReg, recvReg, keyReg)
			}
			c.releaseTo(mark)

		case syntax.ChainIndex:
			mark := c.mark()
			idxReg, err := c.allocTemp(line, col)
			if err != nil {
				return err
			}
			if err := c.compileExpr(step.IndexExpr, idxReg); err != nil {
				return err
			}
			c.chunk.OpABC(bytecode.OpIndex, recvReg, recvReg, idxReg)
			c.releaseTo(mark)

		case syntax.ChainCall:
			if err := c.compileCallArgs(step, recvReg, recvReg, 0, false, line, col,
				extraArg, i == extraArgAt); err != nil {
				return err
			}

		case syntax.ChainCallInstance:
			mark := c.mark()
			instanceReg, err := c.allocTemp(line, col)
			if err != nil {
				return err
			}
			c.chunk.OpAB(bytecode.OpCopy, instanceReg, recvReg)
			idx := c.chunk.Constants.AddString(step.Key)
			c.chunk.OpAConst(bytecode.OpAccess, recvReg, idx)
			if err := c.compileCallArgs(step, recvReg, recvReg, instanceReg, true, line, col,
				extraArg, i == extraArgAt); err != nil {
				return err
			}
			c.releaseTo(mark)
		}
	}
	for _, operand := range tryJumps {
		c.chunk.PatchJump(operand)
	}
	return nil
}

// compileCallArgs emits the argument block and the Call/CallInstance
// instruction for one chain step. fnReg doubles as the result register.
func (c *Compiler) compileCallArgs(step syntax.ChainStep, dest, fnReg, instanceReg uint8, hasInstance bool, line, col int, extraArg *uint8, prependExtra bool) error {
	mark := c.mark()
	n := len(step.Args)
	if prependExtra {
		n++
	}
	if n > 255 {
		return errArgCountOutOfRange(line, col, "<chain call>")
	}
	argBase, err := c.allocN(uint8(n), line, col)
	if err != nil {
		return err
	}
	next := argBase
	if prependExtra {
		c.chunk.OpAB(bytecode.OpCopy, next, *extraArg)
		next++
	}
	for _, arg := range step.Args {
		if err := c.compileExpr(arg, next); err != nil {
			return err
		}
		next++
	}
	packed := uint8(0)
	if step.SpreadLast && n > 0 {
		packed = 1
	}
	op := bytecode.OpCall
	if hasInstance {
		op = bytecode.OpCallInstance
	}
	c.chunk.OpCallLike(op, dest, fnReg, argBase, uint8(n), packed, instanceReg, hasInstance)
	c.releaseTo(mark)
	return nil
}
