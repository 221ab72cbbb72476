package compiler

import (
	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/syntax"
)

// compileIf lowers a chain of if/else-if/else arms, each arm's condition
// tested with JumpIfFalse past its body and an unconditional Jump past the
// remaining arms once a body runs (§4.1).
func (c *Compiler) compileIf(e *syntax.IfExpr, dest uint8) error {
	line, col := e.Pos().StartLine, e.Pos().StartCol
	var endJumps []int
	for i, arm := range e.Arms {
		isLast := i == len(e.Arms)-1
		var skipOperand int
		hasSkip := arm.Cond != nil
		if hasSkip {
			mark := c.mark()
			condReg, err := c.allocTemp(line, col)
			if err != nil {
				return err
			}
			if err := c.compileExpr(arm.Cond, condReg); err != nil {
				return err
			}
			_, skipOperand = c.chunk.OpAJump(bytecode.OpJumpIfFalse, condReg)
			c.releaseTo(mark)
		}
		if err := c.compileBlockExpr(arm.Body, dest); err != nil {
			return err
		}
		if !isLast {
			_, operand := c.chunk.OpJump(bytecode.OpJump)
			endJumps = append(endJumps, operand)
		}
		if hasSkip {
			c.chunk.PatchJump(skipOperand)
		}
	}
	hasElse := len(e.Arms) > 0 && e.Arms[len(e.Arms)-1].Cond == nil
	if !hasElse {
		c.chunk.OpA(bytecode.OpSetNull, dest)
	}
	for _, operand := range endJumps {
		c.chunk.PatchJump(operand)
	}
	return nil
}

// compileBlockExpr compiles a statement block whose last expression
// statement's value becomes dest; earlier statements run for effect only.
func (c *Compiler) compileBlockExpr(body []syntax.Stmt, dest uint8) error {
	c.beginScope()
	defer c.endScope()
	for i, stmt := range body {
		if i == len(body)-1 {
			if es, ok := stmt.(*syntax.ExprStmt); ok {
				if err := c.compileExpr(es.Expr, dest); err != nil {
					return err
				}
				continue
			}
		}
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
		if i == len(body)-1 {
			c.chunk.OpA(bytecode.OpSetNull, dest)
		}
	}
	if len(body) == 0 {
		c.chunk.OpA(bytecode.OpSetNull, dest)
	}
	return nil
}

// compileMatch lowers `match subject; pattern if guard then body...` by
// testing each arm's patterns with structural-equality comparisons,
// falling through to the next arm on mismatch and to a Throw on
// exhaustion (match is required to be exhaustive by convention; an
// unmatched value is a runtime error here rather than a compile error,
// since exhaustiveness checking belongs to the external analyzer).
func (c *Compiler) compileMatch(e *syntax.MatchExpr, dest uint8) error {
	line, col := e.Pos().StartLine, e.Pos().StartCol
	mark := c.mark()
	subjReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if len(e.Subject) == 1 {
		if err := c.compileExpr(e.Subject[0], subjReg); err != nil {
			return err
		}
	} else {
		if err := c.compileSequence(e.Subject, subjReg, bytecode.OpSequenceToTuple, e.Pos()); err != nil {
			return err
		}
	}

	var endJumps []int
	for _, arm := range e.Arms {
		// Alternatives joined by `or`: jump straight to the body on the
		// first pattern that matches; only fall through to the next arm
		// once every alternative has been tried and failed.
		var matchJumps []int
		var skipToNextArm []int
		irrefutable := false
		for i, pat := range arm.Patterns {
			matched, skip, err := c.compileMatchPattern(pat, subjReg, line, col)
			if err != nil {
				return err
			}
			if matched {
				irrefutable = true
				break
			}
			if i < len(arm.Patterns)-1 {
				_, op := c.chunk.OpJump(bytecode.OpJump)
				matchJumps = append(matchJumps, op)
				for _, s := range skip {
					c.chunk.PatchJump(s)
				}
			} else {
				skipToNextArm = append(skipToNextArm, skip...)
			}
		}
		for _, op := range matchJumps {
			c.chunk.PatchJump(op)
		}
		armSkip := skipToNextArm
		if irrefutable {
			armSkip = nil
		}
		if arm.Guard != nil {
			guardReg, err := c.allocTemp(line, col)
			if err != nil {
				return err
			}
			if err := c.compileExpr(arm.Guard, guardReg); err != nil {
				return err
			}
			_, op := c.chunk.OpAJump(bytecode.OpJumpIfFalse, guardReg)
			armSkip = append(armSkip, op)
		}
		if err := c.compileBlockExpr(arm.Body, dest); err != nil {
			return err
		}
		_, operand := c.chunk.OpJump(bytecode.OpJump)
		endJumps = append(endJumps, operand)
		for _, op := range armSkip {
			c.chunk.PatchJump(op)
		}
	}
	c.chunk.OpA(bytecode.OpThrow, subjReg)
	for _, operand := range endJumps {
		c.chunk.PatchJump(operand)
	}
	c.releaseTo(mark)
	return nil
}

// compileMatchPattern emits the test for one pattern against subjReg,
// returning jump operands to patch to "next pattern/arm" on mismatch.
// `matched` is true only for an irrefutable wildcard pattern.
func (c *Compiler) compileMatchPattern(pat syntax.Node, subjReg uint8, line, col int) (matched bool, skipOperands []int, err error) {
	switch p := pat.(type) {
	case *syntax.Wildcard:
		return true, nil, nil
	case *syntax.Identifier:
		if _, err := c.addLocal(p.Name, line, col); err != nil {
			return false, nil, err
		}
		reg, _ := c.resolve(p.Name)
		c.chunk.OpAB(bytecode.OpCopy, reg, subjReg)
		return true, nil, nil
	default:
		litReg, err := c.allocTemp(line, col)
		if err != nil {
			return false, nil, err
		}
		expr, ok := pat.(syntax.Expr)
		if !ok {
			return false, nil, errMalformedChain(line, col, "unsupported match pattern")
		}
		if err := c.compileExpr(expr, litReg); err != nil {
			return false, nil, err
		}
		eqReg, err := c.allocTemp(line, col)
		if err != nil {
			return false, nil, err
		}
		c.chunk.OpABC(bytecode.OpEqual, eqReg, subjReg, litReg)
		_, op := c.chunk.OpAJump(bytecode.OpJumpIfFalse, eqReg)
		return false, []int{op}, nil
	}
}

// compileSwitch lowers a guard-only switch: the first arm whose guard is
// true (or the trailing else) runs.
func (c *Compiler) compileSwitch(e *syntax.SwitchExpr, dest uint8) error {
	line, col := e.Pos().StartLine, e.Pos().StartCol
	var endJumps []int
	for _, arm := range e.Arms {
		var skipOperand int
		hasSkip := arm.Guard != nil
		if hasSkip {
			mark := c.mark()
			guardReg, err := c.allocTemp(line, col)
			if err != nil {
				return err
			}
			if err := c.compileExpr(arm.Guard, guardReg); err != nil {
				return err
			}
			_, skipOperand = c.chunk.OpAJump(bytecode.OpJumpIfFalse, guardReg)
			c.releaseTo(mark)
		}
		if err := c.compileBlockExpr(arm.Body, dest); err != nil {
			return err
		}
		_, operand := c.chunk.OpJump(bytecode.OpJump)
		endJumps = append(endJumps, operand)
		if hasSkip {
			c.chunk.PatchJump(skipOperand)
		}
	}
	c.chunk.OpA(bytecode.OpSetNull, dest)
	for _, operand := range endJumps {
		c.chunk.PatchJump(operand)
	}
	return nil
}

func (c *Compiler) compileYield(e *syntax.YieldExpr, dest uint8) error {
	line, col := e.Pos().StartLine, e.Pos().StartCol
	mark := c.mark()
	valReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileExpr(e.Value, valReg); err != nil {
		return err
	}
	c.chunk.OpA(bytecode.OpYield, valReg)
	if dest != valReg {
		c.chunk.OpAB(bytecode.OpCopy, dest, valReg)
	}
	c.releaseTo(mark)
	return nil
}

// ---- loops ----

func (c *Compiler) compileLoop(l *syntax.LoopStmt) error {
	line, col := l.Pos().StartLine, l.Pos().StartCol
	c.beginScope()
	defer c.endScope()

	switch l.Kind {
	case syntax.LoopFor:
		return c.compileForLoop(l, line, col)
	default:
		return c.compileCondLoop(l, line, col)
	}
}

// compileCondLoop handles plain/while/until loops: an unconditional Jump
// back to the top, with an optional guard that exits the loop.
func (c *Compiler) compileCondLoop(l *syntax.LoopStmt, line, col int) error {
	start := c.chunk.Pos()
	c.loops = append(c.loops, loopFrame{continueTarget: start, depth: c.depth})

	var skipOperand int
	hasGuard := l.Kind != syntax.LoopPlain
	if hasGuard {
		mark := c.mark()
		condReg, err := c.allocTemp(line, col)
		if err != nil {
			return err
		}
		if err := c.compileExpr(l.Cond, condReg); err != nil {
			return err
		}
		op := bytecode.OpJumpIfFalse
		if l.Kind == syntax.LoopUntil {
			op = bytecode.OpJumpIfTrue
		}
		_, skipOperand = c.chunk.OpAJump(op, condReg)
		c.releaseTo(mark)
	}

	bodyMark := c.mark()
	discard, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileBlockExpr(l.Body, discard); err != nil {
		return err
	}
	c.releaseTo(bodyMark)
	c.chunk.EmitJumpBack(start)

	if hasGuard {
		c.chunk.PatchJump(skipOperand)
	}
	frame := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, op := range frame.breakJumps {
		c.chunk.PatchJump(op)
	}
	return nil
}

// compileForLoop drives an iterator bound from ForIter, assigning each
// value (or key/value pair) to ForVars on every iteration via IterNext,
// which jumps forward past the loop on exhaustion (§4.6).
func (c *Compiler) compileForLoop(l *syntax.LoopStmt, line, col int) error {
	mark := c.mark()
	iterSrc, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileExpr(l.ForIter, iterSrc); err != nil {
		return err
	}
	iterReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	c.chunk.OpAB(bytecode.OpMakeIterator, iterReg, iterSrc)

	start := c.chunk.Pos()
	c.loops = append(c.loops, loopFrame{continueTarget: start, depth: c.depth})

	valReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	_, exhaustedOperand := c.chunk.OpABOffset(bytecode.OpIterNext, valReg, iterReg)

	for _, v := range l.ForVars {
		switch t := v.(type) {
		case *syntax.Identifier:
			if _, err := c.addLocal(t.Name, line, col); err != nil {
				return err
			}
			reg, _ := c.resolve(t.Name)
			if reg != valReg {
				c.chunk.OpAB(bytecode.OpCopy, reg, valReg)
			}
		case *syntax.Wildcard:
			// discard
		default:
			if err := c.storePattern(t, valReg, line, col); err != nil {
				return err
			}
		}
	}

	discard, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileBlockExpr(l.Body, discard); err != nil {
		return err
	}
	c.chunk.EmitJumpBack(start)
	c.chunk.PatchJump(exhaustedOperand)

	frame := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, op := range frame.breakJumps {
		c.chunk.PatchJump(op)
	}
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileBreak(b *syntax.BreakStmt) error {
	if len(c.loops) == 0 {
		return errMalformedChain(b.Pos().StartLine, b.Pos().StartCol, "break outside a loop")
	}
	if b.Value != nil {
		// Break-with-value isn't representable without a dedicated result
		// slot per loop; reserved for a future LoopResult register.
	}
	_, operand := c.chunk.OpJump(bytecode.OpJump)
	last := len(c.loops) - 1
	c.loops[last].breakJumps = append(c.loops[last].breakJumps, operand)
	return nil
}

func (c *Compiler) compileContinue(ct *syntax.ContinueStmt) error {
	if len(c.loops) == 0 {
		return errMalformedChain(ct.Pos().StartLine, ct.Pos().StartCol, "continue outside a loop")
	}
	target := c.loops[len(c.loops)-1].continueTarget
	c.chunk.EmitJumpBack(target)
	return nil
}

// ---- try/catch/finally ----

// compileTry lowers try/catch/finally (§4.1): TryStart marks the region
// and where to jump on an uncaught throw; the catch body binds the error
// and runs. finally, when present, is duplicated at every exit (the
// normal fall-through and the caught-error path) per the decision that
// finally always runs and its own control flow (a return/break/continue
// inside it) wins over whatever exit triggered it.
func (c *Compiler) compileTry(t *syntax.TryStmt) error {
	line, col := t.Pos().StartLine, t.Pos().StartCol
	mark := c.mark()
	errReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	_, catchOperand := c.chunk.OpAJump(bytecode.OpTryStart, errReg)

	discard, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	c.beginScope()
	for _, s := range t.Body {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	c.endScope()
	c.chunk.Op0(bytecode.OpTryEnd)
	if err := c.compileFinally(t.FinallyBody); err != nil {
		return err
	}
	_, doneOperand := c.chunk.OpJump(bytecode.OpJump)

	c.chunk.PatchJump(catchOperand)
	c.beginScope()
	if t.CatchName != "" {
		reg, err := c.addLocal(t.CatchName, line, col)
		if err != nil {
			return err
		}
		if reg != errReg {
			c.chunk.OpAB(bytecode.OpCopy, reg, errReg)
		}
	}
	for _, s := range t.CatchBody {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	c.endScope()
	if err := c.compileFinally(t.FinallyBody); err != nil {
		return err
	}
	c.chunk.PatchJump(doneOperand)
	_ = discard
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileFinally(body []syntax.Stmt) error {
	if len(body) == 0 {
		return nil
	}
	c.beginScope()
	defer c.endScope()
	for _, s := range body {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}
