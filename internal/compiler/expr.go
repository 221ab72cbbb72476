package compiler

import (
	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/syntax"
)

// compileExpr compiles expr so its value ends up in register dest.
func (c *Compiler) compileExpr(expr syntax.Expr, dest uint8) error {
	switch e := expr.(type) {
	case *syntax.NullLiteral:
		c.chunk.OpA(bytecode.OpSetNull, dest)
	case *syntax.BoolLiteral:
		if e.Value {
			c.chunk.OpA(bytecode.OpSetTrue, dest)
		} else {
			c.chunk.OpA(bytecode.OpSetFalse, dest)
		}
	case *syntax.IntLiteral:
		return c.compileIntLiteral(e, dest)
	case *syntax.FloatLiteral:
		c.chunk.OpAConst(bytecode.OpLoadFloat, dest, c.chunk.Constants.AddFloat(e.Value))
	case *syntax.StringLiteral:
		return c.compileStringLiteral(e, dest)
	case *syntax.Identifier:
		return c.compileIdentifier(e, dest)
	case *syntax.Wildcard:
		c.chunk.OpA(bytecode.OpSetNull, dest)
	case *syntax.ListLiteral:
		return c.compileSequence(e.Elements, dest, bytecode.OpSequenceToList, e.Pos())
	case *syntax.TupleLiteral:
		return c.compileSequence(e.Elements, dest, bytecode.OpSequenceToTuple, e.Pos())
	case *syntax.MapLiteral:
		return c.compileMapLiteral(e, dest)
	case *syntax.RangeExpr:
		return c.compileRange(e, dest)
	case *syntax.FunctionNode:
		return c.compileFunctionLiteral(e, dest)
	case *syntax.Chain:
		return c.compileChain(e, dest)
	case *syntax.PipeExpr:
		return c.compilePipe(e, dest)
	case *syntax.BinaryExpr:
		return c.compileBinary(e, dest)
	case *syntax.UnaryExpr:
		return c.compileUnary(e, dest)
	case *syntax.AssignExpr:
		return c.compileAssign(e, dest)
	case *syntax.IfExpr:
		return c.compileIf(e, dest)
	case *syntax.MatchExpr:
		return c.compileMatch(e, dest)
	case *syntax.SwitchExpr:
		return c.compileSwitch(e, dest)
	case *syntax.YieldExpr:
		return c.compileYield(e, dest)
	case *syntax.Nested:
		return c.compileExpr(e.Inner, dest)
	default:
		return errMalformedChain(expr.Pos().StartLine, expr.Pos().StartCol, "unsupported expression node")
	}
	return nil
}

func (c *Compiler) compileIntLiteral(e *syntax.IntLiteral, dest uint8) error {
	switch {
	case e.Value == 0:
		c.chunk.OpA(bytecode.OpSet0, dest)
	case e.Value == 1:
		c.chunk.OpA(bytecode.OpSet1, dest)
	case e.Value > 0 && e.Value <= 255:
		c.chunk.OpAB(bytecode.OpSetNumberU8, dest, uint8(e.Value))
	case e.Value < 0 && e.Value >= -255:
		c.chunk.OpAB(bytecode.OpSetNumberNegU8, dest, uint8(-e.Value))
	default:
		c.chunk.OpAConst(bytecode.OpLoadInt, dest, c.chunk.Constants.AddInt(e.Value))
	}
	return nil
}

// compileStringLiteral emits a plain constant load for a non-interpolated
// string, or a StringStart/StringPush*/StringFinish builder sequence for
// one that embeds `${}` expressions (§4.4.8).
func (c *Compiler) compileStringLiteral(e *syntax.StringLiteral, dest uint8) error {
	if e.Interpolated == nil {
		c.chunk.OpAConst(bytecode.OpLoadString, dest, c.chunk.Constants.AddString(e.Value))
		return nil
	}
	c.chunk.OpConst(bytecode.OpStringStart, uint32(len(e.Interpolated)))
	mark := c.mark()
	for _, part := range e.Interpolated {
		if part.IsConst {
			tmp, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
			if err != nil {
				return err
			}
			c.chunk.OpAConst(bytecode.OpLoadString, tmp, c.chunk.Constants.AddString(part.Value))
			flags, minW, prec, fill := bytecode.StringFormatFlags(0), uint32(0), uint32(0), rune(0)
			c.chunk.OpStringPush(tmp, flags, minW, prec, fill)
			c.releaseTo(mark)
			continue
		}
		tmp, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		if err := c.compileExpr(part.Expr, tmp); err != nil {
			return err
		}
		flags, minW, prec, fill := formatFlags(part.FormatSpec)
		c.chunk.OpStringPush(tmp, flags, minW, prec, fill)
		c.releaseTo(mark)
	}
	c.chunk.OpA(bytecode.OpStringFinish, dest)
	return nil
}

func formatFlags(spec *syntax.FormatSpec) (bytecode.StringFormatFlags, uint32, uint32, rune) {
	if spec == nil {
		return 0, 0, 0, 0
	}
	var f bytecode.StringFormatFlags
	var minW, prec uint32
	var fill rune
	if spec.MinWidth > 0 {
		f |= bytecode.FormatHasMinWidth
		minW = uint32(spec.MinWidth)
	}
	if spec.HasPrecision {
		f |= bytecode.FormatHasPrecision
		prec = uint32(spec.Precision)
	}
	if spec.Fill != 0 {
		f |= bytecode.FormatHasFill
		fill = spec.Fill
	}
	switch spec.Alignment {
	case '<':
		f |= bytecode.FormatAlignLeft
	case '>':
		f |= bytecode.FormatAlignRight
	case '^':
		f |= bytecode.FormatAlignCenter
	}
	return f, minW, prec, fill
}

func (c *Compiler) compileIdentifier(e *syntax.Identifier, dest uint8) error {
	if reg, ok := c.resolve(e.Name); ok {
		if reg != dest {
			c.chunk.OpAB(bytecode.OpCopy, dest, reg)
		}
		return nil
	}
	// Not a local: a non-local/export/global lookup by name (§4.1).
	idx := c.chunk.Constants.AddString(e.Name)
	c.chunk.OpAConst(bytecode.OpLoadNonLocal, dest, idx)
	return nil
}

// compileSequence lowers list/tuple literals through the cooperative
// sequence builder (§4.4.8): Start, one Push per element, then materialize
// into dest. PushN is not emitted here.
func (c *Compiler) compileSequence(elems []syntax.Expr, dest uint8, finish bytecode.Op, pos syntax.Span) error {
	c.chunk.OpConst(bytecode.OpSequenceStart, uint32(len(elems)))
	mark := c.mark()
	for _, el := range elems {
		tmp, err := c.allocTemp(pos.StartLine, pos.StartCol)
		if err != nil {
			return err
		}
		if err := c.compileExpr(el, tmp); err != nil {
			return err
		}
		c.chunk.OpA(bytecode.OpSequencePush, tmp)
		c.releaseTo(mark)
	}
	c.chunk.OpA(finish, dest)
	return nil
}

func (c *Compiler) compileMapLiteral(e *syntax.MapLiteral, dest uint8) error {
	sizeHint := uint32(len(e.Entries))
	c.chunk.OpAConst(bytecode.OpMakeMap, dest, sizeHint)
	mark := c.mark()
	for _, entry := range e.Entries {
		if mk, ok := entry.Key.(*syntax.MetaKeyExpr); ok {
			// The meta key is addressed by value, not by an immediate
			// opcode operand, so it has to be materialized into a
			// register like any other argument before MetaInsert runs.
			keyReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
			if err != nil {
				return err
			}
			c.emitSmallInt(keyReg, int64(mk.Key))
			valReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
			if err != nil {
				return err
			}
			if err := c.compileExpr(entry.Value, valReg); err != nil {
				return err
			}
			if mk.Name != "" {
				idx := c.chunk.Constants.AddString(mk.Name)
				c.chunk.OpMetaInsertNamed(dest, idx, keyReg, valReg)
			} else {
				c.chunk.OpABC(bytecode.OpMetaInsert, dest, keyReg, valReg)
			}
			c.releaseTo(mark)
			continue
		}
		keyReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		if err := c.compileExpr(entry.Key, keyReg); err != nil {
			return err
		}
		valReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		if err := c.compileExpr(entry.Value, valReg); err != nil {
			return err
		}
		c.chunk.OpABC(bytecode.OpMapInsert, dest, keyReg, valReg)
		c.releaseTo(mark)
	}
	return nil
}

func (c *Compiler) compileRange(e *syntax.RangeExpr, dest uint8) error {
	mark := c.mark()
	defer c.releaseTo(mark)
	switch {
	case e.Start != nil && e.End != nil:
		sReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		if err := c.compileExpr(e.Start, sReg); err != nil {
			return err
		}
		eReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		if err := c.compileExpr(e.End, eReg); err != nil {
			return err
		}
		op := bytecode.OpRange
		if e.Inclusive {
			op = bytecode.OpRangeInclusive
		}
		c.chunk.OpABC(op, dest, sReg, eReg)
	case e.Start != nil:
		sReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		if err := c.compileExpr(e.Start, sReg); err != nil {
			return err
		}
		c.chunk.OpAB(bytecode.OpRangeFrom, dest, sReg)
	case e.End != nil:
		eReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		if err := c.compileExpr(e.End, eReg); err != nil {
			return err
		}
		op := bytecode.OpRangeTo
		if e.Inclusive {
			op = bytecode.OpRangeToInclusive
		}
		c.chunk.OpAB(op, dest, eReg)
	default:
		c.chunk.OpA(bytecode.OpRangeFull, dest)
	}
	return nil
}

func (c *Compiler) compileUnary(e *syntax.UnaryExpr, dest uint8) error {
	mark := c.mark()
	operand, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
	if err != nil {
		return err
	}
	if err := c.compileExpr(e.Operand, operand); err != nil {
		return err
	}
	op := bytecode.OpNegate
	if e.Op == syntax.UnaryNot {
		op = bytecode.OpNot
	}
	c.chunk.OpAB(op, dest, operand)
	c.releaseTo(mark)
	return nil
}

var binOpcodes = map[syntax.BinaryOp]bytecode.Op{
	syntax.BinAdd: bytecode.OpAdd,
	syntax.BinSub: bytecode.OpSubtract,
	syntax.BinMul: bytecode.OpMultiply,
	syntax.BinDiv: bytecode.OpDivide,
	syntax.BinMod: bytecode.OpRemainder,
	syntax.BinEq:  bytecode.OpEqual,
	syntax.BinNe:  bytecode.OpNotEqual,
	syntax.BinLt:  bytecode.OpLess,
	syntax.BinLe:  bytecode.OpLessOrEqual,
	syntax.BinGt:  bytecode.OpGreater,
	syntax.BinGe:  bytecode.OpGreaterOrEqual,
}

func (c *Compiler) compileBinary(e *syntax.BinaryExpr, dest uint8) error {
	line, col := e.Pos().StartLine, e.Pos().StartCol
	if e.Op == syntax.BinAnd || e.Op == syntax.BinOr {
		if err := c.compileExpr(e.Left, dest); err != nil {
			return err
		}
		skipOp := bytecode.OpJumpIfFalse
		if e.Op == syntax.BinOr {
			skipOp = bytecode.OpJumpIfTrue
		}
		_, operand := c.chunk.OpAJump(skipOp, dest)
		if err := c.compileExpr(e.Right, dest); err != nil {
			return err
		}
		c.chunk.PatchJump(operand)
		return nil
	}
	op, ok := binOpcodes[e.Op]
	if !ok {
		return errMalformedChain(line, col, "unsupported binary operator")
	}
	mark := c.mark()
	lReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileExpr(e.Left, lReg); err != nil {
		return err
	}
	rReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileExpr(e.Right, rReg); err != nil {
		return err
	}
	c.chunk.OpABC(op, dest, lReg, rReg)
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compilePipe(e *syntax.PipeExpr, dest uint8) error {
	// `x -> f a` lowers to `f(x, a)` called with x prepended as the first
	// argument. A parenthesized rhs is a Nested node rather than a Chain, so
	// it takes the default branch: evaluated first, then called with x.
	// WithParens is not consulted.
	mark := c.mark()
	lhsReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
	if err != nil {
		return err
	}
	if err := c.compileExpr(e.Lhs, lhsReg); err != nil {
		return err
	}
	switch rhs := e.Rhs.(type) {
	case *syntax.Chain:
		if err := c.compileChainWithExtraArg(rhs, lhsReg, dest); err != nil {
			return err
		}
	default:
		fnReg, err := c.allocTemp(e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		if err := c.compileExpr(e.Rhs, fnReg); err != nil {
			return err
		}
		argBase, err := c.allocN(1, e.Pos().StartLine, e.Pos().StartCol)
		if err != nil {
			return err
		}
		c.chunk.OpAB(bytecode.OpCopy, argBase, lhsReg)
		c.chunk.OpCallLike(bytecode.OpCall, dest, fnReg, argBase, 1, 0, 0, false)
	}
	c.releaseTo(mark)
	return nil
}
