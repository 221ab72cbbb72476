package compiler

import (
	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/syntax"
)

// compileAssign lowers `targets = value`, an expression that evaluates to
// the assigned value. A bare name target that isn't yet a local declares
// one (Koto has no separate `let`); a Chain target stores through its
// final access/index step; multiple targets destructure value positionally.
func (c *Compiler) compileAssign(e *syntax.AssignExpr, dest uint8) error {
	line, col := e.Pos().StartLine, e.Pos().StartCol
	mark := c.mark()
	valueReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileExpr(e.Value, valueReg); err != nil {
		return err
	}

	if len(e.Targets) == 1 {
		if err := c.storeTarget(e.Targets[0], valueReg, line, col); err != nil {
			return err
		}
	} else {
		for i, target := range e.Targets {
			elemReg, err := c.allocTemp(line, col)
			if err != nil {
				return err
			}
			idxReg, err := c.allocTemp(line, col)
			if err != nil {
				return err
			}
			c.emitSmallInt(idxReg, int64(i))
			c.chunk.OpABC(bytecode.OpIndex, elemReg, valueReg, idxReg)
			if err := c.storeTarget(target, elemReg, line, col); err != nil {
				return err
			}
		}
	}

	if dest != valueReg {
		c.chunk.OpAB(bytecode.OpCopy, dest, valueReg)
	}
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) emitSmallInt(dest uint8, v int64) {
	switch {
	case v == 0:
		c.chunk.OpA(bytecode.OpSet0, dest)
	case v == 1:
		c.chunk.OpA(bytecode.OpSet1, dest)
	case v > 0 && v <= 255:
		c.chunk.OpAB(bytecode.OpSetNumberU8, dest, uint8(v))
	default:
		idx := c.chunk.Constants.AddInt(v)
		c.chunk.OpAConst(bytecode.OpLoadInt, dest, idx)
	}
}

func (c *Compiler) storeTarget(target syntax.AssignTarget, valueReg uint8, line, col int) error {
	switch {
	case target.Chain != nil:
		return c.storeChainTarget(target.Chain, valueReg, line, col)
	case target.Pattern != nil:
		return c.storePattern(target.Pattern, valueReg, line, col)
	default:
		if reg, ok := c.resolve(target.Name); ok {
			if reg != valueReg {
				c.chunk.OpAB(bytecode.OpCopy, reg, valueReg)
			}
			return nil
		}
		reg, err := c.addLocal(target.Name, line, col)
		if err != nil {
			return err
		}
		if reg != valueReg {
			c.chunk.OpAB(bytecode.OpCopy, reg, valueReg)
		}
		return nil
	}
}

// storeChainTarget compiles the chain's root and every step but the last
// into a receiver register, then stores valueReg through the final step.
func (c *Compiler) storeChainTarget(chain *syntax.Chain, valueReg uint8, line, col int) error {
	if len(chain.Steps) == 0 {
		return errMalformedChain(line, col, "assignment target chain has no steps")
	}
	mark := c.mark()
	recvReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileExpr(chain.Root, recvReg); err != nil {
		return err
	}
	lastIdx := len(chain.Steps) - 1
	head := &syntax.Chain{Root: chain.Root, Steps: chain.Steps[:lastIdx]}
	if err := c.compileChainSteps(head, recvReg, recvReg, 0, nil, -1); err != nil {
		return err
	}
	last := chain.Steps[lastIdx]
	switch last.Kind {
	case syntax.ChainAccess:
		idx := c.chunk.Constants.AddString(last.Key)
		c.chunk.OpAccessAssign(recvReg, idx, valueReg)
	case syntax.ChainIndex:
		idxReg, err := c.allocTemp(line, col)
		if err != nil {
			return err
		}
		if err := c.compileExpr(last.IndexExpr, idxReg); err != nil {
			return err
		}
		c.chunk.OpABC(bytecode.OpSetIndex, recvReg, valueReg, idxReg)
	default:
		return errMalformedChain(line, col, "chain assignment target must end in a field or index access")
	}
	c.releaseTo(mark)
	return nil
}

// storePattern destructures valueReg into a list/tuple pattern of
// sub-targets, one positional Index/SliceFrom per element. `...rest`
// captures the remaining elements as a Tuple via SliceFrom.
func (c *Compiler) storePattern(pattern syntax.Node, valueReg uint8, line, col int) error {
	var elems []syntax.Node
	switch p := pattern.(type) {
	case *syntax.ListLiteral:
		for _, e := range p.Elements {
			elems = append(elems, e)
		}
	case *syntax.TupleLiteral:
		for _, e := range p.Elements {
			elems = append(elems, e)
		}
	default:
		return errMalformedChain(line, col, "unsupported destructuring pattern")
	}
	for i, el := range elems {
		mark := c.mark()
		if ell, ok := el.(*syntax.Ellipsis); ok {
			restReg, err := c.allocTemp(line, col)
			if err != nil {
				return err
			}
			c.chunk.OpABC(bytecode.OpSliceFrom, restReg, valueReg, uint8(i))
			if ell.Name != "" {
				if err := c.storeTarget(syntax.AssignTarget{Name: ell.Name}, restReg, line, col); err != nil {
					return err
				}
			}
			c.releaseTo(mark)
			continue
		}
		elemReg, err := c.allocTemp(line, col)
		if err != nil {
			return err
		}
		idxReg, err := c.allocTemp(line, col)
		if err != nil {
			return err
		}
		c.emitSmallInt(idxReg, int64(i))
		c.chunk.OpABC(bytecode.OpIndex, elemReg, valueReg, idxReg)
		switch t := el.(type) {
		case *syntax.Identifier:
			if err := c.storeTarget(syntax.AssignTarget{Name: t.Name}, elemReg, line, col); err != nil {
				return err
			}
		case *syntax.Wildcard:
			// discard
		case *syntax.ListLiteral, *syntax.TupleLiteral:
			if err := c.storePattern(t, elemReg, line, col); err != nil {
				return err
			}
		default:
			return errMalformedChain(line, col, "unsupported destructuring element")
		}
		c.releaseTo(mark)
	}
	return nil
}
