package compiler

import (
	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/syntax"
)

// compileStmt compiles stmt for effect; any value it produces is computed
// into a scratch register that's immediately released.
func (c *Compiler) compileStmt(stmt syntax.Stmt) error {
	switch s := stmt.(type) {
	case *syntax.ExprStmt:
		return c.compileForEffect(s.Expr)
	case *syntax.AssignExpr:
		return c.compileForEffect(s)
	case *syntax.IfExpr:
		return c.compileForEffect(s)
	case *syntax.MatchExpr:
		return c.compileForEffect(s)
	case *syntax.SwitchExpr:
		return c.compileForEffect(s)
	case *syntax.LoopStmt:
		return c.compileLoop(s)
	case *syntax.BreakStmt:
		return c.compileBreak(s)
	case *syntax.ContinueStmt:
		return c.compileContinue(s)
	case *syntax.ReturnStmt:
		return c.compileReturn(s)
	case *syntax.ThrowStmt:
		return c.compileThrow(s)
	case *syntax.TryStmt:
		return c.compileTry(s)
	case *syntax.ImportStmt:
		return c.compileImport(s)
	case *syntax.ExportStmt:
		return c.compileExport(s)
	case *syntax.DebugStmt:
		return c.compileDebug(s)
	case *syntax.Wildcard:
		return nil
	default:
		return errMalformedChain(stmt.Pos().StartLine, stmt.Pos().StartCol, "unsupported statement node")
	}
}

func (c *Compiler) compileForEffect(expr syntax.Expr) error {
	mark := c.mark()
	reg, err := c.allocTemp(expr.Pos().StartLine, expr.Pos().StartCol)
	if err != nil {
		return err
	}
	if err := c.compileExpr(expr, reg); err != nil {
		return err
	}
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileReturn(r *syntax.ReturnStmt) error {
	line, col := r.Pos().StartLine, r.Pos().StartCol
	mark := c.mark()
	reg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if r.Value != nil {
		if err := c.compileExpr(r.Value, reg); err != nil {
			return err
		}
	} else {
		c.chunk.OpA(bytecode.OpSetNull, reg)
	}
	c.chunk.OpA(bytecode.OpReturn, reg)
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileThrow(t *syntax.ThrowStmt) error {
	line, col := t.Pos().StartLine, t.Pos().StartCol
	mark := c.mark()
	reg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileExpr(t.Value, reg); err != nil {
		return err
	}
	c.chunk.OpA(bytecode.OpThrow, reg)
	c.releaseTo(mark)
	return nil
}

// compileImport lowers `import X` / `from X import a, b` (§6.5): load the
// module name, run Import/ImportAll, then bind the requested names as new
// locals from the returned export map.
func (c *Compiler) compileImport(im *syntax.ImportStmt) error {
	line, col := im.Pos().StartLine, im.Pos().StartCol
	mark := c.mark()
	nameReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	idx := c.chunk.Constants.AddString(im.Module)
	c.chunk.OpAConst(bytecode.OpLoadString, nameReg, idx)

	if len(im.Names) == 0 {
		c.chunk.OpA(bytecode.OpImport, nameReg)
		bindName := im.Alias
		if bindName == "" {
			bindName = im.Module
		}
		reg, err := c.addLocal(bindName, line, col)
		if err != nil {
			return err
		}
		if reg != nameReg {
			c.chunk.OpAB(bytecode.OpCopy, reg, nameReg)
		}
		c.releaseTo(mark)
		return nil
	}

	c.chunk.OpA(bytecode.OpImportAll, nameReg)
	for _, name := range im.Names {
		fieldIdx := c.chunk.Constants.AddString(name)
		reg, err := c.addLocal(name, line, col)
		if err != nil {
			return err
		}
		c.chunk.OpAB(bytecode.OpCopy, reg, nameReg)
		c.chunk.OpAConst(bytecode.OpAccess, reg, fieldIdx)
	}
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileExport(ex *syntax.ExportStmt) error {
	line, col := ex.Pos().StartLine, ex.Pos().StartCol
	mark := c.mark()
	nameReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	idx := c.chunk.Constants.AddString(ex.Name)
	c.chunk.OpAConst(bytecode.OpLoadString, nameReg, idx)
	valReg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileExpr(ex.Value, valReg); err != nil {
		return err
	}
	c.chunk.OpAB(bytecode.OpExportValue, nameReg, valReg)
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileDebug(d *syntax.DebugStmt) error {
	line, col := d.Pos().StartLine, d.Pos().StartCol
	mark := c.mark()
	reg, err := c.allocTemp(line, col)
	if err != nil {
		return err
	}
	if err := c.compileExpr(d.Expr, reg); err != nil {
		return err
	}
	c.chunk.OpAConst(bytecode.OpDebug, reg, c.chunk.Constants.AddString(d.SourceText))
	c.releaseTo(mark)
	return nil
}
