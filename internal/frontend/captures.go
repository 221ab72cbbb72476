package frontend

import "github.com/kotoscript/koto/internal/syntax"

// resolveCaptures walks the parsed tree and populates every FunctionNode's
// AccessedNonLocals, since compiler/function.go's compileFunctionLiteral
// expects that list already resolved (it seeds captured locals ahead of
// parameters rather than discovering free variables itself).
//
// Scoping here is an approximation of the compiler's actual block scoping
// (compileBlockExpr pops locals declared inside an if/loop arm once the arm
// ends): a name assigned anywhere in a function's body, including inside a
// nested if/loop/try block, is treated as a local for the whole function.
// This only under-captures in the rare case a closure reads a name that was
// both declared and only visible inside a sibling block - an edge case this
// frontend does not attempt to resolve correctly.
func resolveCaptures(block *syntax.MainBlock) {
	analyzeBody(block.Body)
}

// analyzeBody computes the free (non-local) identifier names referenced
// anywhere in stmts, resolving and recording captures for any nested
// function literals along the way.
func analyzeBody(stmts []syntax.Stmt) map[string]struct{} {
	locals := map[string]struct{}{}
	collectLocals(stmts, locals)
	reads := map[string]struct{}{}
	for _, s := range stmts {
		walkStmtForCaptures(s, locals, reads)
	}
	free := map[string]struct{}{}
	for name := range reads {
		if _, ok := locals[name]; !ok {
			free[name] = struct{}{}
		}
	}
	return free
}

func addLocalName(locals map[string]struct{}, name string) {
	if name != "" {
		locals[name] = struct{}{}
	}
}

func collectLocals(stmts []syntax.Stmt, locals map[string]struct{}) {
	for _, s := range stmts {
		collectLocalsStmt(s, locals)
	}
}

func collectLocalsStmt(s syntax.Stmt, locals map[string]struct{}) {
	switch n := s.(type) {
	case *syntax.ExprStmt:
		collectLocalsExpr(n.Expr, locals)
	case *syntax.AssignExpr:
		for _, target := range n.Targets {
			if target.Name != "" {
				addLocalName(locals, target.Name)
			}
		}
		collectLocalsExpr(n.Value, locals)
	case *syntax.IfExpr:
		for _, arm := range n.Arms {
			if arm.Cond != nil {
				collectLocalsExpr(arm.Cond, locals)
			}
			collectLocals(arm.Body, locals)
		}
	case *syntax.LoopStmt:
		for _, v := range n.ForVars {
			if id, ok := v.(*syntax.Identifier); ok {
				addLocalName(locals, id.Name)
			}
		}
		if n.Cond != nil {
			collectLocalsExpr(n.Cond, locals)
		}
		if n.ForIter != nil {
			collectLocalsExpr(n.ForIter, locals)
		}
		collectLocals(n.Body, locals)
	case *syntax.BreakStmt:
		if n.Value != nil {
			collectLocalsExpr(n.Value, locals)
		}
	case *syntax.ReturnStmt:
		if n.Value != nil {
			collectLocalsExpr(n.Value, locals)
		}
	case *syntax.ThrowStmt:
		collectLocalsExpr(n.Value, locals)
	case *syntax.TryStmt:
		collectLocals(n.Body, locals)
		addLocalName(locals, n.CatchName)
		collectLocals(n.CatchBody, locals)
		collectLocals(n.FinallyBody, locals)
	case *syntax.ImportStmt:
		if len(n.Names) == 0 {
			bind := n.Alias
			if bind == "" {
				bind = n.Module
			}
			addLocalName(locals, bind)
		} else {
			for _, name := range n.Names {
				addLocalName(locals, name)
			}
		}
	case *syntax.ExportStmt:
		collectLocalsExpr(n.Value, locals)
	case *syntax.DebugStmt:
		collectLocalsExpr(n.Expr, locals)
	}
}

// collectLocalsExpr recurses into sub-expressions to find nested if-arms
// (which may declare locals) but never descends into a nested FunctionNode's
// own body - that body has its own separate local scope.
func collectLocalsExpr(e syntax.Expr, locals map[string]struct{}) {
	switch n := e.(type) {
	case *syntax.BinaryExpr:
		collectLocalsExpr(n.Left, locals)
		collectLocalsExpr(n.Right, locals)
	case *syntax.UnaryExpr:
		collectLocalsExpr(n.Operand, locals)
	case *syntax.PipeExpr:
		collectLocalsExpr(n.Lhs, locals)
		collectLocalsExpr(n.Rhs, locals)
	case *syntax.RangeExpr:
		if n.Start != nil {
			collectLocalsExpr(n.Start, locals)
		}
		if n.End != nil {
			collectLocalsExpr(n.End, locals)
		}
	case *syntax.ListLiteral:
		for _, el := range n.Elements {
			collectLocalsExpr(el, locals)
		}
	case *syntax.TupleLiteral:
		for _, el := range n.Elements {
			collectLocalsExpr(el, locals)
		}
	case *syntax.MapLiteral:
		for _, entry := range n.Entries {
			collectLocalsExpr(entry.Value, locals)
		}
	case *syntax.Chain:
		collectLocalsExpr(n.Root, locals)
		for _, step := range n.Steps {
			if step.IndexExpr != nil {
				collectLocalsExpr(step.IndexExpr, locals)
			}
			for _, a := range step.Args {
				collectLocalsExpr(a, locals)
			}
		}
	case *syntax.YieldExpr:
		collectLocalsExpr(n.Value, locals)
	case *syntax.Nested:
		collectLocalsExpr(n.Inner, locals)
	case *syntax.AssignExpr:
		for _, target := range n.Targets {
			if target.Name != "" {
				addLocalName(locals, target.Name)
			}
		}
		collectLocalsExpr(n.Value, locals)
	case *syntax.IfExpr:
		for _, arm := range n.Arms {
			if arm.Cond != nil {
				collectLocalsExpr(arm.Cond, locals)
			}
			collectLocals(arm.Body, locals)
		}
	}
}

func walkStmtForCaptures(s syntax.Stmt, locals, reads map[string]struct{}) {
	switch n := s.(type) {
	case *syntax.ExprStmt:
		walkExprForCaptures(n.Expr, locals, reads)
	case *syntax.AssignExpr:
		for _, target := range n.Targets {
			if target.Chain != nil {
				walkExprForCaptures(target.Chain, locals, reads)
			}
		}
		walkExprForCaptures(n.Value, locals, reads)
	case *syntax.IfExpr:
		for _, arm := range n.Arms {
			if arm.Cond != nil {
				walkExprForCaptures(arm.Cond, locals, reads)
			}
			for _, bs := range arm.Body {
				walkStmtForCaptures(bs, locals, reads)
			}
		}
	case *syntax.LoopStmt:
		if n.Cond != nil {
			walkExprForCaptures(n.Cond, locals, reads)
		}
		if n.ForIter != nil {
			walkExprForCaptures(n.ForIter, locals, reads)
		}
		for _, bs := range n.Body {
			walkStmtForCaptures(bs, locals, reads)
		}
	case *syntax.BreakStmt:
		if n.Value != nil {
			walkExprForCaptures(n.Value, locals, reads)
		}
	case *syntax.ReturnStmt:
		if n.Value != nil {
			walkExprForCaptures(n.Value, locals, reads)
		}
	case *syntax.ThrowStmt:
		walkExprForCaptures(n.Value, locals, reads)
	case *syntax.TryStmt:
		for _, bs := range n.Body {
			walkStmtForCaptures(bs, locals, reads)
		}
		for _, bs := range n.CatchBody {
			walkStmtForCaptures(bs, locals, reads)
		}
		for _, bs := range n.FinallyBody {
			walkStmtForCaptures(bs, locals, reads)
		}
	case *syntax.ExportStmt:
		walkExprForCaptures(n.Value, locals, reads)
	case *syntax.DebugStmt:
		walkExprForCaptures(n.Expr, locals, reads)
	}
}

func walkExprForCaptures(e syntax.Expr, locals, reads map[string]struct{}) {
	switch n := e.(type) {
	case *syntax.Identifier:
		reads[n.Name] = struct{}{}
	case *syntax.BinaryExpr:
		walkExprForCaptures(n.Left, locals, reads)
		walkExprForCaptures(n.Right, locals, reads)
	case *syntax.UnaryExpr:
		walkExprForCaptures(n.Operand, locals, reads)
	case *syntax.PipeExpr:
		walkExprForCaptures(n.Lhs, locals, reads)
		walkExprForCaptures(n.Rhs, locals, reads)
	case *syntax.RangeExpr:
		if n.Start != nil {
			walkExprForCaptures(n.Start, locals, reads)
		}
		if n.End != nil {
			walkExprForCaptures(n.End, locals, reads)
		}
	case *syntax.ListLiteral:
		for _, el := range n.Elements {
			walkExprForCaptures(el, locals, reads)
		}
	case *syntax.TupleLiteral:
		for _, el := range n.Elements {
			walkExprForCaptures(el, locals, reads)
		}
	case *syntax.MapLiteral:
		for _, entry := range n.Entries {
			walkExprForCaptures(entry.Value, locals, reads)
		}
	case *syntax.Chain:
		walkExprForCaptures(n.Root, locals, reads)
		for _, step := range n.Steps {
			if step.IndexExpr != nil {
				walkExprForCaptures(step.IndexExpr, locals, reads)
			}
			for _, a := range step.Args {
				walkExprForCaptures(a, locals, reads)
			}
		}
	case *syntax.YieldExpr:
		walkExprForCaptures(n.Value, locals, reads)
	case *syntax.Nested:
		walkExprForCaptures(n.Inner, locals, reads)
	case *syntax.AssignExpr:
		for _, target := range n.Targets {
			if target.Chain != nil {
				walkExprForCaptures(target.Chain, locals, reads)
			}
		}
		walkExprForCaptures(n.Value, locals, reads)
	case *syntax.IfExpr:
		for _, arm := range n.Arms {
			if arm.Cond != nil {
				walkExprForCaptures(arm.Cond, locals, reads)
			}
			for _, bs := range arm.Body {
				walkStmtForCaptures(bs, locals, reads)
			}
		}
	case *syntax.FunctionNode:
		childFree := analyzeBody(n.Body.Body)
		for name := range childFree {
			if _, ok := locals[name]; ok {
				addCapture(n, name)
			} else {
				reads[name] = struct{}{}
			}
		}
	}
}

func addCapture(fn *syntax.FunctionNode, name string) {
	for _, existing := range fn.AccessedNonLocals {
		if existing == name {
			return
		}
	}
	fn.AccessedNonLocals = append(fn.AccessedNonLocals, name)
	fn.Flags |= syntax.FlagAccessesNonLocals
}

// walkStmtExprs visits every Expr reachable from stmt, recursing into
// nested statement lists (if/loop/try bodies) but not into a nested
// FunctionNode's own body - used to test properties of a single function's
// immediate body, such as whether it yields.
func walkStmtExprs(s syntax.Stmt, visit func(syntax.Expr)) {
	switch n := s.(type) {
	case *syntax.ExprStmt:
		walkExprTree(n.Expr, visit)
	case *syntax.AssignExpr:
		walkExprTree(n.Value, visit)
	case *syntax.IfExpr:
		for _, arm := range n.Arms {
			if arm.Cond != nil {
				walkExprTree(arm.Cond, visit)
			}
			for _, bs := range arm.Body {
				walkStmtExprs(bs, visit)
			}
		}
	case *syntax.LoopStmt:
		if n.Cond != nil {
			walkExprTree(n.Cond, visit)
		}
		if n.ForIter != nil {
			walkExprTree(n.ForIter, visit)
		}
		for _, bs := range n.Body {
			walkStmtExprs(bs, visit)
		}
	case *syntax.BreakStmt:
		if n.Value != nil {
			walkExprTree(n.Value, visit)
		}
	case *syntax.ReturnStmt:
		if n.Value != nil {
			walkExprTree(n.Value, visit)
		}
	case *syntax.ThrowStmt:
		walkExprTree(n.Value, visit)
	case *syntax.TryStmt:
		for _, bs := range n.Body {
			walkStmtExprs(bs, visit)
		}
		for _, bs := range n.CatchBody {
			walkStmtExprs(bs, visit)
		}
		for _, bs := range n.FinallyBody {
			walkStmtExprs(bs, visit)
		}
	case *syntax.ExportStmt:
		walkExprTree(n.Value, visit)
	case *syntax.DebugStmt:
		walkExprTree(n.Expr, visit)
	}
}

func walkExprTree(e syntax.Expr, visit func(syntax.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *syntax.BinaryExpr:
		walkExprTree(n.Left, visit)
		walkExprTree(n.Right, visit)
	case *syntax.UnaryExpr:
		walkExprTree(n.Operand, visit)
	case *syntax.PipeExpr:
		walkExprTree(n.Lhs, visit)
		walkExprTree(n.Rhs, visit)
	case *syntax.RangeExpr:
		walkExprTree(n.Start, visit)
		walkExprTree(n.End, visit)
	case *syntax.ListLiteral:
		for _, el := range n.Elements {
			walkExprTree(el, visit)
		}
	case *syntax.TupleLiteral:
		for _, el := range n.Elements {
			walkExprTree(el, visit)
		}
	case *syntax.MapLiteral:
		for _, entry := range n.Entries {
			walkExprTree(entry.Value, visit)
		}
	case *syntax.Chain:
		walkExprTree(n.Root, visit)
		for _, step := range n.Steps {
			walkExprTree(step.IndexExpr, visit)
			for _, a := range step.Args {
				walkExprTree(a, visit)
			}
		}
	case *syntax.YieldExpr:
		walkExprTree(n.Value, visit)
	case *syntax.Nested:
		walkExprTree(n.Inner, visit)
	case *syntax.AssignExpr:
		walkExprTree(n.Value, visit)
	case *syntax.IfExpr:
		for _, arm := range n.Arms {
			walkExprTree(arm.Cond, visit)
			for _, bs := range arm.Body {
				walkStmtExprs(bs, visit)
			}
		}
		// FunctionNode: deliberately not descended into - its own yield
		// status is independent of the enclosing body.
	}
}
