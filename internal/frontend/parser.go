package frontend

import (
	"fmt"
	"strings"

	"github.com/kotoscript/koto/internal/syntax"
)

// Error is a parse-time failure; Parse returns one of these on any syntax
// problem, carrying the offending line/col the way compiler.Error does for
// compile-time failures.
type Error struct {
	Msg  string
	Line int
	Col  int
}

func (e *Error) Error() string { return fmt.Sprintf("parse error %d:%d: %s", e.Line, e.Col, e.Msg) }

type parser struct {
	toks []token
	pos  int
}

// Parse lexes and parses src into a root MainBlock ready for
// compiler.CompileMain. It also resolves each FunctionNode's
// AccessedNonLocals (free-variable capture list), since this frontend pass,
// run before compilation, is the only point with full lexical scope
// information (see resolveCaptures in captures.go).
func Parse(src string) (*syntax.MainBlock, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, &Error{Msg: err.Error()}
	}
	p := &parser{toks: toks}
	body, err := p.parseStmtsUntilEOF()
	if err != nil {
		return nil, err
	}
	block := &syntax.MainBlock{Body: wrapImplicitReturn(body)}
	resolveCaptures(block)
	return block, nil
}

func (p *parser) cur() token { return p.toks[p.pos] }
func (p *parser) peekN(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) at(kind tokenKind, text string) bool {
	t := p.cur()
	return t.kind == kind && (text == "" || t.text == text)
}

func (p *parser) atEOF() bool { return p.cur().kind == tEOF }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectPunct(text string) (token, error) {
	if !p.at(tPunct, text) {
		t := p.cur()
		return token{}, &Error{Msg: fmt.Sprintf("expected %q, got %q", text, t.text), Line: t.line, Col: t.col}
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (token, error) {
	if !p.at(tIdent, "") {
		t := p.cur()
		return token{}, &Error{Msg: fmt.Sprintf("expected identifier, got %q", t.text), Line: t.line, Col: t.col}
	}
	return p.advance(), nil
}

func span(t token) syntax.Span {
	return syntax.Span{StartLine: t.line, StartCol: t.col, EndLine: t.line, EndCol: t.col}
}

// skipTerminators consumes any run of `;` between statements.
func (p *parser) skipTerminators() {
	for p.at(tPunct, ";") {
		p.advance()
	}
}

// ---- statement sequences ----

func (p *parser) parseStmtsUntilEOF() ([]syntax.Stmt, error) {
	var out []syntax.Stmt
	p.skipTerminators()
	for !p.atEOF() {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		p.skipTerminators()
	}
	return out, nil
}

// parseBlock parses a `{ stmt; stmt; ... }` block.
func (p *parser) parseBlock() ([]syntax.Stmt, error) {
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var out []syntax.Stmt
	p.skipTerminators()
	for !p.at(tPunct, "}") {
		if p.atEOF() {
			t := p.cur()
			return nil, &Error{Msg: "unexpected end of input inside block", Line: t.line, Col: t.col}
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		p.skipTerminators()
	}
	p.advance() // "}"
	return out, nil
}

// wrapImplicitReturn rewrites a trailing bare expression statement into an
// explicit return, since compileBodyWithPrologue has no last-expression
// value capture (unlike compileBlockExpr, used only by if/match/switch arms).
func wrapImplicitReturn(stmts []syntax.Stmt) []syntax.Stmt {
	if len(stmts) == 0 {
		return stmts
	}
	last, ok := stmts[len(stmts)-1].(*syntax.ExprStmt)
	if !ok {
		return stmts
	}
	ret := &syntax.ReturnStmt{Value: last.Expr}
	ret.Span = last.Span
	out := make([]syntax.Stmt, len(stmts))
	copy(out, stmts)
	out[len(out)-1] = ret
	return out
}

func (p *parser) parseStmt() (syntax.Stmt, error) {
	t := p.cur()
	if t.kind == tKeyword {
		switch t.text {
		case "while", "until", "loop":
			return p.parseCondLoop()
		case "for":
			return p.parseForLoop()
		case "break":
			return p.parseBreak()
		case "continue":
			p.advance()
			n := &syntax.ContinueStmt{}
			n.Span = span(t)
			return n, nil
		case "return":
			return p.parseReturn()
		case "throw":
			return p.parseThrow()
		case "try":
			return p.parseTry()
		case "import", "from":
			return p.parseImport()
		case "export":
			return p.parseExport()
		case "debug":
			return p.parseDebug()
		}
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	switch e := expr.(type) {
	case *syntax.AssignExpr:
		return e, nil
	case *syntax.IfExpr:
		return e, nil
	}
	n := &syntax.ExprStmt{Expr: expr}
	n.Span = expr.Pos()
	return n, nil
}

// ---- loop statements ----

func (p *parser) parseCondLoop() (syntax.Stmt, error) {
	t := p.advance() // while/until/loop
	n := &syntax.LoopStmt{}
	n.Span = span(t)
	switch t.text {
	case "while":
		n.Kind = syntax.LoopWhile
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Cond = cond
	case "until":
		n.Kind = syntax.LoopUntil
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Cond = cond
	case "loop":
		n.Kind = syntax.LoopPlain
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n.Body = body
	return n, nil
}

func (p *parser) parseForLoop() (syntax.Stmt, error) {
	t, err := p.expectKeyword("for")
	if err != nil {
		return nil, err
	}
	n := &syntax.LoopStmt{Kind: syntax.LoopFor}
	n.Span = span(t)
	for {
		nameTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		id := &syntax.Identifier{Name: nameTok.text}
		id.Span = span(nameTok)
		n.ForVars = append(n.ForVars, id)
		if p.at(tPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	n.ForIter = iter
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n.Body = body
	return n, nil
}

func (p *parser) expectKeyword(text string) (token, error) {
	if !p.at(tKeyword, text) {
		t := p.cur()
		return token{}, &Error{Msg: fmt.Sprintf("expected keyword %q, got %q", text, t.text), Line: t.line, Col: t.col}
	}
	return p.advance(), nil
}

func (p *parser) parseBreak() (syntax.Stmt, error) {
	t, err := p.expectKeyword("break")
	if err != nil {
		return nil, err
	}
	n := &syntax.BreakStmt{}
	n.Span = span(t)
	if !p.atStmtEnd() {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Value = v
	}
	return n, nil
}

// atStmtEnd reports whether the current token can't start an expression,
// i.e. we're at a statement terminator/block end.
func (p *parser) atStmtEnd() bool {
	t := p.cur()
	if t.kind == tEOF {
		return true
	}
	if t.kind == tPunct && (t.text == ";" || t.text == "}") {
		return true
	}
	return false
}

func (p *parser) parseReturn() (syntax.Stmt, error) {
	t, err := p.expectKeyword("return")
	if err != nil {
		return nil, err
	}
	n := &syntax.ReturnStmt{}
	n.Span = span(t)
	if !p.atStmtEnd() {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Value = v
	}
	return n, nil
}

func (p *parser) parseThrow() (syntax.Stmt, error) {
	t, err := p.expectKeyword("throw")
	if err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	n := &syntax.ThrowStmt{Value: v}
	n.Span = span(t)
	return n, nil
}

func (p *parser) parseTry() (syntax.Stmt, error) {
	t, err := p.expectKeyword("try")
	if err != nil {
		return nil, err
	}
	n := &syntax.TryStmt{}
	n.Span = span(t)
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n.Body = body
	if p.at(tKeyword, "catch") {
		p.advance()
		if p.at(tIdent, "") {
			nameTok := p.advance()
			n.CatchName = nameTok.text
		}
		catchBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.CatchBody = catchBody
	}
	if p.at(tKeyword, "finally") {
		p.advance()
		finallyBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.FinallyBody = finallyBody
	}
	return n, nil
}

func (p *parser) parseImport() (syntax.Stmt, error) {
	t := p.cur()
	n := &syntax.ImportStmt{}
	n.Span = span(t)
	if t.text == "from" {
		p.advance()
		modTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		n.Module = modTok.text
		if _, err := p.expectKeyword("import"); err != nil {
			return nil, err
		}
		for {
			nameTok, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			n.Names = append(n.Names, nameTok.text)
			if p.at(tPunct, ",") {
				p.advance()
				continue
			}
			break
		}
		return n, nil
	}
	p.advance() // "import"
	modTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	n.Module = modTok.text
	if p.at(tIdent, "as") {
		p.advance()
		aliasTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		n.Alias = aliasTok.text
	}
	return n, nil
}

func (p *parser) parseExport() (syntax.Stmt, error) {
	t, err := p.expectKeyword("export")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("="); err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	n := &syntax.ExportStmt{Name: nameTok.text, Value: v}
	n.Span = span(t)
	return n, nil
}

func (p *parser) parseDebug() (syntax.Stmt, error) {
	t, err := p.expectKeyword("debug")
	if err != nil {
		return nil, err
	}
	start := p.pos
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	src := sourceTextOf(p.toks[start:p.pos])
	n := &syntax.DebugStmt{Expr: v, SourceText: src}
	n.Span = span(t)
	return n, nil
}

// sourceTextOf reconstructs an approximate source rendering of the tokens
// that made up a debugged expression, for display purposes only.
func sourceTextOf(toks []token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch t.kind {
		case tString:
			sb.WriteByte('"')
			sb.WriteString(t.text)
			sb.WriteByte('"')
		case tInt, tFloat:
			sb.WriteString(t.text)
		default:
			sb.WriteString(t.text)
		}
	}
	return sb.String()
}

// ---- expression precedence chain ----

func (p *parser) parseExpr() (syntax.Expr, error) {
	return p.parseAssign()
}

var compoundAssignOps = map[string]syntax.BinaryOp{
	"+=": syntax.BinAdd,
	"-=": syntax.BinSub,
	"*=": syntax.BinMul,
	"/=": syntax.BinDiv,
	"%=": syntax.BinMod,
}

func (p *parser) parseAssign() (syntax.Expr, error) {
	lhs, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	if p.at(tPunct, "=") {
		p.advance()
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		target, err := exprToAssignTarget(lhs)
		if err != nil {
			return nil, err
		}
		n := &syntax.AssignExpr{Targets: []syntax.AssignTarget{target}, Value: value}
		n.Span = lhs.Pos()
		return n, nil
	}
	if op, ok := compoundAssignOps[p.cur().text]; ok && p.cur().kind == tPunct {
		id, ok := lhs.(*syntax.Identifier)
		if !ok {
			t := p.cur()
			return nil, &Error{Msg: "compound assignment requires a plain name target", Line: t.line, Col: t.col}
		}
		p.advance()
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		bin := &syntax.BinaryExpr{Op: op, Left: id, Right: rhs}
		bin.Span = lhs.Pos()
		n := &syntax.AssignExpr{Targets: []syntax.AssignTarget{{Name: id.Name}}, Value: bin}
		n.Span = lhs.Pos()
		return n, nil
	}
	return lhs, nil
}

func exprToAssignTarget(e syntax.Expr) (syntax.AssignTarget, error) {
	switch v := e.(type) {
	case *syntax.Identifier:
		return syntax.AssignTarget{Name: v.Name}, nil
	case *syntax.Chain:
		if len(v.Steps) == 0 {
			return syntax.AssignTarget{}, &Error{Msg: "invalid assignment target"}
		}
		last := v.Steps[len(v.Steps)-1].Kind
		if last != syntax.ChainAccess && last != syntax.ChainIndex && last != syntax.ChainAccessString {
			return syntax.AssignTarget{}, &Error{Msg: "assignment target must end in a field or index access"}
		}
		return syntax.AssignTarget{Chain: v}, nil
	}
	return syntax.AssignTarget{}, &Error{Msg: "invalid assignment target"}
}

func (p *parser) parsePipe() (syntax.Expr, error) {
	lhs, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.at(tPunct, "->") {
		p.advance()
		rhs, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		n := &syntax.PipeExpr{Lhs: lhs, Rhs: rhs}
		n.Span = lhs.Pos()
		lhs = n
	}
	return lhs, nil
}

func (p *parser) parseOr() (syntax.Expr, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(tKeyword, "or") {
		p.advance()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		n := &syntax.BinaryExpr{Op: syntax.BinOr, Left: lhs, Right: rhs}
		n.Span = lhs.Pos()
		lhs = n
	}
	return lhs, nil
}

func (p *parser) parseAnd() (syntax.Expr, error) {
	lhs, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(tKeyword, "and") {
		p.advance()
		rhs, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		n := &syntax.BinaryExpr{Op: syntax.BinAnd, Left: lhs, Right: rhs}
		n.Span = lhs.Pos()
		lhs = n
	}
	return lhs, nil
}

var equalityOps = map[string]syntax.BinaryOp{"==": syntax.BinEq, "!=": syntax.BinNe}

func (p *parser) parseEquality() (syntax.Expr, error) {
	lhs, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := equalityOps[p.cur().text]
		if !ok || p.cur().kind != tPunct {
			return lhs, nil
		}
		p.advance()
		rhs, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		n := &syntax.BinaryExpr{Op: op, Left: lhs, Right: rhs}
		n.Span = lhs.Pos()
		lhs = n
	}
}

var comparisonOps = map[string]syntax.BinaryOp{
	"<": syntax.BinLt, "<=": syntax.BinLe, ">": syntax.BinGt, ">=": syntax.BinGe,
}

func (p *parser) parseComparison() (syntax.Expr, error) {
	lhs, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.cur().text]
		if !ok || p.cur().kind != tPunct {
			return lhs, nil
		}
		p.advance()
		rhs, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		n := &syntax.BinaryExpr{Op: op, Left: lhs, Right: rhs}
		n.Span = lhs.Pos()
		lhs = n
	}
}

// parseRange handles only the binary a..b / a..=b forms; bare/prefix ranges
// (..b, a.., ..) are out of scope for this minimal grammar.
func (p *parser) parseRange() (syntax.Expr, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.at(tPunct, "..") || p.at(tPunct, "..=") {
		inclusive := p.cur().text == "..="
		p.advance()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		n := &syntax.RangeExpr{Start: lhs, End: rhs, Inclusive: inclusive}
		n.Span = lhs.Pos()
		return n, nil
	}
	return lhs, nil
}

var additiveOps = map[string]syntax.BinaryOp{"+": syntax.BinAdd, "-": syntax.BinSub}

func (p *parser) parseAdditive() (syntax.Expr, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := additiveOps[p.cur().text]
		if !ok || p.cur().kind != tPunct {
			return lhs, nil
		}
		p.advance()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		n := &syntax.BinaryExpr{Op: op, Left: lhs, Right: rhs}
		n.Span = lhs.Pos()
		lhs = n
	}
}

var multiplicativeOps = map[string]syntax.BinaryOp{"*": syntax.BinMul, "/": syntax.BinDiv, "%": syntax.BinMod}

func (p *parser) parseMultiplicative() (syntax.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := multiplicativeOps[p.cur().text]
		if !ok || p.cur().kind != tPunct {
			return lhs, nil
		}
		p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &syntax.BinaryExpr{Op: op, Left: lhs, Right: rhs}
		n.Span = lhs.Pos()
		lhs = n
	}
}

func (p *parser) parseUnary() (syntax.Expr, error) {
	t := p.cur()
	if t.kind == tPunct && t.text == "-" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &syntax.UnaryExpr{Op: syntax.UnaryNegate, Operand: operand}
		n.Span = span(t)
		return n, nil
	}
	if t.kind == tKeyword && t.text == "not" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &syntax.UnaryExpr{Op: syntax.UnaryNot, Operand: operand}
		n.Span = span(t)
		return n, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression then consumes any run of
// `.field`, `?.field`, `[index]`, `(args)` into a Chain. A method call
// `x.reverse()` collapses into a single ChainCallInstance step; a bare call
// `f(x)` builds a Chain whose Root is the callee.
func (p *parser) parsePostfix() (syntax.Expr, error) {
	root, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	var steps []syntax.ChainStep
	for {
		switch {
		case p.at(tPunct, "."):
			p.advance()
			nameTok, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if p.at(tPunct, "(") {
				args, spread, err := p.parseArgList()
				if err != nil {
					return nil, err
				}
				steps = append(steps, syntax.ChainStep{Kind: syntax.ChainCallInstance, Key: nameTok.text, Args: args, SpreadLast: spread})
				continue
			}
			steps = append(steps, syntax.ChainStep{Kind: syntax.ChainAccess, Key: nameTok.text})
		case p.at(tPunct, "?."):
			p.advance()
			nameTok, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			steps = append(steps, syntax.ChainStep{Kind: syntax.ChainAccess, Key: nameTok.text, Optional: true})
		case p.at(tPunct, "["):
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			steps = append(steps, syntax.ChainStep{Kind: syntax.ChainIndex, IndexExpr: idx})
		case p.at(tPunct, "("):
			args, spread, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			steps = append(steps, syntax.ChainStep{Kind: syntax.ChainCall, Args: args, SpreadLast: spread})
		default:
			if len(steps) == 0 {
				return root, nil
			}
			n := &syntax.Chain{Root: root, Steps: steps}
			n.Span = root.Pos()
			return n, nil
		}
	}
}

// parseArgList parses `(arg, arg, ...spread)`, returning the args and whether
// the last one carries a spread marker.
func (p *parser) parseArgList() ([]syntax.Expr, bool, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, false, err
	}
	var args []syntax.Expr
	spread := false
	for !p.at(tPunct, ")") {
		if p.at(tPunct, "...") {
			p.advance()
			spread = true
		} else {
			spread = false
		}
		a, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		args = append(args, a)
		if p.at(tPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, false, err
	}
	return args, spread, nil
}

func (p *parser) parsePrimary() (syntax.Expr, error) {
	t := p.cur()
	switch t.kind {
	case tKeyword:
		switch t.text {
		case "null":
			p.advance()
			n := &syntax.NullLiteral{}
			n.Span = span(t)
			return n, nil
		case "true", "false":
			p.advance()
			n := &syntax.BoolLiteral{Value: t.text == "true"}
			n.Span = span(t)
			return n, nil
		case "yield":
			p.advance()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n := &syntax.YieldExpr{Value: v}
			n.Span = span(t)
			return n, nil
		case "if":
			return p.parseIf()
		}
	case tInt:
		p.advance()
		n := &syntax.IntLiteral{Value: t.ival}
		n.Span = span(t)
		return n, nil
	case tFloat:
		p.advance()
		n := &syntax.FloatLiteral{Value: t.fval}
		n.Span = span(t)
		return n, nil
	case tString:
		p.advance()
		n := &syntax.StringLiteral{Value: t.text}
		n.Span = span(t)
		return n, nil
	case tIdent:
		p.advance()
		if t.text == "_" || strings.HasPrefix(t.text, "_") {
			n := &syntax.Wildcard{Name: t.text}
			n.Span = span(t)
			return n, nil
		}
		n := &syntax.Identifier{Name: t.text}
		n.Span = span(t)
		return n, nil
	case tPunct:
		switch t.text {
		case "(":
			return p.parseParenOrTuple()
		case "[":
			return p.parseListLiteral()
		case "{":
			return p.parseMapLiteral()
		case "|":
			return p.parseFunctionLiteral()
		case "...":
			p.advance()
			name := ""
			if p.at(tIdent, "") {
				nameTok := p.advance()
				name = nameTok.text
			}
			n := &syntax.Ellipsis{Name: name}
			n.Span = span(t)
			return n, nil
		}
	}
	return nil, &Error{Msg: fmt.Sprintf("unexpected token %q", t.text), Line: t.line, Col: t.col}
}

func (p *parser) parseIf() (syntax.Expr, error) {
	t, err := p.expectKeyword("if")
	if err != nil {
		return nil, err
	}
	n := &syntax.IfExpr{}
	n.Span = span(t)
	for {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.Arms = append(n.Arms, syntax.IfArm{Cond: cond, Body: body})
		if p.at(tKeyword, "else") {
			p.advance()
			if p.at(tKeyword, "if") {
				p.advance()
				continue
			}
			elseBody, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			n.Arms = append(n.Arms, syntax.IfArm{Cond: nil, Body: elseBody})
		}
		break
	}
	return n, nil
}

func (p *parser) parseParenOrTuple() (syntax.Expr, error) {
	open := p.advance() // "("
	if p.at(tPunct, ")") {
		p.advance()
		n := &syntax.TupleLiteral{}
		n.Span = span(open)
		return n, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(tPunct, ",") {
		elems := []syntax.Expr{first}
		for p.at(tPunct, ",") {
			p.advance()
			if p.at(tPunct, ")") {
				break
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		n := &syntax.TupleLiteral{Elements: elems}
		n.Span = span(open)
		return n, nil
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	n := &syntax.Nested{Inner: first}
	n.Span = span(open)
	return n, nil
}

func (p *parser) parseListLiteral() (syntax.Expr, error) {
	open, err := p.expectPunct("[")
	if err != nil {
		return nil, err
	}
	n := &syntax.ListLiteral{}
	n.Span = span(open)
	for !p.at(tPunct, "]") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Elements = append(n.Elements, e)
		if p.at(tPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return n, nil
}

// parseMapLiteral handles `{key: value, ...}` entries, converting a bare
// identifier key into a StringLiteral (entry.Key is compiled by the generic
// expression compiler, so a bare name must read as the literal string, not
// a variable lookup) and `@`-prefixed meta keys for a documented subset of
// MetaKey spellings.
func (p *parser) parseMapLiteral() (syntax.Expr, error) {
	open, err := p.expectPunct("{")
	if err != nil {
		return nil, err
	}
	n := &syntax.MapLiteral{}
	n.Span = span(open)
	p.skipTerminators()
	for !p.at(tPunct, "}") {
		entry, err := p.parseMapEntry()
		if err != nil {
			return nil, err
		}
		n.Entries = append(n.Entries, entry)
		if p.at(tPunct, ",") {
			p.advance()
			p.skipTerminators()
			continue
		}
		p.skipTerminators()
		break
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return n, nil
}

var symbolicMetaKeys = map[string]syntax.MetaKey{
	"+": syntax.MetaAdd, "-": syntax.MetaSubtract, "*": syntax.MetaMultiply,
	"/": syntax.MetaDivide, "%": syntax.MetaRemainder,
	"==": syntax.MetaEqual, "!=": syntax.MetaNotEqual,
	"<": syntax.MetaLess, "<=": syntax.MetaLessOrEqual,
	">": syntax.MetaGreater, ">=": syntax.MetaGreaterOrEqual,
}

var namedMetaKeys = map[string]syntax.MetaKey{
	"display":   syntax.MetaDisplay,
	"size":      syntax.MetaSize,
	"iterator":  syntax.MetaIterator,
	"next":      syntax.MetaNext,
	"next_back": syntax.MetaNextBack,
	"type":      syntax.MetaTypeName_,
	"call":      syntax.MetaCall,
	"tests":     syntax.MetaTests,
	"pre_test":  syntax.MetaPreTest,
	"post_test": syntax.MetaPostTest,
}

func (p *parser) parseMapEntry() (syntax.MapEntry, error) {
	if p.at(tPunct, "@") {
		at := p.advance()
		keyExpr, err := p.parseMetaKey(at)
		if err != nil {
			return syntax.MapEntry{}, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return syntax.MapEntry{}, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return syntax.MapEntry{}, err
		}
		return syntax.MapEntry{Key: keyExpr, Value: v}, nil
	}
	var key syntax.Expr
	if p.at(tIdent, "") {
		t := p.advance()
		lit := &syntax.StringLiteral{Value: t.text}
		lit.Span = span(t)
		key = lit
	} else if p.at(tString, "") {
		t := p.advance()
		lit := &syntax.StringLiteral{Value: t.text}
		lit.Span = span(t)
		key = lit
	} else {
		t := p.cur()
		return syntax.MapEntry{}, &Error{Msg: fmt.Sprintf("invalid map key %q", t.text), Line: t.line, Col: t.col}
	}
	if _, err := p.expectPunct(":"); err != nil {
		return syntax.MapEntry{}, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return syntax.MapEntry{}, err
	}
	return syntax.MapEntry{Key: key, Value: v}, nil
}

func (p *parser) parseMetaKey(at token) (syntax.Expr, error) {
	t := p.cur()
	if t.kind == tPunct {
		if mk, ok := symbolicMetaKeys[t.text]; ok {
			p.advance()
			n := &syntax.MetaKeyExpr{Key: mk}
			n.Span = span(at)
			return n, nil
		}
	}
	if t.kind == tIdent || t.kind == tKeyword {
		if t.text == "meta" || t.text == "test" {
			p.advance()
			nameTok, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			key := syntax.MetaUserNamed
			if t.text == "test" {
				key = syntax.MetaNamedTest
			}
			n := &syntax.MetaKeyExpr{Key: key, Name: nameTok.text}
			n.Span = span(at)
			return n, nil
		}
		if mk, ok := namedMetaKeys[t.text]; ok {
			p.advance()
			n := &syntax.MetaKeyExpr{Key: mk}
			n.Span = span(at)
			return n, nil
		}
	}
	return nil, &Error{Msg: fmt.Sprintf("unsupported meta key %q", t.text), Line: t.line, Col: t.col}
}

// parseFunctionLiteral handles `|args| body`. Since `|` always lexes as a
// single-char punct, a zero-arg function `|| ...` appears as two adjacent
// `|` tokens. The body is `{ ... }`, a single bare expression, or (only for
// function literals) a parenthesized run of `;`-separated statements, which
// lets a generator body like `|| (yield 1; yield 2; yield 3)` parse without
// confusing it with a general grouped expression or tuple.
func (p *parser) parseFunctionLiteral() (syntax.Expr, error) {
	open, err := p.expectPunct("|")
	if err != nil {
		return nil, err
	}
	n := &syntax.FunctionNode{}
	n.Span = span(open)
	for !p.at(tPunct, "|") {
		argTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		arg := syntax.FunctionArg{Name: argTok.text}
		if p.at(tPunct, ":") {
			p.advance()
			typeTok, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			arg.TypeHint = typeTok.text
		}
		n.Args = append(n.Args, arg)
		if p.at(tPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectPunct("|"); err != nil {
		return nil, err
	}

	var bodyStmts []syntax.Stmt
	switch {
	case p.at(tPunct, "{"):
		bodyStmts, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	case p.at(tPunct, "("):
		p.advance()
		p.skipTerminators()
		for !p.at(tPunct, ")") {
			s, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			bodyStmts = append(bodyStmts, s)
			p.skipTerminators()
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		es := &syntax.ExprStmt{Expr: e}
		es.Span = e.Pos()
		bodyStmts = []syntax.Stmt{es}
	}

	isGenerator := containsYield(bodyStmts)
	bodyStmts = wrapImplicitReturn(bodyStmts)

	main := &syntax.MainBlock{Body: bodyStmts}
	main.Span = span(open)
	n.Body = main
	if isGenerator {
		n.Flags |= syntax.FlagGenerator
	}
	return n, nil
}

func containsYield(stmts []syntax.Stmt) bool {
	found := false
	for _, s := range stmts {
		walkStmtExprs(s, func(e syntax.Expr) {
			if _, ok := e.(*syntax.YieldExpr); ok {
				found = true
			}
		})
	}
	return found
}
