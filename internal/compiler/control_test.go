package compiler_test

import (
	"testing"

	"github.com/kotoscript/koto/internal/compiler"
	"github.com/kotoscript/koto/internal/exec"
	"github.com/kotoscript/koto/internal/syntax"
	"github.com/kotoscript/koto/internal/value"
)

func runBlock(t *testing.T, body []syntax.Stmt) interface{} {
	t.Helper()
	block := &syntax.MainBlock{Body: body}
	chunk, err := compiler.CompileMain(block, "<test>")
	if err != nil {
		t.Fatalf("CompileMain failed: %v", err)
	}
	vm := exec.New()
	result, err := vm.Run(chunk)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result
}

func ident(name string) *syntax.Identifier { return &syntax.Identifier{Name: name} }

func intLit(v int64) *syntax.IntLiteral { return &syntax.IntLiteral{Value: v} }

func strLit(v string) *syntax.StringLiteral {
	return &syntax.StringLiteral{Value: v}
}

// TestCompileSwitchPicksFirstTrueArm builds the tree a surface `switch`
// expression would produce and checks the compiler picks the first arm
// whose guard is true, falling through to the else (guard-less) arm.
func TestCompileSwitchPicksFirstTrueArm(t *testing.T) {
	body := []syntax.Stmt{
		&syntax.ReturnStmt{
			Value: &syntax.SwitchExpr{
				Arms: []syntax.SwitchArm{
					{
						Guard: &syntax.BinaryExpr{Op: syntax.BinEq, Left: intLit(1), Right: intLit(2)},
						Body:  []syntax.Stmt{&syntax.ExprStmt{Expr: strLit("no")}},
					},
					{
						Guard: nil,
						Body:  []syntax.Stmt{&syntax.ExprStmt{Expr: strLit("yes")}},
					},
				},
			},
		},
	}
	result := runBlock(t, body)
	v, ok := result.(value.Value)
	if !ok || v.TypeName() != "String" || v.Str().String() != "yes" {
		t.Fatalf("expected the String \"yes\", got %v (%T)", result, result)
	}
}

// TestCompileMatchBindsSubjectToIdentifierPattern exercises compileMatch's
// bare-identifier pattern case: it always matches (irrefutable) and binds
// the subject to that name for the arm body to read back.
func TestCompileMatchBindsSubjectToIdentifierPattern(t *testing.T) {
	body := []syntax.Stmt{
		&syntax.ReturnStmt{
			Value: &syntax.MatchExpr{
				Subject: []syntax.Expr{intLit(42)},
				Arms: []syntax.MatchArm{
					{
						Patterns: []syntax.Node{ident("bound")},
						Body:     []syntax.Stmt{&syntax.ExprStmt{Expr: ident("bound")}},
					},
				},
			},
		},
	}
	result := runBlock(t, body)
	got, ok := result.(interface{ AsInt() int64 })
	if !ok || got.AsInt() != 42 {
		t.Fatalf("expected 42, got %v (%T)", result, result)
	}
}

// TestCompileMatchFallsThroughToSecondArm confirms a literal pattern that
// doesn't equal the subject falls through to the next arm instead of
// matching.
func TestCompileMatchFallsThroughToSecondArm(t *testing.T) {
	body := []syntax.Stmt{
		&syntax.ReturnStmt{
			Value: &syntax.MatchExpr{
				Subject: []syntax.Expr{intLit(2)},
				Arms: []syntax.MatchArm{
					{
						Patterns: []syntax.Node{intLit(1)},
						Body:     []syntax.Stmt{&syntax.ExprStmt{Expr: strLit("one")}},
					},
					{
						Patterns: []syntax.Node{&syntax.Wildcard{Name: "_"}},
						Body:     []syntax.Stmt{&syntax.ExprStmt{Expr: strLit("other")}},
					},
				},
			},
		},
	}
	result := runBlock(t, body)
	v, ok := result.(value.Value)
	if !ok || v.TypeName() != "String" || v.Str().String() != "other" {
		t.Fatalf("expected the String \"other\", got %v (%T)", result, result)
	}
}
