package frontend_test

import (
	"testing"

	"github.com/kotoscript/koto/internal/compiler"
	"github.com/kotoscript/koto/internal/exec"
	"github.com/kotoscript/koto/internal/frontend"
	"github.com/kotoscript/koto/internal/syntax"
)

func mustParse(t *testing.T, src string) *syntax.MainBlock {
	t.Helper()
	block, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return block
}

func runSrc(t *testing.T, src string) interface{} {
	t.Helper()
	block := mustParse(t, src)
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

func TestParseImplicitReturn(t *testing.T) {
	result := runSrc(t, `x = 1
x + 41`)
	if result.(interface{ AsInt() int64 }).AsInt() != 42 {
		t.Fatalf("expected 42, got %v", result)
	}
}

func TestParseFunctionLiteralAndCall(t *testing.T) {
	result := runSrc(t, `
add = |a, b| a + b
add(19, 23)
`)
	if result.(interface{ AsInt() int64 }).AsInt() != 42 {
		t.Fatalf("expected 42, got %v", result)
	}
}

func TestCaptureResolutionMarksClosure(t *testing.T) {
	block := mustParse(t, `
x = 10
f = || x + 1
f
`)
	// Walk the parsed body for the FunctionNode assigned to f and confirm
	// the capture pass recorded x as an accessed non-local.
	var fn *syntax.FunctionNode
	for _, stmt := range block.Body {
		assign, ok := stmt.(*syntax.AssignExpr)
		if !ok {
			continue
		}
		if f, ok := assign.Value.(*syntax.FunctionNode); ok {
			fn = f
		}
	}
	if fn == nil {
		t.Fatalf("expected to find a function literal assigned to f")
	}
	if fn.Flags&syntax.FlagAccessesNonLocals == 0 {
		t.Fatalf("expected FlagAccessesNonLocals to be set")
	}
	found := false
	for _, name := range fn.AccessedNonLocals {
		if name == "x" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected AccessedNonLocals to contain %q, got %v", "x", fn.AccessedNonLocals)
	}
}

func TestParseIfExprAsExpression(t *testing.T) {
	result := runSrc(t, `
x = 5
if x > 0 { "positive" } else { "non-positive" }
`)
	str, ok := result.(interface{ TypeName() string })
	if !ok || str.TypeName() != "String" {
		t.Fatalf("expected a String result, got %v (%T)", result, result)
	}
}

func TestParseTryCatchAssignsResult(t *testing.T) {
	result := runSrc(t, `
result = null
try { throw "boom" } catch e { result = e }
result
`)
	str, ok := result.(interface{ TypeName() string })
	if !ok || str.TypeName() != "String" {
		t.Fatalf("expected the caught thrown value to be a String, got %v (%T)", result, result)
	}
}

func TestParseRangeExpr(t *testing.T) {
	result := runSrc(t, `1..10`)
	r, ok := result.(interface{ TypeName() string })
	if !ok || r.TypeName() != "Range" {
		t.Fatalf("expected a Range result, got %v (%T)", result, result)
	}
}
