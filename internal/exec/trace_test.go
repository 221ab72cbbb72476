package exec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kotoscript/koto/internal/compiler"
	"github.com/kotoscript/koto/internal/exec"
	"github.com/kotoscript/koto/internal/frontend"
	"github.com/kotoscript/koto/internal/value"
)

func TestVMIDsAreUnique(t *testing.T) {
	a, b := exec.New(), exec.New()
	if a.ID() == "" || b.ID() == "" {
		t.Fatalf("expected non-empty VM IDs")
	}
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct VM IDs, got %q twice", a.ID())
	}
}

func TestTraceWritesInstructionsWhenEnabled(t *testing.T) {
	block, err := frontend.Parse(`1 + 1`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	chunk, err := compiler.CompileMain(block, "<test>")
	if err != nil {
		t.Fatalf("CompileMain failed: %v", err)
	}

	var buf bytes.Buffer
	vm := exec.New()
	vm.SetTrace(&buf)
	if _, err := vm.Run(chunk); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected trace output when SetTrace is enabled")
	}
	if !strings.Contains(buf.String(), vm.ID()) {
		t.Fatalf("expected trace lines to be prefixed with the VM's ID")
	}
}

func TestTraceDisabledByDefault(t *testing.T) {
	block, err := frontend.Parse(`1 + 1`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	chunk, err := compiler.CompileMain(block, "<test>")
	if err != nil {
		t.Fatalf("CompileMain failed: %v", err)
	}

	vm := exec.New()
	if _, err := vm.Run(chunk); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestSetGlobalsResolvesAsNonLocal(t *testing.T) {
	block, err := frontend.Parse(`greeting`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	chunk, err := compiler.CompileMain(block, "<test>")
	if err != nil {
		t.Fatalf("CompileMain failed: %v", err)
	}

	globals := value.NewMap()
	if err := globals.Insert(value.StrVal(value.NewStr("greeting")), value.StrVal(value.NewStr("hi"))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	vm := exec.New()
	vm.SetGlobals(globals)
	result, err := vm.Run(chunk)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TypeName() != "String" {
		t.Fatalf("expected a String result, got %s", result.TypeName())
	}
}
