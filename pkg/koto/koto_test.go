package koto_test

import (
	"testing"

	"github.com/kotoscript/koto/pkg/koto"
)

func TestBindAndRun(t *testing.T) {
	vm := koto.New()

	if err := vm.Bind("double", func(x int64) int64 { return x * 2 }); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	result, err := vm.Run(`double(21)`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, ok := result.(int64)
	if !ok || got != 42 {
		t.Fatalf("expected 42, got %v (%T)", result, result)
	}
}

func TestRunExportAndCall(t *testing.T) {
	vm := koto.New()

	if _, err := vm.Run(`export add = |a, b| a + b`); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	result, err := vm.Call("add", int64(19), int64(23))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result != int64(42) {
		t.Fatalf("expected 42, got %v", result)
	}
}

func TestRunListRoundTrip(t *testing.T) {
	vm := koto.New()

	result, err := vm.Run(`[1, 2, 3]`)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	list, ok := result.([]interface{})
	if !ok || len(list) != 3 {
		t.Fatalf("expected a 3-element slice, got %v (%T)", result, result)
	}
}

func TestBatchRunsIndependentScripts(t *testing.T) {
	sources := []string{`1 + 1`, `2 + 2`, `3 + 3`}

	results, err := koto.RunBatch(sources, func() *koto.VM { return koto.New() })
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}
