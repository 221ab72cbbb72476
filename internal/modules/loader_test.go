package modules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kotoscript/koto/internal/compiler"
	"github.com/kotoscript/koto/internal/exec"
	"github.com/kotoscript/koto/internal/frontend"
	"github.com/kotoscript/koto/internal/modules"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func runWithLoader(t *testing.T, loader *modules.FileLoader, src string) interface{} {
	t.Helper()
	block, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	chunk, err := compiler.CompileMain(block, "<test>")
	if err != nil {
		t.Fatalf("CompileMain failed: %v", err)
	}
	vm := exec.New()
	vm.SetResolver(loader)
	result, err := vm.Run(chunk)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result
}

func TestResolveDirectFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "greet.koto", `export value = 42`)

	loader := modules.NewFileLoader(dir)
	result := runWithLoader(t, loader, `
import greet
greet.value
`)
	got, ok := result.(interface{ AsInt() int64 })
	if !ok || got.AsInt() != 42 {
		t.Fatalf("expected 42, got %v (%T)", result, result)
	}
}

func TestResolveDirectoryMainFile(t *testing.T) {
	dir := t.TempDir()
	pkgDir := filepath.Join(dir, "mathutils")
	if err := os.Mkdir(pkgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, pkgDir, "mathutils.koto", `export value = 7`)

	loader := modules.NewFileLoader(dir)
	result := runWithLoader(t, loader, `
import mathutils
mathutils.value
`)
	got, ok := result.(interface{ AsInt() int64 })
	if !ok || got.AsInt() != 7 {
		t.Fatalf("expected 7, got %v (%T)", result, result)
	}
}

func TestResolveCachesByPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "once.koto", `export value = 1`)

	loader := modules.NewFileLoader(dir)
	first, err := loader.Resolve("once")
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	second, err := loader.Resolve("once")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached resolution to return the same *value.Map instance")
	}
}

func TestResolveMissingModule(t *testing.T) {
	loader := modules.NewFileLoader(t.TempDir())
	if _, err := loader.Resolve("nonexistent"); err == nil {
		t.Fatalf("expected an error resolving a missing module")
	}
}

func TestResolveAllConcurrent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.koto", `export value = 1`)
	writeFile(t, dir, "b.koto", `export value = 2`)
	writeFile(t, dir, "c.koto", `export value = 3`)

	loader := modules.NewFileLoader(dir)
	results, err := loader.ResolveAll([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("result %d is nil", i)
		}
	}
}

func TestManifestExpandsRoots(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "lib")
	if err := os.Mkdir(libDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, libDir, "vendored.koto", `export value = 99`)
	writeFile(t, dir, "koto.mod.yaml", "name: app\nroots:\n  - lib\n")

	loader := modules.NewFileLoader(dir)
	result := runWithLoader(t, loader, `
import vendored
vendored.value
`)
	got, ok := result.(interface{ AsInt() int64 })
	if !ok || got.AsInt() != 99 {
		t.Fatalf("expected 99, got %v (%T)", result, result)
	}
}
