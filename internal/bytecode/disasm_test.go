package bytecode_test

import (
	"strings"
	"testing"

	"github.com/kotoscript/koto/internal/bytecode"
)

func TestDisassembleIncludesLoadedConstants(t *testing.T) {
	chunk := bytecode.NewChunk("<test>")
	chunk.OpA(bytecode.OpNewFrame, 1)
	idx := chunk.Constants.AddString("hello")
	chunk.OpAConst(bytecode.OpLoadString, 0, idx)
	chunk.OpA(bytecode.OpReturn, 0)

	out := bytecode.Disassemble(chunk, "main")
	if !strings.Contains(out, "main") {
		t.Fatalf("expected disassembly to mention the chunk name, got:\n%s", out)
	}
	if !strings.Contains(out, "LoadString") {
		t.Fatalf("expected disassembly to include the LoadString instruction, got:\n%s", out)
	}
}
