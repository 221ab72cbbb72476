package bytecode

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Disassemble renders a Chunk as human-readable text, one line per
// instruction, in the vein of a typical bytecode listing.
func Disassemble(c *Chunk, name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)
	r := NewReader(c, 0)
	for !r.AtEnd() {
		at := r.IP
		ins, err := r.Next()
		if err != nil {
			fmt.Fprintf(&sb, "%04d ERROR %v\n", at, err)
			return sb.String()
		}
		fmt.Fprintf(&sb, "%04d %s\n", at, formatInstruction(c, ins))
	}
	return sb.String()
}

func formatInstruction(c *Chunk, ins Instruction) string {
	switch ins.Op {
	case OpNewFrame:
		return fmt.Sprintf("%-16s registers: %d", ins.Op, ins.A)
	case OpCopy, OpTempTupleToTuple, OpNegate, OpNot, OpMakeIterator, OpSize, OpIterUnpack:
		return fmt.Sprintf("%-16s r%d <- r%d", ins.Op, ins.A, ins.B)
	case OpSequenceToList, OpSequenceToTuple, OpStringFinish, OpImport, OpImportAll,
		OpReturn, OpYield, OpThrow, OpSetNull, OpSetFalse, OpSetTrue, OpSet0, OpSet1:
		return fmt.Sprintf("%-16s r%d", ins.Op, ins.A)
	case OpLoadFloat, OpLoadInt, OpLoadString, OpLoadNonLocal, OpAccess:
		return fmt.Sprintf("%-16s r%d <- const[%d]", ins.Op, ins.A, ins.Const)
	case OpSetNumberU8, OpSetNumberNegU8:
		return fmt.Sprintf("%-16s r%d <- %d", ins.Op, ins.A, ins.N)
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpRemainder,
		OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual, OpEqual, OpNotEqual,
		OpAccessString, OpIndex, OpIndexMut, OpSetIndex, OpMapInsert:
		return fmt.Sprintf("%-16s r%d <- r%d, r%d", ins.Op, ins.A, ins.B, ins.C)
	case OpAddAssign, OpSubtractAssign, OpMultiplyAssign, OpDivideAssign, OpRemainderAssign:
		return fmt.Sprintf("%-16s r%d <op>= r%d", ins.Op, ins.A, ins.B)
	case OpJump:
		return fmt.Sprintf("%-16s -> %04d", ins.Op, int(ins.At)+3+int(ins.Offset))
	case OpJumpBack:
		return fmt.Sprintf("%-16s -> %04d", ins.Op, int(ins.At)+3-int(ins.Offset))
	case OpJumpIfTrue, OpJumpIfFalse, OpJumpIfNull:
		return fmt.Sprintf("%-16s r%d -> %04d", ins.Op, ins.A, ins.At+4+int(ins.Offset))
	case OpCall:
		return fmt.Sprintf("%-16s r%d <- call r%d(base r%d, argc %d, packed %d)",
			ins.Op, ins.A, ins.B, ins.C, ins.ArgCount, ins.PackedArgCount)
	case OpCallInstance:
		return fmt.Sprintf("%-16s r%d <- r%d.call(base r%d, argc %d, packed %d, self r%d)",
			ins.Op, ins.A, ins.B, ins.C, ins.ArgCount, ins.PackedArgCount, ins.N)
	case OpFunction:
		return fmt.Sprintf("%-16s r%d args:%d captures:%d flags:%08b size:%d",
			ins.Op, ins.A, ins.ArgCount, ins.CaptureCount, ins.Flags, len(ins.Body))
	case OpTryStart:
		return fmt.Sprintf("%-16s err r%d -> catch %04d", ins.Op, ins.A, ins.At+4+int(ins.Offset))
	case OpIterNext, OpIterNextTemp:
		return fmt.Sprintf("%-16s r%d <- next(r%d) else -> %04d", ins.Op, ins.A, ins.B, ins.At+5+int(ins.Offset))
	case OpIterNextQuiet:
		return fmt.Sprintf("%-16s next(r%d) else -> %04d", ins.Op, ins.A, ins.At+4+int(ins.Offset))
	default:
		return fmt.Sprintf("%-16s a=%d b=%d c=%d const=%d n=%d", ins.Op, ins.A, ins.B, ins.C, ins.Const, ins.N)
	}
}

// annotatedLine is one row of the --show-annotated YAML dump: offset,
// mnemonic, and the source span it originated from.
type annotatedLine struct {
	Offset int    `yaml:"offset"`
	Instr  string `yaml:"instr"`
	Line   int    `yaml:"line,omitempty"`
	Col    int    `yaml:"col,omitempty"`
}

// DisassembleAnnotated renders a Chunk as YAML with each instruction
// paired against the source span recorded for it, for the CLI's
// --show-annotated flag.
func DisassembleAnnotated(c *Chunk) (string, error) {
	var lines []annotatedLine
	r := NewReader(c, 0)
	for !r.AtEnd() {
		at := r.IP
		ins, err := r.Next()
		if err != nil {
			break
		}
		line := annotatedLine{Offset: at, Instr: formatInstruction(c, ins)}
		if span, ok := c.SpanAt(at); ok {
			line.Line = span.StartLine
			line.Col = span.StartCol
		}
		lines = append(lines, line)
	}
	out, err := yaml.Marshal(lines)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
