package bytecode

// Instruction is a decoded instruction: one Op plus whichever operand
// fields that op uses. Reader.Next returns one of these per step instead
// of a per-opcode type, since the VM's dispatch loop wants a single flat
// shape to switch over (§4.3.3).
type Instruction struct {
	Op Op

	// Register operands. Meaning depends on Op; see op.go's comments on
	// each opcode for which of these are populated.
	A, B, C uint8

	// Constant-pool / meta-key index, variable-length encoded in bytecode.
	Const uint32

	// Signed jump offset in bytes, relative to the instruction after the
	// jump (§4.3.2). JumpBack stores the same magnitude but is subtracted.
	Offset int32

	// Function instruction payload.
	ArgCount     uint8
	CaptureCount uint8
	Flags        FunctionFlags
	Body         []byte // the callee's inlined instruction bytes

	// String/sequence builder payload.
	SizeHint    uint32
	FormatFlags StringFormatFlags
	MinWidth    uint32
	Precision   uint32
	FillChar    rune

	// Call payload.
	PackedArgCount uint8

	// Misc small integers (CheckSizeEqual/Min sizes, SetNumberU8 value,
	// MakeTempTuple count, SequencePushN count, TempIndex/Slice index).
	N uint8

	// Offset (byte position) this instruction started at; useful for jump
	// target arithmetic and debug lookups.
	At int
}
