package bytecode

// Emit* helpers append one encoded instruction to a Chunk's byte stream.
// They're the only place that knows the operand layout for each Op; the
// Compiler calls these rather than poking at Chunk.Bytes directly.
//
// The Op* helpers append bytes only; none of them records a DebugSpan, so
// Chunk.Debug stays empty unless a caller records spans itself through
// mark.

func (c *Chunk) push(b ...byte) { c.Bytes = append(c.Bytes, b...) }

func (c *Chunk) pushVar(v uint32) { c.Bytes = PutVarU32(c.Bytes, v) }

func (c *Chunk) pushOffset(off int32) {
	u := uint16(int16(off))
	c.push(byte(u), byte(u>>8))
}

// mark records the instruction's start offset against a source span. Call
// before appending the opcode byte.
func (c *Chunk) mark(span DebugSpan) int {
	at := len(c.Bytes)
	span.Offset = at
	if len(c.Debug) == 0 || c.Debug[len(c.Debug)-1].Offset != at {
		c.Debug = append(c.Debug, span)
	}
	return at
}

func (c *Chunk) Op0(op Op) int {
	at := len(c.Bytes)
	c.push(byte(op))
	return at
}

func (c *Chunk) OpA(op Op, a uint8) int {
	at := len(c.Bytes)
	c.push(byte(op), a)
	return at
}

func (c *Chunk) OpAB(op Op, a, b uint8) int {
	at := len(c.Bytes)
	c.push(byte(op), a, b)
	return at
}

func (c *Chunk) OpABC(op Op, a, b, cc uint8) int {
	at := len(c.Bytes)
	c.push(byte(op), a, b, cc)
	return at
}

func (c *Chunk) OpAConst(op Op, a uint8, constIdx uint32) int {
	at := len(c.Bytes)
	c.push(byte(op), a)
	c.pushVar(constIdx)
	return at
}

func (c *Chunk) OpAN(op Op, a, n uint8) int {
	at := len(c.Bytes)
	c.push(byte(op), a, n)
	return at
}

func (c *Chunk) OpConst(op Op, constIdx uint32) int {
	at := len(c.Bytes)
	c.push(byte(op))
	c.pushVar(constIdx)
	return at
}

// OpJump emits a forward jump with a placeholder offset and returns the
// byte offset of the 2-byte operand, for later patching via PatchJump.
func (c *Chunk) OpJump(op Op) (at int, operand int) {
	at = len(c.Bytes)
	c.push(byte(op))
	operand = len(c.Bytes)
	c.push(0, 0)
	return
}

func (c *Chunk) OpAJump(op Op, a uint8) (at int, operand int) {
	at = len(c.Bytes)
	c.push(byte(op), a)
	operand = len(c.Bytes)
	c.push(0, 0)
	return
}

// PatchJump fixes up a forward jump's operand once the target offset is
// known; target is relative to the byte after the 2-byte operand.
func (c *Chunk) PatchJump(operand int) {
	target := len(c.Bytes) - (operand + 2)
	u := uint16(int16(target))
	c.Bytes[operand] = byte(u)
	c.Bytes[operand+1] = byte(u >> 8)
}

// EmitJumpBack emits a backward jump to target (an earlier byte offset).
func (c *Chunk) EmitJumpBack(target int) {
	c.push(byte(OpJumpBack))
	operand := len(c.Bytes)
	c.push(0, 0)
	distance := operand + 2 - target
	u := uint16(int16(distance))
	c.Bytes[operand] = byte(u)
	c.Bytes[operand+1] = byte(u >> 8)
}

// Pos returns the current write position, used as a backward jump target.
func (c *Chunk) Pos() int { return len(c.Bytes) }

// OpFunction emits a function literal instruction and registers its
// compiled body in the Functions table, keyed by this instruction's own
// offset so the VM can find it again on re-execution (e.g. a closure
// defined inside a loop) without re-decoding Body.
func (c *Chunk) OpFunction(a, argCount, captureCount uint8, flags FunctionFlags, body *Chunk) int {
	at := len(c.Bytes)
	c.push(byte(OpFunction), a, argCount, captureCount, byte(flags))
	size := uint16(len(body.Bytes))
	c.push(byte(size), byte(size>>8))
	c.push(body.Bytes...)
	c.Functions[at] = body
	return at
}

// OpCallLike emits Call/CallInstance's shared A,B,C,argCount,packedArgCount
// header; instanceReg is only appended (as a 6th byte) when op is
// OpCallInstance.
func (c *Chunk) OpCallLike(op Op, a, b, cc, argCount, packedArgCount uint8, instanceReg uint8, hasInstance bool) int {
	at := len(c.Bytes)
	c.push(byte(op), a, b, cc, argCount, packedArgCount)
	if hasInstance {
		c.push(instanceReg)
	}
	return at
}

// OpABOffset emits a two-register-operand instruction followed by a
// forward jump offset (OpIterNext, OpIterNextTemp), returning the
// placeholder's location for PatchJump.
func (c *Chunk) OpABOffset(op Op, a, b uint8) (at int, operand int) {
	at = len(c.Bytes)
	c.push(byte(op), a, b)
	operand = len(c.Bytes)
	c.push(0, 0)
	return
}

// OpAConstOffset emits an A + constant-index operand pair followed by a
// forward jump offset (TryAccess, CheckType).
func (c *Chunk) OpAConstOffset(op Op, a uint8, constIdx uint32) (at int, operand int) {
	at = len(c.Bytes)
	c.push(byte(op), a)
	c.pushVar(constIdx)
	operand = len(c.Bytes)
	c.push(0, 0)
	return
}

// OpABCOffset emits A,B,C followed by a forward jump offset
// (TryAccessString).
func (c *Chunk) OpABCOffset(op Op, a, b, cc uint8) (at int, operand int) {
	at = len(c.Bytes)
	c.push(byte(op), a, b, cc)
	operand = len(c.Bytes)
	c.push(0, 0)
	return
}

// OpAccessAssign emits A, constIdx, B (the accessed-name index sits
// between the two register operands).
func (c *Chunk) OpAccessAssign(a uint8, constIdx uint32, b uint8) int {
	at := len(c.Bytes)
	c.push(byte(OpAccessAssign), a)
	c.pushVar(constIdx)
	c.push(b)
	return at
}

// OpMetaInsertNamed emits A, constIdx, B, C.
func (c *Chunk) OpMetaInsertNamed(a uint8, constIdx uint32, b, cc uint8) int {
	at := len(c.Bytes)
	c.push(byte(OpMetaInsertNamed), a)
	c.pushVar(constIdx)
	c.push(b, cc)
	return at
}

// OpMetaExport emits constIdx, A.
func (c *Chunk) OpMetaExport(constIdx uint32, a uint8) int {
	at := len(c.Bytes)
	c.push(byte(OpMetaExport))
	c.pushVar(constIdx)
	c.push(a)
	return at
}

// OpMetaExportNamed emits constIdx, A, B.
func (c *Chunk) OpMetaExportNamed(constIdx uint32, a, b uint8) int {
	at := len(c.Bytes)
	c.push(byte(OpMetaExportNamed))
	c.pushVar(constIdx)
	c.push(a, b)
	return at
}

// OpStringPush emits A, the format-flag byte, and whichever of
// minWidth/precision/fill the flags declare present.
func (c *Chunk) OpStringPush(a uint8, flags StringFormatFlags, minWidth, precision uint32, fill rune) int {
	at := len(c.Bytes)
	c.push(byte(OpStringPush), a, byte(flags))
	if flags&FormatHasMinWidth != 0 {
		c.pushVar(minWidth)
	}
	if flags&FormatHasPrecision != 0 {
		c.pushVar(precision)
	}
	if flags&FormatHasFill != 0 {
		c.push(byte(fill))
	}
	return at
}
