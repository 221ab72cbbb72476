package bytecode

// Reader is a streaming decoder over a Chunk's bytes. It never panics on
// truncated input; Next returns ErrOutOfBounds wrapped in a *DecodeError
// instead (§4.3.3).
type Reader struct {
	Chunk *Chunk
	IP    int
}

func NewReader(c *Chunk, ip int) *Reader { return &Reader{Chunk: c, IP: ip} }

func (r *Reader) byte() (byte, error) {
	if r.IP >= len(r.Chunk.Bytes) {
		return 0, &DecodeError{Offset: r.IP, Err: ErrOutOfBounds}
	}
	b := r.Chunk.Bytes[r.IP]
	r.IP++
	return b, nil
}

func (r *Reader) bytes(n int) ([]byte, error) {
	if r.IP+n > len(r.Chunk.Bytes) {
		return nil, &DecodeError{Offset: r.IP, Err: ErrOutOfBounds}
	}
	b := r.Chunk.Bytes[r.IP : r.IP+n]
	r.IP += n
	return b, nil
}

func (r *Reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

func (r *Reader) offset() (int32, error) {
	u, err := r.u16()
	if err != nil {
		return 0, err
	}
	return int32(int16(u)), nil
}

func (r *Reader) varU32() (uint32, error) {
	v, n, err := ReadVarU32(r.Chunk.Bytes, r.IP)
	if err != nil {
		return 0, &DecodeError{Offset: r.IP, Err: err}
	}
	r.IP += n
	return v, nil
}

// Next decodes one instruction starting at the reader's current IP,
// advances IP past it, and returns the decoded form.
func (r *Reader) Next() (Instruction, error) {
	at := r.IP
	opByte, err := r.byte()
	if err != nil {
		return Instruction{}, err
	}
	op := Op(opByte)
	if op >= opCount {
		return Instruction{}, &DecodeError{Offset: at, Err: ErrUnknownOpcode}
	}
	ins := Instruction{Op: op, At: at}

	var e error
	switch op {
	case OpNewFrame:
		ins.A, e = r.byte()

	case OpCopy, OpTempTupleToTuple, OpNegate, OpNot, OpMakeIterator,
		OpSize, OpIterUnpack:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}

	case OpSetNull, OpSetFalse, OpSetTrue, OpSet0, OpSet1,
		OpStringFinish, OpImport, OpImportAll, OpReturn, OpYield, OpThrow,
		OpSequenceToList, OpSequenceToTuple:
		ins.A, e = r.byte()

	case OpSetNumberU8, OpSetNumberNegU8:
		ins.A, e = r.byte()
		if e == nil {
			ins.N, e = r.byte()
		}

	case OpLoadFloat, OpLoadInt, OpLoadString, OpLoadNonLocal, OpAccess:
		ins.A, e = r.byte()
		if e == nil {
			ins.Const, e = r.varU32()
		}

	case OpTryAccess:
		ins.A, e = r.byte()
		if e == nil {
			ins.Const, e = r.varU32()
		}
		if e == nil {
			ins.Offset, e = r.offset()
		}

	case OpMakeTempTuple, OpSequencePushN:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}
		if e == nil {
			ins.N, e = r.byte()
		}

	case OpMakeMap:
		ins.A, e = r.byte()
		if e == nil {
			ins.SizeHint, e = r.varU32()
		}

	case OpSequenceStart:
		ins.SizeHint, e = r.varU32()

	case OpStringStart:
		ins.SizeHint, e = r.varU32()

	case OpSequencePush:
		ins.A, e = r.byte()

	case OpStringPush:
		ins.A, e = r.byte()
		if e != nil {
			break
		}
		var flagByte byte
		flagByte, e = r.byte()
		if e != nil {
			break
		}
		ins.FormatFlags = StringFormatFlags(flagByte)
		if ins.FormatFlags&FormatHasMinWidth != 0 {
			ins.MinWidth, e = r.varU32()
			if e != nil {
				break
			}
		}
		if ins.FormatFlags&FormatHasPrecision != 0 {
			ins.Precision, e = r.varU32()
			if e != nil {
				break
			}
		}
		if ins.FormatFlags&FormatHasFill != 0 {
			var fb byte
			fb, e = r.byte()
			ins.FillChar = rune(fb)
		}

	case OpRange, OpRangeInclusive:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}
		if e == nil {
			ins.C, e = r.byte()
		}

	case OpRangeTo, OpRangeToInclusive, OpRangeFrom:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}

	case OpRangeFull:
		ins.A, e = r.byte()

	case OpFunction:
		ins.A, e = r.byte()
		if e == nil {
			ins.ArgCount, e = r.byte()
		}
		if e == nil {
			ins.CaptureCount, e = r.byte()
		}
		if e == nil {
			var fb byte
			fb, e = r.byte()
			ins.Flags = FunctionFlags(fb)
		}
		if e == nil && !ins.Flags.Valid() {
			return Instruction{}, &DecodeError{Offset: at, Err: ErrInvalidFlags}
		}
		if e == nil {
			var size uint16
			size, e = r.u16()
			if e == nil {
				ins.Body, e = r.bytes(int(size))
			}
		}

	case OpCapture:
		ins.A, e = r.byte()
		if e == nil {
			ins.N, e = r.byte()
		}
		if e == nil {
			ins.B, e = r.byte()
		}

	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpRemainder,
		OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual, OpEqual, OpNotEqual,
		OpAccessString, OpIndex, OpIndexMut, OpSetIndex, OpMapInsert,
		OpMetaInsert:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}
		if e == nil {
			ins.C, e = r.byte()
		}

	case OpAddAssign, OpSubtractAssign, OpMultiplyAssign, OpDivideAssign, OpRemainderAssign,
		OpExportValue, OpExportEntry:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}

	case OpTryAccessString:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}
		if e == nil {
			ins.C, e = r.byte()
		}
		if e == nil {
			ins.Offset, e = r.offset()
		}

	case OpSliceFrom, OpSliceTo, OpTempIndex:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}
		if e == nil {
			ins.N, e = r.byte()
		}

	case OpAccessAssign:
		ins.A, e = r.byte()
		if e == nil {
			ins.Const, e = r.varU32()
		}
		if e == nil {
			ins.B, e = r.byte()
		}

	case OpJump:
		ins.Offset, e = r.offset()

	case OpJumpBack:
		ins.Offset, e = r.offset()

	case OpJumpIfTrue, OpJumpIfFalse, OpJumpIfNull:
		ins.A, e = r.byte()
		if e == nil {
			ins.Offset, e = r.offset()
		}

	case OpCall:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}
		if e == nil {
			ins.C, e = r.byte()
		}
		if e == nil {
			ins.ArgCount, e = r.byte()
		}
		if e == nil {
			ins.PackedArgCount, e = r.byte()
		}

	case OpCallInstance:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}
		if e == nil {
			ins.C, e = r.byte()
		}
		if e == nil {
			ins.ArgCount, e = r.byte()
		}
		if e == nil {
			ins.PackedArgCount, e = r.byte()
		}
		if e == nil {
			ins.N, e = r.byte() // instance register
		}

	case OpIterNext, OpIterNextTemp:
		ins.A, e = r.byte()
		if e == nil {
			ins.B, e = r.byte()
		}
		if e == nil {
			ins.Offset, e = r.offset()
		}

	case OpIterNextQuiet:
		ins.A, e = r.byte()
		if e == nil {
			ins.Offset, e = r.offset()
		}

	case OpMetaInsertNamed:
		ins.A, e = r.byte()
		if e == nil {
			ins.Const, e = r.varU32()
		}
		if e == nil {
			ins.B, e = r.byte()
		}
		if e == nil {
			ins.C, e = r.byte()
		}

	case OpMetaExport:
		ins.Const, e = r.varU32()
		if e == nil {
			ins.A, e = r.byte()
		}

	case OpMetaExportNamed:
		ins.Const, e = r.varU32()
		if e == nil {
			ins.A, e = r.byte()
		}
		if e == nil {
			ins.B, e = r.byte()
		}

	case OpTryStart:
		ins.A, e = r.byte()
		if e == nil {
			ins.Offset, e = r.offset()
		}

	case OpTryEnd, OpReturnImplicitNull:
		// no operands

	case OpAssertType:
		ins.A, e = r.byte()
		if e == nil {
			ins.Const, e = r.varU32()
		}

	case OpCheckType:
		ins.A, e = r.byte()
		if e == nil {
			ins.Const, e = r.varU32()
		}
		if e == nil {
			ins.Offset, e = r.offset()
		}

	case OpCheckSizeEqual, OpCheckSizeMin:
		ins.A, e = r.byte()
		if e == nil {
			ins.N, e = r.byte()
		}

	case OpDebug:
		ins.A, e = r.byte()
		if e == nil {
			ins.Const, e = r.varU32()
		}

	default:
		return Instruction{}, &DecodeError{Offset: at, Err: ErrUnknownOpcode}
	}

	if e != nil {
		return Instruction{}, e
	}
	return ins, nil
}

// AtEnd reports whether the reader has consumed the whole chunk.
func (r *Reader) AtEnd() bool { return r.IP >= len(r.Chunk.Bytes) }
