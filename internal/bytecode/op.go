// Package bytecode implements the Koto instruction set: the opcode table,
// the variable-width operand encoding, the Chunk container, and the
// streaming decoder that turns a byte slice back into instructions.
package bytecode

// Op identifies a single instruction. Each op is followed by a fixed
// number of operand bytes, decoded by Reader according to the per-opcode
// switch in reader.go's Next.
type Op byte

const (
	// Frame / data-move
	OpNewFrame Op = iota
	OpCopy
	OpSetNull
	OpSetFalse
	OpSetTrue
	OpSet0
	OpSet1
	OpSetNumberU8
	OpSetNumberNegU8

	// Constant load
	OpLoadFloat
	OpLoadInt
	OpLoadString
	OpLoadNonLocal

	// Container builders
	OpMakeTempTuple
	OpTempTupleToTuple
	OpMakeMap
	OpMakeIterator
	OpSequenceStart
	OpSequencePush
	OpSequencePushN
	OpSequenceToList
	OpSequenceToTuple
	OpStringStart
	OpStringPush
	OpStringFinish
	OpRange
	OpRangeInclusive
	OpRangeTo
	OpRangeToInclusive
	OpRangeFrom
	OpRangeFull

	// Functions / iterators
	OpFunction
	OpCapture

	// Arithmetic / logic
	OpNegate
	OpNot
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpRemainder
	OpAddAssign
	OpSubtractAssign
	OpMultiplyAssign
	OpDivideAssign
	OpRemainderAssign
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpEqual
	OpNotEqual

	// Control flow
	OpJump
	OpJumpBack
	OpJumpIfTrue
	OpJumpIfFalse
	OpJumpIfNull

	// Calls
	OpCall
	OpCallInstance
	OpReturn
	OpYield
	OpThrow

	// Access / index
	OpAccess
	OpTryAccess
	OpAccessString
	OpTryAccessString
	OpIndex
	OpIndexMut
	OpSliceFrom
	OpSliceTo
	OpTempIndex
	OpAccessAssign
	OpSize
	OpSetIndex
	OpMapInsert

	// Iteration
	OpIterNext         // writes result, jumps forward on exhaustion
	OpIterNextTemp     // decoded and executed the same as IterNext
	OpIterNextQuiet    // discards result
	OpIterUnpack       // assigns Null instead of jumping when exhausted

	// Meta
	OpMetaInsert
	OpMetaInsertNamed
	OpMetaExport
	OpMetaExportNamed

	// Import / export
	OpImport
	OpImportAll
	OpExportValue
	OpExportEntry

	// Error flow
	OpTryStart
	OpTryEnd

	// Type assertions
	OpAssertType
	OpCheckType
	OpCheckSizeEqual
	OpCheckSizeMin

	// Debug
	OpDebug

	// Halt: not part of the spec's table but needed so the VM's top-level
	// dispatch loop has an explicit terminal instruction for MainBlocks
	// that fall off the end without an explicit Return.
	OpReturnImplicitNull

	opCount
)

// Names maps each Op to its disassembly mnemonic.
var Names = [opCount]string{
	OpNewFrame:           "NewFrame",
	OpCopy:                "Copy",
	OpSetNull:             "SetNull",
	OpSetFalse:            "SetFalse",
	OpSetTrue:             "SetTrue",
	OpSet0:                "Set0",
	OpSet1:                "Set1",
	OpSetNumberU8:         "SetNumberU8",
	OpSetNumberNegU8:      "SetNumberNegU8",
	OpLoadFloat:           "LoadFloat",
	OpLoadInt:             "LoadInt",
	OpLoadString:          "LoadString",
	OpLoadNonLocal:        "LoadNonLocal",
	OpMakeTempTuple:       "MakeTempTuple",
	OpTempTupleToTuple:    "TempTupleToTuple",
	OpMakeMap:             "MakeMap",
	OpMakeIterator:        "MakeIterator",
	OpSequenceStart:       "SequenceStart",
	OpSequencePush:        "SequencePush",
	OpSequencePushN:       "SequencePushN",
	OpSequenceToList:      "SequenceToList",
	OpSequenceToTuple:     "SequenceToTuple",
	OpStringStart:         "StringStart",
	OpStringPush:          "StringPush",
	OpStringFinish:        "StringFinish",
	OpRange:               "Range",
	OpRangeInclusive:      "RangeInclusive",
	OpRangeTo:             "RangeTo",
	OpRangeToInclusive:    "RangeToInclusive",
	OpRangeFrom:           "RangeFrom",
	OpRangeFull:           "RangeFull",
	OpFunction:            "Function",
	OpCapture:             "Capture",
	OpNegate:              "Negate",
	OpNot:                 "Not",
	OpAdd:                 "Add",
	OpSubtract:            "Subtract",
	OpMultiply:            "Multiply",
	OpDivide:              "Divide",
	OpRemainder:           "Remainder",
	OpAddAssign:           "AddAssign",
	OpSubtractAssign:      "SubtractAssign",
	OpMultiplyAssign:      "MultiplyAssign",
	OpDivideAssign:        "DivideAssign",
	OpRemainderAssign:     "RemainderAssign",
	OpLess:                "Less",
	OpLessOrEqual:         "LessOrEqual",
	OpGreater:             "Greater",
	OpGreaterOrEqual:      "GreaterOrEqual",
	OpEqual:               "Equal",
	OpNotEqual:            "NotEqual",
	OpJump:                "Jump",
	OpJumpBack:            "JumpBack",
	OpJumpIfTrue:          "JumpIfTrue",
	OpJumpIfFalse:         "JumpIfFalse",
	OpJumpIfNull:          "JumpIfNull",
	OpCall:                "Call",
	OpCallInstance:        "CallInstance",
	OpReturn:              "Return",
	OpYield:               "Yield",
	OpThrow:               "Throw",
	OpAccess:              "Access",
	OpTryAccess:           "TryAccess",
	OpAccessString:        "AccessString",
	OpTryAccessString:     "TryAccessString",
	OpIndex:               "Index",
	OpIndexMut:            "IndexMut",
	OpSliceFrom:           "SliceFrom",
	OpSliceTo:             "SliceTo",
	OpTempIndex:           "TempIndex",
	OpAccessAssign:        "AccessAssign",
	OpSize:                "Size",
	OpSetIndex:            "SetIndex",
	OpMapInsert:           "MapInsert",
	OpIterNext:            "IterNext",
	OpIterNextTemp:        "IterNextTemp",
	OpIterNextQuiet:       "IterNextQuiet",
	OpIterUnpack:          "IterUnpack",
	OpMetaInsert:          "MetaInsert",
	OpMetaInsertNamed:     "MetaInsertNamed",
	OpMetaExport:          "MetaExport",
	OpMetaExportNamed:     "MetaExportNamed",
	OpImport:              "Import",
	OpImportAll:           "ImportAll",
	OpExportValue:         "ExportValue",
	OpExportEntry:         "ExportEntry",
	OpTryStart:            "TryStart",
	OpTryEnd:              "TryEnd",
	OpAssertType:          "AssertType",
	OpCheckType:           "CheckType",
	OpCheckSizeEqual:      "CheckSizeEqual",
	OpCheckSizeMin:        "CheckSizeMin",
	OpDebug:               "Debug",
	OpReturnImplicitNull:  "ReturnImplicitNull",
}

func (op Op) String() string {
	if int(op) < len(Names) && Names[op] != "" {
		return Names[op]
	}
	return "UnknownOp"
}

// FunctionFlags is the bitfield carried by a Function instruction.
type FunctionFlags uint8

const (
	FuncVariadic FunctionFlags = 1 << iota
	FuncGenerator
	FuncArgIsUnpackedTuple
	FuncAccessesNonLocals

	funcFlagsDefined = FuncVariadic | FuncGenerator | FuncArgIsUnpackedTuple | FuncAccessesNonLocals
)

// Valid reports whether flags only sets the four defined bits; the decoder
// surfaces ErrInvalidFlags otherwise (§4.3.2).
func (f FunctionFlags) Valid() bool { return f&^funcFlagsDefined == 0 }

// StringFormatFlags controls how StringPush renders a value (§4.3.1).
type StringFormatFlags uint8

const (
	FormatHasMinWidth StringFormatFlags = 1 << iota
	FormatHasPrecision
	FormatHasFill
	FormatAlignLeft
	FormatAlignRight
	FormatAlignCenter
)
