package exec

import (
	"fmt"

	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/value"
)

// step decodes and runs one instruction from fr, returning (result, true,
// nil) on Return/ReturnImplicitNull, (_, false, nil) to keep looping, or an
// error for execFrame's try/catch unwind to handle.
func (vm *VM) step(fr *frame) (value.Value, bool, error) {
	r := bytecode.NewReader(fr.chunk, fr.ip)
	ins, err := r.Next()
	if err != nil {
		return value.Value{}, false, err
	}
	fr.ip = r.IP
	vm.traceInstr(fr, ins)

	switch ins.Op {
	case bytecode.OpCopy:
		vm.setReg(fr, ins.A, vm.reg(fr, ins.B))

	case bytecode.OpSetNull:
		vm.setReg(fr, ins.A, value.NullVal())
	case bytecode.OpSetFalse:
		vm.setReg(fr, ins.A, value.BoolVal(false))
	case bytecode.OpSetTrue:
		vm.setReg(fr, ins.A, value.BoolVal(true))
	case bytecode.OpSet0:
		vm.setReg(fr, ins.A, value.IntVal(0))
	case bytecode.OpSet1:
		vm.setReg(fr, ins.A, value.IntVal(1))
	case bytecode.OpSetNumberU8:
		vm.setReg(fr, ins.A, value.IntVal(int64(ins.N)))
	case bytecode.OpSetNumberNegU8:
		vm.setReg(fr, ins.A, value.IntVal(-int64(ins.N)))

	case bytecode.OpLoadFloat:
		vm.setReg(fr, ins.A, value.FloatVal(fr.chunk.Constants.Floats[ins.Const]))
	case bytecode.OpLoadInt:
		vm.setReg(fr, ins.A, value.IntVal(fr.chunk.Constants.Ints[ins.Const]))
	case bytecode.OpLoadString:
		vm.setReg(fr, ins.A, value.StrVal(value.NewStr(fr.chunk.Constants.Strings[ins.Const])))
	case bytecode.OpLoadNonLocal:
		name := fr.chunk.Constants.Strings[ins.Const]
		if vm.exports != nil {
			if v, ok, _ := vm.exports.Get(value.StrVal(value.NewStr(name))); ok {
				vm.setReg(fr, ins.A, v)
				break
			}
		}
		return value.Value{}, false, value.UnknownKey(name)

	case bytecode.OpMakeTempTuple:
		vm.setReg(fr, ins.A, value.TempTupleVal(ins.B, ins.N))
	case bytecode.OpTempTupleToTuple:
		tt := vm.reg(fr, ins.B).TempTuple()
		elems := make([]value.Value, tt.Count)
		for i := range elems {
			elems[i] = vm.reg(fr, tt.Start+uint8(i))
		}
		vm.setReg(fr, ins.A, value.TupleVal(value.NewTuple(elems...)))

	case bytecode.OpMakeMap:
		vm.setReg(fr, ins.A, value.MapVal(value.NewMap()))

	case bytecode.OpMakeIterator:
		it, err := vm.MakeIterator(vm.reg(fr, ins.B))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, value.IteratorVal(it))

	case bytecode.OpSequenceStart:
		vm.seqStack = append(vm.seqStack, seqBuilder{})
	case bytecode.OpSequencePush:
		top := len(vm.seqStack) - 1
		vm.seqStack[top].elems = append(vm.seqStack[top].elems, vm.reg(fr, ins.A))
	case bytecode.OpSequencePushN:
		top := len(vm.seqStack) - 1
		for i := uint8(0); i < ins.N; i++ {
			vm.seqStack[top].elems = append(vm.seqStack[top].elems, vm.reg(fr, ins.B+i))
		}
	case bytecode.OpSequenceToList:
		top := len(vm.seqStack) - 1
		b := vm.seqStack[top]
		vm.seqStack = vm.seqStack[:top]
		vm.setReg(fr, ins.A, value.ListVal(value.NewList(b.elems...)))
	case bytecode.OpSequenceToTuple:
		top := len(vm.seqStack) - 1
		b := vm.seqStack[top]
		vm.seqStack = vm.seqStack[:top]
		vm.setReg(fr, ins.A, value.TupleVal(value.NewTuple(b.elems...)))

	case bytecode.OpStringStart:
		vm.strStack = append(vm.strStack, strBuilder{})
	case bytecode.OpStringPush:
		s, err := vm.formatPush(fr, ins)
		if err != nil {
			return value.Value{}, false, err
		}
		top := len(vm.strStack) - 1
		vm.strStack[top].parts = append(vm.strStack[top].parts, s)
	case bytecode.OpStringFinish:
		top := len(vm.strStack) - 1
		b := vm.strStack[top]
		vm.strStack = vm.strStack[:top]
		joined := ""
		for _, p := range b.parts {
			joined += p
		}
		vm.setReg(fr, ins.A, value.StrVal(value.NewStr(joined)))

	case bytecode.OpRange:
		vm.setReg(fr, ins.A, value.RangeVal(value.NewRange(vm.reg(fr, ins.B).AsInt(), vm.reg(fr, ins.C).AsInt(), false)))
	case bytecode.OpRangeInclusive:
		vm.setReg(fr, ins.A, value.RangeVal(value.NewRange(vm.reg(fr, ins.B).AsInt(), vm.reg(fr, ins.C).AsInt(), true)))
	case bytecode.OpRangeTo:
		vm.setReg(fr, ins.A, value.RangeVal(value.NewRangeTo(vm.reg(fr, ins.B).AsInt(), false)))
	case bytecode.OpRangeToInclusive:
		vm.setReg(fr, ins.A, value.RangeVal(value.NewRangeTo(vm.reg(fr, ins.B).AsInt(), true)))
	case bytecode.OpRangeFrom:
		vm.setReg(fr, ins.A, value.RangeVal(value.NewRangeFrom(vm.reg(fr, ins.B).AsInt())))
	case bytecode.OpRangeFull:
		vm.setReg(fr, ins.A, value.RangeVal(value.NewRangeFull()))

	case bytecode.OpFunction:
		child, ok := fr.chunk.Functions[ins.At]
		if !ok {
			return value.Value{}, false, &bytecode.DecodeError{Offset: ins.At, Err: bytecode.ErrMalformed}
		}
		fn := &value.Function{
			Chunk:    child,
			ArgCount: ins.ArgCount,
			Flags:    ins.Flags,
			Captures: make([]value.Value, ins.CaptureCount),
		}
		vm.setReg(fr, ins.A, value.FunctionVal(fn))
	case bytecode.OpCapture:
		fn := vm.reg(fr, ins.A).Function()
		fn.Captures[ins.N] = vm.reg(fr, ins.B)

	case bytecode.OpNegate:
		v, err := vm.runUnary(value.MetaNegate, vm.reg(fr, ins.B))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)
	case bytecode.OpNot:
		v, err := vm.runUnary(value.MetaNot, vm.reg(fr, ins.B))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)

	case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide, bytecode.OpRemainder,
		bytecode.OpLess, bytecode.OpLessOrEqual, bytecode.OpGreater, bytecode.OpGreaterOrEqual,
		bytecode.OpEqual, bytecode.OpNotEqual:
		key := binMetaKey(ins.Op)
		v, err := vm.runBinary(key, vm.reg(fr, ins.B), vm.reg(fr, ins.C))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)

	case bytecode.OpAddAssign, bytecode.OpSubtractAssign, bytecode.OpMultiplyAssign,
		bytecode.OpDivideAssign, bytecode.OpRemainderAssign:
		key := compoundMetaKey(ins.Op)
		v, err := vm.runBinary(key, vm.reg(fr, ins.A), vm.reg(fr, ins.B))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)

	case bytecode.OpJump:
		fr.ip += int(ins.Offset)
	case bytecode.OpJumpBack:
		fr.ip -= int(ins.Offset)
	case bytecode.OpJumpIfTrue:
		if vm.reg(fr, ins.A).IsTruthy() {
			fr.ip += int(ins.Offset)
		}
	case bytecode.OpJumpIfFalse:
		if !vm.reg(fr, ins.A).IsTruthy() {
			fr.ip += int(ins.Offset)
		}
	case bytecode.OpJumpIfNull:
		if vm.reg(fr, ins.A).IsNull() {
			fr.ip += int(ins.Offset)
		}

	case bytecode.OpCall:
		result, err := vm.dispatchCall(fr, ins, nil)
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, result)
	case bytecode.OpCallInstance:
		inst := vm.reg(fr, ins.N)
		result, err := vm.dispatchCall(fr, ins, &inst)
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, result)

	case bytecode.OpReturn:
		return vm.reg(fr, ins.A), true, nil
	case bytecode.OpReturnImplicitNull:
		return value.NullVal(), true, nil
	case bytecode.OpYield:
		return vm.yield(fr, vm.reg(fr, ins.A))
	case bytecode.OpThrow:
		return value.Value{}, false, &ThrownError{Value: vm.reg(fr, ins.A)}

	case bytecode.OpAccess:
		name := fr.chunk.Constants.Strings[ins.Const]
		v, err := vm.access(vm.reg(fr, ins.A), name)
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)
	case bytecode.OpTryAccess:
		name := fr.chunk.Constants.Strings[ins.Const]
		v, err := vm.access(vm.reg(fr, ins.A), name)
		if err != nil {
			fr.ip += int(ins.Offset)
			break
		}
		vm.setReg(fr, ins.A, v)
	case bytecode.OpAccessString:
		name := vm.reg(fr, ins.C)
		if name.Tag != value.StrTag {
			return value.Value{}, false, value.UnsupportedOp(".", name.TypeName(), "")
		}
		v, err := vm.access(vm.reg(fr, ins.B), name.Str().String())
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)
	case bytecode.OpTryAccessString:
		name := vm.reg(fr, ins.C)
		if name.Tag != value.StrTag {
			return value.Value{}, false, value.UnsupportedOp(".", name.TypeName(), "")
		}
		v, err := vm.access(vm.reg(fr, ins.B), name.Str().String())
		if err != nil {
			fr.ip += int(ins.Offset)
			break
		}
		vm.setReg(fr, ins.A, v)

	case bytecode.OpIndex:
		v, err := vm.indexValue(vm.reg(fr, ins.B), vm.reg(fr, ins.C))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)
	case bytecode.OpIndexMut:
		v, err := vm.indexValue(vm.reg(fr, ins.B), vm.reg(fr, ins.C))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)

	case bytecode.OpSliceFrom:
		v, err := vm.sliceFrom(vm.reg(fr, ins.B), int(ins.N))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)
	case bytecode.OpSliceTo:
		v, err := vm.sliceTo(vm.reg(fr, ins.B), int(ins.N))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, v)
	case bytecode.OpTempIndex:
		tt := vm.reg(fr, ins.B).TempTuple()
		if int(ins.N) >= int(tt.Count) {
			return value.Value{}, false, value.IndexOutOfBounds(int(ins.N), int(tt.Count))
		}
		vm.setReg(fr, ins.A, vm.reg(fr, tt.Start+ins.N))

	case bytecode.OpAccessAssign:
		name := fr.chunk.Constants.Strings[ins.Const]
		if err := vm.setField(vm.reg(fr, ins.A), name, vm.reg(fr, ins.B)); err != nil {
			return value.Value{}, false, err
		}
	case bytecode.OpSize:
		n, err := vm.sizeOf(vm.reg(fr, ins.B))
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, value.IntVal(int64(n)))
	case bytecode.OpSetIndex:
		if err := vm.setIndexValue(vm.reg(fr, ins.A), vm.reg(fr, ins.C), vm.reg(fr, ins.B)); err != nil {
			return value.Value{}, false, err
		}
	case bytecode.OpMapInsert:
		if err := vm.reg(fr, ins.A).Map().Insert(vm.reg(fr, ins.B), vm.reg(fr, ins.C)); err != nil {
			return value.Value{}, false, err
		}

	case bytecode.OpIterNext:
		res := vm.reg(fr, ins.B).Iterator().Next()
		if res.Done {
			fr.ip += int(ins.Offset)
			break
		}
		if res.Err != nil {
			return value.Value{}, false, res.Err
		}
		vm.setReg(fr, ins.A, iterResultValue(res))
	case bytecode.OpIterNextTemp:
		res := vm.reg(fr, ins.B).Iterator().Next()
		if res.Done {
			fr.ip += int(ins.Offset)
			break
		}
		if res.Err != nil {
			return value.Value{}, false, res.Err
		}
		vm.setReg(fr, ins.A, iterResultValue(res))
	case bytecode.OpIterNextQuiet:
		res := vm.reg(fr, ins.A).Iterator().Next()
		if res.Done {
			fr.ip += int(ins.Offset)
			break
		}
		if res.Err != nil {
			return value.Value{}, false, res.Err
		}
	case bytecode.OpIterUnpack:
		res := vm.reg(fr, ins.B).Iterator().Next()
		if res.Done {
			vm.setReg(fr, ins.A, value.NullVal())
			break
		}
		if res.Err != nil {
			return value.Value{}, false, res.Err
		}
		vm.setReg(fr, ins.A, iterResultValue(res))

	case bytecode.OpMetaInsert:
		m := vm.reg(fr, ins.A).Map()
		key := value.MetaKey(vm.reg(fr, ins.B).AsInt())
		if m.Meta == nil {
			m.Meta = value.NewMetaMap()
		}
		m.Meta.Insert(key, vm.reg(fr, ins.C))
	case bytecode.OpMetaInsertNamed:
		m := vm.reg(fr, ins.A).Map()
		key := value.MetaKey(vm.reg(fr, ins.B).AsInt())
		name := fr.chunk.Constants.Strings[ins.Const]
		if m.Meta == nil {
			m.Meta = value.NewMetaMap()
		}
		m.Meta.InsertNamed(key, name, vm.reg(fr, ins.C))
	case bytecode.OpMetaExport:
		// Never emitted by the compiler; Const holds a raw MetaKey baked in
		// at compile time, A the value register, exported into vm.exports'
		// meta-map under that key.
		if vm.exports.Meta == nil {
			vm.exports.Meta = value.NewMetaMap()
		}
		vm.exports.Meta.Insert(value.MetaKey(ins.Const), vm.reg(fr, ins.A))
	case bytecode.OpMetaExportNamed:
		if vm.exports.Meta == nil {
			vm.exports.Meta = value.NewMetaMap()
		}
		name := vm.reg(fr, ins.B)
		if name.Tag == value.StrTag {
			vm.exports.Meta.InsertNamed(value.MetaKey(ins.Const), name.Str().String(), vm.reg(fr, ins.A))
		}

	case bytecode.OpImport, bytecode.OpImportAll:
		name := vm.reg(fr, ins.A)
		if name.Tag != value.StrTag {
			return value.Value{}, false, value.UnsupportedOp("import", name.TypeName(), "")
		}
		if vm.resolver == nil {
			return value.Value{}, false, value.ImportNotFound(name.Str().String())
		}
		m, err := vm.resolver.Resolve(name.Str().String())
		if err != nil {
			return value.Value{}, false, err
		}
		vm.setReg(fr, ins.A, value.MapVal(m))
	case bytecode.OpExportValue, bytecode.OpExportEntry:
		name := vm.reg(fr, ins.A)
		if name.Tag != value.StrTag {
			return value.Value{}, false, value.UnsupportedOp("export", name.TypeName(), "")
		}
		if err := vm.exports.Insert(value.StrVal(name.Str()), vm.reg(fr, ins.B)); err != nil {
			return value.Value{}, false, err
		}

	case bytecode.OpTryStart:
		fr.catches = append(fr.catches, catchHandler{targetIP: fr.ip + int(ins.Offset), errReg: ins.A})
	case bytecode.OpTryEnd:
		if len(fr.catches) > 0 {
			fr.catches = fr.catches[:len(fr.catches)-1]
		}

	case bytecode.OpAssertType:
		v := vm.reg(fr, ins.A)
		want := fr.chunk.Constants.Strings[ins.Const]
		if v.TypeName() != want {
			return value.Value{}, false, value.TypeAssertionFailed(want, v.TypeName())
		}
	case bytecode.OpCheckType:
		v := vm.reg(fr, ins.A)
		want := fr.chunk.Constants.Strings[ins.Const]
		if v.TypeName() != want {
			fr.ip += int(ins.Offset)
		}
	case bytecode.OpCheckSizeEqual:
		n, err := vm.sizeOf(vm.reg(fr, ins.A))
		if err != nil {
			return value.Value{}, false, err
		}
		if n != int(ins.N) {
			return value.Value{}, false, value.TypeAssertionFailed(fmt.Sprintf("size %d", ins.N), fmt.Sprintf("size %d", n))
		}
	case bytecode.OpCheckSizeMin:
		n, err := vm.sizeOf(vm.reg(fr, ins.A))
		if err != nil {
			return value.Value{}, false, err
		}
		if n < int(ins.N) {
			return value.Value{}, false, value.TypeAssertionFailed(fmt.Sprintf("size >= %d", ins.N), fmt.Sprintf("size %d", n))
		}

	case bytecode.OpDebug:
		text := fr.chunk.Constants.Strings[ins.Const]
		s, err := vm.displayValue(vm.reg(fr, ins.A))
		if err != nil {
			return value.Value{}, false, err
		}
		fmt.Fprintf(vm.out, "[%s] %s\n", text, s)

	default:
		return value.Value{}, false, &bytecode.DecodeError{Offset: ins.At, Err: bytecode.ErrUnknownOpcode}
	}

	return value.Value{}, false, nil
}

func iterResultValue(r value.IterResult) value.Value {
	if r.Kind == value.IterPair {
		return value.TupleVal(value.NewTuple(r.Key, r.Value))
	}
	return r.Value
}

func binMetaKey(op bytecode.Op) value.MetaKey {
	switch op {
	case bytecode.OpAdd:
		return value.MetaAdd
	case bytecode.OpSubtract:
		return value.MetaSubtract
	case bytecode.OpMultiply:
		return value.MetaMultiply
	case bytecode.OpDivide:
		return value.MetaDivide
	case bytecode.OpRemainder:
		return value.MetaRemainder
	case bytecode.OpLess:
		return value.MetaLess
	case bytecode.OpLessOrEqual:
		return value.MetaLessOrEqual
	case bytecode.OpGreater:
		return value.MetaGreater
	case bytecode.OpGreaterOrEqual:
		return value.MetaGreaterOrEqual
	case bytecode.OpEqual:
		return value.MetaEqual
	default: // OpNotEqual
		return value.MetaNotEqual
	}
}

func compoundMetaKey(op bytecode.Op) value.MetaKey {
	switch op {
	case bytecode.OpAddAssign:
		return value.MetaAdd
	case bytecode.OpSubtractAssign:
		return value.MetaSubtract
	case bytecode.OpMultiplyAssign:
		return value.MetaMultiply
	case bytecode.OpDivideAssign:
		return value.MetaDivide
	default: // OpRemainderAssign
		return value.MetaRemainder
	}
}

// dispatchCall gathers OpCall/OpCallInstance's contiguous argument registers
// (spreading the last one if PackedArgCount is set) and dispatches to
// callValue (§4.4.4, §6.3).
func (vm *VM) dispatchCall(fr *frame, ins bytecode.Instruction, instance *value.Value) (value.Value, error) {
	fn := vm.reg(fr, ins.B)
	n := int(ins.ArgCount)
	args := make([]value.Value, 0, n)
	for i := 0; i < n; i++ {
		reg := ins.C + uint8(i)
		v := vm.reg(fr, reg)
		if ins.PackedArgCount == 1 && i == n-1 {
			spread, err := spreadArgs(v)
			if err != nil {
				return value.Value{}, err
			}
			args = append(args, spread...)
			continue
		}
		args = append(args, v)
	}
	return vm.callValue(fn, args, instance)
}

func spreadArgs(v value.Value) ([]value.Value, error) {
	switch v.Tag {
	case value.ListTag:
		return append([]value.Value{}, v.List().Elements...), nil
	case value.TupleTag:
		return append([]value.Value{}, v.Tuple().Elements...), nil
	}
	return nil, value.UnsupportedOp("spread", v.TypeName(), "")
}
