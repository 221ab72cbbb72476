package exec

import "github.com/kotoscript/koto/internal/value"

// access implements `.field` resolution (§4.4.6 rule 1): a Map's own
// entries, then its meta-map's named user fields, then the ambient core
// library for the value's type, then an Object's Lookupable hook.
func (vm *VM) access(recv value.Value, key string) (value.Value, error) {
	if recv.Tag == value.MapTag {
		if v, ok := recv.Map().GetWithMeta(key); ok {
			return v, nil
		}
	}
	if fn, ok := vm.prelude.Lookup(recv.Tag, key); ok {
		return vm.bindMethod(fn, recv), nil
	}
	if recv.Tag == value.ObjectTag {
		if lk, ok := recv.Object().(value.Lookupable); ok {
			if v, ok := lk.Lookup(key); ok {
				return v, nil
			}
		}
	}
	return value.Value{}, value.AccessNotSupported(recv.TypeName(), key)
}

// bindMethod wraps a NativeFunction with its receiver pre-bound as
// instance, so `list.push(x)` reads the same as a normal call once Access
// has produced the bound function value.
func (vm *VM) bindMethod(fn value.NativeFunction, recv value.Value) value.Value {
	bound := recv
	return value.NativeFunctionVal(func(ctx value.CallContext, args []value.Value, instance *value.Value) (value.Value, error) {
		return fn(ctx, args, &bound)
	})
}

// indexValue implements `[]` indexing (§4.4.6 rule 2): List/Tuple/Str by
// position, Map by key, Range membership-as-bool is not indexable (ranges
// are only iterated), Object via Indexable.
func (vm *VM) indexValue(recv, idx value.Value) (value.Value, error) {
	switch recv.Tag {
	case value.ListTag:
		i, err := requireIndexInt(idx)
		if err != nil {
			return value.Value{}, err
		}
		return recv.List().Get(i)
	case value.TupleTag:
		i, err := requireIndexInt(idx)
		if err != nil {
			return value.Value{}, err
		}
		return recv.Tuple().Get(i)
	case value.StrTag:
		i, err := requireIndexInt(idx)
		if err != nil {
			return value.Value{}, err
		}
		graphemes := recv.Str().Graphemes()
		n := normalizeIdx(i, len(graphemes))
		if n < 0 || n >= len(graphemes) {
			return value.Value{}, value.IndexOutOfBounds(int(i), len(graphemes))
		}
		return value.StrVal(value.NewStr(graphemes[n])), nil
	case value.MapTag:
		v, ok, err := recv.Map().Get(idx)
		if err != nil {
			return value.Value{}, err
		}
		if !ok {
			return value.Value{}, value.UnknownKey(displayOrType(idx))
		}
		return v, nil
	case value.TempTupleTag:
		return value.Value{}, value.UnsupportedOp("[]", recv.TypeName(), idx.TypeName())
	case value.ObjectTag:
		if ix, ok := recv.Object().(value.Indexable); ok {
			return ix.Index(idx)
		}
	}
	return value.Value{}, value.UnsupportedOp("[]", recv.TypeName(), idx.TypeName())
}

func requireIndexInt(idx value.Value) (int64, error) {
	if idx.Tag != value.Int {
		return 0, value.UnsupportedOp("[]", "Int", idx.TypeName())
	}
	return idx.AsInt(), nil
}

func normalizeIdx(i int64, size int) int {
	if i < 0 {
		return size + int(i)
	}
	return int(i)
}

func displayOrType(v value.Value) string {
	if v.Tag == value.StrTag {
		return v.Str().String()
	}
	return v.TypeName()
}

// setIndexValue implements `x[i] = v` for the mutable container types.
func (vm *VM) setIndexValue(recv, idx, val value.Value) error {
	switch recv.Tag {
	case value.ListTag:
		i, err := requireIndexInt(idx)
		if err != nil {
			return err
		}
		return recv.List().Set(i, val)
	case value.MapTag:
		return recv.Map().Insert(idx, val)
	}
	return value.UnsupportedOp("[]=", recv.TypeName(), idx.TypeName())
}

// sliceFrom/sliceTo implement the positional-pattern rest-capture and
// general slicing opcodes (§4.4.6).
func (vm *VM) sliceFrom(recv value.Value, start int) (value.Value, error) {
	switch recv.Tag {
	case value.ListTag:
		l, err := recv.List().Slice(int64(start), int64(recv.List().Len()))
		if err != nil {
			return value.Value{}, err
		}
		return value.ListVal(l), nil
	case value.TupleTag:
		t, err := recv.Tuple().Slice(int64(start), int64(recv.Tuple().Len()))
		if err != nil {
			return value.Value{}, err
		}
		return value.TupleVal(t), nil
	}
	return value.Value{}, value.UnsupportedOp("slice", recv.TypeName(), "")
}

func (vm *VM) sliceTo(recv value.Value, end int) (value.Value, error) {
	switch recv.Tag {
	case value.ListTag:
		l, err := recv.List().Slice(0, int64(end))
		if err != nil {
			return value.Value{}, err
		}
		return value.ListVal(l), nil
	case value.TupleTag:
		t, err := recv.Tuple().Slice(0, int64(end))
		if err != nil {
			return value.Value{}, err
		}
		return value.TupleVal(t), nil
	}
	return value.Value{}, value.UnsupportedOp("slice", recv.TypeName(), "")
}
