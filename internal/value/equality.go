package value

// StructuralEqual implements the built-in `==`/`!=` fallback: any two
// values with the same structural shape compare equal (§4.4.5 rule 4).
// It does not consult meta-maps or Object hooks; the VM tries those
// first and falls back to this only when neither side overrides `==`.
func StructuralEqual(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		if a.Tag == Int && b.Tag == Int {
			return a.AsInt() == b.AsInt()
		}
		return a.AsF64() == b.AsF64()
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case Null:
		return true
	case Bool:
		return a.AsBool() == b.AsBool()
	case StrTag:
		return a.Str().String() == b.Str().String()
	case RangeTag:
		return a.Range().Equal(b.Range())
	case ListTag:
		return equalSlice(a.List().Elements, b.List().Elements)
	case TupleTag:
		return equalSlice(a.Tuple().Elements, b.Tuple().Elements)
	case MapTag:
		return equalMap(a.Map(), b.Map())
	default:
		// Function/NativeFunction/Iterator/Object/TempTuple have no
		// structural shape to compare; this fallback reports them unequal,
		// even a value compared with itself.
		return false
	}
}

func equalSlice(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !StructuralEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalMap(a, b *Map) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.order {
		ea := a.entries[k]
		eb, ok := b.entries[k]
		if !ok || !StructuralEqual(ea.Value, eb.Value) {
			return false
		}
	}
	return true
}

// DeepCopy recursively copies a value so no mutable container is shared
// with the original (§8 deep_copy idempotence). Host Objects delegate to
// their own DeepCopy hook.
func DeepCopy(v Value) Value {
	switch v.Tag {
	case ListTag:
		return ListVal(v.List().DeepCopy())
	case TupleTag:
		return TupleVal(v.Tuple().DeepCopy())
	case MapTag:
		return MapVal(v.Map().DeepCopy())
	case StrTag:
		return StrVal(NewStr(v.Str().String()))
	case ObjectTag:
		return ObjectVal(v.Object().DeepCopy())
	default:
		return v
	}
}

// ShallowCopy implements `.copy()`: containers get a fresh identity but
// share element values; Objects delegate to their Copy hook.
func ShallowCopy(v Value) Value {
	switch v.Tag {
	case ListTag:
		return ListVal(v.List().Copy())
	case MapTag:
		return MapVal(v.Map().Copy())
	case ObjectTag:
		return ObjectVal(v.Object().Copy())
	default:
		return v
	}
}
