package value

import "math"

// Tag discriminates the Value union's active variant (§3.1).
type Tag uint8

const (
	Null Tag = iota
	Bool
	Int
	Float
	RangeTag
	StrTag
	ListTag
	TupleTag
	MapTag
	FunctionTag
	NativeFunctionTag
	IteratorTag
	ObjectTag
	TempTupleTag
)

// Value is the tagged union every Koto register holds. Small variants
// (Null/Bool/Int/Float) live entirely in Num; everything reference-counted
// is reached through Ref. A Go interface header costs more than the
// source's hand-rolled Rust enum, so this lands at 32 bytes rather than
// the spec's 24-byte target on 64-bit platforms — see DESIGN.md.
type Value struct {
	Tag Tag
	Num uint64 // int64 bits, float64 bits, or 0/1 for Bool
	Ref any    // *Str, *List, *Tuple, *Map, *Function, NativeFunction, Iterator, Object, *Range, TempTuple
}

// TempTuple is the internal-only (register-start, count) shape used while
// unpacking without materializing a heap Tuple (§3.1, §4.3.1 MakeTempTuple).
type TempTuple struct {
	Start uint8
	Count uint8
}

func NullVal() Value          { return Value{Tag: Null} }
func BoolVal(b bool) Value    { var n uint64; if b { n = 1 }; return Value{Tag: Bool, Num: n} }
func IntVal(i int64) Value    { return Value{Tag: Int, Num: uint64(i)} }
func FloatVal(f float64) Value { return Value{Tag: Float, Num: math.Float64bits(f)} }

func (v Value) AsBool() bool     { return v.Num != 0 }
func (v Value) AsInt() int64     { return int64(v.Num) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.Num) }

func (v Value) IsNull() bool   { return v.Tag == Null }
func (v Value) IsNumber() bool { return v.Tag == Int || v.Tag == Float }

// AsF64 returns the numeric value widened to float64, for mixed-type
// arithmetic (§3.1: "arithmetic promotes to float if either side is float").
func (v Value) AsF64() float64 {
	if v.Tag == Int {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// IsTruthy implements Koto's truthiness: only Null and Bool(false) are
// falsy, matching the source's "falsy is null or false" rule.
func (v Value) IsTruthy() bool {
	switch v.Tag {
	case Null:
		return false
	case Bool:
		return v.AsBool()
	default:
		return true
	}
}

// TypeName returns the ambient type name used in error messages and by
// the `type` unary meta-op's default implementation.
func (v Value) TypeName() string {
	switch v.Tag {
	case Null:
		return "Null"
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case RangeTag:
		return "Range"
	case StrTag:
		return "String"
	case ListTag:
		return "List"
	case TupleTag:
		return "Tuple"
	case MapTag:
		if m, ok := v.Ref.(*Map); ok && m.Meta != nil {
			if name, ok := m.Meta.TypeName(); ok {
				return name
			}
		}
		return "Map"
	case FunctionTag:
		return "Function"
	case NativeFunctionTag:
		return "NativeFunction"
	case IteratorTag:
		return "Iterator"
	case ObjectTag:
		if o, ok := v.Ref.(Object); ok {
			return o.TypeName()
		}
		return "Object"
	case TempTupleTag:
		return "TemporaryTuple"
	default:
		return "Unknown"
	}
}

func (v Value) List() *List             { return v.Ref.(*List) }
func (v Value) Tuple() *Tuple            { return v.Ref.(*Tuple) }
func (v Value) Str() *Str               { return v.Ref.(*Str) }
func (v Value) Map() *Map               { return v.Ref.(*Map) }
func (v Value) Range() *Range           { return v.Ref.(*Range) }
func (v Value) Function() *Function     { return v.Ref.(*Function) }
func (v Value) NativeFunction() NativeFunction { return v.Ref.(NativeFunction) }
func (v Value) Iterator() Iterator      { return v.Ref.(Iterator) }
func (v Value) Object() Object          { return v.Ref.(Object) }
func (v Value) TempTuple() TempTuple    { return v.Ref.(TempTuple) }

func ListVal(l *List) Value   { return Value{Tag: ListTag, Ref: l} }
func TupleVal(t *Tuple) Value { return Value{Tag: TupleTag, Ref: t} }
func StrVal(s *Str) Value     { return Value{Tag: StrTag, Ref: s} }
func MapVal(m *Map) Value     { return Value{Tag: MapTag, Ref: m} }
func RangeVal(r *Range) Value { return Value{Tag: RangeTag, Ref: r} }
func FunctionVal(f *Function) Value { return Value{Tag: FunctionTag, Ref: f} }
func NativeFunctionVal(f NativeFunction) Value { return Value{Tag: NativeFunctionTag, Ref: f} }
func IteratorVal(it Iterator) Value { return Value{Tag: IteratorTag, Ref: it} }
func ObjectVal(o Object) Value { return Value{Tag: ObjectTag, Ref: o} }
func TempTupleVal(start, count uint8) Value {
	return Value{Tag: TempTupleTag, Ref: TempTuple{Start: start, Count: count}}
}

// Callable reports whether the value can appear as Call's function
// operand directly (Map is handled separately since it depends on the
// meta-map holding `@||`, checked by the VM).
func (v Value) Callable() bool {
	return v.Tag == FunctionTag || v.Tag == NativeFunctionTag
}
