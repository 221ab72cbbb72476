package exec

import (
	"github.com/kotoscript/koto/internal/value"
)

// runBinary implements §4.4.5's dispatch order for a binary op: a Map's
// meta-map entry first, then an Object's BinaryOperable hook, then the
// ambient numeric/structural fallback.
func (vm *VM) runBinary(key value.MetaKey, lhs, rhs value.Value) (value.Value, error) {
	if lhs.Tag == value.MapTag {
		if fn, ok := lhs.Map().Meta.Get(key); ok {
			return vm.callValue(fn, []value.Value{lhs, rhs}, nil)
		}
	}
	if lhs.Tag == value.ObjectTag {
		if bo, ok := lhs.Object().(value.BinaryOperable); ok {
			v, err := bo.BinaryOp(vm, key, rhs)
			if !isUnimplementedMetaOp(err) {
				return v, err
			}
		}
	}
	switch key {
	case value.MetaAdd:
		return addFallback(lhs, rhs)
	case value.MetaSubtract:
		return numericFallback("-", lhs, rhs)
	case value.MetaMultiply:
		return numericFallback("*", lhs, rhs)
	case value.MetaDivide:
		return numericFallback("/", lhs, rhs)
	case value.MetaRemainder:
		return numericFallback("%", lhs, rhs)
	case value.MetaEqual:
		return value.BoolVal(vm.valuesEqual(lhs, rhs)), nil
	case value.MetaNotEqual:
		return value.BoolVal(!vm.valuesEqual(lhs, rhs)), nil
	case value.MetaLess, value.MetaLessOrEqual, value.MetaGreater, value.MetaGreaterOrEqual:
		return compareFallback(key, lhs, rhs)
	}
	return value.Value{}, value.UnsupportedOp(key.String(), lhs.TypeName(), rhs.TypeName())
}

func isUnimplementedMetaOp(err error) bool {
	re, ok := err.(*value.RuntimeError)
	return ok && re.Kind == "UnimplementedMetaOp"
}

// addFallback handles Str+Str and List+List concatenation in addition to
// the numeric cases value.Arithmetic already covers (§4.4.5).
func addFallback(lhs, rhs value.Value) (value.Value, error) {
	if lhs.Tag == value.StrTag && rhs.Tag == value.StrTag {
		return value.StrVal(value.Concat(lhs.Str(), rhs.Str())), nil
	}
	if lhs.Tag == value.ListTag && rhs.Tag == value.ListTag {
		out := value.NewList(append(append([]value.Value{}, lhs.List().Elements...), rhs.List().Elements...)...)
		return value.ListVal(out), nil
	}
	if lhs.IsNumber() && rhs.IsNumber() {
		return value.Arithmetic("+", lhs, rhs)
	}
	return value.Value{}, value.UnsupportedOp("+", lhs.TypeName(), rhs.TypeName())
}

// numericFallback guards the arithmetic ops other than + (which also
// accepts Str/List) against non-numeric operands before delegating to
// value.Arithmetic, which otherwise assumes both sides are numbers.
func numericFallback(op string, lhs, rhs value.Value) (value.Value, error) {
	if !lhs.IsNumber() || !rhs.IsNumber() {
		return value.Value{}, value.UnsupportedOp(op, lhs.TypeName(), rhs.TypeName())
	}
	return value.Arithmetic(op, lhs, rhs)
}

func compareFallback(key value.MetaKey, lhs, rhs value.Value) (value.Value, error) {
	if !lhs.IsNumber() || !rhs.IsNumber() {
		return value.Value{}, value.UnsupportedOp(key.String(), lhs.TypeName(), rhs.TypeName())
	}
	c := value.Compare(lhs, rhs)
	switch key {
	case value.MetaLess:
		return value.BoolVal(c < 0), nil
	case value.MetaLessOrEqual:
		return value.BoolVal(c <= 0), nil
	case value.MetaGreater:
		return value.BoolVal(c > 0), nil
	default: // MetaGreaterOrEqual
		return value.BoolVal(c >= 0), nil
	}
}

// valuesEqual tries a Map's @== override before falling back to structural
// equality (§4.4.5 rule 4).
func (vm *VM) valuesEqual(lhs, rhs value.Value) bool {
	if lhs.Tag == value.MapTag {
		if fn, ok := lhs.Map().Meta.Get(value.MetaEqual); ok {
			v, err := vm.callValue(fn, []value.Value{lhs, rhs}, nil)
			if err == nil {
				return v.IsTruthy()
			}
		}
	}
	return value.StructuralEqual(lhs, rhs)
}

func (vm *VM) runUnary(key value.MetaKey, operand value.Value) (value.Value, error) {
	if operand.Tag == value.MapTag {
		if fn, ok := operand.Map().Meta.Get(key); ok {
			return vm.callValue(fn, []value.Value{operand}, nil)
		}
	}
	if operand.Tag == value.ObjectTag {
		if key == value.MetaNegate {
			if n, ok := operand.Object().(value.Negatable); ok {
				return n.Negate()
			}
		}
	}
	switch key {
	case value.MetaNegate:
		switch operand.Tag {
		case value.Int:
			return value.IntVal(-operand.AsInt()), nil
		case value.Float:
			return value.FloatVal(-operand.AsFloat()), nil
		}
		return value.Value{}, value.UnsupportedOp("-", operand.TypeName(), "")
	case value.MetaNot:
		return value.BoolVal(!operand.IsTruthy()), nil
	}
	return value.Value{}, value.UnimplementedMetaOp(operand.TypeName(), key.String())
}

// RunUnaryOp implements value.CallContext for host Objects that need to
// invoke a meta-op on another value (e.g. a wrapped numeric type negating
// one of its own fields).
func (vm *VM) RunUnaryOp(key value.MetaKey, operand value.Value) (value.Value, error) {
	return vm.runUnary(key, operand)
}
