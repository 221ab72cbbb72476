package exec

import (
	"strconv"
	"strings"

	"github.com/kotoscript/koto/internal/bytecode"
	"github.com/kotoscript/koto/internal/value"
)

// displayValue renders v for OpStringPush/OpDebug, checking a Map's
// @display meta-method before falling back to value.Display's ambient
// per-type rendering (value.Display's own doc comment defers this check to
// the VM).
func (vm *VM) displayValue(v value.Value) (string, error) {
	if v.Tag == value.MapTag {
		if fn, ok := v.Map().Meta.Get(value.MetaDisplay); ok {
			result, err := vm.callValue(fn, []value.Value{v}, nil)
			if err != nil {
				return "", err
			}
			if result.Tag == value.StrTag {
				return result.Str().String(), nil
			}
			return value.Display(vm, result)
		}
	}
	return value.Display(vm, v)
}

// formatPush renders the register OpStringPush names and applies its
// optional width/precision/fill/alignment flags (§4.3.1 string-builder
// instructions).
func (vm *VM) formatPush(fr *frame, ins bytecode.Instruction) (string, error) {
	s, err := vm.displayValue(vm.reg(fr, ins.A))
	if err != nil {
		return "", err
	}
	if ins.FormatFlags&bytecode.FormatHasPrecision != 0 {
		if v := vm.reg(fr, ins.A); v.Tag == value.Float {
			s = strconv.FormatFloat(v.AsFloat(), 'f', int(ins.Precision), 64)
		}
	}
	if ins.FormatFlags&bytecode.FormatHasMinWidth != 0 {
		width := int(ins.MinWidth)
		if len([]rune(s)) < width {
			fill := " "
			if ins.FormatFlags&bytecode.FormatHasFill != 0 {
				fill = string(ins.FillChar)
			}
			pad := strings.Repeat(fill, width-len([]rune(s)))
			switch {
			case ins.FormatFlags&bytecode.FormatAlignLeft != 0:
				s = s + pad
			case ins.FormatFlags&bytecode.FormatAlignCenter != 0:
				half := len(pad) / 2
				s = pad[:half] + s + pad[half:]
			default: // right-align, the default per source
				s = pad + s
			}
		}
	}
	return s, nil
}

// setField implements `.field = value` (§4.4.6): only Maps accept direct
// field assignment in the ambient model, since List/Str/etc. fields are all
// core-library methods rather than data.
func (vm *VM) setField(recv value.Value, name string, val value.Value) error {
	if recv.Tag != value.MapTag {
		return value.AccessNotSupported(recv.TypeName(), name)
	}
	return recv.Map().Insert(value.StrVal(value.NewStr(name)), val)
}

// sizeOf implements the `size` unary meta-op / OpSize instruction and the
// CheckSizeEqual/CheckSizeMin type-pattern guards (§4.4.6, §6.4 Sizable).
func (vm *VM) sizeOf(v value.Value) (int, error) {
	if v.Tag == value.MapTag {
		if fn, ok := v.Map().Meta.Get(value.MetaSize); ok {
			result, err := vm.callValue(fn, []value.Value{v}, nil)
			if err != nil {
				return 0, err
			}
			if result.Tag == value.Int {
				return int(result.AsInt()), nil
			}
		}
	}
	switch v.Tag {
	case value.ListTag:
		return v.List().Len(), nil
	case value.TupleTag:
		return v.Tuple().Len(), nil
	case value.MapTag:
		return v.Map().Len(), nil
	case value.StrTag:
		return v.Str().GraphemeCount(), nil
	case value.RangeTag:
		return v.Range().Len(), nil
	case value.TempTupleTag:
		return int(v.TempTuple().Count), nil
	case value.ObjectTag:
		if s, ok := v.Object().(value.Sizable); ok {
			return s.Size(), nil
		}
	}
	return 0, value.UnsupportedOp("size", v.TypeName(), "")
}
