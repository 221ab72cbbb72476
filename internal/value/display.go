package value

import (
	"strconv"
	"strings"
)

// Display renders a value for output/string interpolation. Maps and
// Objects that override `@display`/Display are handled by the VM before
// falling back to here (ctx may be nil when no meta dispatch is needed,
// e.g. formatting a plain number).
func Display(ctx CallContext, v Value) (string, error) {
	switch v.Tag {
	case Null:
		return "null", nil
	case Bool:
		return strconv.FormatBool(v.AsBool()), nil
	case Int:
		return strconv.FormatInt(v.AsInt(), 10), nil
	case Float:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64), nil
	case StrTag:
		return v.Str().String(), nil
	case RangeTag:
		r := v.Range()
		var sb strings.Builder
		if r.HasStart {
			sb.WriteString(strconv.FormatInt(r.Start, 10))
		}
		if r.Inclusive {
			sb.WriteString("..=")
		} else {
			sb.WriteString("..")
		}
		if r.HasEnd {
			sb.WriteString(strconv.FormatInt(r.End, 10))
		}
		return sb.String(), nil
	case ListTag:
		return displaySeq(ctx, "[", "]", v.List().Elements)
	case TupleTag:
		return displaySeq(ctx, "(", ")", v.Tuple().Elements)
	case MapTag:
		m := v.Map()
		var sb strings.Builder
		sb.WriteString("{")
		first := true
		err := m.Each(func(k, val Value) error {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			ks, err := Display(ctx, k)
			if err != nil {
				return err
			}
			vs, err := Display(ctx, val)
			if err != nil {
				return err
			}
			sb.WriteString(ks)
			sb.WriteString(": ")
			sb.WriteString(vs)
			return nil
		})
		if err != nil {
			return "", err
		}
		sb.WriteString("}")
		return sb.String(), nil
	case FunctionTag:
		name := v.Function().Name
		if name == "" {
			name = "anonymous"
		}
		return "||" + name, nil
	case NativeFunctionTag:
		return "||native", nil
	case IteratorTag:
		return "Iterator", nil
	case ObjectTag:
		o := v.Object()
		if d, ok := o.(Displayer); ok && ctx != nil {
			return d.Display(ctx)
		}
		return o.TypeName(), nil
	case TempTupleTag:
		return "(...)", nil
	default:
		return "", nil
	}
}

func displaySeq(ctx CallContext, open, close string, elems []Value) (string, error) {
	var sb strings.Builder
	sb.WriteString(open)
	for i, e := range elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		s, err := Display(ctx, e)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	sb.WriteString(close)
	return sb.String(), nil
}
