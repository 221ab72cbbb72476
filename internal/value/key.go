package value

import (
	"fmt"
	"strconv"
	"strings"
)

// IsHashable reports whether v is in the hashable subset usable as a Map
// key: Null, Bool, Number, Range, Str, Tuple(of hashable) (§3.2).
func IsHashable(v Value) bool {
	switch v.Tag {
	case Null, Bool, Int, Float, RangeTag, StrTag:
		return true
	case TupleTag:
		return v.Tuple().IsHashable()
	default:
		return false
	}
}

// ToKey canonically encodes a hashable Value into a comparable Go string,
// used as the underlying key for Map's index. Encoding two structurally
// equal ValueKeys always yields the same string, which is what gives Map
// O(1) average lookups despite Koto's value-based (not pointer-based)
// key equality.
func ToKey(v Value) (string, error) {
	var sb strings.Builder
	if err := encodeKey(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func encodeKey(sb *strings.Builder, v Value) error {
	switch v.Tag {
	case Null:
		sb.WriteString("z")
	case Bool:
		if v.AsBool() {
			sb.WriteString("b1")
		} else {
			sb.WriteString("b0")
		}
	case Int:
		sb.WriteString("i")
		sb.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case Float:
		sb.WriteString("f")
		sb.WriteString(strconv.FormatFloat(v.AsFloat(), 'g', -1, 64))
	case RangeTag:
		r := v.Range()
		fmt.Fprintf(sb, "r%v:%d:%v:%d:%v", r.HasStart, r.Start, r.HasEnd, r.End, r.Inclusive)
	case StrTag:
		sb.WriteString("s")
		sb.WriteString(v.Str().String())
	case TupleTag:
		sb.WriteString("t(")
		for i, e := range v.Tuple().Elements {
			if i > 0 {
				sb.WriteString(",")
			}
			if err := encodeKey(sb, e); err != nil {
				return err
			}
		}
		sb.WriteString(")")
	default:
		return UnhashableKey(v.TypeName())
	}
	return nil
}
