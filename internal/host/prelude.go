// Package host implements the ambient core library Koto values resolve
// `.method` access against when neither a Map's own entries nor its
// meta-map provide the name (§6.2 core library, §6.3 native interop).
// Method names and behaviour are grounded on koto_runtime's core_lib
// modules (list.rs, map.rs): a practical subset rather than the full set.
package host

import (
	"sort"

	"github.com/kotoscript/koto/internal/value"
)

// Prelude is the per-type table of native methods consulted by Access for
// every receiver type: after a Map's own entries and meta-map fields, and
// before an Object's Lookupable hook. Each entry is bound with the
// receiver already captured as `instance` by the VM before the call runs.
type Prelude struct {
	byType map[value.Tag]map[string]value.NativeFunction
}

func NewPrelude() *Prelude {
	p := &Prelude{byType: make(map[value.Tag]map[string]value.NativeFunction)}
	p.registerList()
	p.registerMap()
	p.registerStr()
	p.registerTuple()
	p.registerRange()
	p.registerIterator()
	return p
}

func (p *Prelude) add(tag value.Tag, name string, fn value.NativeFunction) {
	m, ok := p.byType[tag]
	if !ok {
		m = make(map[string]value.NativeFunction)
		p.byType[tag] = m
	}
	m[name] = fn
}

// Lookup resolves a core-library method by the value's tag and name.
func (p *Prelude) Lookup(tag value.Tag, name string) (value.NativeFunction, bool) {
	m, ok := p.byType[tag]
	if !ok {
		return nil, false
	}
	fn, ok := m[name]
	return fn, ok
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.NullVal()
}

func (p *Prelude) registerList() {
	p.add(value.ListTag, "size", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.IntVal(int64(inst.List().Len())), nil
	})
	p.add(value.ListTag, "is_empty", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.BoolVal(inst.List().Len() == 0), nil
	})
	p.add(value.ListTag, "push", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		l := inst.List()
		for _, a := range args {
			if err := l.Push(a); err != nil {
				return value.Value{}, err
			}
		}
		return *inst, nil
	})
	p.add(value.ListTag, "pop", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		l := inst.List()
		n := l.Len()
		if n == 0 {
			return value.NullVal(), nil
		}
		v := l.Elements[n-1]
		l.Elements = l.Elements[:n-1]
		return v, nil
	})
	p.add(value.ListTag, "first", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		l := inst.List()
		if l.Len() == 0 {
			return value.NullVal(), nil
		}
		return l.Elements[0], nil
	})
	p.add(value.ListTag, "last", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		l := inst.List()
		if l.Len() == 0 {
			return value.NullVal(), nil
		}
		return l.Elements[l.Len()-1], nil
	})
	p.add(value.ListTag, "contains", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		target := arg(args, 0)
		for _, e := range inst.List().Elements {
			if value.StructuralEqual(e, target) {
				return value.BoolVal(true), nil
			}
		}
		return value.BoolVal(false), nil
	})
	p.add(value.ListTag, "clear", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		inst.List().Elements = nil
		return *inst, nil
	})
	p.add(value.ListTag, "reverse", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return *inst, inst.List().Reverse()
	})
	p.add(value.ListTag, "to_tuple", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.TupleVal(value.NewTuple(append([]value.Value{}, inst.List().Elements...)...)), nil
	})
	p.add(value.ListTag, "sort", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		elems := inst.List().Elements
		sort.SliceStable(elems, func(i, j int) bool { return value.Compare(elems[i], elems[j]) < 0 })
		return *inst, nil
	})
}

func (p *Prelude) registerMap() {
	p.add(value.MapTag, "size", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.IntVal(int64(inst.Map().Len())), nil
	})
	p.add(value.MapTag, "is_empty", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.BoolVal(inst.Map().Len() == 0), nil
	})
	p.add(value.MapTag, "contains_key", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		_, ok, err := inst.Map().Get(arg(args, 0))
		return value.BoolVal(ok), err
	})
	p.add(value.MapTag, "get", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		v, ok, err := inst.Map().Get(arg(args, 0))
		if err != nil {
			return value.Value{}, err
		}
		if !ok {
			if len(args) > 1 {
				return args[1], nil
			}
			return value.NullVal(), nil
		}
		return v, nil
	})
	p.add(value.MapTag, "insert", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.NullVal(), inst.Map().Insert(arg(args, 0), arg(args, 1))
	})
	p.add(value.MapTag, "remove", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		v, _, err := inst.Map().Remove(arg(args, 0))
		return v, err
	})
	p.add(value.MapTag, "keys", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.TupleVal(value.NewTuple(inst.Map().Keys()...)), nil
	})
	p.add(value.MapTag, "values", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.TupleVal(value.NewTuple(inst.Map().Values()...)), nil
	})
	p.add(value.MapTag, "clear", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		*inst.Map() = *value.NewMap()
		return *inst, nil
	})
}

func (p *Prelude) registerStr() {
	p.add(value.StrTag, "size", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.IntVal(int64(inst.Str().GraphemeCount())), nil
	})
	p.add(value.StrTag, "is_empty", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.BoolVal(inst.Str().ByteLen() == 0), nil
	})
	p.add(value.StrTag, "to_number", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return parseNumber(inst.Str().String())
	})
}

func (p *Prelude) registerTuple() {
	p.add(value.TupleTag, "size", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.IntVal(int64(inst.Tuple().Len())), nil
	})
	p.add(value.TupleTag, "first", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		t := inst.Tuple()
		if t.Len() == 0 {
			return value.NullVal(), nil
		}
		return t.Elements[0], nil
	})
	p.add(value.TupleTag, "last", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		t := inst.Tuple()
		if t.Len() == 0 {
			return value.NullVal(), nil
		}
		return t.Elements[t.Len()-1], nil
	})
}

func (p *Prelude) registerRange() {
	p.add(value.RangeTag, "size", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		return value.IntVal(int64(inst.Range().Len())), nil
	})
	p.add(value.RangeTag, "contains", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		r := inst.Range()
		n := arg(args, 0)
		if n.Tag != value.Int {
			return value.BoolVal(false), nil
		}
		i := n.AsInt()
		if r.HasStart && i < r.Start {
			return value.BoolVal(false), nil
		}
		if r.HasEnd {
			if r.Inclusive && i > r.End {
				return value.BoolVal(false), nil
			}
			if !r.Inclusive && i >= r.End {
				return value.BoolVal(false), nil
			}
		}
		return value.BoolVal(true), nil
	})
}

func (p *Prelude) registerIterator() {
	p.add(value.IteratorTag, "next", func(ctx value.CallContext, args []value.Value, inst *value.Value) (value.Value, error) {
		r := inst.Iterator().Next()
		if r.Done {
			return value.NullVal(), nil
		}
		if r.Err != nil {
			return value.Value{}, r.Err
		}
		if r.Kind == value.IterPair {
			return value.TupleVal(value.NewTuple(r.Key, r.Value)), nil
		}
		return r.Value, nil
	})
}
