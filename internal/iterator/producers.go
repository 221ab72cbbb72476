// Package iterator implements value.Iterator for every ambient container
// type and a set of named adaptors (§4.6, grounded on koto_runtime's
// core_lib/iterator adaptors.rs). Producers wrap a container; adaptors wrap
// another Iterator. The host prelude exposes none of the adaptors as a
// method.
package iterator

import "github.com/kotoscript/koto/internal/value"

// FromValue builds the ambient Iterator for a value per its type, used by
// OpMakeIterator and the `for` loop lowering (§6.4 make_iterator default).
func FromValue(v value.Value) (value.Iterator, error) {
	switch v.Tag {
	case value.ListTag:
		return NewListIterator(v.List()), nil
	case value.TupleTag:
		return NewTupleIterator(v.Tuple()), nil
	case value.MapTag:
		return NewMapIterator(v.Map()), nil
	case value.RangeTag:
		return NewRangeIterator(v.Range())
	case value.StrTag:
		return NewStrIterator(v.Str()), nil
	case value.IteratorTag:
		return v.Iterator(), nil
	case value.ObjectTag:
		if im, ok := v.Object().(value.IteratorMaker); ok {
			return im.MakeIterator(nil)
		}
	}
	return nil, value.NotIterable(v.TypeName())
}

// ListIterator walks a List's elements front-to-back, supporting
// next_back for reverse/windows-style adaptors.
type ListIterator struct {
	l          *value.List
	start, end int
}

func NewListIterator(l *value.List) *ListIterator {
	return &ListIterator{l: l, start: 0, end: l.Len()}
}

func (it *ListIterator) Next() value.IterResult {
	if it.start >= it.end {
		return value.DoneResult()
	}
	v := it.l.Elements[it.start]
	it.start++
	return value.ValueResult(v)
}

func (it *ListIterator) NextBack() value.IterResult {
	if it.start >= it.end {
		return value.DoneResult()
	}
	it.end--
	return value.ValueResult(it.l.Elements[it.end])
}

func (it *ListIterator) IsBidirectional() bool { return true }

func (it *ListIterator) MakeCopy() (value.Iterator, error) {
	cp := *it
	return &cp, nil
}

// TupleIterator mirrors ListIterator for the immutable Tuple container.
type TupleIterator struct {
	t          *value.Tuple
	start, end int
}

func NewTupleIterator(t *value.Tuple) *TupleIterator {
	return &TupleIterator{t: t, start: 0, end: t.Len()}
}

func (it *TupleIterator) Next() value.IterResult {
	if it.start >= it.end {
		return value.DoneResult()
	}
	v := it.t.Elements[it.start]
	it.start++
	return value.ValueResult(v)
}

func (it *TupleIterator) NextBack() value.IterResult {
	if it.start >= it.end {
		return value.DoneResult()
	}
	it.end--
	return value.ValueResult(it.t.Elements[it.end])
}

func (it *TupleIterator) IsBidirectional() bool { return true }

func (it *TupleIterator) MakeCopy() (value.Iterator, error) {
	cp := *it
	return &cp, nil
}

// MapIterator walks a Map's entries in insertion order, yielding
// key/value pairs (§4.6 IterPair).
type MapIterator struct {
	keys, values []value.Value
	pos, end     int
}

func NewMapIterator(m *value.Map) *MapIterator {
	return &MapIterator{keys: m.Keys(), values: m.Values(), pos: 0, end: m.Len()}
}

func (it *MapIterator) Next() value.IterResult {
	if it.pos >= it.end {
		return value.DoneResult()
	}
	k, v := it.keys[it.pos], it.values[it.pos]
	it.pos++
	return value.PairResult(k, v)
}

func (it *MapIterator) NextBack() value.IterResult {
	if it.pos >= it.end {
		return value.DoneResult()
	}
	it.end--
	return value.PairResult(it.keys[it.end], it.values[it.end])
}

func (it *MapIterator) IsBidirectional() bool { return true }

func (it *MapIterator) MakeCopy() (value.Iterator, error) {
	cp := *it
	return &cp, nil
}

// RangeIterator walks a bounded Range's integers (§9: only Bounded ranges
// are directly iterable).
type RangeIterator struct {
	cur, end int64
	step     int64
}

func NewRangeIterator(r *value.Range) (*RangeIterator, error) {
	if !r.Bounded() {
		return nil, value.NotIterable("Range")
	}
	end := r.End
	if r.Inclusive {
		end++
	}
	return &RangeIterator{cur: r.Start, end: end, step: 1}, nil
}

func (it *RangeIterator) Next() value.IterResult {
	if it.cur >= it.end {
		return value.DoneResult()
	}
	v := it.cur
	it.cur += it.step
	return value.ValueResult(value.IntVal(v))
}

func (it *RangeIterator) NextBack() value.IterResult {
	if it.cur >= it.end {
		return value.DoneResult()
	}
	it.end--
	return value.ValueResult(value.IntVal(it.end))
}

func (it *RangeIterator) IsBidirectional() bool { return true }

func (it *RangeIterator) MakeCopy() (value.Iterator, error) {
	cp := *it
	return &cp, nil
}

// StrIterator walks a Str's grapheme clusters, each yielded as a
// single-grapheme Str value (§4.6, §3.1 display walks graphemes).
type StrIterator struct {
	graphemes []string
	pos, end  int
}

func NewStrIterator(s *value.Str) *StrIterator {
	return &StrIterator{graphemes: s.Graphemes(), pos: 0, end: s.GraphemeCount()}
}

func (it *StrIterator) Next() value.IterResult {
	if it.pos >= it.end {
		return value.DoneResult()
	}
	g := it.graphemes[it.pos]
	it.pos++
	return value.ValueResult(value.StrVal(value.NewStr(g)))
}

func (it *StrIterator) NextBack() value.IterResult {
	if it.pos >= it.end {
		return value.DoneResult()
	}
	it.end--
	return value.ValueResult(value.StrVal(value.NewStr(it.graphemes[it.end])))
}

func (it *StrIterator) IsBidirectional() bool { return true }

func (it *StrIterator) MakeCopy() (value.Iterator, error) {
	cp := *it
	return &cp, nil
}
