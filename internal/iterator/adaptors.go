package iterator

import "github.com/kotoscript/koto/internal/value"

// Enumerate pairs each value with its 0-based position (core_lib
// adaptors.rs Enumerate).
type Enumerate struct {
	inner value.Iterator
	n     int64
}

func NewEnumerate(inner value.Iterator) *Enumerate { return &Enumerate{inner: inner} }

func (it *Enumerate) Next() value.IterResult {
	r := it.inner.Next()
	if r.Done || r.Err != nil {
		return r
	}
	idx := value.IntVal(it.n)
	it.n++
	return value.PairResult(idx, r.Value)
}

func (it *Enumerate) NextBack() value.IterResult { return value.DoneResult() }
func (it *Enumerate) IsBidirectional() bool      { return false }
func (it *Enumerate) MakeCopy() (value.Iterator, error) {
	inner, err := it.inner.MakeCopy()
	if err != nil {
		return nil, err
	}
	return &Enumerate{inner: inner, n: it.n}, nil
}

// Keep yields only values for which predicate returns true (adaptors.rs
// Keep).
type Keep struct {
	inner     value.Iterator
	predicate func(value.Value) (bool, error)
}

func NewKeep(inner value.Iterator, predicate func(value.Value) (bool, error)) *Keep {
	return &Keep{inner: inner, predicate: predicate}
}

func (it *Keep) Next() value.IterResult {
	for {
		r := it.inner.Next()
		if r.Done || r.Err != nil {
			return r
		}
		ok, err := it.predicate(r.Value)
		if err != nil {
			return value.ErrorResult(err)
		}
		if ok {
			return r
		}
	}
}

func (it *Keep) NextBack() value.IterResult { return value.DoneResult() }
func (it *Keep) IsBidirectional() bool      { return false }
func (it *Keep) MakeCopy() (value.Iterator, error) {
	inner, err := it.inner.MakeCopy()
	if err != nil {
		return nil, err
	}
	return &Keep{inner: inner, predicate: it.predicate}, nil
}

// Take yields at most n values then stops (adaptors.rs Take).
type Take struct {
	inner     value.Iterator
	remaining int
}

func NewTake(inner value.Iterator, n int) *Take { return &Take{inner: inner, remaining: n} }

func (it *Take) Next() value.IterResult {
	if it.remaining <= 0 {
		return value.DoneResult()
	}
	it.remaining--
	return it.inner.Next()
}

func (it *Take) NextBack() value.IterResult { return value.DoneResult() }
func (it *Take) IsBidirectional() bool      { return false }
func (it *Take) MakeCopy() (value.Iterator, error) {
	inner, err := it.inner.MakeCopy()
	if err != nil {
		return nil, err
	}
	return &Take{inner: inner, remaining: it.remaining}, nil
}

// Step yields every nth value starting from the first (adaptors.rs Step).
type Step struct {
	inner value.Iterator
	by    int
	first bool
}

func NewStep(inner value.Iterator, by int) *Step { return &Step{inner: inner, by: by, first: true} }

func (it *Step) Next() value.IterResult {
	skip := it.by - 1
	if it.first {
		skip = 0
		it.first = false
	}
	var r value.IterResult
	for i := 0; i <= skip; i++ {
		r = it.inner.Next()
		if r.Done || r.Err != nil {
			return r
		}
	}
	return r
}

func (it *Step) NextBack() value.IterResult { return value.DoneResult() }
func (it *Step) IsBidirectional() bool      { return false }
func (it *Step) MakeCopy() (value.Iterator, error) {
	inner, err := it.inner.MakeCopy()
	if err != nil {
		return nil, err
	}
	return &Step{inner: inner, by: it.by, first: it.first}, nil
}

// Chain runs first to exhaustion then second (adaptors.rs Chain).
type Chain struct {
	first, second value.Iterator
	onSecond      bool
}

func NewChain(first, second value.Iterator) *Chain { return &Chain{first: first, second: second} }

func (it *Chain) Next() value.IterResult {
	if !it.onSecond {
		r := it.first.Next()
		if !r.Done {
			return r
		}
		it.onSecond = true
	}
	return it.second.Next()
}

func (it *Chain) NextBack() value.IterResult { return value.DoneResult() }
func (it *Chain) IsBidirectional() bool      { return false }
func (it *Chain) MakeCopy() (value.Iterator, error) {
	f, err := it.first.MakeCopy()
	if err != nil {
		return nil, err
	}
	s, err := it.second.MakeCopy()
	if err != nil {
		return nil, err
	}
	return &Chain{first: f, second: s, onSecond: it.onSecond}, nil
}

// Zip pairs values from two iterators, stopping when either is exhausted
// (adaptors.rs Zip).
type Zip struct {
	a, b value.Iterator
}

func NewZip(a, b value.Iterator) *Zip { return &Zip{a: a, b: b} }

func (it *Zip) Next() value.IterResult {
	ra := it.a.Next()
	if ra.Done || ra.Err != nil {
		return ra
	}
	rb := it.b.Next()
	if rb.Done || rb.Err != nil {
		return rb
	}
	return value.ValueResult(value.TupleVal(value.NewTuple(ra.Value, rb.Value)))
}

func (it *Zip) NextBack() value.IterResult { return value.DoneResult() }
func (it *Zip) IsBidirectional() bool      { return false }
func (it *Zip) MakeCopy() (value.Iterator, error) {
	a, err := it.a.MakeCopy()
	if err != nil {
		return nil, err
	}
	b, err := it.b.MakeCopy()
	if err != nil {
		return nil, err
	}
	return &Zip{a: a, b: b}, nil
}

// Reversed walks a bidirectional source back-to-front by swapping which
// end Next() pulls from (adaptors.rs Reversed).
type Reversed struct {
	inner value.Iterator
}

func NewReversed(inner value.Iterator) (*Reversed, error) {
	if !inner.IsBidirectional() {
		return nil, value.NotIterable("Iterator")
	}
	return &Reversed{inner: inner}, nil
}

func (it *Reversed) Next() value.IterResult     { return it.inner.NextBack() }
func (it *Reversed) NextBack() value.IterResult { return it.inner.Next() }
func (it *Reversed) IsBidirectional() bool      { return true }
func (it *Reversed) MakeCopy() (value.Iterator, error) {
	inner, err := it.inner.MakeCopy()
	if err != nil {
		return nil, err
	}
	return &Reversed{inner: inner}, nil
}

// Each transforms every value through fn (adaptors.rs Each).
type Each struct {
	inner value.Iterator
	fn    func(value.Value) (value.Value, error)
}

func NewEach(inner value.Iterator, fn func(value.Value) (value.Value, error)) *Each {
	return &Each{inner: inner, fn: fn}
}

func (it *Each) Next() value.IterResult {
	r := it.inner.Next()
	if r.Done || r.Err != nil {
		return r
	}
	v, err := it.fn(r.Value)
	if err != nil {
		return value.ErrorResult(err)
	}
	return value.ValueResult(v)
}

func (it *Each) NextBack() value.IterResult { return value.DoneResult() }
func (it *Each) IsBidirectional() bool      { return false }
func (it *Each) MakeCopy() (value.Iterator, error) {
	inner, err := it.inner.MakeCopy()
	if err != nil {
		return nil, err
	}
	return &Each{inner: inner, fn: it.fn}, nil
}
