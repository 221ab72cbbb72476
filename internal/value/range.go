package value

// Range models start:Opt<i64>, end:Opt<(i64,inclusive:bool)> (§3.1). A
// Range is only iterable when both bounds are present (§9 open question:
// the source rejects start-only ranges as `for` iterables; preserved
// here).
type Range struct {
	HasStart  bool
	Start     int64
	HasEnd    bool
	End       int64
	Inclusive bool
}

func NewRangeFull() *Range { return &Range{} }
func NewRangeFrom(start int64) *Range { return &Range{HasStart: true, Start: start} }
func NewRangeTo(end int64, inclusive bool) *Range {
	return &Range{HasEnd: true, End: end, Inclusive: inclusive}
}
func NewRange(start, end int64, inclusive bool) *Range {
	return &Range{HasStart: true, Start: start, HasEnd: true, End: end, Inclusive: inclusive}
}

// Bounded reports whether the range has both a start and an end, the only
// shape that's directly iterable (§9).
func (r *Range) Bounded() bool { return r.HasStart && r.HasEnd }

// Len returns the number of integers the range spans, valid only when
// Bounded.
func (r *Range) Len() int {
	if !r.Bounded() {
		return 0
	}
	n := r.End - r.Start
	if r.Inclusive {
		n++
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

func (r *Range) Equal(o *Range) bool {
	return r.HasStart == o.HasStart && r.Start == o.Start &&
		r.HasEnd == o.HasEnd && r.End == o.End && r.Inclusive == o.Inclusive
}
