package value

// IterOutputKind distinguishes the three shapes an Iterator::next can
// produce (§4.6): a single value, a key/value pair (maps), or a wrapped
// error that should be raised as a throw at the IterNext instruction.
type IterOutputKind uint8

const (
	IterSingle IterOutputKind = iota
	IterPair
	IterError
)

// IterResult is one `next()` / `next_back()` output, or the zero value
// with Done=true when the iterator is exhausted (§4.6).
type IterResult struct {
	Kind   IterOutputKind
	Value  Value // IterSingle, or the pair's value half
	Key    Value // IterPair's key half
	Err    error
	Done   bool
}

func DoneResult() IterResult                 { return IterResult{Done: true} }
func ValueResult(v Value) IterResult         { return IterResult{Kind: IterSingle, Value: v} }
func PairResult(k, v Value) IterResult       { return IterResult{Kind: IterPair, Key: k, Value: v} }
func ErrorResult(err error) IterResult       { return IterResult{Kind: IterError, Err: err} }

// Iterator is the uniform contract every iterable value, adaptor, and
// generator bridges to (§4.6).
type Iterator interface {
	Next() IterResult
	MakeCopy() (Iterator, error)
	IsBidirectional() bool
	NextBack() IterResult
}
