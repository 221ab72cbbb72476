// Package value implements the Koto runtime value model: the tagged
// Value union, its reference-counted container types, the hashable
// ValueKey subset, and the MetaMap attached to user maps.
package value

import "fmt"

// TypeError covers dispatch failures that are knowable without running
// anything: wrong shape, not callable, not hashable (§7 TypeError).
type TypeError struct {
	Kind string
	LHS  string
	RHS  string
	Msg  string
}

func (e *TypeError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.RHS != "" {
		return fmt.Sprintf("%s: %s and %s", e.Kind, e.LHS, e.RHS)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.LHS)
}

func UnsupportedOp(op, lhs, rhs string) error {
	return &TypeError{Kind: "UnsupportedOp(" + op + ")", LHS: lhs, RHS: rhs}
}

func NotCallable(t string) error {
	return &TypeError{Kind: "NotCallable", LHS: t}
}

func NotIterable(t string) error {
	return &TypeError{Kind: "NotIterable", LHS: t}
}

func UnhashableKey(t string) error {
	return &TypeError{Kind: "UnhashableKey", LHS: t}
}

func TypeAssertionFailed(expected, got string) error {
	return &TypeError{Kind: "TypeAssertionFailed", LHS: expected, RHS: got,
		Msg: fmt.Sprintf("TypeAssertionFailed: expected %s, got %s", expected, got)}
}

func AccessNotSupported(t, key string) error {
	return &TypeError{Kind: "AccessNotSupported", LHS: t, RHS: key,
		Msg: fmt.Sprintf("AccessNotSupported: %s has no '%s'", t, key)}
}

// RuntimeError covers failures that only surface while running (§7
// RuntimeError). Most are recoverable via try/catch in the VM.
type RuntimeError struct {
	Kind string
	Msg  string
}

func (e *RuntimeError) Error() string { return e.Msg }

func IndexOutOfBounds(index, size int) error {
	return &RuntimeError{Kind: "IndexOutOfBounds", Msg: fmt.Sprintf("index out of bounds: %d (size %d)", index, size)}
}

func UnknownKey(key string) error {
	return &RuntimeError{Kind: "UnknownKey", Msg: fmt.Sprintf("unknown key '%s'", key)}
}

var ErrDivideByZero = &RuntimeError{Kind: "DivideByZero", Msg: "division by zero"}

func AlreadyBorrowed(reason string) error {
	return &RuntimeError{Kind: "AlreadyBorrowed", Msg: "value is already borrowed: " + reason}
}

var ErrStackOverflow = &RuntimeError{Kind: "StackOverflow", Msg: "call stack overflow"}

func ImportNotFound(name string) error {
	return &RuntimeError{Kind: "ImportNotFound", Msg: fmt.Sprintf("import not found: %s", name)}
}

func UnimplementedMetaOp(t, op string) error {
	return &RuntimeError{Kind: "UnimplementedMetaOp", Msg: fmt.Sprintf("%s doesn't implement %s", t, op)}
}
