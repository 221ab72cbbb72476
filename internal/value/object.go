package value

// CallContext is the narrow slice of VM behaviour a host Object needs in
// order to call back into Koto (§6.3/§6.4). The concrete implementation
// lives in package exec; value can't import it without a cycle, so Object
// hooks are handed this interface instead of an *exec.VM.
type CallContext interface {
	CallFunction(fn Value, args []Value) (Value, error)
	RunUnaryOp(key MetaKey, operand Value) (Value, error)
	MakeIterator(v Value) (Iterator, error)
}

// Object is the mandatory surface every host object implements (§6.4).
// Everything else is optional and discovered via type assertion to the
// interfaces below, mirroring how the source's object trait has default
// "unimplemented" behaviour per hook.
type Object interface {
	TypeName() string
	Copy() Object
	DeepCopy() Object
	IsIterable() bool
}

// Displayer backs the unary `display` meta-op.
type Displayer interface {
	Display(ctx CallContext) (string, error)
}

// Indexable backs `[]` access on an Object.
type Indexable interface {
	Index(index Value) (Value, error)
}

// Sizable backs the unary `size` meta-op / `Size` instruction.
type Sizable interface {
	Size() int
}

// Callable backs the `call` meta-op, i.e. invoking the object itself.
type Callable interface {
	Call(ctx CallContext, args []Value) (Value, error)
}

// BinaryOperable backs the binary operator meta-ops (`+ - * / % == != < <=
// > >=`). Implementations return UnimplementedMetaOp for ops they don't
// support so the VM's dispatch can fall through to a clear error.
type BinaryOperable interface {
	BinaryOp(ctx CallContext, key MetaKey, rhs Value) (Value, error)
}

// Negatable backs unary `-`.
type Negatable interface {
	Negate() (Value, error)
}

// Lookupable backs `.method` dispatch that isn't a plain field.
type Lookupable interface {
	Lookup(key string) (Value, bool)
}

// IteratorMaker lets an Object define its own Iterator rather than relying
// on the ambient per-type behaviour (§6.4 make_iterator).
type IteratorMaker interface {
	MakeIterator(ctx CallContext) (Iterator, error)
}
