package exec

import (
	"github.com/kotoscript/koto/internal/iterator"
	"github.com/kotoscript/koto/internal/value"
)

// MakeIterator implements value.CallContext for host Objects, and backs
// the VM's own OpMakeIterator: a Map's `@iterator` meta-method is tried
// first (§6.4), falling back to the ambient per-type iterator.
func (vm *VM) MakeIterator(v value.Value) (value.Iterator, error) {
	if v.Tag == value.MapTag {
		if fn, ok := v.Map().Meta.Get(value.MetaIterator); ok {
			result, err := vm.callValue(fn, []value.Value{v}, nil)
			if err != nil {
				return nil, err
			}
			if result.Tag == value.IteratorTag {
				return result.Iterator(), nil
			}
			return iterator.FromValue(result)
		}
	}
	return iterator.FromValue(v)
}
