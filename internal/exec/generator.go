package exec

import (
	"github.com/kotoscript/koto/internal/value"
)

// genState threads OpYield back out to whoever is pulling a generator's
// Iterator, via a dedicated goroutine running the generator's own call
// frame (package doc, vm.go). Each resume unblocks the goroutine for
// exactly one step forward.
type genState struct {
	yieldCh  chan value.Value
	resumeCh chan struct{}
	doneCh   chan genDone
}

type genDone struct {
	result value.Value
	err    error
}

// yield is OpYield's implementation: hand the value to whoever is pulling
// this generator's Iterator and block until they ask for the next one.
func (vm *VM) yield(fr *frame, v value.Value) (value.Value, bool, error) {
	if vm.gen == nil {
		return value.Value{}, false, value.UnsupportedOp("yield", "outside generator", "")
	}
	vm.gen.yieldCh <- v
	_, ok := <-vm.gen.resumeCh
	if !ok {
		// The puller stopped asking (e.g. dropped the Iterator); unwind the
		// generator frame as if it hit its natural end.
		return value.NullVal(), true, nil
	}
	return value.Value{}, false, nil
}

// generatorIterator drives a generator Function's body on its own goroutine
// and VM, one OpYield per Next() call (§4.6, §6.4). Not thread-safe to
// share across goroutines itself; matches Koto's single-writer value model.
type generatorIterator struct {
	vm      *VM
	started bool
	done    bool
}

func newGeneratorVM(parent *VM, fn *value.Function, args []value.Value) *generatorIterator {
	child := &VM{
		registers: make([]value.Value, 256),
		maxDepth:  parent.maxDepth,
		resolver:  parent.resolver,
		out:       parent.out,
		prelude:   parent.prelude,
		exports:   parent.exports,
		gen: &genState{
			yieldCh:  make(chan value.Value),
			resumeCh: make(chan struct{}),
			doneCh:   make(chan genDone, 1),
		},
	}
	go func() {
		bound, err := bindArgs(fn, args)
		if err != nil {
			child.gen.doneCh <- genDone{err: err}
			return
		}
		result, err := child.runChunk(fn.Chunk, bound, fn.Captures)
		child.gen.doneCh <- genDone{result: result, err: err}
	}()
	return &generatorIterator{vm: child}
}

func (it *generatorIterator) Next() value.IterResult {
	if it.done {
		return value.DoneResult()
	}
	if it.started {
		it.vm.gen.resumeCh <- struct{}{}
	}
	it.started = true
	select {
	case v := <-it.vm.gen.yieldCh:
		return value.ValueResult(v)
	case d := <-it.vm.gen.doneCh:
		it.done = true
		if d.err != nil {
			return value.ErrorResult(d.err)
		}
		return value.DoneResult()
	}
}

// NextBack/IsBidirectional: generators are forward-only (§4.6).
func (it *generatorIterator) NextBack() value.IterResult { return value.DoneResult() }
func (it *generatorIterator) IsBidirectional() bool      { return false }
func (it *generatorIterator) MakeCopy() (value.Iterator, error) {
	return nil, value.UnsupportedOp("copy", "GeneratorIterator", "")
}
