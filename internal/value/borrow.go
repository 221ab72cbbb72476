package value

// BorrowState implements Koto's dynamic borrow discipline for shared
// mutable containers (§3.5, §5): any number of concurrent readers, or
// exactly one writer, enforced at runtime rather than by the type system.
// A VM is single-threaded (§5), so this only needs to catch reentrancy
// (e.g. inserting into a Map from inside Map.Each), not cross-goroutine
// races.
type BorrowState struct {
	readers int
	writing bool
}

// BorrowShared takes a read borrow. Fails if a write borrow is live.
func (b *BorrowState) BorrowShared() error {
	if b.writing {
		return AlreadyBorrowed("already borrowed mutably")
	}
	b.readers++
	return nil
}

func (b *BorrowState) ReleaseShared() {
	if b.readers > 0 {
		b.readers--
	}
}

// BorrowMut takes the exclusive write borrow. Fails if any borrow is live.
func (b *BorrowState) BorrowMut() error {
	if b.writing || b.readers > 0 {
		return AlreadyBorrowed("already borrowed")
	}
	b.writing = true
	return nil
}

func (b *BorrowState) ReleaseMut() {
	b.writing = false
}

// WithMut runs fn while holding the exclusive borrow, releasing it
// afterwards regardless of whether fn errors.
func (b *BorrowState) WithMut(fn func() error) error {
	if err := b.BorrowMut(); err != nil {
		return err
	}
	defer b.ReleaseMut()
	return fn()
}

// WithShared runs fn while holding a read borrow.
func (b *BorrowState) WithShared(fn func() error) error {
	if err := b.BorrowShared(); err != nil {
		return err
	}
	defer b.ReleaseShared()
	return fn()
}
