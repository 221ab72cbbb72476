package value

// mapEntry pairs the original key Value (for iteration/display) with its
// current value.
type mapEntry struct {
	Key   Value
	Value Value
}

// Map is a shared, mutable, insertion-ordered mapping from ValueKey to
// Value, with an optional MetaMap (§3.1). Lookups go through a Go map
// keyed by the canonical ValueKey encoding; order is tracked separately
// so iteration (and thus display, keys(), values()) is deterministic.
type Map struct {
	order   []string // canonical keys, insertion order
	entries map[string]*mapEntry
	Meta    *MetaMap
	Borrow  BorrowState
}

func NewMap() *Map {
	return &Map{entries: make(map[string]*mapEntry)}
}

func (m *Map) Len() int { return len(m.order) }

func (m *Map) Get(key Value) (Value, bool, error) {
	k, err := ToKey(key)
	if err != nil {
		return Value{}, false, err
	}
	e, ok := m.entries[k]
	if !ok {
		return Value{}, false, nil
	}
	return e.Value, true, nil
}

// GetWithMeta resolves a `.field`/map-index lookup: the data map first,
// falling back to the meta-map (§4.4.6 rule 1).
func (m *Map) GetWithMeta(key string) (Value, bool) {
	k, err := ToKey(StrVal(NewStr(key)))
	if err != nil {
		return Value{}, false
	}
	if e, ok := m.entries[k]; ok {
		return e.Value, true
	}
	if m.Meta != nil {
		if v, ok := m.Meta.GetNamed(MetaUserNamed, key); ok {
			return v, true
		}
	}
	return Value{}, false
}

func (m *Map) Insert(key, val Value) error {
	return m.Borrow.WithMut(func() error {
		k, err := ToKey(key)
		if err != nil {
			return err
		}
		if e, ok := m.entries[k]; ok {
			e.Value = val
			return nil
		}
		m.order = append(m.order, k)
		m.entries[k] = &mapEntry{Key: key, Value: val}
		return nil
	})
}

// Remove deletes a key, preserving order of the remaining entries.
func (m *Map) Remove(key Value) (Value, bool, error) {
	var removed Value
	var found bool
	err := m.Borrow.WithMut(func() error {
		k, err := ToKey(key)
		if err != nil {
			return err
		}
		e, ok := m.entries[k]
		if !ok {
			return nil
		}
		removed, found = e.Value, true
		delete(m.entries, k)
		for i, ok := range m.order {
			if ok == k {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		return nil
	})
	return removed, found, err
}

// Each iterates key/value pairs in insertion order.
func (m *Map) Each(fn func(key, val Value) error) error {
	return m.Borrow.WithShared(func() error {
		for _, k := range m.order {
			e := m.entries[k]
			if err := fn(e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *Map) Keys() []Value {
	out := make([]Value, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.entries[k].Key)
	}
	return out
}

func (m *Map) Values() []Value {
	out := make([]Value, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.entries[k].Value)
	}
	return out
}

// Copy returns a shallow copy: same values, fresh order/index/metamap
// structures and a fresh borrow state.
func (m *Map) Copy() *Map {
	out := NewMap()
	out.order = append([]string(nil), m.order...)
	for k, e := range m.entries {
		cp := *e
		out.entries[k] = &cp
	}
	out.Meta = m.Meta.Copy()
	return out
}

func (m *Map) DeepCopy() *Map {
	out := NewMap()
	out.order = append([]string(nil), m.order...)
	for k, e := range m.entries {
		out.entries[k] = &mapEntry{Key: DeepCopy(e.Key), Value: DeepCopy(e.Value)}
	}
	out.Meta = m.Meta.Copy()
	return out
}
