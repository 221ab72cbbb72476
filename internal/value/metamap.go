package value

// MetaKey is the closed set of operator/protocol keys a MetaMap can hold
// (§3.4). Adding a new meta-operator means extending both this enum and
// the VM's dispatch switch.
type MetaKey int

const (
	MetaAdd MetaKey = iota
	MetaSubtract
	MetaMultiply
	MetaDivide
	MetaRemainder
	MetaEqual
	MetaNotEqual
	MetaLess
	MetaLessOrEqual
	MetaGreater
	MetaGreaterOrEqual
	MetaIndex
	MetaNegate
	MetaNot
	MetaDisplay
	MetaIterator
	MetaNext
	MetaNextBack
	MetaSize
	MetaType
	MetaBase
	MetaCall
	MetaNamedTest // @test NAME, Name field holds NAME
	MetaPreTest
	MetaPostTest
	MetaTests
	MetaMain
	MetaTypeName // @type
	MetaUserNamed // @meta NAME, Name field holds NAME
)

func (k MetaKey) String() string {
	switch k {
	case MetaAdd:
		return "@+"
	case MetaSubtract:
		return "@-"
	case MetaMultiply:
		return "@*"
	case MetaDivide:
		return "@/"
	case MetaRemainder:
		return "@%"
	case MetaEqual:
		return "@=="
	case MetaNotEqual:
		return "@!="
	case MetaLess:
		return "@<"
	case MetaLessOrEqual:
		return "@<="
	case MetaGreater:
		return "@>"
	case MetaGreaterOrEqual:
		return "@>="
	case MetaIndex:
		return "@[]"
	case MetaNegate:
		return "@negate"
	case MetaNot:
		return "@not"
	case MetaDisplay:
		return "@display"
	case MetaIterator:
		return "@iterator"
	case MetaNext:
		return "@next"
	case MetaNextBack:
		return "@next_back"
	case MetaSize:
		return "@size"
	case MetaType:
		return "@type"
	case MetaBase:
		return "@base"
	case MetaCall:
		return "@||"
	case MetaNamedTest:
		return "@test"
	case MetaPreTest:
		return "@pre_test"
	case MetaPostTest:
		return "@post_test"
	case MetaTests:
		return "@tests"
	case MetaMain:
		return "@main"
	case MetaTypeName:
		return "@type"
	case MetaUserNamed:
		return "@meta"
	default:
		return "@?"
	}
}

// metaEntryKey disambiguates named meta keys (@test NAME, @meta NAME)
// which otherwise share a MetaKey value.
type metaEntryKey struct {
	Key  MetaKey
	Name string
}

// MetaMap is the insertion-ordered secondary map attached to a user Map,
// holding operator overloads and protocol entries (§3.4).
type MetaMap struct {
	order   []metaEntryKey
	entries map[metaEntryKey]Value
}

func NewMetaMap() *MetaMap {
	return &MetaMap{entries: make(map[metaEntryKey]Value)}
}

func (m *MetaMap) Get(key MetaKey) (Value, bool) {
	return m.GetNamed(key, "")
}

func (m *MetaMap) GetNamed(key MetaKey, name string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.entries[metaEntryKey{key, name}]
	return v, ok
}

func (m *MetaMap) Insert(key MetaKey, v Value) {
	m.InsertNamed(key, "", v)
}

func (m *MetaMap) InsertNamed(key MetaKey, name string, v Value) {
	ek := metaEntryKey{key, name}
	if _, exists := m.entries[ek]; !exists {
		m.order = append(m.order, ek)
	}
	m.entries[ek] = v
}

// TypeName returns the value bound to @type, if any.
func (m *MetaMap) TypeName() (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.Get(MetaTypeName)
	if !ok || v.Tag != StrTag {
		return "", false
	}
	return v.Str().String(), true
}

// Each iterates entries in insertion order, calling fn with the key/name
// pair and its value.
func (m *MetaMap) Each(fn func(key MetaKey, name string, v Value)) {
	if m == nil {
		return
	}
	for _, ek := range m.order {
		fn(ek.Key, ek.Name, m.entries[ek])
	}
}

// Copy returns a shallow copy sharing no mutable state with the original,
// used when a Map is copied or deep-copied (§8 deep_copy idempotence).
func (m *MetaMap) Copy() *MetaMap {
	if m == nil {
		return nil
	}
	out := NewMetaMap()
	out.order = append([]metaEntryKey(nil), m.order...)
	for k, v := range m.entries {
		out.entries[k] = v
	}
	return out
}
