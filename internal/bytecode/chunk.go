package bytecode

// ConstantPool holds the three disjoint constant pools a Chunk addresses
// by ConstantIndex (§4.2): strings, i64s, and f64s are stored once per
// compilation unit and shared by every Function originating from it.
type ConstantPool struct {
	Ints    []int64
	Floats  []float64
	Strings []string
}

func (p *ConstantPool) AddInt(v int64) uint32 {
	for i, existing := range p.Ints {
		if existing == v {
			return uint32(i)
		}
	}
	p.Ints = append(p.Ints, v)
	return uint32(len(p.Ints) - 1)
}

func (p *ConstantPool) AddFloat(v float64) uint32 {
	p.Floats = append(p.Floats, v)
	return uint32(len(p.Floats) - 1)
}

func (p *ConstantPool) AddString(s string) uint32 {
	for i, existing := range p.Strings {
		if existing == s {
			return uint32(i)
		}
	}
	p.Strings = append(p.Strings, s)
	return uint32(len(p.Strings) - 1)
}

// DebugSpan is one entry of a Chunk's instruction-offset-to-source-span
// table (§4.2). The table is monotonic in Offset; SpanAt scans it
// linearly from the end.
type DebugSpan struct {
	Offset                           int
	StartLine, StartCol, EndLine, EndCol int
}

// Chunk is one compilation unit: bytecode bytes, the constant pools the
// bytes address, and source-span debug info. Immutable once the compiler
// finishes emitting it (§3.3).
type Chunk struct {
	Bytes      []byte
	Constants  ConstantPool
	SourcePath string
	Debug      []DebugSpan

	// Functions maps the byte offset of an OpFunction instruction to the
	// child Chunk compiled for that function literal's body. A function's
	// body is compiled as its own self-contained Chunk (own constant pool,
	// own debug table) rather than packed into the parent's byte stream;
	// the inline Body bytes an OpFunction instruction carries are kept
	// only so a disassembler can show the nested code at its definition
	// site without following the map.
	Functions map[int]*Chunk
}

func NewChunk(sourcePath string) *Chunk {
	return &Chunk{SourcePath: sourcePath, Functions: make(map[int]*Chunk)}
}

// SpanAt returns the debug span covering the given instruction offset, or
// the zero Span if none was recorded (e.g. instructions synthesized by
// the compiler with no direct source origin).
func (c *Chunk) SpanAt(offset int) (DebugSpan, bool) {
	// Linear scan backward: debug table is small relative to a typical
	// function body and this path is only taken on error.
	for i := len(c.Debug) - 1; i >= 0; i-- {
		if c.Debug[i].Offset <= offset {
			return c.Debug[i], true
		}
	}
	return DebugSpan{}, false
}

func (c *Chunk) Len() int { return len(c.Bytes) }
