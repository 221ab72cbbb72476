package bytecode

import "errors"

// Decoder error sentinels (§7 DecoderError). Reader.Next wraps these with
// the offset at which they occurred via *DecodeError.
var (
	ErrOutOfBounds   = errors.New("bytecode: read past end of chunk")
	ErrUnknownOpcode = errors.New("bytecode: unknown opcode")
	ErrInvalidFlags  = errors.New("bytecode: function flags set an undefined bit")
	ErrInvalidMetaID = errors.New("bytecode: meta key id out of range")
	ErrMalformed     = errors.New("bytecode: chunk does not start with NewFrame")
)

// DecodeError pairs a decoder sentinel with the byte offset it was
// observed at, so callers can report a useful location.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }
