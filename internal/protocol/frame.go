package protocol

import (
	"encoding/binary"
)

// Frame is one parsed WebSocket binary message: a channel id, a decoded
// schema body (still opaque bytes here — callers Unmarshal it against the
// expected message type for that channel), and a payload tail sliced
// zero-copy from the original buffer (spec.md §4.6).
type Frame struct {
	Channel uint16
	Schema  []byte
	Payload []byte
}

const frameHeaderLen = 2 + 4 // ch:uint16 LE + length prefix:uint32 LE

// ParseFrame splits a raw WebSocket binary message into its channel id,
// schema body, and payload tail per the wire format
// <ch:uint16 LE><4-byte LE length prefix><schema body><payload tail>.
func ParseFrame(b []byte) (Frame, error) {
	if len(b) < frameHeaderLen {
		return Frame{}, newError("ParseFrame", ErrTruncated)
	}

	ch := binary.LittleEndian.Uint16(b[0:2])
	schemaLen := binary.LittleEndian.Uint32(b[2:6])

	rest := b[6:]
	if uint64(schemaLen) > uint64(len(rest)) {
		return Frame{}, newError("ParseFrame", ErrTruncated)
	}

	schema := rest[:schemaLen]
	payload := rest[schemaLen:]

	return Frame{Channel: ch, Schema: schema, Payload: payload}, nil
}

// BuildFrame assembles a wire frame from a channel id, an already-encoded
// schema body (from a Marshal method in this package), and a payload
// tail. payload may be nil for schema-only messages.
func BuildFrame(ch uint16, schema []byte, payload []byte) []byte {
	b := make([]byte, 0, frameHeaderLen+len(schema)+len(payload))

	var chBuf [2]byte
	binary.LittleEndian.PutUint16(chBuf[:], ch)
	b = append(b, chBuf[:]...)

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(schema)))
	b = append(b, lenBuf[:]...)

	b = append(b, schema...)
	b = append(b, payload...)
	return b
}
