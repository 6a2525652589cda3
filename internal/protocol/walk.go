package protocol

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// fieldVisitor receives one decoded field at a time. v carries the raw
// varint/fixed32/fixed64 value; data carries the bytes payload for
// BytesType fields. Returning an error aborts the walk.
type fieldVisitor func(num protowire.Number, typ protowire.Type, v uint64, data []byte) error

// walkFields iterates every top-level field in an encoded message body,
// dispatching each to visit. This is the single decode loop all schema
// Unmarshal functions share, so wire-type validation is applied uniformly
// everywhere a field is read.
func walkFields(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return newError("walkFields", ErrMalformed)
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return newError("walkFields", ErrMalformed)
			}
			b = b[n:]
			if err := visit(num, typ, v, nil); err != nil {
				return err
			}
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return newError("walkFields", ErrMalformed)
			}
			b = b[n:]
			if err := visit(num, typ, uint64(v), nil); err != nil {
				return err
			}
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return newError("walkFields", ErrMalformed)
			}
			b = b[n:]
			if err := visit(num, typ, v, nil); err != nil {
				return err
			}
		case protowire.BytesType:
			data, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return newError("walkFields", ErrMalformed)
			}
			b = b[n:]
			if err := visit(num, typ, 0, data); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return newError("walkFields", ErrMalformed)
			}
			b = b[n:]
		}
	}
	return nil
}

func float32bits(f float32) uint32   { return math.Float32bits(f) }
func bitsToFloat32(v uint32) float32 { return math.Float32frombits(v) }
