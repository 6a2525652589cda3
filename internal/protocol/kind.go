package protocol

// MessageKind discriminates which schema message a frame's schema body
// decodes as. It is not part of spec.md's wire diagram directly, but is
// needed to tell NotifyVideoStart and VideoFrame bodies apart on the
// wire, since both share field-1-is-a-varint shapes; a discriminator
// byte is the smallest unambiguous way to do that.
type MessageKind byte

const (
	KindNotifyVideoStart MessageKind = 1
	KindVideoFrame       MessageKind = 2
)

// EncodeSchema prepends kind to body, producing the bytes that go in a
// Frame's Schema field.
func EncodeSchema(kind MessageKind, body []byte) []byte {
	out := make([]byte, 1+len(body))
	out[0] = byte(kind)
	copy(out[1:], body)
	return out
}

// DecodeSchemaKind splits a Frame's Schema field back into its kind and
// body.
func DecodeSchemaKind(schema []byte) (MessageKind, []byte, error) {
	if len(schema) < 1 {
		return 0, nil, newError("DecodeSchemaKind", ErrMalformed)
	}
	return MessageKind(schema[0]), schema[1:], nil
}
