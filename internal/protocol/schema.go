// Package protocol implements the framed message protocol (C7): a
// channel-id-prefixed, length-prefixed schema message followed by a raw
// payload tail. Schema bodies are hand-encoded with protowire rather than
// generated .pb.go stubs, since no protoc/flatbuffers codegen toolchain
// is available here (see DESIGN.md) — every field still carries an
// explicit number and wire type, so Unmarshal can validate the wire type
// of every field against the schema on every receive.
package protocol

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Codec identifies the desktop image codec a video stream (announced in
// NotifyVideoStart) or a CursorShape was encoded with. 0 is reserved so an unset field reads back as "unknown"
// rather than a valid value.
type Codec uint32

const (
	CodecUnknown Codec = 0
	CodecJPEG    Codec = 1
)

// NotifyVideoStart announces a new video stream on a channel, sent once
// before the first VideoFrame (spec.md §4.7's "NotifyVideoStart" schema).
type NotifyVideoStart struct {
	Stream uint16
	Width  uint32
	Height uint32
	Codec  Codec
}

const (
	fieldNotifyStream = 1
	fieldNotifyWidth  = 2
	fieldNotifyHeight = 3
	fieldNotifyCodec  = 4
)

func (m NotifyVideoStart) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldNotifyStream, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Stream))
	b = protowire.AppendTag(b, fieldNotifyWidth, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Width))
	b = protowire.AppendTag(b, fieldNotifyHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Height))
	b = protowire.AppendTag(b, fieldNotifyCodec, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Codec))
	return b
}

func UnmarshalNotifyVideoStart(b []byte) (NotifyVideoStart, error) {
	var m NotifyVideoStart
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v uint64, _ []byte) error {
		if typ != protowire.VarintType {
			return newError("NotifyVideoStart", ErrWireTypeMismatch)
		}
		switch num {
		case fieldNotifyStream:
			m.Stream = uint16(v)
		case fieldNotifyWidth:
			m.Width = uint32(v)
		case fieldNotifyHeight:
			m.Height = uint32(v)
		case fieldNotifyCodec:
			m.Codec = Codec(v)
		}
		return nil
	})
	return m, err
}

// Timings mirrors desktop.Timings for wire transport, avoiding a direct
// import of the desktop package from protocol.
type Timings struct {
	Capture      int64
	EncodeBegin  int64
	EncodeEnd    int64
	NetworkSend  int64
	NetworkRecv  int64
	DecodeBegin  int64
	DecodeEnd    int64
	Present      int64
}

const (
	fieldTimingsCapture     = 1
	fieldTimingsEncodeBegin = 2
	fieldTimingsEncodeEnd   = 3
	fieldTimingsNetworkSend = 4
	fieldTimingsNetworkRecv = 5
	fieldTimingsDecodeBegin = 6
	fieldTimingsDecodeEnd   = 7
	fieldTimingsPresent     = 8
)

func appendTimings(b []byte, fieldNum protowire.Number, t Timings) []byte {
	var body []byte
	body = protowire.AppendTag(body, fieldTimingsEncodeBegin, protowire.VarintType)
	body = protowire.AppendVarint(body, zigzag(t.EncodeBegin))
	body = protowire.AppendTag(body, fieldTimingsEncodeEnd, protowire.VarintType)
	body = protowire.AppendVarint(body, zigzag(t.EncodeEnd))
	body = protowire.AppendTag(body, fieldTimingsNetworkSend, protowire.VarintType)
	body = protowire.AppendVarint(body, zigzag(t.NetworkSend))
	body = protowire.AppendTag(body, fieldTimingsDecodeBegin, protowire.VarintType)
	body = protowire.AppendVarint(body, zigzag(t.DecodeBegin))
	body = protowire.AppendTag(body, fieldTimingsDecodeEnd, protowire.VarintType)
	body = protowire.AppendVarint(body, zigzag(t.DecodeEnd))
	body = protowire.AppendTag(body, fieldTimingsPresent, protowire.VarintType)
	body = protowire.AppendVarint(body, zigzag(t.Present))

	b = protowire.AppendTag(b, fieldNum, protowire.BytesType)
	b = protowire.AppendBytes(b, body)
	return b
}

func parseTimings(b []byte) (Timings, error) {
	var t Timings
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v uint64, _ []byte) error {
		if typ != protowire.VarintType {
			return newError("Timings", ErrWireTypeMismatch)
		}
		val := unzigzag(v)
		switch num {
		case fieldTimingsCapture:
			t.Capture = val
		case fieldTimingsEncodeBegin:
			t.EncodeBegin = val
		case fieldTimingsEncodeEnd:
			t.EncodeEnd = val
		case fieldTimingsNetworkSend:
			t.NetworkSend = val
		case fieldTimingsNetworkRecv:
			t.NetworkRecv = val
		case fieldTimingsDecodeBegin:
			t.DecodeBegin = val
		case fieldTimingsDecodeEnd:
			t.DecodeEnd = val
		case fieldTimingsPresent:
			t.Present = val
		}
		return nil
	})
	return t, err
}

func zigzag(v int64) uint64   { return protowire.EncodeZigZag(v) }
func unzigzag(v uint64) int64 { return protowire.DecodeZigZag(v) }

// CursorShape is the wire form of a cursor image, sent only when the
// shape changed since the previous update (spec.md's cursor shape
// memoisation rule).
type CursorShape struct {
	Image    []byte
	Codec    Codec
	XOR      bool
	HotspotX float32
	HotspotY float32
	Width    uint32
	Height   uint32
}

const (
	fieldShapeImage    = 1
	fieldShapeCodec    = 2
	fieldShapeXOR      = 3
	fieldShapeHotspotX = 4
	fieldShapeHotspotY = 5
	fieldShapeWidth    = 6
	fieldShapeHeight   = 7
)

func appendCursorShape(b []byte, fieldNum protowire.Number, s *CursorShape) []byte {
	if s == nil {
		return b
	}
	var body []byte
	body = protowire.AppendTag(body, fieldShapeImage, protowire.BytesType)
	body = protowire.AppendBytes(body, s.Image)
	body = protowire.AppendTag(body, fieldShapeCodec, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(s.Codec))
	body = protowire.AppendTag(body, fieldShapeXOR, protowire.VarintType)
	body = protowire.AppendVarint(body, boolToVarint(s.XOR))
	body = protowire.AppendTag(body, fieldShapeHotspotX, protowire.Fixed32Type)
	body = protowire.AppendFixed32(body, float32bits(s.HotspotX))
	body = protowire.AppendTag(body, fieldShapeHotspotY, protowire.Fixed32Type)
	body = protowire.AppendFixed32(body, float32bits(s.HotspotY))
	body = protowire.AppendTag(body, fieldShapeWidth, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(s.Width))
	body = protowire.AppendTag(body, fieldShapeHeight, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(s.Height))

	b = protowire.AppendTag(b, fieldNum, protowire.BytesType)
	b = protowire.AppendBytes(b, body)
	return b
}

func parseCursorShape(b []byte) (*CursorShape, error) {
	s := &CursorShape{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v uint64, data []byte) error {
		switch num {
		case fieldShapeImage:
			if typ != protowire.BytesType {
				return newError("CursorShape", ErrWireTypeMismatch)
			}
			s.Image = data
		case fieldShapeCodec:
			if typ != protowire.VarintType {
				return newError("CursorShape", ErrWireTypeMismatch)
			}
			s.Codec = Codec(v)
		case fieldShapeXOR:
			if typ != protowire.VarintType {
				return newError("CursorShape", ErrWireTypeMismatch)
			}
			s.XOR = v != 0
		case fieldShapeHotspotX:
			if typ != protowire.Fixed32Type {
				return newError("CursorShape", ErrWireTypeMismatch)
			}
			s.HotspotX = bitsToFloat32(uint32(v))
		case fieldShapeHotspotY:
			if typ != protowire.Fixed32Type {
				return newError("CursorShape", ErrWireTypeMismatch)
			}
			s.HotspotY = bitsToFloat32(uint32(v))
		case fieldShapeWidth:
			if typ != protowire.VarintType {
				return newError("CursorShape", ErrWireTypeMismatch)
			}
			s.Width = uint32(v)
		case fieldShapeHeight:
			if typ != protowire.VarintType {
				return newError("CursorShape", ErrWireTypeMismatch)
			}
			s.Height = uint32(v)
		}
		return nil
	})
	return s, err
}

// CursorUpdate carries cursor position/visibility plus an optional shape,
// present only when it changed (spec.md §4.7's CursorUpdate schema).
type CursorUpdate struct {
	X       uint32
	Y       uint32
	Visible bool
	Shape   *CursorShape // nil if unchanged since the last update
}

const (
	fieldCursorX       = 1
	fieldCursorY       = 2
	fieldCursorVisible = 3
	fieldCursorShape   = 4
)

func appendCursorUpdate(b []byte, fieldNum protowire.Number, c *CursorUpdate) []byte {
	if c == nil {
		return b
	}
	var body []byte
	body = protowire.AppendTag(body, fieldCursorX, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(c.X))
	body = protowire.AppendTag(body, fieldCursorY, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(c.Y))
	body = protowire.AppendTag(body, fieldCursorVisible, protowire.VarintType)
	body = protowire.AppendVarint(body, boolToVarint(c.Visible))
	body = appendCursorShape(body, fieldCursorShape, c.Shape)

	b = protowire.AppendTag(b, fieldNum, protowire.BytesType)
	b = protowire.AppendBytes(b, body)
	return b
}

func parseCursorUpdate(b []byte) (*CursorUpdate, error) {
	c := &CursorUpdate{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v uint64, data []byte) error {
		switch num {
		case fieldCursorX:
			if typ != protowire.VarintType {
				return newError("CursorUpdate", ErrWireTypeMismatch)
			}
			c.X = uint32(v)
		case fieldCursorY:
			if typ != protowire.VarintType {
				return newError("CursorUpdate", ErrWireTypeMismatch)
			}
			c.Y = uint32(v)
		case fieldCursorVisible:
			if typ != protowire.VarintType {
				return newError("CursorUpdate", ErrWireTypeMismatch)
			}
			c.Visible = v != 0
		case fieldCursorShape:
			if typ != protowire.BytesType {
				return newError("CursorUpdate", ErrWireTypeMismatch)
			}
			shape, err := parseCursorShape(data)
			if err != nil {
				return err
			}
			c.Shape = shape
		}
		return nil
	})
	return c, err
}

// VideoFrame announces a compressed video frame's metadata; the
// compressed bytes themselves travel as the frame's payload tail, not
// inside this schema body (spec.md §4.6: "video_bytes == len(payload_tail)").
type VideoFrame struct {
	VideoBytes uint64
	Cursor     *CursorUpdate
	Timings    Timings
}

const (
	fieldFrameVideoBytes = 1
	fieldFrameCursor     = 2
	fieldFrameTimings    = 3
)

func (m VideoFrame) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldFrameVideoBytes, protowire.VarintType)
	b = protowire.AppendVarint(b, m.VideoBytes)
	b = appendCursorUpdate(b, fieldFrameCursor, m.Cursor)
	b = appendTimings(b, fieldFrameTimings, m.Timings)
	return b
}

func UnmarshalVideoFrame(b []byte) (VideoFrame, error) {
	var m VideoFrame
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v uint64, data []byte) error {
		switch num {
		case fieldFrameVideoBytes:
			if typ != protowire.VarintType {
				return newError("VideoFrame", ErrWireTypeMismatch)
			}
			m.VideoBytes = v
		case fieldFrameCursor:
			if typ != protowire.BytesType {
				return newError("VideoFrame", ErrWireTypeMismatch)
			}
			cursor, err := parseCursorUpdate(data)
			if err != nil {
				return err
			}
			m.Cursor = cursor
		case fieldFrameTimings:
			if typ != protowire.BytesType {
				return newError("VideoFrame", ErrWireTypeMismatch)
			}
			timings, err := parseTimings(data)
			if err != nil {
				return err
			}
			m.Timings = timings
		}
		return nil
	})
	return m, err
}

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
