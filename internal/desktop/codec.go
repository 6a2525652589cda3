package desktop

import "errors"

// Codec identifies the desktop-bytes compression scheme used on a channel.
type Codec string

const CodecJPEG Codec = "jpeg"

// ErrResolutionChanged is returned by an Encoder or Decoder once its
// resolution has locked on the first frame and a later frame's dimensions
// no longer match. It is fatal: the pipeline that owns the codec tears down.
var ErrResolutionChanged = errors.New("desktop: resolution changed after lock")

// Encoder consumes raw images and emits compressed bytes. Resolution locks
// on the first call to Encode; later calls with different dimensions fail.
type Encoder interface {
	Encode(img *Image) ([]byte, error)
	Resolution() (w, h int, locked bool)
	Close() error
}

// Decoder is the dual of Encoder: it locks resolution on the first call to
// Decode (not at construction) and rejects later frames whose dimensions
// mismatch. Its output is always
// BGRA8888 regardless of the wire codec, matching spec.md §4.10.
type Decoder interface {
	Decode(data []byte, width, height int) (*Image, error)
	Close() error
}
