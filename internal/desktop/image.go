// Package desktop holds the frame/cursor data model and the pluggable
// capture/codec contracts that the streaming pipeline is built on.
package desktop

import (
	"errors"
	"fmt"
)

// PixelFormat identifies the byte layout of an Image's pixel buffer.
type PixelFormat int

const (
	PixelFormatBGRA8888 PixelFormat = iota
	PixelFormatRGBA8888
	PixelFormatRGB24
	PixelFormatNV12
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatBGRA8888:
		return "BGRA8888"
	case PixelFormatRGBA8888:
		return "RGBA8888"
	case PixelFormatRGB24:
		return "RGB24"
	case PixelFormatNV12:
		return "NV12"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// BytesPerPixel returns the packed-plane pixel size for formats that have
// one; NV12 is planar and has no single answer, so it returns 1 (luma byte).
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatBGRA8888, PixelFormatRGBA8888:
		return 4
	case PixelFormatRGB24:
		return 3
	case PixelFormatNV12:
		return 1
	default:
		return 0
	}
}

var (
	ErrInvalidStride = errors.New("desktop: stride smaller than natural row size")
	ErrInvalidBuffer = errors.New("desktop: buffer too small for height*stride")
	ErrInvalidFormat = errors.New("desktop: unknown pixel format")
	ErrOddHeight     = errors.New("desktop: NV12 requires an even height")
)

// Image is an owned pixel buffer. It is never aliased between pipeline
// stages; each stage either keeps it or hands it onward.
type Image struct {
	Width  int
	Height int
	Stride int
	Format PixelFormat
	Pix    []byte
}

// align4 rounds n up to the next multiple of 4.
func align4(n int) int {
	return (n + 3) &^ 3
}

// NewImage validates and constructs an Image. Stride may be zero, in which
// case the natural row size (aligned up to 4 bytes) is used.
func NewImage(width, height, stride int, format PixelFormat, pix []byte) (*Image, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, ErrInvalidFormat
	}

	natural := width * bpp
	if stride == 0 {
		stride = align4(natural)
	}
	if stride < natural {
		return nil, fmt.Errorf("%w: stride=%d natural=%d", ErrInvalidStride, stride, natural)
	}

	rows := height
	if format == PixelFormatNV12 {
		if height%2 != 0 {
			return nil, ErrOddHeight
		}
		rows = height + height/2
	}

	if rows*stride > len(pix) {
		return nil, fmt.Errorf("%w: need %d have %d", ErrInvalidBuffer, rows*stride, len(pix))
	}

	return &Image{
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
		Pix:    pix,
	}, nil
}

// Clone deep-copies the pixel buffer so the result shares no storage with img.
func (img *Image) Clone() *Image {
	pix := make([]byte, len(img.Pix))
	copy(pix, img.Pix)
	return &Image{
		Width:  img.Width,
		Height: img.Height,
		Stride: img.Stride,
		Format: img.Format,
		Pix:    pix,
	}
}

// Resolution reports the (width, height) pair, matching the CaptureSource
// and Codec contracts' "resolution" concept.
func (img *Image) Resolution() (w, h int) {
	return img.Width, img.Height
}
