package desktop

import (
	"bytes"
	"fmt"
	goimage "image"
	"image/jpeg"
	"sync"
)

// JPEGEncoder is the shipped reference Encoder backend, wrapping the
// standard library's image/jpeg. The concrete JPEG codec is an explicit
// external collaborator per spec.md §1; stdlib is an acceptable backend
// for it since it is a perfectly serviceable default software path.
type JPEGEncoder struct {
	mu      sync.Mutex
	quality int
	width   int
	height  int
	locked  bool
}

func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &JPEGEncoder{quality: quality}
}

func (e *JPEGEncoder) Resolution() (w, h int, locked bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height, e.locked
}

// SetQuality adjusts the JPEG quality used by subsequent Encode calls,
// clamped to image/jpeg's valid [1,100] range. Safe to call concurrently
// with Encode.
func (e *JPEGEncoder) SetQuality(quality int) {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	e.mu.Lock()
	e.quality = quality
	e.mu.Unlock()
}

// Quality returns the JPEG quality currently in effect.
func (e *JPEGEncoder) Quality() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quality
}

func (e *JPEGEncoder) Encode(img *Image) ([]byte, error) {
	e.mu.Lock()
	if !e.locked {
		e.width, e.height = img.Width, img.Height
		e.locked = true
	} else if img.Width != e.width || img.Height != e.height {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: locked %dx%d got %dx%d", ErrResolutionChanged, e.width, e.height, img.Width, img.Height)
	}
	quality := e.quality
	e.mu.Unlock()

	rgba, err := toRGBA(img)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *JPEGEncoder) Close() error { return nil }

// JPEGDecoder is the dual of JPEGEncoder: always emits BGRA8888 images.
type JPEGDecoder struct {
	mu     sync.Mutex
	width  int
	height int
	locked bool
}

func NewJPEGDecoder() *JPEGDecoder {
	return &JPEGDecoder{}
}

func (d *JPEGDecoder) Decode(data []byte, width, height int) (*Image, error) {
	d.mu.Lock()
	if !d.locked {
		d.width, d.height = width, height
		d.locked = true
	} else if width != d.width || height != d.height {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: locked %dx%d got %dx%d", ErrResolutionChanged, d.width, d.height, width, height)
	}
	d.mu.Unlock()

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() != width || img.Bounds().Dy() != height {
		return nil, fmt.Errorf("%w: header %dx%d payload %dx%d", ErrResolutionChanged, width, height, img.Bounds().Dx(), img.Bounds().Dy())
	}

	return fromImage(img), nil
}

func (d *JPEGDecoder) Close() error { return nil }

// toRGBA converts a desktop.Image of any supported format into an
// *image.RGBA suitable for image/jpeg.Encode.
func toRGBA(src *Image) (*goimage.RGBA, error) {
	out := goimage.NewRGBA(goimage.Rect(0, 0, src.Width, src.Height))
	bpp := src.Format.BytesPerPixel()

	switch src.Format {
	case PixelFormatRGBA8888:
		for y := 0; y < src.Height; y++ {
			srcRow := src.Pix[y*src.Stride : y*src.Stride+src.Width*bpp]
			copy(out.Pix[y*out.Stride:y*out.Stride+src.Width*4], srcRow)
		}
	case PixelFormatBGRA8888:
		for y := 0; y < src.Height; y++ {
			srcRow := src.Pix[y*src.Stride:]
			dstRow := out.Pix[y*out.Stride:]
			for x := 0; x < src.Width; x++ {
				si, di := x*4, x*4
				dstRow[di+0] = srcRow[si+2]
				dstRow[di+1] = srcRow[si+1]
				dstRow[di+2] = srcRow[si+0]
				dstRow[di+3] = 255
			}
		}
	case PixelFormatRGB24:
		for y := 0; y < src.Height; y++ {
			srcRow := src.Pix[y*src.Stride:]
			dstRow := out.Pix[y*out.Stride:]
			for x := 0; x < src.Width; x++ {
				si, di := x*3, x*4
				dstRow[di+0] = srcRow[si+0]
				dstRow[di+1] = srcRow[si+1]
				dstRow[di+2] = srcRow[si+2]
				dstRow[di+3] = 255
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s cannot be encoded to JPEG", ErrInvalidFormat, src.Format)
	}

	return out, nil
}

// fromImage converts a decoded stdlib image.Image into a BGRA8888
// desktop.Image, matching the decoder output contract of spec.md §4.10.
func fromImage(img goimage.Image) *Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := align4(w * 4)
	pix := make([]byte, stride*h)

	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := x * 4
			row[i+0] = byte(bl >> 8)
			row[i+1] = byte(g >> 8)
			row[i+2] = byte(r >> 8)
			row[i+3] = 0xFF
		}
	}

	return &Image{Width: w, Height: h, Stride: stride, Format: PixelFormatBGRA8888, Pix: pix}
}
