// Package image provides the pixel buffer abstraction shared by every
// processing stage: loading, saving, cloning, cropping, and resizing.
package image

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

// ErrUnsupportedFormat indicates an image with a channel count the
// processing pipeline cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Buffer owns a 2D grid of 8-bit pixels. Channels is 1 (grayscale), 3 (RGB)
// or 4 (RGBA). Pixels are stored row-major, channel-interleaved.
type Buffer struct {
	W        int
	H        int
	Channels int
	Pix      []uint8
}

// New allocates a zeroed buffer.
func New(w, h, channels int) (*Buffer, error) {
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", w, h)
	}
	return &Buffer{W: w, H: h, Channels: channels, Pix: make([]uint8, w*h*channels)}, nil
}

// FromImage converts a decoded image to a Buffer. Grayscale images keep a
// single channel; NRGBA keeps alpha; everything else becomes 3-channel RGB.
func FromImage(src image.Image) *Buffer {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch s := src.(type) {
	case *image.Gray:
		buf := &Buffer{W: w, H: h, Channels: 1, Pix: make([]uint8, w*h)}
		for y := 0; y < h; y++ {
			copy(buf.Pix[y*w:(y+1)*w], s.Pix[(y+bounds.Min.Y-s.Rect.Min.Y)*s.Stride+(bounds.Min.X-s.Rect.Min.X):])
		}
		return buf
	case *image.NRGBA:
		buf := &Buffer{W: w, H: h, Channels: 4, Pix: make([]uint8, w*h*4)}
		for y := 0; y < h; y++ {
			row := s.Pix[(y+bounds.Min.Y-s.Rect.Min.Y)*s.Stride:]
			copy(buf.Pix[y*w*4:(y+1)*w*4], row[(bounds.Min.X-s.Rect.Min.X)*4:])
		}
		return buf
	default:
		buf := &Buffer{W: w, H: h, Channels: 3, Pix: make([]uint8, w*h*3)}
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := src.At(x, y).RGBA()
				buf.Pix[i] = uint8(r >> 8)
				buf.Pix[i+1] = uint8(g >> 8)
				buf.Pix[i+2] = uint8(b >> 8)
				i += 3
			}
		}
		return buf
	}
}

// ToImage converts the buffer back to a standard library image.
func (b *Buffer) ToImage() image.Image {
	switch b.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, b.W, b.H))
		copy(img.Pix, b.Pix)
		return img
	case 4:
		img := image.NewNRGBA(image.Rect(0, 0, b.W, b.H))
		copy(img.Pix, b.Pix)
		return img
	default:
		img := image.NewNRGBA(image.Rect(0, 0, b.W, b.H))
		for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
			img.Pix[j] = b.Pix[i]
			img.Pix[j+1] = b.Pix[i+1]
			img.Pix[j+2] = b.Pix[i+2]
			img.Pix[j+3] = 255
		}
		return img
	}
}

// Clone returns an independent deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{W: b.W, H: b.H, Channels: b.Channels, Pix: pix}
}

// Validate checks that the channel count is one the pipeline supports.
func (b *Buffer) Validate() error {
	if b.Channels != 1 && b.Channels != 3 && b.Channels != 4 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, b.Channels)
	}
	if len(b.Pix) != b.W*b.H*b.Channels {
		return fmt.Errorf("pixel slice length %d does not match %dx%dx%d",
			len(b.Pix), b.W, b.H, b.Channels)
	}
	return nil
}

// Offset returns the index of pixel (x, y) in Pix.
func (b *Buffer) Offset(x, y int) int {
	return (y*b.W + x) * b.Channels
}

// RGBAt returns the pixel at (x, y) as an RGB triple. Grayscale pixels are
// replicated across the three channels.
func (b *Buffer) RGBAt(x, y int) colorutil.RGB {
	i := b.Offset(x, y)
	if b.Channels == 1 {
		v := b.Pix[i]
		return colorutil.RGB{R: v, G: v, B: v}
	}
	return colorutil.RGB{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2]}
}

// SetRGB writes an RGB triple at (x, y). On grayscale buffers the value is
// stored as the triple's luminance. Alpha channels are left untouched.
func (b *Buffer) SetRGB(x, y int, c colorutil.RGB) {
	i := b.Offset(x, y)
	if b.Channels == 1 {
		b.Pix[i] = uint8(c.Luminance() + 0.5)
		return
	}
	b.Pix[i] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
}

// GrayAt returns the luminance of the pixel at (x, y).
func (b *Buffer) GrayAt(x, y int) uint8 {
	i := b.Offset(x, y)
	if b.Channels == 1 {
		return b.Pix[i]
	}
	l := 0.299*float64(b.Pix[i]) + 0.587*float64(b.Pix[i+1]) + 0.114*float64(b.Pix[i+2])
	return uint8(l + 0.5)
}

// Crop returns a deep copy of the given region. The region must already be
// clamped to the buffer bounds.
func (b *Buffer) Crop(r geometry.Region) *Buffer {
	w, h := r.Width(), r.Height()
	out := &Buffer{W: w, H: h, Channels: b.Channels, Pix: make([]uint8, w*h*b.Channels)}
	rowLen := w * b.Channels
	for y := 0; y < h; y++ {
		src := b.Offset(r.X1, r.Y1+y)
		copy(out.Pix[y*rowLen:(y+1)*rowLen], b.Pix[src:src+rowLen])
	}
	return out
}

// Fill sets every pixel to the given color.
func (b *Buffer) Fill(c colorutil.RGB) {
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			b.SetRGB(x, y, c)
		}
	}
}

// At implements enough of image.Image access for sampling helpers.
func (b *Buffer) At(x, y int) color.Color {
	return b.RGBAt(x, y).ToRGBA()
}
