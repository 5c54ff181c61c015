package image

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Load reads and decodes an image file into a Buffer.
func Load(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromImage(img), nil
}

// Save encodes the buffer to a file; the format is chosen by extension
// (png, jpg, tif, bmp).
func (b *Buffer) Save(path string) error {
	if err := imaging.Save(b.ToImage(), path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Resize returns the buffer scaled to w×h using the given filter. The
// channel count is preserved.
func (b *Buffer) Resize(w, h int, filter imaging.ResampleFilter) *Buffer {
	resized := imaging.Resize(b.ToImage(), w, h, filter)
	out := FromImage(resized)
	return out.convertChannels(b.Channels)
}

// Downsample halves the buffer dimensions, used by the fill preview path.
func (b *Buffer) Downsample() *Buffer {
	w := maxInt(1, b.W/2)
	h := maxInt(1, b.H/2)
	return b.Resize(w, h, imaging.Box)
}

// convertChannels reshapes the pixel data to the requested channel count.
func (b *Buffer) convertChannels(channels int) *Buffer {
	if b.Channels == channels {
		return b
	}
	out := &Buffer{W: b.W, H: b.H, Channels: channels, Pix: make([]uint8, b.W*b.H*channels)}
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			if channels == 1 {
				out.Pix[out.Offset(x, y)] = b.GrayAt(x, y)
				continue
			}
			c := b.RGBAt(x, y)
			i := out.Offset(x, y)
			out.Pix[i] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			if channels == 4 {
				out.Pix[i+3] = b.alphaAt(x, y)
			}
		}
	}
	return out
}

func (b *Buffer) alphaAt(x, y int) uint8 {
	if b.Channels != 4 {
		return 255
	}
	return b.Pix[b.Offset(x, y)+3]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
