// Package mask turns a detected foreground color into a binary fill mask:
// 255 marks pixels to repaint, 0 marks pixels to keep. Masks are stored at
// full image size but only ever select pixels inside the working region.
package mask

import (
	"fmt"

	"card-retouch/internal/cv"
	img "card-retouch/internal/image"
	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

// Mask is a full-size binary plane plus the region it was built from.
type Mask struct {
	W, H   int
	Pix    []uint8
	Region geometry.Region
}

// Info reports what the build matched, for logging and UI feedback.
type Info struct {
	MatchedPixels int
	MatchedHex    string
}

// Params controls mask construction.
type Params struct {
	// Advanced switches from the plain color-distance match to stroke
	// extraction with morphological cleanup. Needs the foreground polarity.
	Advanced       bool
	DarkForeground bool

	// Tolerance is the Manhattan RGB distance for a pixel to count as
	// foreground.
	Tolerance int

	// Border grows the mask outward by this many pixels so fills cover
	// anti-aliased edges. Growth never escapes the region.
	Border int
}

// DefaultParams returns the settings used when the caller has no opinion.
func DefaultParams() Params {
	return Params{Tolerance: 50, Border: 1}
}

// Build constructs a mask selecting pixels near color inside region.
func Build(b *img.Buffer, region geometry.Region, color colorutil.RGB, p Params) (*Mask, Info, error) {
	if err := b.Validate(); err != nil {
		return nil, Info{}, err
	}
	r, err := region.ClampValid(b.W, b.H)
	if err != nil {
		return nil, Info{}, err
	}
	if p.Tolerance < 1 || p.Tolerance > 255 {
		return nil, Info{}, fmt.Errorf("tolerance %d outside 1..255", p.Tolerance)
	}
	if p.Border < 0 || p.Border > 10 {
		return nil, Info{}, fmt.Errorf("border %d outside 0..10", p.Border)
	}

	crop := b.Crop(r)
	var plane []uint8
	if p.Advanced {
		plane, err = advancedPlane(crop, color, p)
		if err != nil {
			return nil, Info{}, err
		}
	} else {
		plane = colorDistancePlane(crop, color, p.Tolerance)
	}

	if p.Border > 0 {
		plane, err = cv.Dilate(plane, crop.W, crop.H, 2*p.Border+1)
		if err != nil {
			return nil, Info{}, fmt.Errorf("border dilation: %w", err)
		}
	}

	m := &Mask{W: b.W, H: b.H, Pix: make([]uint8, b.W*b.H), Region: r}
	for y := 0; y < crop.H; y++ {
		copy(m.Pix[(r.Y1+y)*b.W+r.X1:(r.Y1+y)*b.W+r.X2], plane[y*crop.W:(y+1)*crop.W])
	}

	return m, Info{MatchedPixels: m.Count(), MatchedHex: color.Hex()}, nil
}

// colorDistancePlane is the simple mode: a flat tolerance match.
func colorDistancePlane(crop *img.Buffer, color colorutil.RGB, tolerance int) []uint8 {
	plane := make([]uint8, crop.W*crop.H)
	for y := 0; y < crop.H; y++ {
		for x := 0; x < crop.W; x++ {
			if crop.RGBAt(x, y).DistManhattan(color) <= tolerance {
				plane[y*crop.W+x] = 255
			}
		}
	}
	return plane
}

// advancedPlane extracts strokes by adaptive thresholding, then cleans
// the result up morphologically: the open drops specks, the dilate makes
// sure thin strokes are fully covered. Tolerance only steers the extra
// dilation for soft or degraded ink, so anti-aliased stroke edges stay
// selected no matter how far their color drifts from the target.
func advancedPlane(crop *img.Buffer, color colorutil.RGB, p Params) ([]uint8, error) {
	gray := intensityPlane(crop, color, p.DarkForeground)

	plane, err := cv.AdaptiveThresholdInv(gray, crop.W, crop.H, 11, 2)
	if err != nil {
		return nil, fmt.Errorf("stroke threshold: %w", err)
	}

	plane, err = cv.MorphOpen(plane, crop.W, crop.H, 2)
	if err != nil {
		return nil, fmt.Errorf("morph open: %w", err)
	}
	plane, err = cv.Dilate(plane, crop.W, crop.H, 2)
	if err != nil {
		return nil, fmt.Errorf("dilate: %w", err)
	}

	// Wide tolerances mean soft or degraded ink; grow the mask further so
	// halos around strokes get repainted too.
	if p.Tolerance > 100 {
		plane, err = cv.Dilate(plane, crop.W, crop.H, p.Tolerance/50+1)
		if err != nil {
			return nil, fmt.Errorf("tolerance dilate: %w", err)
		}
	}
	return plane, nil
}

// intensityPlane builds the single channel the stroke threshold runs on.
// Near-gray target colors use plain (or inverted) luminance; chromatic
// targets use a color-distance map so strokes in, say, red ink stand out
// from a background with similar luminance.
func intensityPlane(crop *img.Buffer, color colorutil.RGB, darkForeground bool) []uint8 {
	plane := make([]uint8, crop.W*crop.H)
	if chroma(color) > 40 {
		for y := 0; y < crop.H; y++ {
			for x := 0; x < crop.W; x++ {
				d := crop.RGBAt(x, y).DistManhattan(color) / 3
				if d > 255 {
					d = 255
				}
				plane[y*crop.W+x] = uint8(d)
			}
		}
		return plane
	}
	for y := 0; y < crop.H; y++ {
		for x := 0; x < crop.W; x++ {
			v := crop.GrayAt(x, y)
			if !darkForeground {
				v = 255 - v
			}
			plane[y*crop.W+x] = v
		}
	}
	return plane
}

// chroma is the spread between the largest and smallest channel.
func chroma(c colorutil.RGB) int {
	lo, hi := int(c.R), int(c.R)
	for _, v := range []int{int(c.G), int(c.B)} {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// At reports whether the pixel is selected for filling.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Pix[y*m.W+x] != 0
}

// Count returns the number of selected pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Empty reports whether nothing is selected.
func (m *Mask) Empty() bool {
	return m.Count() == 0
}

// Sub extracts the mask plane for a sub-rectangle, row-major.
func (m *Mask) Sub(r geometry.Region) []uint8 {
	out := make([]uint8, r.Width()*r.Height())
	for y := 0; y < r.Height(); y++ {
		copy(out[y*r.Width():(y+1)*r.Width()], m.Pix[(r.Y1+y)*m.W+r.X1:(r.Y1+y)*m.W+r.X2])
	}
	return out
}

// Clone returns an independent copy.
func (m *Mask) Clone() *Mask {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Mask{W: m.W, H: m.H, Pix: pix, Region: m.Region}
}
