// Package blend tints fill output toward a flat color. A feathered
// rectangle mask weights the interpolation so the tint fades out at the
// region edge instead of printing a hard seam.
package blend

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"

	img "card-retouch/internal/image"
	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

// Apply blends b toward color inside region, weighted by influence in
// [0, 1] and a feathered edge of the given width. influence 0 returns the
// input unchanged, influence 1 fully paints the region interior. The input
// buffer is never mutated.
func Apply(b *img.Buffer, region geometry.Region, c colorutil.RGB, influence float64, feather int) (*img.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if influence < 0 || influence > 1 {
		return nil, fmt.Errorf("influence %f outside 0..1", influence)
	}
	if feather < 0 {
		return nil, fmt.Errorf("feather %d must not be negative", feather)
	}
	r, err := region.ClampValid(b.W, b.H)
	if err != nil {
		return nil, err
	}

	out := b.Clone()
	if influence == 0 {
		return out, nil
	}

	weights := regionWeights(b.W, b.H, r, feather)
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			a := weights[y*b.W+x] * influence
			if a == 0 {
				continue
			}
			dst := out.RGBAt(x, y)
			out.SetRGB(x, y, colorutil.RGB{
				R: mix(dst.R, c.R, a),
				G: mix(dst.G, c.G, a),
				B: mix(dst.B, c.B, a),
			})
		}
	}
	return out, nil
}

// regionWeights rasterizes the region as a white rectangle and optionally
// blurs it, yielding per-pixel blend weights in [0, 1].
func regionWeights(w, h int, r geometry.Region, feather int) []float64 {
	weights := make([]float64, w*h)
	if feather == 0 {
		for y := r.Y1; y < r.Y2; y++ {
			for x := r.X1; x < r.X2; x++ {
				weights[y*w+x] = 1
			}
		}
		return weights
	}

	rect := image.NewGray(image.Rect(0, 0, w, h))
	for y := r.Y1; y < r.Y2; y++ {
		for x := r.X1; x < r.X2; x++ {
			rect.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	soft := blur.Gaussian(rect, float64(feather))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			weights[y*w+x] = float64(soft.RGBAAt(x, y).R) / 255
		}
	}
	return weights
}

func mix(dst, src uint8, a float64) uint8 {
	return uint8(float64(dst)*(1-a) + float64(src)*a + 0.5)
}
