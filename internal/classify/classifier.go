// Package classify decides whether a region's foreground content is dark on
// a light background or light on a dark background, and returns a
// representative foreground color for mask building.
package classify

import (
	img "card-retouch/internal/image"
	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

// Base tolerances for the color-distance mask built from the detected color.
// Dark text usually wants a wider net than light text.
const (
	darkTextTolerance  = 60
	lightTextTolerance = 50

	// Color refinement keeps widening the tolerance until at least this
	// many pixels match, so a single noise pixel can't define the color.
	minRefinePixels = 50
	maxRefineTol    = 200
	refineTolStep   = 10
)

// Result is the classifier output: the foreground polarity, a representative
// foreground color with the pixel it was sampled from (full-image
// coordinates), a starting color tolerance, and a confidence in [0, 1].
type Result struct {
	DarkForeground bool
	Color          colorutil.RGB
	Point          geometry.PointInt
	Tolerance      int
	Confidence     float64
}

// Detect analyzes a region with luminance histogram statistics. It assumes
// foreground content occupies a minority of the region area: an Otsu split
// of the luminance histogram separates two pixel populations, and the
// smaller one is taken as foreground.
func Detect(b *img.Buffer, region geometry.Region) (Result, error) {
	if err := b.Validate(); err != nil {
		return Result{}, err
	}
	r, err := region.ClampValid(b.W, b.H)
	if err != nil {
		return Result{}, err
	}

	crop := b.Crop(r)

	var hist [256]int
	for y := 0; y < crop.H; y++ {
		for x := 0; x < crop.W; x++ {
			hist[crop.GrayAt(x, y)]++
		}
	}
	total := crop.W * crop.H

	thresh := otsuThreshold(hist, total)

	dark := 0
	for v := 0; v <= thresh; v++ {
		dark += hist[v]
	}
	darkRatio := float64(dark) / float64(total)

	// Foreground is the minority population.
	res := Result{
		DarkForeground: darkRatio < 0.5,
		Confidence:     2 * abs(darkRatio-0.5),
	}

	px, py := extremePixel(crop, res.DarkForeground)
	res.Color = crop.RGBAt(px, py)
	res.Point = geometry.PointInt{X: r.X1 + px, Y: r.Y1 + py}
	res.Tolerance = lightTextTolerance
	if res.DarkForeground {
		res.Tolerance = darkTextTolerance
	}

	res.Color, res.Tolerance = refineColor(crop, res.Color, res.Tolerance)
	return res, nil
}

// otsuThreshold finds the histogram split maximizing between-class variance.
func otsuThreshold(hist [256]int, total int) int {
	var sum float64
	for v, c := range hist {
		sum += float64(v * c)
	}

	var sumB, wB float64
	best := 0
	bestVar := -1.0
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		v := wB * wF * (mB - mF) * (mB - mF)
		if v > bestVar {
			bestVar = v
			best = t
		}
	}
	return best
}

// extremePixel returns the coordinates of the darkest (or lightest) pixel.
func extremePixel(crop *img.Buffer, darkest bool) (int, int) {
	bx, by := 0, 0
	bestVal := int(crop.GrayAt(0, 0))
	for y := 0; y < crop.H; y++ {
		for x := 0; x < crop.W; x++ {
			v := int(crop.GrayAt(x, y))
			if (darkest && v < bestVal) || (!darkest && v > bestVal) {
				bestVal = v
				bx, by = x, y
			}
		}
	}
	return bx, by
}

// refineColor replaces a single extreme pixel's color with the mean of all
// pixels near it, widening the tolerance until enough pixels participate.
// This avoids locking onto a noise or anti-aliasing outlier.
func refineColor(crop *img.Buffer, color colorutil.RGB, tolerance int) (colorutil.RGB, int) {
	count := countMatching(crop, color, tolerance)
	for count < minRefinePixels && tolerance < maxRefineTol {
		tolerance += refineTolStep
		count = countMatching(crop, color, tolerance)
	}
	if count < minRefinePixels {
		return color, tolerance
	}

	var sr, sg, sb int
	for y := 0; y < crop.H; y++ {
		for x := 0; x < crop.W; x++ {
			c := crop.RGBAt(x, y)
			if c.DistManhattan(color) <= tolerance {
				sr += int(c.R)
				sg += int(c.G)
				sb += int(c.B)
			}
		}
	}
	return colorutil.RGB{
		R: uint8(sr / count),
		G: uint8(sg / count),
		B: uint8(sb / count),
	}, tolerance
}

func countMatching(crop *img.Buffer, color colorutil.RGB, tolerance int) int {
	n := 0
	for y := 0; y < crop.H; y++ {
		for x := 0; x < crop.W; x++ {
			if crop.RGBAt(x, y).DistManhattan(color) <= tolerance {
				n++
			}
		}
	}
	return n
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
