package classify

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"card-retouch/internal/cv"
	img "card-retouch/internal/image"
	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

const (
	adaptiveBlockSize = 11
	adaptiveC         = 2
	minComponentArea  = 5

	// Confidence below this means the structural analysis could not
	// separate the two polarities and the histogram classifier decides.
	fallbackConfidence = 0.3
)

// AnalyzeTextRegions classifies a region by comparing how text-like its
// connected components look under both polarities. An adaptive threshold
// extracts dark-on-light strokes, its inverse extracts light-on-dark
// strokes, and the polarity whose components score better wins. Confidence
// reflects how decisively one polarity beat the other.
func AnalyzeTextRegions(b *img.Buffer, region geometry.Region) (Result, error) {
	if err := b.Validate(); err != nil {
		return Result{}, err
	}
	r, err := region.ClampValid(b.W, b.H)
	if err != nil {
		return Result{}, err
	}

	crop := b.Crop(r)
	gray := make([]uint8, crop.W*crop.H)
	for y := 0; y < crop.H; y++ {
		for x := 0; x < crop.W; x++ {
			gray[y*crop.W+x] = crop.GrayAt(x, y)
		}
	}

	darkBin, err := cv.AdaptiveThresholdInv(gray, crop.W, crop.H, adaptiveBlockSize, adaptiveC)
	if err != nil {
		return Result{}, fmt.Errorf("adaptive threshold: %w", err)
	}
	lightBin := make([]uint8, len(darkBin))
	for i, v := range darkBin {
		lightBin[i] = 255 - v
	}

	darkComps, err := cv.ConnectedComponents(darkBin, crop.W, crop.H, minComponentArea)
	if err != nil {
		return Result{}, fmt.Errorf("dark components: %w", err)
	}
	lightComps, err := cv.ConnectedComponents(lightBin, crop.W, crop.H, minComponentArea)
	if err != nil {
		return Result{}, fmt.Errorf("light components: %w", err)
	}

	darkScore := textLikeness(darkComps, crop.W, crop.H) * (1 + alignmentScore(darkComps))
	lightScore := textLikeness(lightComps, crop.W, crop.H) * (1 + alignmentScore(lightComps))

	res := Result{
		DarkForeground: darkScore >= lightScore,
		Confidence:     abs(darkScore-lightScore) / maxF(darkScore+lightScore, 1),
	}

	res.Color, res.Point = representativeColor(crop, gray, res.DarkForeground)
	res.Point.X += r.X1
	res.Point.Y += r.Y1
	res.Tolerance = lightTextTolerance
	if res.DarkForeground {
		res.Tolerance = darkTextTolerance
	}
	res.Color, res.Tolerance = refineColor(crop, res.Color, res.Tolerance)
	return res, nil
}

// DetectEnhanced runs the structural analyzer and falls back to the
// histogram classifier when the analyzer fails or is not confident enough.
func DetectEnhanced(b *img.Buffer, region geometry.Region) (Result, error) {
	res, err := AnalyzeTextRegions(b, region)
	if err != nil || res.Confidence <= fallbackConfidence {
		return Detect(b, region)
	}
	return res, nil
}

// textLikeness scores a component set on four traits of rendered text:
// enough distinct glyphs, moderate ink coverage, consistent glyph sizes,
// and glyph-like aspect ratios.
func textLikeness(comps []cv.Component, w, h int) float64 {
	if len(comps) == 0 {
		return 0
	}

	countScore := minF(float64(len(comps))/10, 1)

	inked := 0
	for _, c := range comps {
		inked += c.Area
	}
	density := float64(inked) / float64(w*h)
	densityScore := clampF(1-abs(0.15-density)*2, 0, 1)

	sizeScore := 0.5
	if len(comps) > 1 {
		areas := make([]float64, len(comps))
		for i, c := range comps {
			areas[i] = float64(c.Area)
		}
		mean := stat.Mean(areas, nil)
		if mean > 0 {
			cov := stat.PopStdDev(areas, nil) / mean
			sizeScore = 1 - minF(cov, 1)
		}
	}

	aspectSum := 0.0
	for _, c := range comps {
		ar := float64(c.W) / maxF(float64(c.H), 1)
		if ar < 0.2 || ar > 5.0 {
			continue
		}
		aspectSum += 1 - minF(abs(1-ar)/4, 1)
	}
	aspectScore := aspectSum / float64(len(comps))

	return 0.30*countScore + 0.25*densityScore + 0.25*sizeScore + 0.20*aspectScore
}

// alignmentScore rewards components arranged in horizontal lines, the way
// printed text sits on a baseline. Components are clustered into lines by
// centroid height and scored on per-line population and vertical spread.
func alignmentScore(comps []cv.Component) float64 {
	if len(comps) < 3 {
		return 0
	}

	heights := make([]float64, len(comps))
	for i, c := range comps {
		heights[i] = float64(c.H)
	}
	sort.Float64s(heights)
	medianH := stat.Quantile(0.5, stat.Empirical, heights, nil)
	lineThreshold := maxF(medianH*0.5, 5)

	ys := make([]float64, len(comps))
	for i, c := range comps {
		ys[i] = c.Centroid.Y
	}
	sort.Float64s(ys)

	var lines [][]float64
	current := []float64{ys[0]}
	for _, y := range ys[1:] {
		if y-current[len(current)-1] <= lineThreshold {
			current = append(current, y)
		} else {
			lines = append(lines, current)
			current = []float64{y}
		}
	}
	lines = append(lines, current)

	perLine := float64(len(comps)) / float64(len(lines))
	var lineScore float64
	switch {
	case perLine < 1.5:
		lineScore = 0.1
	case perLine < 3:
		lineScore = 0.5
	default:
		lineScore = 1.0
	}

	// Tight lines have low vertical variance relative to glyph height.
	varSum := 0.0
	for _, line := range lines {
		varSum += stat.PopVariance(line, nil)
	}
	normVar := (varSum / float64(len(lines))) / maxF(medianH*medianH, 1)
	spreadScore := clampF(1-normVar, 0, 1)

	return 0.7*lineScore + 0.3*spreadScore
}

// representativeColor averages the darkest (or lightest) tenth of the
// region's pixels, which tracks the ink color better than one extremum.
func representativeColor(crop *img.Buffer, gray []uint8, darkest bool) (colorutil.RGB, geometry.PointInt) {
	sorted := make([]uint8, len(gray))
	copy(sorted, gray)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	tenth := len(sorted) / 10
	if tenth < 1 {
		tenth = 1
	}
	var cutoff uint8
	var keep func(v uint8) bool
	if darkest {
		cutoff = sorted[tenth-1]
		keep = func(v uint8) bool { return v <= cutoff }
	} else {
		cutoff = sorted[len(sorted)-tenth]
		keep = func(v uint8) bool { return v >= cutoff }
	}

	var sr, sg, sb, n int
	for y := 0; y < crop.H; y++ {
		for x := 0; x < crop.W; x++ {
			if !keep(gray[y*crop.W+x]) {
				continue
			}
			c := crop.RGBAt(x, y)
			sr += int(c.R)
			sg += int(c.G)
			sb += int(c.B)
			n++
		}
	}
	px, py := extremePixel(crop, darkest)
	if n == 0 {
		return crop.RGBAt(px, py), geometry.PointInt{X: px, Y: py}
	}
	return colorutil.RGB{
		R: uint8(sr / n),
		G: uint8(sg / n),
		B: uint8(sb / n),
	}, geometry.PointInt{X: px, Y: py}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
