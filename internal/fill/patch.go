package fill

import (
	"context"
	"fmt"
	"math"
	"sort"

	"card-retouch/internal/cv"
	img "card-retouch/internal/image"
	"card-retouch/internal/mask"
	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

const (
	// A candidate scoring below this is good enough to stop sampling.
	earlyExitScore = 5.0

	// Candidates with little known-context overlap score worse by up to
	// this fraction, so well-grounded matches win ties.
	contextBias = 0.3

	// Masked areas larger than this run the preview path at half
	// resolution when the caller asked for a preview.
	previewAreaThreshold = 10000
)

type maskedPixel struct {
	x, y     int
	priority float64
}

// patchWindow is a snapshot of candidate pixel content, kept so it can be
// reused as a fallback after the source area has been overwritten.
type patchWindow struct {
	w, h int
	pix  []colorutil.RGB
}

// patchSynthesize fills masked pixels by copying similar nearby windows.
// Pixels closest to known content go first, so later pixels see the
// freshly synthesized context. Candidate sampling is random; without an
// injected source two runs can differ, which is accepted behavior.
func (e *Engine) patchSynthesize(ctx context.Context, b *img.Buffer, m *mask.Mask, p Params) (*img.Buffer, error) {
	bbox, ok := maskBounds(m)
	if !ok {
		return b.Clone(), nil
	}
	if p.Preview && bbox.Area() > previewAreaThreshold {
		return e.patchPreview(ctx, b, m, p)
	}

	out := b.Clone()

	dist, err := cv.DistanceTransform(m.Pix, m.W, m.H)
	if err != nil {
		return nil, fmt.Errorf("%w: distance transform: %v", ErrAlgorithm, err)
	}
	maxDist := float32(1)
	for i, v := range dist {
		if m.Pix[i] != 0 && v > maxDist {
			maxDist = v
		}
	}

	pixels := make([]maskedPixel, 0, m.Count())
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.Pix[y*m.W+x] != 0 {
				pixels = append(pixels, maskedPixel{
					x: x, y: y,
					priority: 1 - float64(dist[y*m.W+x]/maxDist),
				})
			}
		}
	}
	sort.Slice(pixels, func(i, j int) bool { return pixels[i].priority > pixels[j].priority })

	// One blur of the whole mask serves as the seam alpha for every
	// patch placement: interior pixels take the patch fully, pixels near
	// the mask edge mix with what is already there.
	seam, err := cv.GaussianBlurPlane(m.Pix, m.W, m.H, p.PatchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: seam blur: %v", ErrAlgorithm, err)
	}

	search := bbox.Expand(p.SearchRadius, b.W, b.H)
	half := p.PatchSize / 2
	resolved := make([]bool, b.W*b.H)
	batch := len(pixels)/10 + 1

	var lastPatch *patchWindow
	for i, px := range pixels {
		if i%batch == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			e.log.Debug().Int("done", i).Int("total", len(pixels)).Msg("patch synthesis progress")
		}
		if resolved[px.y*b.W+px.x] {
			continue
		}

		win := clipWindow(px.x, px.y, half, b.W, b.H)
		best := e.bestCandidate(out, m, win, search, p)
		switch {
		case best != nil:
			blendPatch(out, m, seam, win, best, resolved)
			lastPatch = best
		case lastPatch != nil && lastPatch.w == win.Width() && lastPatch.h == win.Height():
			blendPatch(out, m, seam, win, lastPatch, resolved)
		}
	}

	// Anything the patch passes could not reach gets the mean color of
	// the ring around the masked area, so no masked pixel is left as-is.
	ring := ringMean(b, m, bbox)
	for _, px := range pixels {
		if !resolved[px.y*b.W+px.x] {
			out.SetRGB(px.x, px.y, ring)
		}
	}
	return out, nil
}

// bestCandidate samples random same-size windows from the search area and
// keeps the one whose known pixels match the target best.
func (e *Engine) bestCandidate(out *img.Buffer, m *mask.Mask, win, search geometry.Region, p Params) *patchWindow {
	w, h := win.Width(), win.Height()
	maxX := search.X2 - w
	maxY := search.Y2 - h
	if maxX < search.X1 || maxY < search.Y1 {
		return nil
	}

	var best *patchWindow
	bestScore := math.MaxFloat64
	for it := 0; it < p.Iterations; it++ {
		cx := search.X1 + p.intn(maxX-search.X1+1)
		cy := search.Y1 + p.intn(maxY-search.Y1+1)

		score, frac := comparePatch(out, m, win, cx, cy)
		if frac == 0 {
			continue
		}
		weighted := score * (1 + contextBias*(1-frac))
		if weighted < bestScore {
			bestScore = weighted
			best = snapshot(out, cx, cy, w, h)
		}
		if bestScore < earlyExitScore {
			break
		}
	}
	return best
}

// comparePatch returns the mean squared per-channel difference between the
// target window and a candidate placed at (cx, cy), restricted to pixel
// pairs where both sides are unmasked, plus the fraction of the window
// those pairs cover.
func comparePatch(out *img.Buffer, m *mask.Mask, win geometry.Region, cx, cy int) (float64, float64) {
	var sum float64
	count := 0
	for dy := 0; dy < win.Height(); dy++ {
		for dx := 0; dx < win.Width(); dx++ {
			tx, ty := win.X1+dx, win.Y1+dy
			if m.At(tx, ty) || m.At(cx+dx, cy+dy) {
				continue
			}
			a := out.RGBAt(tx, ty)
			b := out.RGBAt(cx+dx, cy+dy)
			dr := float64(a.R) - float64(b.R)
			dg := float64(a.G) - float64(b.G)
			db := float64(a.B) - float64(b.B)
			sum += dr*dr + dg*dg + db*db
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(3*count), float64(count) / float64(win.Area())
}

func snapshot(out *img.Buffer, cx, cy, w, h int) *patchWindow {
	pw := &patchWindow{w: w, h: h, pix: make([]colorutil.RGB, w*h)}
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			pw.pix[dy*w+dx] = out.RGBAt(cx+dx, cy+dy)
		}
	}
	return pw
}

// blendPatch writes the patch over the window's masked pixels, weighted by
// the blurred mask so seams fade instead of stepping.
func blendPatch(out *img.Buffer, m *mask.Mask, seam []uint8, win geometry.Region, patch *patchWindow, resolved []bool) {
	for dy := 0; dy < win.Height(); dy++ {
		for dx := 0; dx < win.Width(); dx++ {
			tx, ty := win.X1+dx, win.Y1+dy
			if !m.At(tx, ty) {
				continue
			}
			a := float64(seam[ty*m.W+tx]) / 255
			src := patch.pix[dy*patch.w+dx]
			dst := out.RGBAt(tx, ty)
			out.SetRGB(tx, ty, colorutil.RGB{
				R: mix(dst.R, src.R, a),
				G: mix(dst.G, src.G, a),
				B: mix(dst.B, src.B, a),
			})
			resolved[ty*m.W+tx] = true
		}
	}
}

func mix(dst, src uint8, a float64) uint8 {
	return uint8(float64(dst)*(1-a) + float64(src)*a + 0.5)
}

// clipWindow centers a patch window on (x, y) and clips it to the image.
func clipWindow(x, y, half, w, h int) geometry.Region {
	r := geometry.Region{X1: x - half, Y1: y - half, X2: x + half + 1, Y2: y + half + 1}
	return r.Clamp(w, h)
}

// maskBounds returns the bounding box of the selected pixels.
func maskBounds(m *mask.Mask) (geometry.Region, bool) {
	minX, minY := m.W, m.H
	maxX, maxY := -1, -1
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.Pix[y*m.W+x] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return geometry.Region{}, false
	}
	return geometry.Region{X1: minX, Y1: minY, X2: maxX + 1, Y2: maxY + 1}, true
}

// ringMean averages the unmasked band just outside the masked bounding
// box. When the box touches every edge it falls back to all unmasked
// pixels, and to white if the mask covers the whole image.
func ringMean(b *img.Buffer, m *mask.Mask, bbox geometry.Region) colorutil.RGB {
	ring := bbox.Expand(2, b.W, b.H)
	var sr, sg, sb, n int
	add := func(x, y int) {
		if m.At(x, y) {
			return
		}
		c := b.RGBAt(x, y)
		sr += int(c.R)
		sg += int(c.G)
		sb += int(c.B)
		n++
	}
	for y := ring.Y1; y < ring.Y2; y++ {
		for x := ring.X1; x < ring.X2; x++ {
			if bbox.Contains(x, y) {
				continue
			}
			add(x, y)
		}
	}
	if n == 0 {
		for y := 0; y < b.H; y++ {
			for x := 0; x < b.W; x++ {
				add(x, y)
			}
		}
	}
	if n == 0 {
		return colorutil.White
	}
	return colorutil.RGB{R: uint8(sr / n), G: uint8(sg / n), B: uint8(sb / n)}
}
