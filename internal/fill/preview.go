package fill

import (
	"context"

	"github.com/disintegration/imaging"

	img "card-retouch/internal/image"
	"card-retouch/internal/mask"
)

// patchPreview runs patch synthesis at half resolution and upsamples the
// result, pasting only the masked pixels back over the original. Live
// previews on large selections stay responsive this way; the final commit
// runs at full resolution.
func (e *Engine) patchPreview(ctx context.Context, b *img.Buffer, m *mask.Mask, p Params) (*img.Buffer, error) {
	small := b.Downsample()
	smallMask := downsampleMask(m, small.W, small.H)

	sp := p
	sp.Preview = false
	if sp.SearchRadius > 10 {
		sp.SearchRadius /= 2
	}

	filled, err := e.patchSynthesize(ctx, small, smallMask, sp)
	if err != nil {
		return nil, err
	}
	up := filled.Resize(b.W, b.H, imaging.CatmullRom)

	out := b.Clone()
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.At(x, y) {
				out.SetRGB(x, y, up.RGBAt(x, y))
			}
		}
	}
	return out, nil
}

// downsampleMask drops the mask to half size with nearest sampling. Any
// set pixel in a 2x2 block keeps the block set, so thin strokes survive.
func downsampleMask(m *mask.Mask, w, h int) *mask.Mask {
	out := &mask.Mask{W: w, H: h, Pix: make([]uint8, w*h), Region: m.Region.Scale(0.5)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					if m.At(x*2+dx, y*2+dy) {
						out.Pix[y*w+x] = 255
					}
				}
			}
		}
	}
	return out
}
