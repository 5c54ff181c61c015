package fill

import (
	"fmt"

	"card-retouch/internal/cv"
	img "card-retouch/internal/image"
	"card-retouch/internal/mask"
)

// diffuse runs one of the standard inpainting primitives. Feathering blurs
// the mask edge first, which widens coverage by a pixel or two and keeps
// hard mask boundaries from printing through the diffusion result.
func (e *Engine) diffuse(b *img.Buffer, m *mask.Mask, p Params, method cv.InpaintMethod) (*img.Buffer, error) {
	plane := m.Pix
	if p.Feather > 0 {
		blurred, err := cv.GaussianBlurPlane(m.Pix, m.W, m.H, 2*p.Feather+1)
		if err != nil {
			return nil, fmt.Errorf("%w: feather mask: %v", ErrAlgorithm, err)
		}
		plane = make([]uint8, len(blurred))
		for i, v := range blurred {
			if v != 0 {
				plane[i] = 255
			}
		}
	}

	out, err := cv.Inpaint(b, plane, p.Radius, method)
	if err != nil {
		return nil, fmt.Errorf("%w: inpaint: %v", ErrAlgorithm, err)
	}
	return out, nil
}

// neural runs a loaded model, or falls back to diffusion_fast when the
// model is absent or fails at runtime. Fallback is deliberate behavior:
// the caller always gets a filled image.
func (e *Engine) neural(b *img.Buffer, m *mask.Mask, p Params, net *cv.InpaintNet, alg Algorithm) (*img.Buffer, error) {
	if net == nil {
		e.log.Info().Str("algorithm", string(alg)).Msg("model not loaded, using diffusion_fast")
		return e.diffuse(b, m, p, cv.InpaintTelea)
	}
	out, err := net.Run(b, m.Pix)
	if err != nil {
		e.log.Warn().Err(err).Str("algorithm", string(alg)).
			Msg("neural inference failed, using diffusion_fast")
		return e.diffuse(b, m, p, cv.InpaintTelea)
	}
	return out, nil
}
