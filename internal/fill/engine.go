// Package fill repaints masked pixels with plausible background. Two
// diffusion primitives handle small smooth areas, a randomized patch
// synthesizer preserves texture on larger ones, and optional neural models
// take over when their weights are present on disk.
package fill

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"card-retouch/internal/cv"
	img "card-retouch/internal/image"
	"card-retouch/internal/mask"
)

// Engine dispatches fill requests to the configured algorithm. Neural
// collaborators are resolved once at construction; requests for a missing
// collaborator silently run diffusion_fast instead.
type Engine struct {
	log     zerolog.Logger
	neuralA *cv.InpaintNet
	neuralB *cv.InpaintNet
}

// EngineOption configures a new Engine.
type EngineOption func(*Engine)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithNeuralModels probes the two optional model files. A path that is
// empty or fails to load only disables its algorithm; it never fails
// engine construction.
func WithNeuralModels(pathA, pathB string) EngineOption {
	return func(e *Engine) {
		e.neuralA = e.probeModel(NeuralA, pathA)
		e.neuralB = e.probeModel(NeuralB, pathB)
	}
}

// NewEngine builds an engine. With no options it supports the classical
// algorithms only.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) probeModel(alg Algorithm, path string) *cv.InpaintNet {
	if path == "" {
		return nil
	}
	net, err := cv.LoadInpaintNet(path)
	if err != nil {
		e.log.Warn().Err(fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)).
			Str("algorithm", string(alg)).Str("model", path).
			Msg("neural model unavailable, will fall back to diffusion_fast")
		return nil
	}
	e.log.Info().Str("algorithm", string(alg)).Str("model", path).Msg("neural model loaded")
	return net
}

// Available reports whether the algorithm can run without falling back.
func (e *Engine) Available(alg Algorithm) bool {
	switch alg {
	case NeuralA:
		return e.neuralA != nil
	case NeuralB:
		return e.neuralB != nil
	default:
		_, err := ParseAlgorithm(string(alg))
		return err == nil
	}
}

// Close releases any loaded neural models.
func (e *Engine) Close() {
	if e.neuralA != nil {
		e.neuralA.Close()
	}
	if e.neuralB != nil {
		e.neuralB.Close()
	}
}

// Fill repaints the masked pixels of b and returns a new buffer. The input
// is never mutated; on any error the caller's image is untouched. The
// context is observed between work batches, so cancellation is cooperative
// rather than immediate.
func (e *Engine) Fill(ctx context.Context, b *img.Buffer, m *mask.Mask, p Params) (*img.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if m.W != b.W || m.H != b.H {
		return nil, fmt.Errorf("mask %dx%d does not match image %dx%d", m.W, m.H, b.W, b.H)
	}
	if m.Empty() {
		return b.Clone(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	e.log.Debug().Str("algorithm", string(p.Algorithm)).
		Int("masked", m.Count()).Bool("preview", p.Preview).Msg("fill start")

	switch p.Algorithm {
	case DiffusionFast:
		return e.diffuse(b, m, p, cv.InpaintTelea)
	case DiffusionQuality:
		return e.diffuse(b, m, p, cv.InpaintNS)
	case PatchSynthesis:
		return e.patchSynthesize(ctx, b, m, p)
	case NeuralA:
		return e.neural(b, m, p, e.neuralA, NeuralA)
	case NeuralB:
		return e.neural(b, m, p, e.neuralB, NeuralB)
	}
	return nil, fmt.Errorf("unknown algorithm %q", p.Algorithm)
}
