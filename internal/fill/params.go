package fill

import (
	"errors"
	"fmt"
	"math/rand"
)

// Sentinel errors for the fill stage. Callers branch with errors.Is.
var (
	// ErrCollaboratorUnavailable means an optional heavy algorithm could
	// not be loaded. It is always recoverable: the engine substitutes a
	// classical algorithm instead of failing the operation.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrCancelled reports cooperative cancellation observed mid-fill.
	ErrCancelled = errors.New("operation cancelled")

	// ErrAlgorithm wraps unexpected internal failures during a fill.
	ErrAlgorithm = errors.New("algorithm failure")
)

// Algorithm selects the fill strategy.
type Algorithm string

const (
	DiffusionFast    Algorithm = "diffusion_fast"
	DiffusionQuality Algorithm = "diffusion_quality"
	PatchSynthesis   Algorithm = "patch_synthesis"
	NeuralA          Algorithm = "neural_a"
	NeuralB          Algorithm = "neural_b"
)

// ParseAlgorithm maps a user-facing name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case DiffusionFast, DiffusionQuality, PatchSynthesis, NeuralA, NeuralB:
		return Algorithm(s), nil
	}
	return "", fmt.Errorf("unknown algorithm %q", s)
}

// Params bundles every knob a fill run consumes. Zero values are not
// usable; start from DefaultParams.
type Params struct {
	Algorithm Algorithm

	// Radius is how far diffusion inpainting samples, in pixels.
	Radius int

	// PatchSize is the synthesis window side length. Odd values center
	// cleanly on the pixel being filled.
	PatchSize int

	// SearchRadius expands the masked area's bounding box to form the
	// candidate search window.
	SearchRadius int

	// Feather softens the mask edge before diffusion fills.
	Feather int

	// Iterations caps random candidate samples per synthesis pixel.
	Iterations int

	// Preview trades fidelity for latency: large selections run at half
	// resolution and the result is upsampled.
	Preview bool

	// Rand, when set, makes candidate sampling reproducible. Nil uses
	// ambient randomness, which is the historical behavior.
	Rand *rand.Rand
}

// DefaultParams returns settings tuned for scanned card stock.
func DefaultParams() Params {
	return Params{
		Algorithm:    DiffusionFast,
		Radius:       3,
		PatchSize:    7,
		SearchRadius: 20,
		Feather:      2,
		Iterations:   100,
	}
}

// Validate checks every numeric field against its documented range.
func (p Params) Validate() error {
	if _, err := ParseAlgorithm(string(p.Algorithm)); err != nil {
		return err
	}
	if p.Radius < 1 || p.Radius > 20 {
		return fmt.Errorf("radius %d outside 1..20", p.Radius)
	}
	if p.PatchSize < 3 || p.PatchSize > 15 {
		return fmt.Errorf("patch size %d outside 3..15", p.PatchSize)
	}
	if p.SearchRadius < 5 || p.SearchRadius > 50 {
		return fmt.Errorf("search radius %d outside 5..50", p.SearchRadius)
	}
	if p.Feather < 0 || p.Feather > 10 {
		return fmt.Errorf("feather %d outside 0..10", p.Feather)
	}
	if p.Iterations < 1 || p.Iterations > 1000 {
		return fmt.Errorf("iterations %d outside 1..1000", p.Iterations)
	}
	return nil
}

// WithSeed returns a copy of p with a deterministic random source.
func (p Params) WithSeed(seed int64) Params {
	p.Rand = rand.New(rand.NewSource(seed))
	return p
}

func (p Params) intn(n int) int {
	if p.Rand != nil {
		return p.Rand.Intn(n)
	}
	return rand.Intn(n)
}
