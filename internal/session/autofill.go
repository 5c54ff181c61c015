package session

import (
	"context"
	"fmt"

	"card-retouch/internal/classify"
	"card-retouch/internal/fill"
	"card-retouch/internal/mask"
	"card-retouch/pkg/geometry"
)

// DefaultAutoPasses is how many detect-and-fill rounds AutoRemove runs.
// The first pass removes the bulk of the text; the second catches halo
// pixels the first pass uncovered.
const DefaultAutoPasses = 2

// AutoRemove repeatedly classifies and fills the same selection on the
// working image, committing each pass so every round sees the previous
// round's result. It runs synchronously on the caller's goroutine and
// returns the total number of pixels repainted. Runs are serialized with
// Start through the same single-job guard.
func (s *Session) AutoRemove(ctx context.Context, region geometry.Region, mp mask.Params, fp fill.Params, passes int) (int, error) {
	if passes <= 0 {
		passes = DefaultAutoPasses
	}
	if !s.processing.CompareAndSwap(false, true) {
		return 0, ErrBusy
	}
	defer s.processing.Store(false)

	total := 0
	for pass := 1; pass <= passes; pass++ {
		base, err := s.Image()
		if err != nil {
			return total, err
		}

		res, err := classify.DetectEnhanced(base, region)
		if err != nil {
			return total, fmt.Errorf("pass %d: classify: %w", pass, err)
		}
		pmp := mp
		pmp.DarkForeground = res.DarkForeground
		if pmp.Tolerance == 0 {
			pmp.Tolerance = res.Tolerance
		}

		m, info, err := mask.Build(base, region, res.Color, pmp)
		if err != nil {
			return total, fmt.Errorf("pass %d: build mask: %w", pass, err)
		}
		if info.MatchedPixels == 0 {
			s.log.Debug().Int("pass", pass).Msg("nothing left to remove")
			break
		}

		out, err := s.engine.Fill(ctx, base, m, fp)
		if err != nil {
			return total, fmt.Errorf("pass %d: %w", pass, err)
		}

		s.commit(out, fmt.Sprintf("auto fill pass %d", pass))
		total += info.MatchedPixels
		s.log.Info().Int("pass", pass).Int("pixels", info.MatchedPixels).
			Str("color", info.MatchedHex).Msg("auto fill pass done")
	}
	return total, nil
}
