// Package session owns a working image and runs touch-up jobs against it.
// One fill job runs at a time; results come back on a completion channel
// and are committed to the working image and history only on success, so
// a failed or cancelled job never leaves a half-written image behind.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"card-retouch/internal/blend"
	"card-retouch/internal/classify"
	"card-retouch/internal/fill"
	"card-retouch/internal/history"
	img "card-retouch/internal/image"
	"card-retouch/internal/mask"
	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

var (
	// ErrBusy means a job is already in flight; starting another is a
	// no-op by design.
	ErrBusy = errors.New("a fill job is already running")

	ErrNoImage = errors.New("no image loaded")
)

// Request describes one touch-up job: where to work, what color to
// target (nil means run the classifier), and how to mask, fill, and
// optionally tint the result.
type Request struct {
	Region geometry.Region

	// Color overrides classification when set.
	Color *colorutil.RGB

	Mask mask.Params
	Fill fill.Params

	// Influence in (0, 1] tints the filled region toward InfluenceColor.
	Influence      float64
	InfluenceColor colorutil.RGB
	BlendFeather   int

	Description string
}

// Completion is delivered on the session's channel when a job finishes.
// On success the working image has already been committed; Image is a
// copy of the new state.
type Completion struct {
	Image       *img.Buffer
	Err         error
	Duration    time.Duration
	Description string
	MaskInfo    mask.Info
}

// Session serializes jobs over a single working image.
type Session struct {
	log    zerolog.Logger
	engine *fill.Engine
	hist   *history.Manager

	mu      sync.Mutex
	working *img.Buffer

	processing atomic.Bool
	cancel     context.CancelFunc
	done       chan Completion
}

// Option configures a new Session.
type Option func(*Session)

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithHistoryCapacity sets the undo depth.
func WithHistoryCapacity(n int) Option {
	return func(s *Session) { s.hist = history.New(n) }
}

// New creates a session backed by the given fill engine.
func New(engine *fill.Engine, opts ...Option) *Session {
	s := &Session{
		log:    zerolog.Nop(),
		engine: engine,
		hist:   history.New(history.DefaultCapacity),
		done:   make(chan Completion, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads an image from disk and resets history to it.
func (s *Session) Load(path string) error {
	b, err := img.Load(path)
	if err != nil {
		return err
	}
	s.SetImage(b, fmt.Sprintf("load %s", path))
	return nil
}

// SetImage replaces the working image and resets history to it.
func (s *Session) SetImage(b *img.Buffer, description string) {
	s.mu.Lock()
	s.working = b.Clone()
	s.mu.Unlock()
	s.hist.Clear()
	s.hist.Push(b, description)
}

// Image returns a copy of the working image.
func (s *Session) Image() (*img.Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.working == nil {
		return nil, ErrNoImage
	}
	return s.working.Clone(), nil
}

// Save writes the working image to disk.
func (s *Session) Save(path string) error {
	b, err := s.Image()
	if err != nil {
		return err
	}
	return b.Save(path)
}

// Completions delivers one entry per finished job.
func (s *Session) Completions() <-chan Completion {
	return s.done
}

// Busy reports whether a job is in flight.
func (s *Session) Busy() bool {
	return s.processing.Load()
}

// Cancel requests cooperative cancellation of the in-flight job, if any.
// The job stops at its next batch boundary and completes with an error;
// the working image stays at its last committed state.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Start launches a job. Classification and mask building run on the
// caller's goroutine so their errors surface synchronously before any
// worker starts; the fill and blend stages run on a worker goroutine and
// report through Completions. Returns ErrBusy while a job is in flight.
func (s *Session) Start(req Request) error {
	if !s.processing.CompareAndSwap(false, true) {
		s.log.Debug().Msg("fill request ignored, job already running")
		return ErrBusy
	}

	base, m, info, err := s.prepare(&req)
	if err != nil {
		s.processing.Store(false)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx, cancel, base, m, info, req)
	return nil
}

// prepare resolves the target color and builds the mask against a
// snapshot of the working image.
func (s *Session) prepare(req *Request) (*img.Buffer, *mask.Mask, mask.Info, error) {
	base, err := s.Image()
	if err != nil {
		return nil, nil, mask.Info{}, err
	}

	color := req.Color
	if color == nil {
		res, err := classify.DetectEnhanced(base, req.Region)
		if err != nil {
			return nil, nil, mask.Info{}, fmt.Errorf("classify region: %w", err)
		}
		color = &res.Color
		req.Mask.DarkForeground = res.DarkForeground
		if req.Mask.Tolerance == 0 {
			req.Mask.Tolerance = res.Tolerance
		}
		s.log.Debug().Str("color", res.Color.Hex()).Bool("dark", res.DarkForeground).
			Float64("confidence", res.Confidence).Msg("region classified")
	}

	m, info, err := mask.Build(base, req.Region, *color, req.Mask)
	if err != nil {
		return nil, nil, mask.Info{}, fmt.Errorf("build mask: %w", err)
	}
	s.log.Debug().Int("pixels", info.MatchedPixels).Str("color", info.MatchedHex).Msg("mask built")
	return base, m, info, nil
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, base *img.Buffer, m *mask.Mask, info mask.Info, req Request) {
	start := time.Now()
	out, err := s.engine.Fill(ctx, base, m, req.Fill)
	if err == nil && req.Influence > 0 {
		out, err = blend.Apply(out, req.Region, req.InfluenceColor, req.Influence, req.BlendFeather)
	}
	if err == nil {
		err = ctx.Err()
		if err != nil {
			err = fmt.Errorf("%w: %v", fill.ErrCancelled, err)
		}
	}

	if err == nil && !req.Fill.Preview {
		s.commit(out, req.Description)
	}

	cancel()
	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
	s.processing.Store(false)

	c := Completion{
		Image:       out,
		Err:         err,
		Duration:    time.Since(start),
		Description: req.Description,
		MaskInfo:    info,
	}
	if err != nil {
		c.Image = nil
		s.log.Warn().Err(err).Dur("elapsed", c.Duration).Msg("fill job failed")
	} else {
		s.log.Info().Dur("elapsed", c.Duration).Int("pixels", info.MatchedPixels).Msg("fill job done")
	}
	s.done <- c
}

func (s *Session) commit(b *img.Buffer, description string) {
	s.mu.Lock()
	s.working = b.Clone()
	s.mu.Unlock()
	s.hist.Push(b, description)
}

// Undo reverts the working image to the previous history state.
func (s *Session) Undo() error {
	e, err := s.hist.Undo()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.working = e.Image
	s.mu.Unlock()
	s.log.Info().Str("state", e.Description).Msg("undo")
	return nil
}

// CanUndo reports whether an earlier state exists.
func (s *Session) CanUndo() bool {
	return s.hist.CanUndo()
}
