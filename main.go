// Command card-retouch removes printed text and artifacts from rectangular
// regions of card scans. It processes a single image or a whole directory,
// with automatic foreground detection or an explicit target color.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"card-retouch/internal/config"
	"card-retouch/internal/fill"
	"card-retouch/internal/mask"
	"card-retouch/internal/session"
	"card-retouch/internal/version"
	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

type options struct {
	src       string
	dst       string
	region    geometry.Region
	cfg       config.Config
	color     *colorutil.RGB
	seed      int64
	seedSet   bool
	auto      bool
	passes    int
	workers   int
	influence float64
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		srcFlag       = flag.String("src", "", "source image file or directory")
		dstFlag       = flag.String("dst", "", "destination file or directory")
		regionFlag    = flag.String("region", "", "working rectangle as x1,y1,x2,y2")
		configFlag    = flag.String("config", "", "optional YAML config file")
		algorithmFlag = flag.String("algorithm", "", "fill algorithm override")
		colorFlag     = flag.String("color", "", "target color as #rrggbb (default: auto-detect)")
		toleranceFlag = flag.Int("tolerance", -1, "color tolerance override")
		advancedFlag  = flag.Bool("advanced", false, "use text-stroke aware masking")
		borderFlag    = flag.Int("border", -1, "mask border growth override")
		influenceFlag = flag.Float64("influence", -1, "blend strength toward the influence color")
		infColorFlag  = flag.String("influence-color", "", "influence color as #rrggbb")
		seedFlag      = flag.Int64("seed", 0, "random seed for reproducible patch synthesis")
		autoFlag      = flag.Bool("auto", false, "run multi-pass automatic text removal")
		passesFlag    = flag.Int("passes", 0, "auto removal passes")
		workersFlag   = flag.Int("workers", 4, "parallel jobs in directory mode")
		levelFlag     = flag.String("log-level", "", "log level override")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}
	if *algorithmFlag != "" {
		cfg.Fill.Algorithm = *algorithmFlag
	}
	if *toleranceFlag >= 0 {
		cfg.Mask.Tolerance = *toleranceFlag
	}
	if *advancedFlag {
		cfg.Mask.Advanced = true
	}
	if *borderFlag >= 0 {
		cfg.Mask.Border = *borderFlag
	}
	if *influenceFlag >= 0 {
		cfg.Blend.Influence = *influenceFlag
	}
	if *infColorFlag != "" {
		cfg.Blend.Color = *infColorFlag
	}
	if *levelFlag != "" {
		cfg.LogLevel = *levelFlag
	}
	if *passesFlag > 0 {
		cfg.AutoPasses = *passesFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Debug().Str("version", version.Version).Str("commit", version.GitCommit).Msg("card-retouch starting")

	if *srcFlag == "" || *dstFlag == "" {
		return errors.New("both -src and -dst are required")
	}
	region, err := parseRegion(*regionFlag)
	if err != nil {
		return err
	}

	opts := options{
		src:       *srcFlag,
		dst:       *dstFlag,
		region:    region,
		cfg:       cfg,
		seed:      *seedFlag,
		seedSet:   *seedFlag != 0,
		auto:      *autoFlag,
		passes:    cfg.AutoPasses,
		workers:   *workersFlag,
		influence: cfg.Blend.Influence,
	}
	if *colorFlag != "" {
		c, err := colorutil.ParseHex(*colorFlag)
		if err != nil {
			return fmt.Errorf("parse -color: %w", err)
		}
		opts.color = &c
	}

	info, err := os.Stat(opts.src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return processDir(log, opts)
	}
	return processFile(log, opts, opts.src, opts.dst)
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level %q: %w", level, err)
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// parseRegion reads "x1,y1,x2,y2". An empty value selects the whole
// image; the session clamps the rectangle to the actual bounds.
func parseRegion(s string) (geometry.Region, error) {
	if s == "" {
		return geometry.NewRegion(0, 0, 1<<30, 1<<30), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Region{}, fmt.Errorf("region %q: want x1,y1,x2,y2", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return geometry.Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		vals[i] = v
	}
	return geometry.NewRegion(vals[0], vals[1], vals[2], vals[3]), nil
}

func processFile(log zerolog.Logger, opts options, src, dst string) error {
	log = log.With().Str("src", filepath.Base(src)).Logger()

	engine := fill.NewEngine(
		fill.WithLogger(log),
		fill.WithNeuralModels(opts.cfg.NeuralModelA, opts.cfg.NeuralModelB),
	)
	defer engine.Close()

	s := session.New(engine,
		session.WithLogger(log),
		session.WithHistoryCapacity(opts.cfg.HistoryCapacity),
	)
	if err := s.Load(src); err != nil {
		return err
	}

	fp, err := opts.cfg.FillParams()
	if err != nil {
		return err
	}
	if opts.seedSet {
		fp = fp.WithSeed(opts.seed)
	}
	mp := opts.cfg.MaskParams()

	start := time.Now()
	if opts.auto {
		total, err := s.AutoRemove(context.Background(), opts.region, mp, fp, opts.passes)
		if err != nil {
			return err
		}
		log.Info().Int("pixels", total).Dur("elapsed", time.Since(start)).Msg("auto removal done")
	} else {
		req := session.Request{
			Region:       opts.region,
			Color:        opts.color,
			Mask:         mp,
			Fill:         fp,
			Influence:    opts.influence,
			BlendFeather: opts.cfg.Blend.Feather,
			Description:  "fill " + filepath.Base(src),
		}
		if opts.influence > 0 {
			ic, err := colorutil.ParseHex(opts.cfg.Blend.Color)
			if err != nil {
				return fmt.Errorf("influence color: %w", err)
			}
			req.InfluenceColor = ic
		}
		if err := s.Start(req); err != nil {
			return err
		}
		c := <-s.Completions()
		if c.Err != nil {
			return c.Err
		}
		log.Info().Int("pixels", c.MaskInfo.MatchedPixels).
			Str("color", c.MaskInfo.MatchedHex).Dur("elapsed", c.Duration).Msg("fill done")
	}

	return s.Save(dst)
}

// processDir applies the same region and settings to every image in a
// directory, a few files at a time.
func processDir(log zerolog.Logger, opts options) error {
	entries, err := os.ReadDir(opts.src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.dst, 0o755); err != nil {
		return err
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(opts.workers)

	n := 0
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		n++
		name := e.Name()
		g.Go(func() error {
			return processFile(log, opts,
				filepath.Join(opts.src, name),
				filepath.Join(opts.dst, name))
		})
	}
	log.Info().Int("files", n).Msg("directory batch queued")
	return g.Wait()
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
