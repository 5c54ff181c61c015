package classify

import (
	"testing"

	"card-retouch/internal/cv"
	img "card-retouch/internal/image"
	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

func uniformBuffer(w, h int, c colorutil.RGB) *img.Buffer {
	b, _ := img.New(w, h, 3)
	b.Fill(c)
	return b
}

func TestDetectDarkSquareOnWhite(t *testing.T) {
	b := uniformBuffer(20, 20, colorutil.White)
	for y := 9; y < 12; y++ {
		for x := 9; x < 12; x++ {
			b.SetRGB(x, y, colorutil.Black)
		}
	}

	res, err := Detect(b, geometry.Region{X1: 0, Y1: 0, X2: 20, Y2: 20})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !res.DarkForeground {
		t.Error("expected dark foreground for black square on white")
	}
	if res.Color.R > 10 || res.Color.G > 10 || res.Color.B > 10 {
		t.Errorf("expected near-black color, got %v", res.Color)
	}
	if res.Confidence <= 0 {
		t.Errorf("expected positive confidence, got %f", res.Confidence)
	}
	if !(res.Point.X >= 9 && res.Point.X < 12 && res.Point.Y >= 9 && res.Point.Y < 12) {
		t.Errorf("sample point %v outside the black square", res.Point)
	}
}

func TestDetectLightSquareOnBlack(t *testing.T) {
	b := uniformBuffer(20, 20, colorutil.Black)
	for y := 9; y < 12; y++ {
		for x := 9; x < 12; x++ {
			b.SetRGB(x, y, colorutil.White)
		}
	}

	res, err := Detect(b, geometry.Region{X1: 0, Y1: 0, X2: 20, Y2: 20})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.DarkForeground {
		t.Error("expected light foreground for white square on black")
	}
	if res.Color.R < 245 {
		t.Errorf("expected near-white color, got %v", res.Color)
	}
}

func TestDetectRefinesColorOverEnoughPixels(t *testing.T) {
	// A foreground large enough to trigger mean-color refinement: the
	// returned color must average the two foreground shades.
	b := uniformBuffer(30, 30, colorutil.White)
	for y := 5; y < 17; y++ {
		for x := 5; x < 17; x++ {
			c := colorutil.RGB{R: 10, G: 10, B: 10}
			if (x+y)%2 == 0 {
				c = colorutil.RGB{R: 30, G: 30, B: 30}
			}
			b.SetRGB(x, y, c)
		}
	}

	res, err := Detect(b, geometry.Region{X1: 0, Y1: 0, X2: 30, Y2: 30})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !res.DarkForeground {
		t.Fatal("expected dark foreground")
	}
	if res.Color.R < 15 || res.Color.R > 25 {
		t.Errorf("expected refined mean near 20, got %v", res.Color)
	}
}

func TestDetectRejectsDegenerateRegion(t *testing.T) {
	b := uniformBuffer(10, 10, colorutil.White)
	if _, err := Detect(b, geometry.Region{X1: 5, Y1: 5, X2: 5, Y2: 9}); err == nil {
		t.Fatal("expected error for zero-width region")
	}
}

func TestOtsuThresholdSeparatesBimodal(t *testing.T) {
	var hist [256]int
	hist[40] = 100
	hist[200] = 100
	thresh := otsuThreshold(hist, 200)
	if thresh < 40 || thresh >= 200 {
		t.Errorf("threshold %d does not separate modes 40 and 200", thresh)
	}
}

func TestTextLikenessPrefersGlyphLikeComponents(t *testing.T) {
	glyphs := make([]cv.Component, 0, 8)
	for i := 0; i < 8; i++ {
		glyphs = append(glyphs, cv.Component{
			Area: 48, X: 10 + i*14, Y: 20, W: 8, H: 12,
			Centroid: geometry.Point2D{X: float64(14 + i*14), Y: 26},
		})
	}
	blob := []cv.Component{{
		Area: 900, X: 0, Y: 0, W: 90, H: 90,
		Centroid: geometry.Point2D{X: 45, Y: 45},
	}}

	gs := textLikeness(glyphs, 130, 50)
	bs := textLikeness(blob, 130, 50)
	if gs <= bs {
		t.Errorf("glyph row scored %f, single blob %f; expected glyphs higher", gs, bs)
	}
}

func TestAlignmentScoreRewardsRows(t *testing.T) {
	aligned := make([]cv.Component, 0, 6)
	for i := 0; i < 6; i++ {
		aligned = append(aligned, cv.Component{
			Area: 40, X: i * 12, Y: 30, W: 8, H: 10,
			Centroid: geometry.Point2D{X: float64(4 + i*12), Y: 35},
		})
	}
	scattered := make([]cv.Component, 0, 6)
	for i := 0; i < 6; i++ {
		scattered = append(scattered, cv.Component{
			Area: 40, X: i * 12, Y: i * 30, W: 8, H: 10,
			Centroid: geometry.Point2D{X: float64(4 + i*12), Y: float64(5 + i*30)},
		})
	}

	if as, ss := alignmentScore(aligned), alignmentScore(scattered); as <= ss {
		t.Errorf("aligned row scored %f, scattered %f; expected aligned higher", as, ss)
	}
	if alignmentScore(aligned[:2]) != 0 {
		t.Error("fewer than three components should score zero alignment")
	}
}
