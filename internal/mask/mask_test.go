package mask

import (
	"testing"

	img "card-retouch/internal/image"
	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

func blackSquareOnWhite(w, h, sq int) *img.Buffer {
	b, _ := img.New(w, h, 3)
	b.Fill(colorutil.White)
	x0 := (w - sq) / 2
	y0 := (h - sq) / 2
	for y := y0; y < y0+sq; y++ {
		for x := x0; x < x0+sq; x++ {
			b.SetRGB(x, y, colorutil.Black)
		}
	}
	return b
}

func TestBuildSimpleMatchesExactPixels(t *testing.T) {
	b := blackSquareOnWhite(20, 20, 3)
	region := geometry.Region{X1: 0, Y1: 0, X2: 20, Y2: 20}

	m, info, err := Build(b, region, colorutil.Black, Params{Tolerance: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if info.MatchedPixels != 9 {
		t.Errorf("matched %d pixels, want 9", info.MatchedPixels)
	}
	if info.MatchedHex != "#000000" {
		t.Errorf("matched hex %q, want #000000", info.MatchedHex)
	}
	if !m.At(10, 10) {
		t.Error("center pixel should be selected")
	}
	if m.At(0, 0) {
		t.Error("background corner should not be selected")
	}
}

func TestBuildContainmentInsideRegion(t *testing.T) {
	// The square straddles the region border; selected pixels must stay
	// inside the region even with border growth enabled.
	b := blackSquareOnWhite(20, 20, 6)
	region := geometry.Region{X1: 10, Y1: 0, X2: 20, Y2: 20}

	m, _, err := Build(b, region, colorutil.Black, Params{Tolerance: 10, Border: 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Empty() {
		t.Fatal("expected matches in the right half of the square")
	}
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.At(x, y) && !region.Contains(x, y) {
				t.Fatalf("selected pixel (%d,%d) outside region %v", x, y, region)
			}
		}
	}
}

func TestBuildToleranceMonotonic(t *testing.T) {
	b, _ := img.New(16, 16, 3)
	b.Fill(colorutil.White)
	for x := 0; x < 16; x++ {
		b.SetRGB(x, 8, colorutil.RGB{R: uint8(x * 16), G: uint8(x * 16), B: uint8(x * 16)})
	}
	region := geometry.Region{X1: 0, Y1: 0, X2: 16, Y2: 16}

	prev := -1
	for _, tol := range []int{10, 60, 120, 250} {
		_, info, err := Build(b, region, colorutil.Black, Params{Tolerance: tol})
		if err != nil {
			t.Fatalf("Build tol=%d: %v", tol, err)
		}
		if info.MatchedPixels < prev {
			t.Errorf("tolerance %d matched %d pixels, fewer than previous %d", tol, info.MatchedPixels, prev)
		}
		prev = info.MatchedPixels
	}
}

func TestBuildAdvancedCoversAntiAliasedEdges(t *testing.T) {
	// An 8x8 black stroke wearing a soft gray edge ring. At tolerance 40
	// the ring is far outside the color match, but stroke extraction still
	// has to cover it so fills do not leave halos behind.
	b, _ := img.New(30, 30, 3)
	b.Fill(colorutil.White)
	soft := colorutil.RGB{R: 150, G: 150, B: 150}
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			if x == 10 || x == 19 || y == 10 || y == 19 {
				b.SetRGB(x, y, soft)
			} else {
				b.SetRGB(x, y, colorutil.Black)
			}
		}
	}
	region := geometry.Region{X1: 0, Y1: 0, X2: 30, Y2: 30}

	_, simpleInfo, err := Build(b, region, colorutil.Black, Params{Tolerance: 40})
	if err != nil {
		t.Fatalf("Build simple: %v", err)
	}
	if simpleInfo.MatchedPixels != 64 {
		t.Fatalf("simple mode matched %d pixels, want the 64 solid ones", simpleInfo.MatchedPixels)
	}

	m, info, err := Build(b, region, colorutil.Black,
		Params{Advanced: true, DarkForeground: true, Tolerance: 40})
	if err != nil {
		t.Fatalf("Build advanced: %v", err)
	}
	if info.MatchedPixels < 100 {
		t.Errorf("advanced mode matched %d pixels, want at least the full 10x10 stroke", info.MatchedPixels)
	}
	if !m.At(15, 15) {
		t.Error("stroke interior should be selected")
	}
	if m.At(2, 2) {
		t.Error("background should stay unselected")
	}
}

func TestBuildValidation(t *testing.T) {
	b := blackSquareOnWhite(10, 10, 2)
	if _, _, err := Build(b, geometry.Region{X1: 3, Y1: 3, X2: 3, Y2: 8}, colorutil.Black, Params{Tolerance: 10}); err == nil {
		t.Error("expected error for degenerate region")
	}
	if _, _, err := Build(b, geometry.Region{X1: 0, Y1: 0, X2: 10, Y2: 10}, colorutil.Black, Params{Tolerance: 0}); err == nil {
		t.Error("expected error for zero tolerance")
	}
	if _, _, err := Build(b, geometry.Region{X1: 0, Y1: 0, X2: 10, Y2: 10}, colorutil.Black, Params{Tolerance: 300}); err == nil {
		t.Error("expected error for tolerance above 255")
	}
}

func TestMaskSubAndClone(t *testing.T) {
	b := blackSquareOnWhite(20, 20, 3)
	region := geometry.Region{X1: 5, Y1: 5, X2: 15, Y2: 15}
	m, _, err := Build(b, region, colorutil.Black, Params{Tolerance: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	sub := m.Sub(region)
	if len(sub) != 100 {
		t.Fatalf("sub plane length %d, want 100", len(sub))
	}
	set := 0
	for _, v := range sub {
		if v != 0 {
			set++
		}
	}
	if set != m.Count() {
		t.Errorf("sub plane has %d set pixels, mask has %d", set, m.Count())
	}

	c := m.Clone()
	c.Pix[0] = 255
	if m.Pix[0] != 0 {
		t.Error("clone shares storage with original")
	}
}
