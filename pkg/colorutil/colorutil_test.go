package colorutil

import (
	"image/color"
	"testing"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{"#000000", Black, false},
		{"#FFFFFF", White, false},
		{"#ff8040", RGB{255, 128, 64}, false},
		{"not-a-color", RGB{}, true},
		{"#12345", RGB{}, true},
	}

	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseHex(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHex(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHex(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	c := RGB{12, 200, 7}
	got, err := ParseHex(c.Hex())
	if err != nil {
		t.Fatalf("ParseHex failed: %v", err)
	}
	if got != c {
		t.Errorf("round trip: got %+v, want %+v", got, c)
	}
}

func TestDistManhattan(t *testing.T) {
	if d := Black.DistManhattan(White); d != 765 {
		t.Errorf("black-white distance = %d, want 765", d)
	}
	if d := (RGB{10, 20, 30}).DistManhattan(RGB{30, 20, 10}); d != 40 {
		t.Errorf("distance = %d, want 40", d)
	}
	if d := White.DistManhattan(White); d != 0 {
		t.Errorf("self distance = %d, want 0", d)
	}
}

func TestLuminance(t *testing.T) {
	if l := White.Luminance(); l < 254.9 || l > 255.1 {
		t.Errorf("white luminance = %f", l)
	}
	if l := Black.Luminance(); l != 0 {
		t.Errorf("black luminance = %f", l)
	}
}

func TestFromColor(t *testing.T) {
	got := FromColor(color.RGBA{R: 1, G: 2, B: 3, A: 255})
	if got != (RGB{1, 2, 3}) {
		t.Errorf("FromColor = %+v", got)
	}
}
