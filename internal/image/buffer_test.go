package image

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"card-retouch/pkg/colorutil"
	"card-retouch/pkg/geometry"
)

func TestNewRejectsBadChannels(t *testing.T) {
	for _, ch := range []int{0, 2, 5} {
		if _, err := New(10, 10, ch); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("New with %d channels: want ErrUnsupportedFormat, got %v", ch, err)
		}
	}
}

func TestFromImageChannels(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	if got := FromImage(gray).Channels; got != 1 {
		t.Errorf("gray: %d channels, want 1", got)
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	if got := FromImage(nrgba).Channels; got != 4 {
		t.Errorf("nrgba: %d channels, want 4", got)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if got := FromImage(rgba).Channels; got != 3 {
		t.Errorf("rgba fallback: %d channels, want 3", got)
	}
}

func TestRGBRoundTrip(t *testing.T) {
	buf, err := New(8, 8, 3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	want := colorutil.RGB{R: 10, G: 200, B: 77}
	buf.SetRGB(3, 5, want)
	if got := buf.RGBAt(3, 5); got != want {
		t.Errorf("RGBAt = %+v, want %+v", got, want)
	}
}

func TestGrayBufferReplication(t *testing.T) {
	buf, _ := New(4, 4, 1)
	buf.Pix[buf.Offset(1, 1)] = 99
	got := buf.RGBAt(1, 1)
	if got.R != 99 || got.G != 99 || got.B != 99 {
		t.Errorf("gray pixel reads as %+v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	buf, _ := New(4, 4, 3)
	buf.SetRGB(0, 0, colorutil.White)
	clone := buf.Clone()
	buf.SetRGB(0, 0, colorutil.Black)
	if got := clone.RGBAt(0, 0); got != colorutil.White {
		t.Errorf("clone mutated through original: %+v", got)
	}
}

func TestCrop(t *testing.T) {
	buf, _ := New(10, 10, 3)
	buf.SetRGB(5, 5, colorutil.RGB{R: 1, G: 2, B: 3})

	crop := buf.Crop(geometry.NewRegion(4, 4, 8, 8))
	if crop.W != 4 || crop.H != 4 {
		t.Fatalf("crop size %dx%d, want 4x4", crop.W, crop.H)
	}
	if got := crop.RGBAt(1, 1); got != (colorutil.RGB{R: 1, G: 2, B: 3}) {
		t.Errorf("crop pixel = %+v", got)
	}
}

func TestToImageRoundTrip(t *testing.T) {
	buf, _ := New(5, 5, 4)
	buf.SetRGB(2, 2, colorutil.RGB{R: 9, G: 8, B: 7})
	buf.Pix[buf.Offset(2, 2)+3] = 255

	img := buf.ToImage()
	r, g, b, _ := img.At(2, 2).RGBA()
	if uint8(r>>8) != 9 || uint8(g>>8) != 8 || uint8(b>>8) != 7 {
		t.Errorf("ToImage pixel = (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestDownsampleHalvesAndKeepsChannels(t *testing.T) {
	buf, _ := New(20, 10, 3)
	small := buf.Downsample()
	if small.W != 10 || small.H != 5 {
		t.Errorf("downsample size %dx%d, want 10x5", small.W, small.H)
	}
	if small.Channels != 3 {
		t.Errorf("downsample channels = %d, want 3", small.Channels)
	}
}

func TestGrayAt(t *testing.T) {
	buf, _ := New(2, 2, 3)
	buf.SetRGB(0, 0, colorutil.White)
	if got := buf.GrayAt(0, 0); got != 255 {
		t.Errorf("white GrayAt = %d", got)
	}

	// Rec.601 green weight dominates.
	buf.SetRGB(1, 0, colorutil.RGB{G: 255})
	if got := buf.GrayAt(1, 0); got != 150 {
		t.Errorf("green GrayAt = %d, want 150", got)
	}
}

func TestAtImplementsColorAccess(t *testing.T) {
	buf, _ := New(2, 2, 3)
	buf.SetRGB(1, 1, colorutil.RGB{R: 255})
	c := buf.At(1, 1)
	if c != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("At = %+v", c)
	}
}
