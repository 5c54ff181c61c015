package geometry

import (
	"errors"
	"testing"
)

func TestRegionClampValid(t *testing.T) {
	tests := []struct {
		name    string
		region  Region
		w, h    int
		want    Region
		wantErr bool
	}{
		{"inside", NewRegion(2, 3, 10, 12), 20, 20, NewRegion(2, 3, 10, 12), false},
		{"overhang right", NewRegion(15, 0, 30, 10), 20, 20, NewRegion(15, 0, 20, 10), false},
		{"overhang all", NewRegion(-5, -5, 25, 25), 20, 20, NewRegion(0, 0, 20, 20), false},
		{"zero width", NewRegion(5, 5, 5, 10), 20, 20, Region{}, true},
		{"inverted", NewRegion(10, 10, 5, 5), 20, 20, Region{}, true},
		{"fully outside", NewRegion(30, 30, 40, 40), 20, 20, Region{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.region.ClampValid(tt.w, tt.h)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ClampValid: expected error, got %+v", got)
				}
				if !errors.Is(err, ErrInvalidRegion) {
					t.Errorf("error should wrap ErrInvalidRegion, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ClampValid failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRegionExpand(t *testing.T) {
	r := NewRegion(10, 10, 20, 20)

	got := r.Expand(5, 100, 100)
	if got != NewRegion(5, 5, 25, 25) {
		t.Errorf("Expand(5): got %+v", got)
	}

	// Expansion never leaves the image.
	got = r.Expand(50, 30, 30)
	if got != NewRegion(0, 0, 30, 30) {
		t.Errorf("Expand(50) clipped: got %+v", got)
	}
}

func TestRegionScale(t *testing.T) {
	r := NewRegion(10, 20, 31, 41)
	got := r.Scale(0.5)
	if got != NewRegion(5, 10, 15, 20) {
		t.Errorf("Scale(0.5): got %+v", got)
	}
}
