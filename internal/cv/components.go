package cv

import (
	"gocv.io/x/gocv"

	"card-retouch/pkg/geometry"
)

// Component describes one 8-connected blob found in a binary plane.
type Component struct {
	Area     int
	X        int
	Y        int
	W        int
	H        int
	Centroid geometry.Point2D
}

// ConnectedComponents extracts 8-connected components from a binary plane.
// The background component (label 0) is not returned; blobs smaller than
// minArea are dropped as noise.
func ConnectedComponents(pix []uint8, w, h, minArea int) ([]Component, error) {
	src, err := maskMat(pix, w, h)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(src, &labels, &stats, &centroids)

	comps := make([]Component, 0, n)
	for i := 1; i < n; i++ {
		area := int(stats.GetIntAt(i, int(gocv.CCStatArea)))
		if area < minArea {
			continue
		}
		comps = append(comps, Component{
			Area: area,
			X:    int(stats.GetIntAt(i, int(gocv.CCStatLeft))),
			Y:    int(stats.GetIntAt(i, int(gocv.CCStatTop))),
			W:    int(stats.GetIntAt(i, int(gocv.CCStatWidth))),
			H:    int(stats.GetIntAt(i, int(gocv.CCStatHeight))),
			Centroid: geometry.Point2D{
				X: centroids.GetDoubleAt(i, 0),
				Y: centroids.GetDoubleAt(i, 1),
			},
		})
	}
	return comps, nil
}
