// Package cv wraps the OpenCV primitives the processing pipeline treats as a
// black-box collaborator: diffusion inpainting, blurs, adaptive thresholding,
// morphology, distance transforms, and connected components. All gocv usage
// lives here so the rest of the codebase works on plain pixel buffers.
package cv

import (
	"fmt"
	goimage "image"

	"gocv.io/x/gocv"

	img "card-retouch/internal/image"
)

// InpaintMethod selects the OpenCV diffusion inpainting variant.
type InpaintMethod int

const (
	// InpaintTelea is the fast marching method (Telea 2004).
	InpaintTelea InpaintMethod = iota
	// InpaintNS is the Navier-Stokes based method, slower but often smoother.
	InpaintNS
)

// toMat converts a buffer to an OpenCV Mat. Color buffers become 8UC3 in BGR
// order, grayscale buffers 8UC1.
func toMat(b *img.Buffer) (gocv.Mat, error) {
	if b.Channels == 1 {
		return gocv.NewMatFromBytes(b.H, b.W, gocv.MatTypeCV8UC1, b.Pix)
	}

	mat := gocv.NewMatWithSize(b.H, b.W, gocv.MatTypeCV8UC3)
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			c := b.RGBAt(x, y)
			mat.SetUCharAt(y, x*3+0, c.B)
			mat.SetUCharAt(y, x*3+1, c.G)
			mat.SetUCharAt(y, x*3+2, c.R)
		}
	}
	return mat, nil
}

// fromMat converts an OpenCV Mat back to a buffer shaped like the template:
// same channel count, with alpha carried over from the template where present.
func fromMat(mat gocv.Mat, template *img.Buffer) (*img.Buffer, error) {
	out := template.Clone()
	rows, cols := mat.Rows(), mat.Cols()
	if rows != template.H || cols != template.W {
		return nil, fmt.Errorf("mat size %dx%d does not match buffer %dx%d",
			cols, rows, template.W, template.H)
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := out.Offset(x, y)
			if template.Channels == 1 {
				out.Pix[i] = mat.GetUCharAt(y, x)
				continue
			}
			out.Pix[i] = mat.GetUCharAt(y, x*3+2)
			out.Pix[i+1] = mat.GetUCharAt(y, x*3+1)
			out.Pix[i+2] = mat.GetUCharAt(y, x*3+0)
		}
	}
	return out, nil
}

// maskMat builds an 8UC1 Mat from a single-channel pixel plane.
func maskMat(pix []uint8, w, h int) (gocv.Mat, error) {
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix)
}

// planeFromMat reads an 8UC1 Mat into a pixel plane.
func planeFromMat(mat gocv.Mat) []uint8 {
	rows, cols := mat.Rows(), mat.Cols()
	out := make([]uint8, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out[y*cols+x] = mat.GetUCharAt(y, x)
		}
	}
	return out
}

// Inpaint reconstructs the masked pixels of a buffer with OpenCV diffusion
// inpainting. The mask is a w×h plane where non-zero marks pixels to replace.
// The result is a new buffer; the input is not modified.
func Inpaint(b *img.Buffer, mask []uint8, radius int, method InpaintMethod) (*img.Buffer, error) {
	src, err := toMat(b)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer src.Close()

	m, err := maskMat(mask, b.W, b.H)
	if err != nil {
		return nil, fmt.Errorf("convert mask: %w", err)
	}
	defer m.Close()

	algo := gocv.Telea
	if method == InpaintNS {
		algo = gocv.NS
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Inpaint(src, m, &dst, float32(radius), gocv.InpaintMethods(algo))

	return fromMat(dst, b)
}

// GaussianBlurPlane blurs a single-channel plane with an odd ksize kernel.
// ksize values below 3 return a copy unchanged.
func GaussianBlurPlane(pix []uint8, w, h, ksize int) ([]uint8, error) {
	if ksize < 3 {
		out := make([]uint8, len(pix))
		copy(out, pix)
		return out, nil
	}
	if ksize%2 == 0 {
		ksize++
	}

	src, err := maskMat(pix, w, h)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(src, &dst, goimage.Pt(ksize, ksize), 0, 0, gocv.BorderDefault)

	return planeFromMat(dst), nil
}

// AdaptiveThresholdInv binarizes a grayscale plane with a mean-based local
// threshold, inverted so foreground strokes come out high.
func AdaptiveThresholdInv(pix []uint8, w, h, blockSize, c int) ([]uint8, error) {
	if blockSize%2 == 0 {
		blockSize++
	}
	src, err := maskMat(pix, w, h)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.AdaptiveThreshold(src, &dst, 255, gocv.AdaptiveThresholdMean,
		gocv.ThresholdBinaryInv, blockSize, float32(c))

	return planeFromMat(dst), nil
}

// Dilate grows the non-zero area of a plane with a k×k rectangular kernel.
func Dilate(pix []uint8, w, h, k int) ([]uint8, error) {
	return morph(pix, w, h, k, func(src gocv.Mat, dst *gocv.Mat, kernel gocv.Mat) {
		gocv.Dilate(src, dst, kernel)
	})
}

// Erode shrinks the non-zero area of a plane with a k×k rectangular kernel.
func Erode(pix []uint8, w, h, k int) ([]uint8, error) {
	return morph(pix, w, h, k, func(src gocv.Mat, dst *gocv.Mat, kernel gocv.Mat) {
		gocv.Erode(src, dst, kernel)
	})
}

// MorphOpen removes isolated noise pixels (erode then dilate).
func MorphOpen(pix []uint8, w, h, k int) ([]uint8, error) {
	return morph(pix, w, h, k, func(src gocv.Mat, dst *gocv.Mat, kernel gocv.Mat) {
		gocv.MorphologyEx(src, dst, gocv.MorphOpen, kernel)
	})
}

func morph(pix []uint8, w, h, k int, op func(gocv.Mat, *gocv.Mat, gocv.Mat)) ([]uint8, error) {
	if k < 1 {
		out := make([]uint8, len(pix))
		copy(out, pix)
		return out, nil
	}

	src, err := maskMat(pix, w, h)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphRect, goimage.Pt(k, k))
	defer kernel.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	op(src, &dst, kernel)

	return planeFromMat(dst), nil
}

// DistanceTransform returns, for each non-zero pixel of the plane, the L2
// distance to the nearest zero pixel. Zero pixels map to 0.
func DistanceTransform(pix []uint8, w, h int) ([]float32, error) {
	src, err := maskMat(pix, w, h)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dist := gocv.NewMat()
	defer dist.Close()
	labels := gocv.NewMat()
	defer labels.Close()
	gocv.DistanceTransform(src, &dist, &labels, gocv.DistL2, gocv.DistanceMask3, gocv.DistanceLabelCComp)

	out := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = dist.GetFloatAt(y, x)
		}
	}
	return out, nil
}
