package cv

import (
	"fmt"
	goimage "image"
	"os"

	"gocv.io/x/gocv"

	img "card-retouch/internal/image"
)

// InpaintNet is an optional neural inpainting collaborator backed by the
// OpenCV DNN module. It expects a LaMa-style ONNX export with two inputs,
// "image" (1x3xHxW, 0-1) and "mask" (1x1xHxW, 0-1), producing the completed
// image on its single output.
type InpaintNet struct {
	net  gocv.Net
	path string
}

// LoadInpaintNet probes for a model file and loads it. A missing or
// unreadable model returns an error; callers treat that as "collaborator
// unavailable" and fall back to classical inpainting.
func LoadInpaintNet(modelPath string) (*InpaintNet, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("no model path configured")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}
	return &InpaintNet{net: net, path: modelPath}, nil
}

// Path returns the model file the network was loaded from.
func (n *InpaintNet) Path() string { return n.path }

// Close releases the network.
func (n *InpaintNet) Close() error { return n.net.Close() }

// Run inpaints the masked pixels of a buffer with the loaded model. Only
// masked pixels are taken from the network output; everything else keeps the
// source value. The result is a new buffer.
func (n *InpaintNet) Run(b *img.Buffer, mask []uint8) (*img.Buffer, error) {
	src, err := toMat(b)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer src.Close()

	maskM, err := maskMat(mask, b.W, b.H)
	if err != nil {
		return nil, fmt.Errorf("convert mask: %w", err)
	}
	defer maskM.Close()

	blob := gocv.BlobFromImage(src, 1.0/255.0, goimage.Pt(b.W, b.H),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	maskBlob := gocv.BlobFromImage(maskM, 1.0/255.0, goimage.Pt(b.W, b.H),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer maskBlob.Close()

	n.net.SetInput(blob, "image")
	n.net.SetInput(maskBlob, "mask")

	out := n.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return nil, fmt.Errorf("network %s produced no output", n.path)
	}

	decoded := gocv.NewMat()
	defer decoded.Close()
	gocv.ImagesFromBlob(out, []gocv.Mat{decoded})

	scaled := gocv.NewMat()
	defer scaled.Close()
	decoded.ConvertToWithParams(&scaled, gocv.MatTypeCV8UC3, 255, 0)

	// Network output is RGB; the Mat conversion helpers assume BGR.
	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(scaled, &bgr, gocv.ColorRGBToBGR)

	full, err := fromMat(bgr, b)
	if err != nil {
		return nil, err
	}

	result := b.Clone()
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			if mask[y*b.W+x] == 0 {
				continue
			}
			result.SetRGB(x, y, full.RGBAt(x, y))
		}
	}
	return result, nil
}
