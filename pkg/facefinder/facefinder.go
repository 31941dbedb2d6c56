// Package facefinder detects faces with a pixel-intensity comparison cascade.
// The cascade file (the "facefinder" model shipped with pigo) is read from disk.
package facefinder

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"

	"github.com/menta2k/avatar-crop/pkg/types"
)

// Options tunes the cascade scan
type Options struct {
	MinSize     int     `json:"min_size"`
	MaxSize     int     `json:"max_size"`
	ShiftFactor float64 `json:"shift_factor"`
	ScaleFactor float64 `json:"scale_factor"`
	IoU         float64 `json:"iou"`
	// QThreshold drops detections with a lower quality score
	QThreshold float32 `json:"q_threshold"`
}

// DefaultOptions returns the scan parameters used by the pigo examples
func DefaultOptions() Options {
	return Options{
		MinSize:     20,
		MaxSize:     2000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		IoU:         0.2,
		QThreshold:  5.0,
	}
}

// Detector finds faces using an unpacked pigo cascade
type Detector struct {
	classifier *pigo.Pigo
	opts       Options
}

// Load reads and unpacks a cascade file
func Load(path string, opts Options) (*Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cascade file: %w", err)
	}
	return New(data, opts)
}

// New unpacks cascade data
func New(cascade []byte, opts Options) (*Detector, error) {
	if len(cascade) == 0 {
		return nil, fmt.Errorf("empty cascade data")
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpacking cascade file: %w", err)
	}
	return &Detector{classifier: classifier, opts: withDefaults(opts)}, nil
}

// DetectFaces implements detection.FaceDetector
func (d *Detector) DetectFaces(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := imaging.Clone(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	params := pigo.CascadeParams{
		MinSize:     d.opts.MinSize,
		MaxSize:     d.opts.MaxSize,
		ShiftFactor: d.opts.ShiftFactor,
		ScaleFactor: d.opts.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0)
	dets = d.classifier.ClusterDetections(dets, d.opts.IoU)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return toFaceBoxes(dets, d.opts.QThreshold, types.ImageSize{Width: cols, Height: rows}), nil
}

// toFaceBoxes converts detections (center and side) into clamped boxes
func toFaceBoxes(dets []pigo.Detection, qThreshold float32, size types.ImageSize) []types.FaceBox {
	var boxes []types.FaceBox
	for _, det := range dets {
		if det.Q < qThreshold {
			continue
		}
		half := det.Scale / 2
		r := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
		b := types.FaceBoxFromRect(r, float64(det.Q)).ClampTo(size)
		if b.Empty() {
			continue
		}
		boxes = append(boxes, b)
	}
	return boxes
}

func withDefaults(o Options) Options {
	def := DefaultOptions()
	if o.MinSize <= 0 {
		o.MinSize = def.MinSize
	}
	if o.MaxSize <= 0 {
		o.MaxSize = def.MaxSize
	}
	if o.ShiftFactor <= 0 {
		o.ShiftFactor = def.ShiftFactor
	}
	if o.ScaleFactor <= 1 {
		o.ScaleFactor = def.ScaleFactor
	}
	if o.IoU <= 0 {
		o.IoU = def.IoU
	}
	return o
}
