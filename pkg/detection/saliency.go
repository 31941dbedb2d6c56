package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"

	"github.com/menta2k/avatar-crop/pkg/types"
)

// DefaultRegionScale shrinks the salient square to roughly the size of a head
const DefaultRegionScale = 0.4

// SaliencyDetector reports the most interesting square region of an image as a
// single face box. It uses edge, skin tone and saturation analysis and is meant
// for illustrations where cascade detectors find nothing.
type SaliencyDetector struct {
	resampler   imaging.ResampleFilter
	regionScale float64
}

// NewSaliencyDetector creates a saliency detector. A regionScale outside (0,1]
// selects DefaultRegionScale.
func NewSaliencyDetector(regionScale float64) *SaliencyDetector {
	if !(regionScale > 0 && regionScale <= 1) {
		regionScale = DefaultRegionScale
	}
	return &SaliencyDetector{resampler: imaging.Lanczos, regionScale: regionScale}
}

// DetectFaces implements FaceDetector
func (d *SaliencyDetector) DetectFaces(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := types.SizeOf(img)
	side := size.Width
	if size.Height < side {
		side = size.Height
	}
	if side <= 0 {
		return nil, nil
	}

	analyzer := smartcrop.NewAnalyzer(&resizer{resampler: d.resampler})

	type cropResult struct {
		crop image.Rectangle
		err  error
	}
	resultChan := make(chan cropResult, 1)
	go func() {
		crop, err := analyzer.FindBestCrop(img, side, side)
		resultChan <- cropResult{crop: crop, err: err}
	}()

	var crop image.Rectangle
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			return nil, fmt.Errorf("finding salient region: %w", result.err)
		}
		crop = result.crop
	}

	return Normalize([]types.FaceBox{shrink(crop, d.regionScale)}, size), nil
}

// shrink scales r around its center
func shrink(r image.Rectangle, scale float64) types.FaceBox {
	w := int(float64(r.Dx())*scale + 0.5)
	h := int(float64(r.Dy())*scale + 0.5)
	x := r.Min.X + (r.Dx()-w)/2
	y := r.Min.Y + (r.Dy()-h)/2
	return types.FaceBox{X: x, Y: y, Width: w, Height: h}
}

// resizer implements the smartcrop.Resizer interface on top of imaging
type resizer struct {
	resampler imaging.ResampleFilter
}

func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.resampler)
}
