package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/avatar-crop/pkg/types"
)

// FaceDetector finds face bounding boxes in an image.
// Returning no boxes is a valid answer, not an error.
type FaceDetector interface {
	DetectFaces(ctx context.Context, img image.Image) ([]types.FaceBox, error)
}

// FaceDetectorFunc adapts a function to the FaceDetector interface
type FaceDetectorFunc func(ctx context.Context, img image.Image) ([]types.FaceBox, error)

// DetectFaces calls f
func (f FaceDetectorFunc) DetectFaces(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
	return f(ctx, img)
}

// None never finds a face
var None FaceDetector = FaceDetectorFunc(func(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
	return nil, ctx.Err()
})

// Static returns the same boxes for every image
func Static(boxes ...types.FaceBox) FaceDetector {
	return FaceDetectorFunc(func(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
		return Normalize(boxes, types.SizeOf(img)), ctx.Err()
	})
}

// Chain tries each detector in order and returns the first non-empty result.
// An error from one detector is returned only if no later detector finds a face.
type Chain []FaceDetector

// DetectFaces implements FaceDetector
func (c Chain) DetectFaces(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
	var firstErr error
	for i, d := range c {
		boxes, err := d.DetectFaces(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("detector %d: %w", i, err)
			}
			continue
		}
		if len(boxes) > 0 {
			return boxes, nil
		}
	}
	return nil, firstErr
}

// Normalize clamps boxes into the image and drops those left without area
func Normalize(boxes []types.FaceBox, size types.ImageSize) []types.FaceBox {
	out := make([]types.FaceBox, 0, len(boxes))
	for _, b := range boxes {
		b = b.ClampTo(size)
		if b.Empty() {
			continue
		}
		out = append(out, b)
	}
	return out
}
