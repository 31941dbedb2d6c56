package cropper

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/avatar-crop/pkg/types"
)

// ErrInvalidInput is returned when the image size or crop configuration cannot produce a crop
var ErrInvalidInput = errors.New("invalid input")

// CropConfig holds configuration for head-region cropping
type CropConfig struct {
	// CropRatio is the fraction of the crop side the detected face should occupy,
	// or the fraction of the image's shorter side when no face is known.
	CropRatio float64 `json:"crop_ratio"`
	// VerticalAnchorRatio is the fraction of image height used as the crop center
	// when no face is known.
	VerticalAnchorRatio float64 `json:"vertical_anchor_ratio"`
	// OutputSize is the side of the square avatar in pixels.
	OutputSize int `json:"output_size"`
}

// Presets tuned for generated half-body portraits
var (
	FaceDetect  = CropConfig{CropRatio: 0.65, VerticalAnchorRatio: 0.25, OutputSize: 512}
	TightFace   = CropConfig{CropRatio: 0.85, VerticalAnchorRatio: 0.22, OutputSize: 512}
	Headshot    = CropConfig{CropRatio: 0.35, VerticalAnchorRatio: 0.25, OutputSize: 256}
	TightAnchor = CropConfig{CropRatio: 0.28, VerticalAnchorRatio: 0.22, OutputSize: 512}
)

// DefaultConfig returns the face-detection preset
func DefaultConfig() CropConfig {
	return FaceDetect
}

// Validate checks the configuration against the documented ranges
func (c CropConfig) Validate() error {
	if !(c.CropRatio > 0) || c.CropRatio > 1 {
		return fmt.Errorf("%w: crop ratio %v must be in (0, 1]", ErrInvalidInput, c.CropRatio)
	}
	if !(c.VerticalAnchorRatio >= 0) || c.VerticalAnchorRatio > 1 {
		return fmt.Errorf("%w: vertical anchor ratio %v must be in [0, 1]", ErrInvalidInput, c.VerticalAnchorRatio)
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("%w: output size %d must be positive", ErrInvalidInput, c.OutputSize)
	}
	return nil
}

// Compute returns the square crop rectangle for an image of the given size.
// When face is nil the crop is centered horizontally and anchored vertically at
// cfg.VerticalAnchorRatio of the image height.
func Compute(size types.ImageSize, face *types.FaceBox, cfg CropConfig) (types.CropRectangle, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return types.CropRectangle{}, fmt.Errorf("%w: image size %dx%d", ErrInvalidInput, size.Width, size.Height)
	}
	if cfg.OutputSize <= 0 {
		return types.CropRectangle{}, fmt.Errorf("%w: output size %d", ErrInvalidInput, cfg.OutputSize)
	}
	if !(cfg.CropRatio > 0) || math.IsInf(cfg.CropRatio, 1) {
		return types.CropRectangle{}, fmt.Errorf("%w: crop ratio %v", ErrInvalidInput, cfg.CropRatio)
	}

	var s float64
	var cx, cy float64
	if face != nil {
		s = math.Ceil(float64(maxInt(face.Width, face.Height)) / cfg.CropRatio)
		cx, cy = face.Center()
	} else {
		s = math.Round(float64(minInt(size.Width, size.Height)) * cfg.CropRatio)
		cx = float64(size.Width) / 2
		cy = float64(size.Height) * cfg.VerticalAnchorRatio
	}
	// capped in float64, extreme ratios overflow int
	s = math.Max(1, math.Min(s, float64(minInt(size.Width, size.Height))))
	side := int(s)

	x1, x2 := place(cx, side, size.Width)
	y1, y2 := place(cy, side, size.Height)

	return types.CropRectangle{X1: x1, Y1: y1, X2: x2, Y2: y2}, nil
}

// place positions a span of length side centered at c on an axis of length limit,
// shifting it back inside before clamping.
func place(c float64, side, limit int) (int, int) {
	lo := int(math.Floor(c - float64(side)/2))
	hi := lo + side
	if lo < 0 {
		hi -= lo
		lo = 0
	}
	if hi > limit {
		lo -= hi - limit
		hi = limit
	}
	return clampInt(lo, 0, limit), clampInt(hi, 0, limit)
}

// SelectFace picks the face with the largest area. Ties keep the earliest box.
func SelectFace(faces []types.FaceBox) (types.FaceBox, bool) {
	if len(faces) == 0 {
		return types.FaceBox{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Area() > best.Area() {
			best = f
		}
	}
	return best, true
}

// CropImage crops rect out of img and resizes it to a size x size square
func CropImage(img image.Image, rect types.CropRectangle, size int, filter imaging.ResampleFilter) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: output size %d", ErrInvalidInput, size)
	}
	bounds := img.Bounds()
	r := rect.Rect().Add(bounds.Min).Intersect(bounds)
	if r.Empty() {
		return nil, fmt.Errorf("empty crop rectangle %v", r)
	}
	return imaging.Resize(imaging.Crop(img, r), size, size, filter), nil
}

var filters = map[string]imaging.ResampleFilter{
	"lanczos":         imaging.Lanczos,
	"catmullrom":      imaging.CatmullRom,
	"mitchell":        imaging.MitchellNetravali,
	"linear":          imaging.Linear,
	"box":             imaging.Box,
	"nearest":         imaging.NearestNeighbor,
	"bspline":         imaging.BSpline,
	"gaussian":        imaging.Gaussian,
	"hann":            imaging.Hann,
	"hamming":         imaging.Hamming,
	"blackman":        imaging.Blackman,
	"bartlett":        imaging.Bartlett,
	"welch":           imaging.Welch,
	"cosine":          imaging.Cosine,
	"nearestneighbor": imaging.NearestNeighbor,
}

// Filter looks up a resampling filter by name. An empty name selects Lanczos.
func Filter(name string) (imaging.ResampleFilter, error) {
	if name == "" {
		return imaging.Lanczos, nil
	}
	f, ok := filters[strings.ToLower(name)]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter: %s", name)
	}
	return f, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
