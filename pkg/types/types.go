package types

import "image"

// ImageSize holds the pixel dimensions of a source raster
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SizeOf returns the dimensions of img
func SizeOf(img image.Image) ImageSize {
	b := img.Bounds()
	return ImageSize{Width: b.Dx(), Height: b.Dy()}
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ToFaceBox converts a normalized box into pixel coordinates for an image of the given size
func (b Box) ToFaceBox(size ImageSize, score float64) FaceBox {
	fw, fh := float64(size.Width), float64(size.Height)
	x0 := int(clamp(b.X, 0, 1)*fw + 0.5)
	y0 := int(clamp(b.Y, 0, 1)*fh + 0.5)
	x1 := int(clamp(b.X+b.W, 0, 1)*fw + 0.5)
	y1 := int(clamp(b.Y+b.H, 0, 1)*fh + 0.5)
	return FaceBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Score: score}
}

// FaceBox is a face bounding box in pixel coordinates as reported by a detector
type FaceBox struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float64 `json:"score,omitempty"`
}

// Area returns Width*Height
func (f FaceBox) Area() int {
	return f.Width * f.Height
}

// Center returns the geometric center of the box
func (f FaceBox) Center() (float64, float64) {
	return float64(f.X) + float64(f.Width)/2, float64(f.Y) + float64(f.Height)/2
}

// Rect returns the box as an image.Rectangle
func (f FaceBox) Rect() image.Rectangle {
	return image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height)
}

// Empty reports whether the box has no area
func (f FaceBox) Empty() bool {
	return f.Width <= 0 || f.Height <= 0
}

// ClampTo returns the box intersected with an image of the given size
func (f FaceBox) ClampTo(size ImageSize) FaceBox {
	r := f.Rect().Intersect(image.Rect(0, 0, size.Width, size.Height))
	return FaceBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy(), Score: f.Score}
}

// FaceBoxFromRect converts an image.Rectangle into a FaceBox
func FaceBoxFromRect(r image.Rectangle, score float64) FaceBox {
	return FaceBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy(), Score: score}
}

// CropRectangle is the region of the source image that becomes the avatar
type CropRectangle struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Dx returns the width of the rectangle
func (r CropRectangle) Dx() int { return r.X2 - r.X1 }

// Dy returns the height of the rectangle
func (r CropRectangle) Dy() int { return r.Y2 - r.Y1 }

// Rect returns the rectangle as an image.Rectangle
func (r CropRectangle) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// DetectedFace is a single face reported by a vision model
type DetectedFace struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// FaceAnalysis contains the complete face analysis result from the vision model
type FaceAnalysis struct {
	Faces       []DetectedFace `json:"faces"`
	Description string         `json:"description"`
}

// OutputConfig defines how a cropped avatar is encoded
type OutputConfig struct {
	Format   string `json:"format"`
	Quality  int    `json:"quality"`
	Lossless bool   `json:"lossless"`
	Filter   string `json:"filter"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
