// Package avatarcrop produces square head-region avatars from portraits.
//
// A crop is computed from the image size, an optional face box and a crop
// configuration. With a face the square is sized so the face fills
// CropRatio of its side and is centered on the face. Without one the square is
// a fraction of the shorter image side, centered horizontally and anchored at
// VerticalAnchorRatio of the height. The square is shifted back inside the
// image before it is clamped, so it keeps its size whenever it fits.
//
// Basic usage:
//
//	c := avatarcrop.New()
//	res, err := c.CropFile(ctx, "portrait.png", "avatar.webp")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("crop %+v fallback=%v\n", res.Rect, res.Fallback)
//
// The package is a thin layer over:
//
// 1. Cropper (pkg/cropper): the crop rectangle calculator and resampling
// 2. Detection (pkg/detection, pkg/facefinder): pluggable face detectors
// 3. Processing (pkg/processing): image loading, encoding and debug overlays
// 4. Batch (pkg/batch): concurrent manifest processing with metrics
package avatarcrop

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/avatar-crop/pkg/analyzer"
	"github.com/menta2k/avatar-crop/pkg/cropper"
	"github.com/menta2k/avatar-crop/pkg/detection"
	"github.com/menta2k/avatar-crop/pkg/facefinder"
	"github.com/menta2k/avatar-crop/pkg/llamacpp"
	"github.com/menta2k/avatar-crop/pkg/ollama"
	"github.com/menta2k/avatar-crop/pkg/processing"
	"github.com/menta2k/avatar-crop/pkg/types"
)

// Version of the avatar crop library
const Version = "1.0.0"

// Detector backend names
const (
	BackendNone      = "none"
	BackendPigo      = "pigo"
	BackendSmartcrop = "smartcrop"
	BackendOllama    = "ollama"
	BackendLlamaCpp  = "llamacpp"
)

// DetectorOptions selects and configures face detection.
// Backend may list several names separated by commas; they are tried in order.
type DetectorOptions struct {
	Backend       string             `json:"backend"`
	URL           string             `json:"url,omitempty"`
	Model         string             `json:"model,omitempty"`
	Prompt        string             `json:"prompt,omitempty"`
	SendFormat    string             `json:"send_format,omitempty"`
	SendSize      int                `json:"send_size,omitempty"`
	SendQuality   int                `json:"send_quality,omitempty"`
	MinConfidence float64            `json:"min_confidence,omitempty"`
	Cascade       string             `json:"cascade,omitempty"`
	Pigo          facefinder.Options `json:"pigo"`
	SaliencyScale float64            `json:"saliency_scale,omitempty"`
}

// DefaultDetectorOptions returns options for the saliency detector
func DefaultDetectorOptions() DetectorOptions {
	model := detection.DefaultModelOptions()
	return DetectorOptions{
		Backend:     BackendSmartcrop,
		Model:       model.Model,
		SendFormat:  model.SendFormat,
		SendSize:    model.SendSize,
		SendQuality: model.SendQuality,
		Pigo:        facefinder.DefaultOptions(),
	}
}

// Backends returns the backend names in the order they are tried
func (o DetectorOptions) Backends() []string {
	var names []string
	for _, name := range strings.Split(o.Backend, ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// NewDetector builds the detector described by opts
func NewDetector(opts DetectorOptions) (detection.FaceDetector, error) {
	names := opts.Backends()
	if len(names) == 0 {
		return detection.None, nil
	}
	var chain detection.Chain
	for _, name := range names {
		d, err := newBackend(name, opts)
		if err != nil {
			return nil, err
		}
		chain = append(chain, d)
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

func newBackend(name string, opts DetectorOptions) (detection.FaceDetector, error) {
	modelOpts := detection.ModelOptions{
		Model:         opts.Model,
		Prompt:        opts.Prompt,
		SendFormat:    opts.SendFormat,
		SendSize:      opts.SendSize,
		SendQuality:   opts.SendQuality,
		MinConfidence: opts.MinConfidence,
	}
	switch name {
	case BackendNone:
		return detection.None, nil
	case BackendPigo:
		if opts.Cascade == "" {
			return nil, fmt.Errorf("backend %s needs a cascade file", BackendPigo)
		}
		return facefinder.Load(opts.Cascade, opts.Pigo)
	case BackendSmartcrop:
		return detection.NewSaliencyDetector(opts.SaliencyScale), nil
	case BackendOllama:
		url := opts.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return detection.NewModelDetector(c, modelOpts), nil
	case BackendLlamaCpp:
		c, err := llamacpp.NewClient(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return detection.NewModelDetector(c, modelOpts), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
}

// Cropper provides a high-level interface for single avatar crops
type Cropper struct {
	Detector  detection.FaceDetector
	Processor *processing.Processor
	Analyzer  *analyzer.ImageAnalyzer
	Config    cropper.CropConfig
	Output    types.OutputConfig
}

// New creates a Cropper with the default preset and no face detection
func New() *Cropper {
	return NewWithConfig(cropper.DefaultConfig(), detection.None)
}

// NewWithConfig creates a Cropper with a crop configuration and detector
func NewWithConfig(cfg cropper.CropConfig, detector detection.FaceDetector) *Cropper {
	if detector == nil {
		detector = detection.None
	}
	return &Cropper{
		Detector:  detector,
		Processor: processing.NewProcessor(),
		Analyzer:  analyzer.New(),
		Config:    cfg,
		Output:    types.OutputConfig{Format: "webp", Quality: 90},
	}
}

// Result contains the avatar and how it was produced
type Result struct {
	Image    image.Image         `json:"-"`
	Faces    []types.FaceBox     `json:"faces,omitempty"`
	Selected *types.FaceBox      `json:"selected,omitempty"`
	Fallback bool                `json:"fallback"`
	Rect     types.CropRectangle `json:"rect"`
}

// Crop detects faces in img and returns the resized avatar
func (c *Cropper) Crop(ctx context.Context, img image.Image) (Result, error) {
	if err := c.Analyzer.ValidateImage(img); err != nil {
		return Result{}, fmt.Errorf("image validation failed: %w", err)
	}
	faces, err := c.Detector.DetectFaces(ctx, img)
	if err != nil {
		return Result{}, fmt.Errorf("face detection failed: %w", err)
	}

	res := Result{Faces: faces}
	if face, ok := cropper.SelectFace(faces); ok {
		res.Selected = &face
	} else {
		res.Fallback = true
	}

	res.Rect, err = cropper.Compute(types.SizeOf(img), res.Selected, c.Config)
	if err != nil {
		return Result{}, err
	}
	filter, err := cropper.Filter(c.Output.Filter)
	if err != nil {
		return Result{}, err
	}
	res.Image, err = cropper.CropImage(img, res.Rect, c.Config.OutputSize, filter)
	if err != nil {
		return Result{}, fmt.Errorf("cropping failed: %w", err)
	}
	return res, nil
}

// CropFile is a convenience function that loads, crops and saves an avatar.
// The output format follows the extension of outputPath.
func (c *Cropper) CropFile(ctx context.Context, inputPath, outputPath string) (Result, error) {
	img, err := c.Processor.LoadImageSmart(ctx, inputPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load image: %w", err)
	}
	res, err := c.Crop(ctx, img)
	if err != nil {
		return Result{}, err
	}
	out := c.Output
	if f := processing.FormatFromPath(outputPath); f != "" {
		out.Format = f
	}
	if err := c.Processor.SaveImage(res.Image, outputPath, out); err != nil {
		return Result{}, fmt.Errorf("failed to save avatar: %w", err)
	}
	return res, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
