package detection

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/avatar-crop/pkg/client"
	"github.com/menta2k/avatar-crop/pkg/processing"
	"github.com/menta2k/avatar-crop/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt is the default prompt for face detection
const DefaultPrompt = `You are a face locator for avatar cropping.

Return JSON only:
{
  "faces": [
    {"label": "face", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ],
  "description": "short neutral sentence (≤ 20 words)"
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- One entry per visible human or character face, drawn or photographed.
- The box covers the face from hairline to chin and ear to ear, not the whole head or body.
- Do not guess real identities.
- If no face is visible, return {"faces": [], "description": "no face"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ModelOptions controls how images are sent to a vision model
type ModelOptions struct {
	Model         string
	Prompt        string
	SendFormat    string
	SendSize      int
	SendQuality   int
	MinConfidence float64
}

// DefaultModelOptions returns the options used when nothing else is configured
func DefaultModelOptions() ModelOptions {
	return ModelOptions{
		Model:       "openbmb/minicpm-v4.5",
		Prompt:      DefaultPrompt,
		SendFormat:  "jpg",
		SendSize:    1536,
		SendQuality: 85,
	}
}

// ModelDetector detects faces by asking a vision model
type ModelDetector struct {
	client    client.VisionClient
	processor *processing.Processor
	opts      ModelOptions
}

// NewModelDetector creates a new detector with a vision client
func NewModelDetector(c client.VisionClient, opts ModelOptions) *ModelDetector {
	def := DefaultModelOptions()
	if opts.Model == "" {
		opts.Model = def.Model
	}
	if opts.Prompt == "" {
		opts.Prompt = def.Prompt
	}
	if opts.SendFormat == "" {
		opts.SendFormat = def.SendFormat
	}
	if opts.SendQuality <= 0 {
		opts.SendQuality = def.SendQuality
	}
	return &ModelDetector{client: c, processor: processing.NewProcessor(), opts: opts}
}

// DetectFaces implements FaceDetector
func (d *ModelDetector) DetectFaces(ctx context.Context, img image.Image) ([]types.FaceBox, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, d.opts.SendFormat, d.opts.SendSize, d.opts.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("preparing image for model: %w", err)
	}

	result, err := d.client.AnalyzeImage(ctx, d.opts.Model, d.opts.Prompt, imgB64)
	if err != nil {
		return nil, err
	}

	size := types.SizeOf(img)
	var boxes []types.FaceBox
	for _, f := range result.Faces {
		if f.Confidence < d.opts.MinConfidence {
			continue
		}
		if label := strings.ToLower(f.Label); label == "none" || label == "no face" {
			continue
		}
		boxes = append(boxes, normalizeBox(f.Box).ToFaceBox(size, f.Confidence))
	}
	return Normalize(boxes, size), nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *ModelDetector) TestVision(ctx context.Context, img image.Image) (string, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, d.opts.SendFormat, d.opts.SendSize, d.opts.SendQuality)
	if err != nil {
		return "", err
	}
	return d.client.SimpleQuery(ctx, d.opts.Model, SimpleTestPrompt, imgB64)
}

// normalizeBox rescales boxes some models report in percent instead of [0,1]
func normalizeBox(b types.Box) types.Box {
	if b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1 {
		return types.Box{X: b.X / 100, Y: b.Y / 100, W: b.W / 100, H: b.H / 100}
	}
	return b
}
