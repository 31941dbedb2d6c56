package analyzer

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/menta2k/avatar-crop/pkg/types"
)

// ImageAnalyzer inspects source images before they are cropped
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string `json:"supported_formats"`
	MinImageSize     int      `json:"min_image_size"`
}

// DefaultConfig returns the analyzer defaults
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpeg", "png", "webp"},
		MinImageSize:     64,
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{config: DefaultConfig()}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	if len(config.SupportedFormats) == 0 {
		config.SupportedFormats = DefaultConfig().SupportedFormats
	}
	return &ImageAnalyzer{config: config}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Size        types.ImageSize `json:"size"`
	Format      string          `json:"format,omitempty"`
	AspectRatio float64         `json:"aspect_ratio"`
	Area        int             `json:"area"`
}

// GetImageInfo returns basic information about an image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	return infoFor(types.SizeOf(img), "")
}

// InspectFile reads only the image header of a file
func (a *ImageAnalyzer) InspectFile(path string) (ImageInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()
	return a.Inspect(file)
}

// Inspect reads only the image header and checks the format is supported
func (a *ImageAnalyzer) Inspect(reader io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(reader)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	if !a.isFormatSupported(format) {
		return ImageInfo{}, fmt.Errorf("unsupported image format: %s", format)
	}
	return infoFor(types.ImageSize{Width: cfg.Width, Height: cfg.Height}, format), nil
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	return a.ValidateSize(types.SizeOf(img))
}

// ValidateSize checks dimensions against the configured minimum
func (a *ImageAnalyzer) ValidateSize(size types.ImageSize) error {
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("image has no pixels: %dx%d", size.Width, size.Height)
	}
	if size.Width < a.config.MinImageSize || size.Height < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			size.Width, size.Height, a.config.MinImageSize)
	}
	return nil
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
		if strings.EqualFold(supported, "jpg") && strings.EqualFold(format, "jpeg") {
			return true
		}
	}
	return false
}

func infoFor(size types.ImageSize, format string) ImageInfo {
	info := ImageInfo{Size: size, Format: format, Area: size.Width * size.Height}
	if size.Height > 0 {
		info.AspectRatio = float64(size.Width) / float64(size.Height)
	}
	return info
}
