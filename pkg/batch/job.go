package batch

import (
	"fmt"
	"path"
	"strings"

	"github.com/menta2k/avatar-crop/pkg/cropper"
	"github.com/menta2k/avatar-crop/pkg/processing"
	"github.com/menta2k/avatar-crop/pkg/types"
)

// Mode selects how the crop center is found
type Mode string

const (
	// ModeFace runs the face detector and falls back to the anchor when nothing is found
	ModeFace Mode = "face"
	// ModeAnchor skips detection and always uses the vertical anchor
	ModeAnchor Mode = "anchor"
)

// Job describes one avatar to produce
type Job struct {
	Source      string              `json:"source"`
	Destination string              `json:"destination"`
	Crop        cropper.CropConfig  `json:"crop"`
	Mode        Mode                `json:"mode,omitempty"`
	RequireFace bool                `json:"require_face,omitempty"`
	Output      *types.OutputConfig `json:"output,omitempty"`
}

// Validate checks the job can be attempted
func (j Job) Validate() error {
	if strings.TrimSpace(j.Source) == "" {
		return fmt.Errorf("source is required")
	}
	if strings.TrimSpace(j.Destination) == "" {
		return fmt.Errorf("destination is required")
	}
	switch j.Mode {
	case "", ModeFace, ModeAnchor:
	default:
		return fmt.Errorf("unknown mode %q", j.Mode)
	}
	if j.Mode == ModeAnchor && j.RequireFace {
		return fmt.Errorf("require_face cannot be used with mode %q", ModeAnchor)
	}
	if err := j.Crop.Validate(); err != nil {
		return err
	}
	if j.Output != nil && j.Output.Filter != "" {
		if _, err := cropper.Filter(j.Output.Filter); err != nil {
			return err
		}
	}
	return nil
}

func (j Job) mode() Mode {
	if j.Mode == "" {
		return ModeFace
	}
	return j.Mode
}

// outputFor merges the job's overrides onto the runner defaults. A missing
// format is taken from the destination extension.
func (j Job) outputFor(defaults types.OutputConfig) types.OutputConfig {
	out := defaults
	if o := j.Output; o != nil {
		if o.Format != "" {
			out.Format = o.Format
		}
		if o.Quality > 0 {
			out.Quality = o.Quality
		}
		if o.Lossless {
			out.Lossless = true
		}
		if o.Filter != "" {
			out.Filter = o.Filter
		}
	}
	if f := processing.FormatFromPath(j.Destination); f != "" && (j.Output == nil || j.Output.Format == "") {
		out.Format = f
	}
	return out
}

// DebugKey returns the key of the overlay written next to an avatar
func DebugKey(destination string) string {
	ext := path.Ext(destination)
	return strings.TrimSuffix(destination, ext) + "_debug.png"
}
