package client

import (
	"context"

	"github.com/menta2k/avatar-crop/pkg/types"
)

// VisionClient is a chat backend able to look at an image and answer a prompt
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.FaceAnalysis, error)
}
