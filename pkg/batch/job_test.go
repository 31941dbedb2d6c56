package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/menta2k/avatar-crop/pkg/types"
)

func TestJobOutputFor(t *testing.T) {
	defaults := types.OutputConfig{Format: "webp", Quality: 90, Filter: "lanczos"}

	tests := []struct {
		name     string
		job      Job
		expected types.OutputConfig
	}{
		{
			name:     "defaults",
			job:      Job{Destination: "a"},
			expected: defaults,
		},
		{
			name:     "format from extension",
			job:      Job{Destination: "a.PNG"},
			expected: types.OutputConfig{Format: "png", Quality: 90, Filter: "lanczos"},
		},
		{
			name:     "explicit format wins",
			job:      Job{Destination: "a.png", Output: &types.OutputConfig{Format: "jpg", Quality: 70}},
			expected: types.OutputConfig{Format: "jpg", Quality: 70, Filter: "lanczos"},
		},
		{
			name:     "partial override",
			job:      Job{Destination: "a.webp", Output: &types.OutputConfig{Lossless: true, Filter: "box"}},
			expected: types.OutputConfig{Format: "webp", Quality: 90, Lossless: true, Filter: "box"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.job.outputFor(defaults))
		})
	}
}

func TestJobValidate(t *testing.T) {
	valid := Job{Source: "in.png", Destination: "out.png", Crop: testCrop}
	assert.NoError(t, valid.Validate())

	anchorRequire := valid
	anchorRequire.Mode = ModeAnchor
	anchorRequire.RequireFace = true
	assert.Error(t, anchorRequire.Validate())

	badFilter := valid
	badFilter.Output = &types.OutputConfig{Filter: "sharpest"}
	assert.Error(t, badFilter.Validate())

	noSource := valid
	noSource.Source = " "
	assert.Error(t, noSource.Validate())
}

func TestDebugKey(t *testing.T) {
	assert.Equal(t, "team/alice_debug.png", DebugKey("team/alice.webp"))
	assert.Equal(t, "bob_debug.png", DebugKey("bob"))
}

func TestNewError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.Equal(t, KindLoad, newError(ctx, KindLoad, context.Canceled).Kind)
	cancel()
	assert.Equal(t, KindCanceled, newError(ctx, KindLoad, context.Canceled).Kind)
	assert.Equal(t, KindLoad, newError(ctx, KindLoad, errors.New("404")).Kind)

	err := &Error{Kind: KindStore, Err: errors.New("denied")}
	assert.Equal(t, "store: denied", err.Error())
	assert.Equal(t, KindNone, KindOf(errors.New("plain")))
}
