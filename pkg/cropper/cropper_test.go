package cropper

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/avatar-crop/pkg/types"
)

// createTestImage creates a simple test image with a bright square standing in for a head
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/8 && y < height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}
	return img
}

func assertContained(t *testing.T, r types.CropRectangle, size types.ImageSize) {
	t.Helper()
	assert.GreaterOrEqual(t, r.X1, 0)
	assert.GreaterOrEqual(t, r.Y1, 0)
	assert.Less(t, r.X1, r.X2)
	assert.Less(t, r.Y1, r.Y2)
	assert.LessOrEqual(t, r.X2, size.Width)
	assert.LessOrEqual(t, r.Y2, size.Height)
}

func TestComputeFaceAtCorner(t *testing.T) {
	face := &types.FaceBox{X: 0, Y: 0, Width: 20, Height: 20}
	cfg := CropConfig{CropRatio: 0.65, VerticalAnchorRatio: 0.25, OutputSize: 512}

	rect, err := Compute(types.ImageSize{Width: 100, Height: 100}, face, cfg)
	require.NoError(t, err)
	assert.Equal(t, types.CropRectangle{X1: 0, Y1: 0, X2: 31, Y2: 31}, rect)
}

func TestComputeFullImage(t *testing.T) {
	cfg := CropConfig{CropRatio: 1.0, VerticalAnchorRatio: 0.22, OutputSize: 256}

	rect, err := Compute(types.ImageSize{Width: 50, Height: 50}, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, types.CropRectangle{X1: 0, Y1: 0, X2: 50, Y2: 50}, rect)
}

func TestComputeInvalidInput(t *testing.T) {
	valid := CropConfig{CropRatio: 0.5, VerticalAnchorRatio: 0.5, OutputSize: 64}
	tests := []struct {
		name string
		size types.ImageSize
		cfg  CropConfig
	}{
		{"zero width", types.ImageSize{Width: 0, Height: 10}, valid},
		{"negative height", types.ImageSize{Width: 10, Height: -1}, valid},
		{"zero output size", types.ImageSize{Width: 10, Height: 10}, CropConfig{CropRatio: 0.5, OutputSize: 0}},
		{"zero crop ratio", types.ImageSize{Width: 10, Height: 10}, CropConfig{CropRatio: 0, OutputSize: 64}},
		{"negative crop ratio", types.ImageSize{Width: 10, Height: 10}, CropConfig{CropRatio: -0.3, OutputSize: 64}},
		{"NaN crop ratio", types.ImageSize{Width: 10, Height: 10}, CropConfig{CropRatio: math.NaN(), OutputSize: 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.size, nil, tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestComputeCenteredFace(t *testing.T) {
	face := &types.FaceBox{X: 80, Y: 60, Width: 40, Height: 30}
	cfg := CropConfig{CropRatio: 0.5, VerticalAnchorRatio: 0.25, OutputSize: 128}

	rect, err := Compute(types.ImageSize{Width: 400, Height: 300}, face, cfg)
	require.NoError(t, err)

	// side = ceil(40/0.5) = 80 centered at (100, 75)
	assert.Equal(t, types.CropRectangle{X1: 60, Y1: 35, X2: 140, Y2: 115}, rect)
	fx, fy := face.Center()
	assert.Equal(t, fx, float64(rect.X1+rect.X2)/2)
	assert.Equal(t, fy, float64(rect.Y1+rect.Y2)/2)
}

func TestComputeOddSideCenter(t *testing.T) {
	face := &types.FaceBox{X: 100, Y: 100, Width: 20, Height: 20}
	cfg := CropConfig{CropRatio: 0.65, OutputSize: 64}

	rect, err := Compute(types.ImageSize{Width: 300, Height: 300}, face, cfg)
	require.NoError(t, err)
	assert.Equal(t, 31, rect.Dx())
	assert.Equal(t, 31, rect.Dy())

	fx, fy := face.Center()
	assert.InDelta(t, fx, float64(rect.X1+rect.X2)/2, 0.5)
	assert.InDelta(t, fy, float64(rect.Y1+rect.Y2)/2, 0.5)
}

func TestComputeShiftsAtFarEdges(t *testing.T) {
	face := &types.FaceBox{X: 180, Y: 130, Width: 20, Height: 20}
	cfg := CropConfig{CropRatio: 0.5, OutputSize: 64}

	rect, err := Compute(types.ImageSize{Width: 200, Height: 150}, face, cfg)
	require.NoError(t, err)
	assert.Equal(t, types.CropRectangle{X1: 160, Y1: 110, X2: 200, Y2: 150}, rect)
}

func TestComputeAnchorFallback(t *testing.T) {
	cfg := CropConfig{CropRatio: 0.35, VerticalAnchorRatio: 0.25, OutputSize: 256}

	rect, err := Compute(types.ImageSize{Width: 1000, Height: 1500}, nil, cfg)
	require.NoError(t, err)

	// side = round(1000*0.35) = 350, center (500, 375)
	assert.Equal(t, types.CropRectangle{X1: 325, Y1: 200, X2: 675, Y2: 550}, rect)
}

func TestComputeAnchorAtTop(t *testing.T) {
	cfg := CropConfig{CropRatio: 0.5, VerticalAnchorRatio: 0, OutputSize: 64}

	rect, err := Compute(types.ImageSize{Width: 200, Height: 400}, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, types.CropRectangle{X1: 50, Y1: 0, X2: 150, Y2: 100}, rect)
}

func TestComputeFaceLargerThanImage(t *testing.T) {
	size := types.ImageSize{Width: 100, Height: 50}
	face := &types.FaceBox{X: 30, Y: 5, Width: 40, Height: 40}
	cfg := CropConfig{CropRatio: 0.65, OutputSize: 64}

	rect, err := Compute(size, face, cfg)
	require.NoError(t, err)
	assertContained(t, rect, size)

	// ceil(40/0.65) = 62 does not fit into 50 rows; largest square is 50x50 around x=50
	assert.Equal(t, types.CropRectangle{X1: 25, Y1: 0, X2: 75, Y2: 50}, rect)
}

func TestComputeRatioAboveOne(t *testing.T) {
	size := types.ImageSize{Width: 300, Height: 200}
	rect, err := Compute(size, nil, CropConfig{CropRatio: 1.5, VerticalAnchorRatio: 0.5, OutputSize: 64})
	require.NoError(t, err)
	assert.Equal(t, types.CropRectangle{X1: 50, Y1: 0, X2: 250, Y2: 200}, rect)
}

func TestComputeTinyRatio(t *testing.T) {
	size := types.ImageSize{Width: 10, Height: 10}
	rect, err := Compute(size, nil, CropConfig{CropRatio: 0.01, VerticalAnchorRatio: 0.5, OutputSize: 64})
	require.NoError(t, err)
	assertContained(t, rect, size)
	assert.Equal(t, 1, rect.Dx())
}

func TestComputeExtremeRatios(t *testing.T) {
	size := types.ImageSize{Width: 100, Height: 100}
	face := &types.FaceBox{X: 40, Y: 40, Width: 20, Height: 20}
	full := types.CropRectangle{X1: 0, Y1: 0, X2: 100, Y2: 100}

	tests := []struct {
		name  string
		face  *types.FaceBox
		ratio float64
	}{
		{"tiny ratio with face", face, 1e-300},
		{"smallest ratio with face", face, math.SmallestNonzeroFloat64},
		{"huge ratio without face", nil, 1e300},
		{"max ratio without face", nil, math.MaxFloat64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rect, err := Compute(size, tt.face, CropConfig{CropRatio: tt.ratio, VerticalAnchorRatio: 0.5, OutputSize: 64})
			require.NoError(t, err)
			assert.Equal(t, full, rect)
		})
	}

	_, err := Compute(size, face, CropConfig{CropRatio: math.Inf(1), OutputSize: 64})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = Compute(size, nil, CropConfig{CropRatio: math.Inf(1), OutputSize: 64})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComputeAlwaysContained(t *testing.T) {
	sizes := []types.ImageSize{{Width: 1, Height: 1}, {Width: 3, Height: 7}, {Width: 50, Height: 50}, {Width: 640, Height: 480}, {Width: 480, Height: 640}, {Width: 1024, Height: 77}}
	ratios := []float64{0.01, 0.28, 0.35, 0.5, 0.65, 0.85, 1.0}
	anchors := []float64{0, 0.22, 0.25, 0.5, 0.9, 1.0}

	for _, size := range sizes {
		for _, ratio := range ratios {
			for _, anchor := range anchors {
				cfg := CropConfig{CropRatio: ratio, VerticalAnchorRatio: anchor, OutputSize: 32}
				rect, err := Compute(size, nil, cfg)
				require.NoError(t, err)
				assertContained(t, rect, size)
				assert.Equal(t, rect.Dx(), rect.Dy(), "size=%v ratio=%v anchor=%v", size, ratio, anchor)
			}
		}
	}
}

func TestComputeFacesAlwaysContained(t *testing.T) {
	size := types.ImageSize{Width: 320, Height: 240}
	faces := []types.FaceBox{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 300, Y: 220, Width: 20, Height: 20},
		{X: 0, Y: 200, Width: 40, Height: 40},
		{X: 100, Y: 50, Width: 120, Height: 150},
		{X: 0, Y: 0, Width: 320, Height: 240},
	}
	for _, ratio := range []float64{0.3, 0.65, 0.85, 1.0} {
		for i := range faces {
			rect, err := Compute(size, &faces[i], CropConfig{CropRatio: ratio, OutputSize: 64})
			require.NoError(t, err)
			assertContained(t, rect, size)
			assert.Equal(t, rect.Dx(), rect.Dy())
		}
	}
}

func TestComputeIdempotent(t *testing.T) {
	size := types.ImageSize{Width: 731, Height: 977}
	face := &types.FaceBox{X: 201, Y: 99, Width: 173, Height: 181}
	cfg := TightFace

	first, err := Compute(size, face, cfg)
	require.NoError(t, err)
	second, err := Compute(size, face, cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSelectFace(t *testing.T) {
	_, ok := SelectFace(nil)
	assert.False(t, ok)

	faces := []types.FaceBox{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 50, Y: 50, Width: 20, Height: 20},
	}
	best, ok := SelectFace(faces)
	require.True(t, ok)
	assert.Equal(t, 400, best.Area())
	assert.Equal(t, 50, best.X)
}

func TestSelectFaceTieKeepsFirst(t *testing.T) {
	faces := []types.FaceBox{
		{X: 1, Y: 1, Width: 10, Height: 40},
		{X: 2, Y: 2, Width: 20, Height: 20},
		{X: 3, Y: 3, Width: 40, Height: 10},
	}
	best, ok := SelectFace(faces)
	require.True(t, ok)
	assert.Equal(t, 1, best.X)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Headshot.Validate())
	assert.ErrorIs(t, CropConfig{CropRatio: 1.2, OutputSize: 1}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, CropConfig{CropRatio: 0.5, VerticalAnchorRatio: -0.1, OutputSize: 1}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, CropConfig{CropRatio: 0.5, OutputSize: 0}.Validate(), ErrInvalidInput)
}

func TestCropImage(t *testing.T) {
	img := createTestImage(400, 300)
	rect := types.CropRectangle{X1: 150, Y1: 40, X2: 250, Y2: 140}

	out, err := CropImage(img, rect, 64, imaging.Lanczos)
	require.NoError(t, err)
	assert.Equal(t, 64, out.Bounds().Dx())
	assert.Equal(t, 64, out.Bounds().Dy())
}

func TestCropImageOffsetBounds(t *testing.T) {
	base := createTestImage(200, 200)
	sub := base.(*image.RGBA).SubImage(image.Rect(50, 50, 150, 150))

	out, err := CropImage(sub, types.CropRectangle{X1: 0, Y1: 0, X2: 100, Y2: 100}, 10, imaging.Box)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), out.Bounds())
}

func TestCropImageEmpty(t *testing.T) {
	img := createTestImage(100, 100)
	_, err := CropImage(img, types.CropRectangle{X1: 200, Y1: 200, X2: 300, Y2: 300}, 64, imaging.Lanczos)
	assert.Error(t, err)

	_, err = CropImage(img, types.CropRectangle{X1: 0, Y1: 0, X2: 10, Y2: 10}, 0, imaging.Lanczos)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFilter(t *testing.T) {
	f, err := Filter("")
	require.NoError(t, err)
	assert.Equal(t, imaging.Lanczos.Support, f.Support)

	f, err = Filter("CatmullRom")
	require.NoError(t, err)
	assert.Equal(t, imaging.CatmullRom.Support, f.Support)

	_, err = Filter("bogus")
	assert.Error(t, err)
}

func BenchmarkCompute(b *testing.B) {
	size := types.ImageSize{Width: 1920, Height: 1080}
	face := &types.FaceBox{X: 900, Y: 200, Width: 180, Height: 200}
	for i := 0; i < b.N; i++ {
		Compute(size, face, FaceDetect)
	}
}

func BenchmarkCropImage(b *testing.B) {
	img := createTestImage(1920, 1080)
	rect := types.CropRectangle{X1: 700, Y1: 100, X2: 1200, Y2: 600}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CropImage(img, rect, 512, imaging.Lanczos)
	}
}
