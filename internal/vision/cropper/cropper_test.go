package cropper

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func cornersFor(x0, y0, x1, y1 float64) [4][2]float64 {
	return [4][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestExtractCropsRegionFromCorners(t *testing.T) {
	frame := solidPNG(t, 200, 100)
	specs := []CropSpec{
		{JSONTableID: "t1", BBox: RotatedBBox{Corners: cornersFor(10, 10, 60, 60)}},
	}
	crops, warnings, err := Extract(frame, 200, 100, specs, "image/png")
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, crops, 1)
	assert.Equal(t, "t1", crops[0].JSONTableID)
	assert.Equal(t, 50, crops[0].Width)
	assert.Equal(t, 50, crops[0].Height)
	assert.NotEmpty(t, crops[0].ImageBytes)
}

func TestExtractSkipsSubEightPixelCropsAsWarnings(t *testing.T) {
	frame := solidPNG(t, 200, 100)
	specs := []CropSpec{
		{JSONTableID: "tiny", BBox: RotatedBBox{Corners: cornersFor(10, 10, 14, 14)}}, // 4x4
	}
	crops, warnings, err := Extract(frame, 200, 100, specs, "image/png")
	require.NoError(t, err)
	assert.Empty(t, crops)
	require.Len(t, warnings, 1)
	assert.Equal(t, "tiny", warnings[0].JSONTableID)
	assert.Equal(t, "invalid crop", warnings[0].Reason)
}

func TestExtractClampsBoundsToFrame(t *testing.T) {
	frame := solidPNG(t, 100, 100)
	specs := []CropSpec{
		{JSONTableID: "edge", BBox: RotatedBBox{Corners: cornersFor(-50, -50, 50, 50)}},
	}
	crops, _, err := Extract(frame, 100, 100, specs, "image/png")
	require.NoError(t, err)
	require.Len(t, crops, 1)
	assert.LessOrEqual(t, crops[0].Width, 99)
	assert.LessOrEqual(t, crops[0].Height, 99)
}

func TestExtractResizesWhenCropSizeSpecified(t *testing.T) {
	frame := solidPNG(t, 200, 100)
	specs := []CropSpec{
		{JSONTableID: "t1", BBox: RotatedBBox{Corners: cornersFor(10, 10, 60, 60)}, CropSize: [2]int{32, 32}},
	}
	crops, _, err := Extract(frame, 200, 100, specs, "image/png")
	require.NoError(t, err)
	require.Len(t, crops, 1)
	assert.Equal(t, 32, crops[0].Width)
	assert.Equal(t, 32, crops[0].Height)
}

func TestExtractFallsBackToCenterSizeWhenNoCorners(t *testing.T) {
	frame := solidPNG(t, 200, 100)
	specs := []CropSpec{
		{JSONTableID: "t1", BBox: RotatedBBox{Center: [2]float64{50, 50}, Size: [2]float64{40, 40}}},
	}
	crops, warnings, err := Extract(frame, 200, 100, specs, "image/png")
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, crops, 1)
	assert.InDelta(t, 40, crops[0].Width, 1)
}
