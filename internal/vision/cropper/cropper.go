// Package cropper implements the Crop Extractor (C4): turning a frame
// plus crop-JSON into a list of per-table crops (spec.md §4.4). It is
// pure CPU-bound work — no network, no database calls.
package cropper

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/brigadeops/core/internal/apperr"
)

const component = "cropper"

// minCropDimension is the §4.4 step 2 threshold: crops smaller than
// this on either axis are skipped as invalid.
const minCropDimension = 8

// RotatedBBox mirrors the §6 crop-JSON schema's rotated_bbox object.
type RotatedBBox struct {
	Center  [2]float64
	Size    [2]float64
	Angle   float64
	Corners [4][2]float64
}

// CropSpec is one entry of crop-JSON's "tables" array.
type CropSpec struct {
	JSONTableID string
	BBox        RotatedBBox
	CropFile    string
	// CropSize, if non-zero, is the target size the classifier expects;
	// the extracted region is resized to it with a high-quality
	// resampler rather than shipped at its native aspect.
	CropSize [2]int
}

// TableCrop is one extracted crop, ready for dispatch to C5.
type TableCrop struct {
	JSONTableID string
	ImageBytes  []byte
	Width       int
	Height      int
	ContentType string
}

// Warning records a non-fatal skip, per §4.4 step 2 ("record 'invalid
// crop' warning").
type Warning struct {
	JSONTableID string
	Reason      string
}

// Extract implements the §4.4 algorithm: for each spec, computes the
// rotated bbox's axis-aligned bounding rectangle, clamps it to the
// frame, skips sub-8px results, slices the region, and re-encodes it
// in the same format as the input frame.
func Extract(frameBytes []byte, frameW, frameH int, specs []CropSpec, contentType string) ([]TableCrop, []Warning, error) {
	img, format, err := decode(frameBytes, contentType)
	if err != nil {
		return nil, nil, apperr.Wrap(component, apperr.KindPermanent, "decode frame", err)
	}

	crops := make([]TableCrop, 0, len(specs))
	var warnings []Warning

	for _, spec := range specs {
		x0, y0, x1, y1 := axisAlignedBounds(spec.BBox)
		x0, y0, x1, y1 = clamp(x0, y0, x1, y1, frameW, frameH)

		w, h := x1-x0, y1-y0
		if w < minCropDimension || h < minCropDimension {
			warnings = append(warnings, Warning{JSONTableID: spec.JSONTableID, Reason: "invalid crop"})
			continue
		}

		sub := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(sub, sub.Bounds(), img, image.Pt(x0, y0), draw.Src)

		final := image.Image(sub)
		if spec.CropSize[0] > 0 && spec.CropSize[1] > 0 {
			final = resize(sub, spec.CropSize[0], spec.CropSize[1])
		}

		encoded, err := encode(final, format)
		if err != nil {
			return nil, nil, apperr.Wrap(component, apperr.KindPermanent, "encode crop", err)
		}

		outW, outH := w, h
		if spec.CropSize[0] > 0 && spec.CropSize[1] > 0 {
			outW, outH = spec.CropSize[0], spec.CropSize[1]
		}
		crops = append(crops, TableCrop{
			JSONTableID: spec.JSONTableID,
			ImageBytes:  encoded,
			Width:       outW,
			Height:      outH,
			ContentType: contentType,
		})
	}

	return crops, warnings, nil
}

// axisAlignedBounds computes the bounding rectangle of the four
// rotated-bbox corners, per §4.4 step 1. Corners are used directly
// when present (more accurate than reconstructing from center/size/
// angle); callers lacking corners can derive them first.
func axisAlignedBounds(b RotatedBBox) (x0, y0, x1, y1 int) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range b.Corners {
		if c[0] < minX {
			minX = c[0]
		}
		if c[0] > maxX {
			maxX = c[0]
		}
		if c[1] < minY {
			minY = c[1]
		}
		if c[1] > maxY {
			maxY = c[1]
		}
	}
	if math.IsInf(minX, 1) {
		// No corners supplied; fall back to center/size/angle.
		hw, hh := b.Size[0]/2, b.Size[1]/2
		minX, maxX = b.Center[0]-hw, b.Center[0]+hw
		minY, maxY = b.Center[1]-hh, b.Center[1]+hh
	}
	return int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))
}

// clamp implements §4.4 step 2: clamp to [0, frame_w-1] x [0, frame_h-1].
func clamp(x0, y0, x1, y1, frameW, frameH int) (int, int, int, int) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > frameW-1 {
		x1 = frameW - 1
	}
	if y1 > frameH-1 {
		y1 = frameH - 1
	}
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return x0, y0, x1, y1
}

// resize scales src to w x h using a Catmull-Rom resampler, matching
// the quality the classifier's training pipeline expects for a fixed
// input size.
func resize(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func decode(data []byte, contentType string) (image.Image, string, error) {
	if contentType == "image/png" {
		img, err := png.Decode(bytes.NewReader(data))
		return img, "png", err
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err == nil {
		return img, "jpeg", nil
	}
	// Fall back to the other decoder rather than trusting contentType
	// blindly — frame sources occasionally mislabel the format.
	img2, err2 := png.Decode(bytes.NewReader(data))
	if err2 == nil {
		return img2, "png", nil
	}
	return nil, "", err
}

func encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if format == "png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
