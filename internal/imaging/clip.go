package imaging

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-stitch-mcp/internal/raster"
)

// Clip extracts the width x height region at (x, y) from src.
//
// Parameters:
//   - src: The raster to clip. Ownership passes to Clip only when a new
//     raster is returned.
//   - x, y: Top-left corner of the region.
//   - width, height: Size of the region. A non-positive size never fits.
//
// Returns:
//   - *raster.Raster: nil, src itself, or a new raster, as below.
//
// The result contract has three cases, and callers depend on each:
//   - nil, released or zero-sized src: returns nil
//   - region that does not fit inside src: returns src itself, untouched
//   - otherwise: returns a new ARGB8888 raster and releases src
//
// An x outside [0, width] or a y outside [0, height] is clamped to 0 before
// the fit check. A region covering all of src also returns src itself.
func Clip(src *raster.Raster, x, y, width, height int) *raster.Raster {
	if src.Empty() {
		return nil
	}
	sw, sh := src.Width(), src.Height()

	if x < 0 || x > sw {
		x = 0
	}
	if y < 0 || y > sh {
		y = 0
	}

	if width <= 0 || height <= 0 ||
		width > sw || height > sh ||
		x+width > sw || y+height > sh {
		return src
	}
	if x == 0 && y == 0 && width == sw && height == sh {
		return src
	}

	img := src.Image()
	rect := image.Rect(x, y, x+width, y+height).Add(img.Bounds().Min)
	clipped := imaging.Crop(img, rect)
	src.Release()
	return raster.Wrap(clipped)
}

// ClipFromCenter extracts a width x height region centred in src.
func ClipFromCenter(src *raster.Raster, width, height int) *raster.Raster {
	if src.Empty() {
		return nil
	}
	x := (src.Width() - width) / 2
	y := (src.Height() - height) / 2
	return Clip(src, x, y, width, height)
}

// ClipXFromCenter keeps the full height and a centred span of width.
func ClipXFromCenter(src *raster.Raster, width int) *raster.Raster {
	if src.Empty() {
		return nil
	}
	return ClipFromCenter(src, width, src.Height())
}

// ClipYFromCenter keeps the full width and a centred span of height.
func ClipYFromCenter(src *raster.Raster, height int) *raster.Raster {
	if src.Empty() {
		return nil
	}
	return ClipFromCenter(src, src.Width(), height)
}

// ClipToSquare centre-crops src to its shorter side.
func ClipToSquare(src *raster.Raster) *raster.Raster {
	if src.Empty() {
		return nil
	}
	size := min(src.Width(), src.Height())
	return ClipFromCenter(src, size, size)
}
