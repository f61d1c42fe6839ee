package imaging

import (
	"image"
	"image/draw"
	"math"

	"github.com/ironsheep/image-stitch-mcp/internal/raster"
)

// supersample is the per-axis sample count used for edge pixels.
const supersample = 4

// ClipToCircle masks src to the largest centred circle and crops the result
// to a square around it. Pixels outside the circle are fully transparent.
//
// src is always released when a result is produced. A nil, released or
// zero-sized src returns nil.
func ClipToCircle(src *raster.Raster) *raster.Raster {
	if src.Empty() {
		return nil
	}
	w, h := src.Width(), src.Height()
	cx, cy := float64(w/2), float64(h/2)
	r := float64(min(w, h) / 2)

	mask := coverageMask(w, h, func(x, y float64) float64 {
		return math.Hypot(x-cx, y-cy) - r
	})
	out := drawMasked(src, mask)
	src.Release()
	return ClipToSquare(out)
}

// ClipToRound masks src to a rounded rectangle covering its full bounds,
// with corners of the given radius. The radius is capped at half the
// shorter side. A radius of zero or less degrades to a full-bounds Clip,
// which returns src unchanged.
func ClipToRound(src *raster.Raster, radius int) *raster.Raster {
	if src.Empty() {
		return nil
	}
	w, h := src.Width(), src.Height()
	if radius <= 0 {
		return Clip(src, 0, 0, w, h)
	}

	hx, hy := float64(w)/2, float64(h)/2
	r := math.Min(float64(radius), math.Min(hx, hy))

	mask := coverageMask(w, h, func(x, y float64) float64 {
		qx := math.Abs(x-hx) - (hx - r)
		qy := math.Abs(y-hy) - (hy - r)
		outside := math.Hypot(math.Max(qx, 0), math.Max(qy, 0))
		inside := math.Min(math.Max(qx, qy), 0)
		return outside + inside - r
	})
	out := drawMasked(src, mask)
	src.Release()
	return out
}

// drawMasked composites src into a new transparent raster of the same size,
// keeping src only where mask is opaque.
func drawMasked(src *raster.Raster, mask *image.Alpha) *raster.Raster {
	img := src.Image()
	out := image.NewRGBA(image.Rect(0, 0, src.Width(), src.Height()))
	draw.DrawMask(out, out.Bounds(), img, img.Bounds().Min, mask, image.Point{}, draw.Over)
	return raster.Wrap(out)
}

// coverageMask rasterises the shape described by the signed distance
// function sdf (negative inside) into an alpha mask. Pixels whose centre is
// at least one pixel from the edge are set directly; the rest are
// supersampled for anti-aliasing.
func coverageMask(w, h int, sdf func(x, y float64) float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	const total = supersample * supersample

	for py := 0; py < h; py++ {
		row := mask.Pix[py*mask.Stride:]
		for px := 0; px < w; px++ {
			d := sdf(float64(px)+0.5, float64(py)+0.5)
			switch {
			case d <= -1:
				row[px] = 0xff
			case d >= 1:
				row[px] = 0
			default:
				n := 0
				for sy := 0; sy < supersample; sy++ {
					fy := float64(py) + (float64(sy)+0.5)/supersample
					for sx := 0; sx < supersample; sx++ {
						fx := float64(px) + (float64(sx)+0.5)/supersample
						if sdf(fx, fy) <= 0 {
							n++
						}
					}
				}
				row[px] = uint8(n * 0xff / total)
			}
		}
	}
	return mask
}
