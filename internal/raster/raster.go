// Package raster defines the in-memory pixel grids produced and consumed by
// the stitching engine.
//
// A Raster pairs a draw.Image with its pixel Format and tracks whether its
// single owner has released it. Released rasters report no image and zero
// dimensions, so any later use degrades to a no-result path instead of
// touching freed pixels.
//
// # Formats
//
// Two formats are supported:
//   - ARGB8888: 4 bytes per pixel, backed by *image.RGBA or *image.NRGBA
//   - RGB565: 2 bytes per pixel, opaque, backed by *Image565
//
// RGB565 is the reduced-precision format used for very large canvases.
// Writes into it are ordered-dithered.
package raster

import (
	"fmt"
	"image"
	"image/draw"
)

// Format identifies the pixel layout of a raster or pooled buffer.
type Format int

const (
	// ARGB8888 stores 8 bits per channel including alpha.
	ARGB8888 Format = iota

	// RGB565 stores 5 bits red, 6 bits green and 5 bits blue with no alpha.
	RGB565
)

// BytesPerPixel returns the storage size of one pixel in this format.
func (f Format) BytesPerPixel() int {
	switch f {
	case RGB565:
		return 2
	default:
		return 4
	}
}

func (f Format) String() string {
	switch f {
	case ARGB8888:
		return "ARGB8888"
	case RGB565:
		return "RGB565"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Raster is a mutable pixel grid with a single owner.
//
// Ownership moves by handing the pointer on. Whoever holds it last calls
// Release. A Raster is not safe for concurrent use.
type Raster struct {
	img      draw.Image
	format   Format
	released bool
}

// New allocates a zeroed (fully transparent) raster of the given size.
// Non-positive dimensions yield nil.
func New(width, height int, format Format) *Raster {
	if width <= 0 || height <= 0 {
		return nil
	}
	r := image.Rect(0, 0, width, height)
	switch format {
	case RGB565:
		return &Raster{img: NewImage565(r), format: RGB565}
	default:
		return &Raster{img: image.NewRGBA(r), format: ARGB8888}
	}
}

// Wrap takes ownership of img. The format is inferred from the concrete
// image type; anything other than *Image565 is treated as ARGB8888.
func Wrap(img draw.Image) *Raster {
	if img == nil {
		return nil
	}
	format := ARGB8888
	if _, ok := img.(*Image565); ok {
		format = RGB565
	}
	return &Raster{img: img, format: format}
}

// Image returns the underlying pixels, or nil once released.
func (r *Raster) Image() draw.Image {
	if r == nil || r.released {
		return nil
	}
	return r.img
}

// Format returns the pixel format.
func (r *Raster) Format() Format {
	if r == nil {
		return ARGB8888
	}
	return r.format
}

// Bounds returns the pixel bounds, or the empty rectangle once released.
func (r *Raster) Bounds() image.Rectangle {
	if img := r.Image(); img != nil {
		return img.Bounds()
	}
	return image.Rectangle{}
}

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.Bounds().Dx() }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.Bounds().Dy() }

// Empty reports whether r is nil, released, or has a zero dimension.
func (r *Raster) Empty() bool {
	return r.Width() == 0 || r.Height() == 0
}

// Release drops the pixels. It is idempotent and safe on nil.
func (r *Raster) Release() {
	if r == nil {
		return
	}
	r.released = true
	r.img = nil
}

// Released reports whether Release has been called.
func (r *Raster) Released() bool {
	return r != nil && r.released
}

// View interprets the first width*height*bpp bytes of pix as an image in
// the given format. The returned image aliases pix.
func View(pix []byte, width, height int, format Format) (draw.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid view size %dx%d", width, height)
	}
	bpp := format.BytesPerPixel()
	need := width * height * bpp
	if len(pix) < need {
		return nil, fmt.Errorf("view %dx%d %s needs %d bytes, have %d", width, height, format, need, len(pix))
	}
	rect := image.Rect(0, 0, width, height)
	switch format {
	case RGB565:
		return &Image565{Pix: pix[:need], Stride: width * bpp, Rect: rect}, nil
	default:
		return &image.RGBA{Pix: pix[:need], Stride: width * bpp, Rect: rect}, nil
	}
}
