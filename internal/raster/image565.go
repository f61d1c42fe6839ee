package raster

import (
	"image"
	"image/color"
)

// bayer4 is the 4x4 ordered-dither threshold matrix.
var bayer4 = [4][4]int{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

// Model565 converts colors to what an Image565 can represent, without
// dithering.
var Model565 = color.ModelFunc(func(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return unpack565(pack565(uint8(r>>8), uint8(g>>8), uint8(b>>8)))
})

// Image565 is an opaque image with 16-bit little-endian RGB565 pixels.
type Image565 struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewImage565 returns a black Image565 with the given bounds.
func NewImage565(r image.Rectangle) *Image565 {
	return &Image565{
		Pix:    make([]uint8, 2*r.Dx()*r.Dy()),
		Stride: 2 * r.Dx(),
		Rect:   r,
	}
}

func (p *Image565) ColorModel() color.Model { return Model565 }

func (p *Image565) Bounds() image.Rectangle { return p.Rect }

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *Image565) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}

func (p *Image565) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	return unpack565(uint16(p.Pix[i]) | uint16(p.Pix[i+1])<<8)
}

// Set stores c at (x, y) with ordered dithering. Partially transparent
// colors are composited over black.
func (p *Image565) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	r, g, b, _ := c.RGBA()
	t := bayer4[y&3][x&3]
	v := pack565(
		dither(uint8(r>>8), t, 8),
		dither(uint8(g>>8), t, 4),
		dither(uint8(b>>8), t, 8),
	)
	i := p.PixOffset(x, y)
	p.Pix[i] = uint8(v)
	p.Pix[i+1] = uint8(v >> 8)
}

// dither nudges v by a threshold-dependent fraction of the quantization
// step so that truncation spreads error across neighbouring pixels.
func dither(v uint8, threshold, step int) uint8 {
	n := int(v) + (2*threshold+1)*step/32 - step/2
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

func pack565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

func unpack565(v uint16) color.RGBA {
	r := uint8(v>>11) & 0x1f
	g := uint8(v>>5) & 0x3f
	b := uint8(v) & 0x1f
	return color.RGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 0xff,
	}
}
