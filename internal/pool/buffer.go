package pool

import (
	"fmt"
	"image/draw"

	"github.com/ironsheep/image-stitch-mcp/internal/raster"
)

// Buffer is a block of pixel memory that can be reinterpreted as a raster of
// any size that fits its capacity.
//
// A Buffer has exactly one holder at a time: the decode that filled it, the
// pool while it is free, or nobody once destroyed.
type Buffer struct {
	pix       []byte
	format    raster.Format
	width     int
	height    int
	mutable   bool
	destroyed bool
}

// NewBuffer allocates a mutable buffer of size bytes.
func NewBuffer(size int, format raster.Format) *Buffer {
	return &Buffer{
		pix:     make([]byte, size),
		format:  format,
		mutable: true,
	}
}

// Adopt wraps memory that was allocated elsewhere, for example by a decoder
// or a rotation, so it can be retired to a pool. The caller must not keep
// other references to pix.
func Adopt(pix []byte, format raster.Format, width, height int, mutable bool) *Buffer {
	return &Buffer{
		pix:     pix,
		format:  format,
		width:   width,
		height:  height,
		mutable: mutable,
	}
}

// Capacity returns the size of the buffer in bytes.
func (b *Buffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.pix)
}

// Format returns the format of the last configuration.
func (b *Buffer) Format() raster.Format { return b.format }

// Size returns the width and height of the last configuration.
func (b *Buffer) Size() (int, int) { return b.width, b.height }

// Mutable reports whether the buffer may be refilled.
func (b *Buffer) Mutable() bool { return b.mutable }

// Live reports whether the buffer still owns memory.
func (b *Buffer) Live() bool {
	return b != nil && !b.destroyed && b.pix != nil
}

// Destroy frees the memory. It is idempotent.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	b.destroyed = true
	b.pix = nil
}

// Reconfigure reinterprets the buffer as a width x height image in format.
// The returned image aliases the buffer and is valid until the buffer is
// retired or destroyed.
func (b *Buffer) Reconfigure(width, height int, format raster.Format) (draw.Image, error) {
	if !b.Live() {
		return nil, fmt.Errorf("buffer is not live")
	}
	if !b.mutable {
		return nil, fmt.Errorf("buffer is immutable")
	}
	img, err := raster.View(b.pix, width, height, format)
	if err != nil {
		return nil, err
	}
	b.width, b.height, b.format = width, height, format
	return img, nil
}
