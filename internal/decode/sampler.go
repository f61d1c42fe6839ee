// Package decode turns sources into reduced-resolution rasters backed by
// pooled buffers.
//
// A decode picks the largest power-of-two subsample that still covers the
// requested extent, then fills either a compatible buffer checked out of
// the pool or a freshly allocated one. Callers hand the result back with
// Release once they have drawn it.
package decode

import (
	"fmt"
	"image"
	"image/draw"
	"io"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/charmbracelet/log"
	xdraw "golang.org/x/image/draw"

	"github.com/ironsheep/image-stitch-mcp/internal/imaging"
	"github.com/ironsheep/image-stitch-mcp/internal/pool"
	"github.com/ironsheep/image-stitch-mcp/internal/raster"
)

// Source is an image that can report its bounds and decode its raw pixels.
// *imaging.Source implements it.
type Source interface {
	Bounds() (imaging.Bounds, error)
	Decode() (image.Image, error)
}

// SampleSize returns the largest power of two s such that nativeW/s and
// nativeH/s (rounded down) are still at least reqW and reqH. It never
// returns less than 1, so a request larger than the native size decodes
// at full resolution.
func SampleSize(nativeW, nativeH, reqW, reqH int) int {
	reqW, reqH = max(reqW, 1), max(reqH, 1)
	s := 1
	for nativeW/(s*2) >= reqW && nativeH/(s*2) >= reqH {
		s *= 2
	}
	return s
}

// RequiredBytes is the storage needed for a nativeW x nativeH image decoded
// at subsample in format.
func RequiredBytes(nativeW, nativeH, subsample int, format raster.Format) int {
	w, h := sampledSize(nativeW, nativeH, subsample)
	return w * h * format.BytesPerPixel()
}

func sampledSize(nativeW, nativeH, subsample int) (int, int) {
	s := max(subsample, 1)
	return (nativeW + s - 1) / s, (nativeH + s - 1) / s
}

// Decoded is a decoded source and the buffer that holds its pixels.
type Decoded struct {
	// Raster aliases Buffer. It is valid until Release.
	Raster *raster.Raster
	Buffer *pool.Buffer

	// Rotation is the clockwise rotation still to be applied, in degrees.
	Rotation  int
	Subsample int

	// Reused reports whether Buffer came out of the pool.
	Reused bool
}

// Sampler decodes sources into pooled buffers.
type Sampler struct {
	pool   *pool.Pool
	logger *log.Logger
}

// NewSampler creates a sampler drawing buffers from p. A nil logger
// discards output.
func NewSampler(p *pool.Pool, logger *log.Logger) *Sampler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Sampler{pool: p, logger: logger}
}

// Decode decodes src so that, once rotated, it covers at least
// reqW x reqH. reqW and reqH are in display orientation.
//
// The pixels are fully decoded by the source's decoder and then
// downsampled into the output buffer. On error nothing is checked out of
// the pool.
func (s *Sampler) Decode(src Source, reqW, reqH int, format raster.Format) (*Decoded, error) {
	b, err := src.Bounds()
	if err != nil {
		return nil, err
	}
	rawW, rawH := b.Raw()
	if b.Rotation == 90 || b.Rotation == 270 {
		reqW, reqH = reqH, reqW
	}

	sub := SampleSize(rawW, rawH, reqW, reqH)
	outW, outH := sampledSize(rawW, rawH, sub)

	img, err := src.Decode()
	if err != nil {
		return nil, err
	}

	req := pool.Request{
		Bytes:     RequiredBytes(rawW, rawH, sub, format),
		Format:    format,
		Width:     outW,
		Height:    outH,
		Subsample: sub,
	}
	if buf, ok := s.pool.Get(req); ok {
		if d, err := s.decodeInto(buf, img, outW, outH, format); err == nil {
			d.Rotation, d.Subsample = b.Rotation, sub
			return d, nil
		}
		buf.Destroy()
	}

	d, err := s.decodeFresh(img, outW, outH, format)
	if err != nil {
		return nil, err
	}
	d.Rotation, d.Subsample = b.Rotation, sub
	return d, nil
}

// decodeInto refills a pooled buffer in place.
func (s *Sampler) decodeInto(buf *pool.Buffer, img image.Image, w, h int, format raster.Format) (*Decoded, error) {
	dst, err := buf.Reconfigure(w, h, format)
	if err != nil {
		return nil, err
	}
	scaleInto(dst, img)
	return &Decoded{Raster: raster.Wrap(dst), Buffer: buf, Reused: true}, nil
}

// decodeFresh allocates a new buffer for the decode.
func (s *Sampler) decodeFresh(img image.Image, w, h int, format raster.Format) (*Decoded, error) {
	if format == raster.RGB565 {
		buf := pool.NewBuffer(w*h*format.BytesPerPixel(), format)
		dst, err := buf.Reconfigure(w, h, format)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate %dx%d buffer: %w", w, h, err)
		}
		scaleInto(dst, img)
		return &Decoded{Raster: raster.Wrap(dst), Buffer: buf}, nil
	}

	var rgba *image.RGBA
	if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		rgba = clone.AsRGBA(img)
		rgba.Rect = image.Rect(0, 0, w, h)
	} else {
		rgba = transform.Resize(img, w, h, transform.Box)
	}
	buf := pool.Adopt(rgba.Pix, raster.ARGB8888, w, h, true)
	return &Decoded{Raster: raster.Wrap(rgba), Buffer: buf}, nil
}

func scaleInto(dst draw.Image, src image.Image) {
	sb := src.Bounds()
	if sb.Dx() == dst.Bounds().Dx() && sb.Dy() == dst.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
}

// Rotate applies d.Rotation and returns a decode holding the upright
// pixels. The rotated pixels live in a new buffer; the old one is retired
// to the pool at once so only one live buffer holds the content. A decode
// needing no rotation is returned as is.
func (s *Sampler) Rotate(d *Decoded) *Decoded {
	if d == nil || d.Rotation%360 == 0 {
		return d
	}
	rotated := imaging.Orient(d.Raster.Image(), d.Rotation)
	nrgba, ok := rotated.(*image.NRGBA)
	if !ok {
		return d
	}

	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	out := &Decoded{
		Raster:    raster.Wrap(nrgba),
		Buffer:    pool.Adopt(nrgba.Pix, raster.ARGB8888, w, h, true),
		Subsample: d.Subsample,
	}
	s.Release(d)
	return out
}

// Release drops the raster and retires its buffer to the pool. It is safe
// on nil and on an already released decode.
func (s *Sampler) Release(d *Decoded) {
	if d == nil || d.Buffer == nil {
		return
	}
	d.Raster.Release()
	if !s.pool.Put(d.Buffer) {
		s.logger.Debug("decode buffer not pooled", "bytes", d.Buffer.Capacity())
	}
	d.Buffer = nil
}
