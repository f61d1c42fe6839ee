// Package stitch composites a sequence of sources into a single canvas.
//
// An Engine sizes the result with package layout, allocates the canvas,
// then decodes, rotates and draws each item in turn through a shared
// buffer pool. A stitch either returns a complete canvas or an error and
// nil; partial canvases are always released.
package stitch

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"time"

	"github.com/charmbracelet/log"
	xdraw "golang.org/x/image/draw"

	"github.com/ironsheep/image-stitch-mcp/internal/decode"
	"github.com/ironsheep/image-stitch-mcp/internal/layout"
	"github.com/ironsheep/image-stitch-mcp/internal/pool"
	"github.com/ironsheep/image-stitch-mcp/internal/raster"
)

var (
	// ErrEmptyInput means there were no sources or a source's bounds could
	// not be read.
	ErrEmptyInput = errors.New("empty input")

	// ErrOversizeResult means the canvas would exceed the pixel budget.
	ErrOversizeResult = errors.New("result too large")

	// ErrDecodeFailure means a source could not be decoded.
	ErrDecodeFailure = errors.New("decode failed")

	// ErrCompositeFailure means drawing onto the canvas failed.
	ErrCompositeFailure = errors.New("composite failed")
)

// DefaultReducedPrecisionPixels is the canvas size above which RGB565 is
// used instead of ARGB8888.
const DefaultReducedPrecisionPixels int64 = 16_000_000

// Source is an image the engine can size and decode. *imaging.Source
// implements it.
type Source = decode.Source

// CanvasAllocator creates the destination raster. It may return nil to
// signal that allocation failed.
type CanvasAllocator func(width, height int, format raster.Format) *raster.Raster

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCanvasAllocator replaces raster.New as the canvas allocator.
func WithCanvasAllocator(fn CanvasAllocator) Option {
	return func(e *Engine) {
		if fn != nil {
			e.alloc = fn
		}
	}
}

// WithMaxPixels sets the largest canvas the engine will allocate.
func WithMaxPixels(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPixels = n
		}
	}
}

// WithReducedPrecisionPixels sets the canvas size above which RGB565 is
// used.
func WithReducedPrecisionPixels(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.reducedPixels = n
		}
	}
}

// Engine stitches sources. It is safe for concurrent use; concurrent
// stitches share only the buffer pool.
type Engine struct {
	pool          *pool.Pool
	sampler       *decode.Sampler
	alloc         CanvasAllocator
	logger        *log.Logger
	maxPixels     int64
	reducedPixels int64
}

// New creates an engine that draws decode buffers from p.
func New(p *pool.Pool, opts ...Option) *Engine {
	e := &Engine{
		pool:          p,
		alloc:         raster.New,
		logger:        log.New(io.Discard),
		maxPixels:     layout.MaxPixels,
		reducedPixels: DefaultReducedPrecisionPixels,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sampler = decode.NewSampler(p, e.logger)
	return e
}

// Stitch lays sources out in order according to policy.
func (e *Engine) Stitch(sources []Source, policy layout.Policy) (*raster.Raster, error) {
	ls := make([]layout.Source, len(sources))
	for i, s := range sources {
		if s == nil {
			return nil, fmt.Errorf("%w: source %d is nil", ErrEmptyInput, i)
		}
		ls[i] = s
	}
	plan, err := layout.NewPlan(ls, policy)
	if err != nil {
		e.logger.Warn("stitch sizing failed", "sources", len(sources), "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmptyInput, err)
	}
	return e.render(plan, policy, sources)
}

// StitchRepeat lays src out repeat times. The source is decoded once.
func (e *Engine) StitchRepeat(src Source, repeat int, policy layout.Policy) (*raster.Raster, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: %w", ErrEmptyInput, layout.ErrNoSources)
	}
	plan, err := layout.NewRepeatPlan(src, repeat, policy)
	if err != nil {
		e.logger.Warn("stitch sizing failed", "repeat", repeat, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmptyInput, err)
	}
	return e.render(plan, policy, []Source{src})
}

// render draws plan onto a new canvas. With a single source every item
// is drawn from one decode.
func (e *Engine) render(plan layout.Plan, policy layout.Policy, sources []Source) (*raster.Raster, error) {
	size := plan.Size
	if size.Empty() {
		return nil, ErrEmptyInput
	}
	if size.Exceeds(e.maxPixels) {
		e.logger.Warn("stitch result too large", "size", size, "limit", e.maxPixels)
		return nil, fmt.Errorf("%w: %v exceeds %d pixels", ErrOversizeResult, size, e.maxPixels)
	}

	start := time.Now()
	format := raster.ARGB8888
	if size.Exceeds(e.reducedPixels) {
		format = raster.RGB565
	}
	e.logger.Info("stitching",
		"items", plan.Len(),
		"direction", plan.Direction,
		"extent", policy.Extent,
		"size", size,
		"format", format)

	canvas := e.alloc(size.Width, size.Height, format)
	if canvas.Empty() {
		return nil, fmt.Errorf("%w: cannot allocate %v canvas", ErrCompositeFailure, size)
	}
	if policy.HasFill() {
		dst := canvas.Image()
		draw.Draw(dst, dst.Bounds(), image.NewUniform(policy.FillColor), image.Point{}, draw.Src)
	}

	if err := e.drawItems(canvas, plan, sources); err != nil {
		canvas.Release()
		e.logger.Warn("stitch failed", "err", err)
		return nil, err
	}

	e.logger.Info("stitch complete", "size", size, "elapsed", time.Since(start))
	return canvas, nil
}

func (e *Engine) drawItems(canvas *raster.Raster, plan layout.Plan, sources []Source) error {
	dst := canvas.Image()
	format := canvas.Format()
	repeat := plan.Repeat > 1

	var cached *decode.Decoded
	defer func() { e.sampler.Release(cached) }()

	cursor := 0
	for i := 0; i < plan.Len(); i++ {
		item := plan.Item(i)
		d := cached
		if d == nil {
			src := sources[min(i, len(sources)-1)]
			req := plan.Direction.Join(item.Primary, item.Cross)
			var err error
			if d, err = e.decode(src, req.Width, req.Height, format); err != nil {
				return fmt.Errorf("%w: item %d: %w", ErrDecodeFailure, i, err)
			}
		}

		r := plan.Direction.Rect(cursor, item.Primary, item.Cross)
		err := composite(dst, r, d.Raster.Image())
		if repeat {
			cached = d
		} else {
			e.sampler.Release(d)
		}
		if err != nil {
			return fmt.Errorf("%w: item %d: %w", ErrCompositeFailure, i, err)
		}
		cursor += item.Primary + plan.Spacing
	}
	return nil
}

// decode returns upright pixels for src. A panicking decoder is reported
// as an error.
func (e *Engine) decode(src Source, reqW, reqH int, format raster.Format) (d *decode.Decoded, err error) {
	defer func() {
		if p := recover(); p != nil {
			d, err = nil, fmt.Errorf("decoder panic: %v", p)
		}
	}()
	d, err = e.sampler.Decode(src, reqW, reqH, format)
	if err != nil {
		return nil, err
	}
	return e.sampler.Rotate(d), nil
}

// composite scales src into r with bilinear filtering, blending over what
// is already on the canvas.
func composite(dst draw.Image, r image.Rectangle, src image.Image) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("draw panic: %v", p)
		}
	}()
	if src == nil {
		return errors.New("no pixels to draw")
	}
	xdraw.BiLinear.Scale(dst, r, src, src.Bounds(), draw.Over, nil)
	return nil
}
